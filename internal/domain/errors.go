package domain

import "errors"

// Sentinel errors shared across the indexing and retrieval layers.
// Callers match them with errors.Is after wrapping.
var (
	// ErrInvalidInput indicates an operation was given unusable input,
	// such as an empty set of units to index.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotLoaded indicates an operation that requires a loaded index
	// was called while the engine holds none.
	ErrNotLoaded = errors.New("index not loaded")

	// ErrNotFound indicates the on-disk index artifacts are missing.
	ErrNotFound = errors.New("index not found")

	// ErrDependency indicates the embedding or completion backend is
	// unusable.
	ErrDependency = errors.New("backend dependency unavailable")

	// ErrConfig indicates a bad or missing backend configuration.
	ErrConfig = errors.New("invalid configuration")

	// ErrEmptySource indicates a rebuild was attempted against a
	// directory with no eligible files.
	ErrEmptySource = errors.New("no eligible source files")

	// ErrIncompatibleIndex indicates persisted artifacts do not match
	// the configured embedding provider, or are internally inconsistent.
	ErrIncompatibleIndex = errors.New("incompatible index")

	// ErrIO indicates a filesystem write or delete failure.
	ErrIO = errors.New("filesystem operation failed")
)
