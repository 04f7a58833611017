// Package index owns the vector index lifecycle: creation from document
// units, persistence as a two-file artifact, loading, nearest-neighbor
// search, and destructive rebuilds.
package index

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kamalkrbh/doc-finder/internal/domain"
	"github.com/kamalkrbh/doc-finder/internal/embedding"
)

// DefaultK is the number of results returned when the caller does not
// ask for a specific k.
const DefaultK = 2

// UnitLoader supplies document units for a rebuild.
type UnitLoader interface {
	Load(dir string) ([]domain.DocumentUnit, error)
}

// Engine holds the single live vector index of the process. It starts
// unloaded; Build or Load transition it to loaded. The handle is
// mutex-guarded so interactive queries cannot race a rebuild, but the
// engine is not meant to be shared across processes.
type Engine struct {
	embedder embedding.Embedder
	log      *zap.Logger

	mu        sync.Mutex
	loaded    bool
	dimension int
	vectors   [][]float64
	units     []domain.DocumentUnit
}

// New creates an unloaded engine bound to one embedding provider.
// The same provider must be used for every index the engine touches.
func New(embedder embedding.Embedder, log *zap.Logger) *Engine {
	return &Engine{embedder: embedder, log: log}
}

// vectorsFile is the serialized form of the vector artifact.
type vectorsFile struct {
	Dimension int         `json:"dimension"`
	Vectors   [][]float64 `json:"vectors"`
}

// docstoreFile is the serialized form of the docstore artifact. The
// embedder fingerprint and count bind the pair to the embedding space
// that produced it and let Load reject half-written state.
type docstoreFile struct {
	Embedder      string                `json:"embedder"`
	Dimension     int                   `json:"dimension"`
	Count         int                   `json:"count"`
	Units         []domain.DocumentUnit `json:"units"`
	EmbedderState json.RawMessage       `json:"embedder_state,omitempty"`
}

// Exists reports whether both artifact files are present. A partial
// pair counts as absent.
func (e *Engine) Exists(loc Location) bool {
	for _, p := range []string{loc.VectorsPath(), loc.DocstorePath()} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

// Loaded reports whether the engine currently holds an index.
func (e *Engine) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loaded
}

// Build embeds every unit and constructs the index in memory,
// transitioning the engine to loaded. It does not persist; see Persist.
func (e *Engine) Build(ctx context.Context, units []domain.DocumentUnit) error {
	if len(units) == 0 {
		return fmt.Errorf("%w: no document units to index", domain.ErrInvalidInput)
	}
	if e.embedder == nil {
		return fmt.Errorf("%w: no embedding provider", domain.ErrDependency)
	}
	corpus := make([]string, len(units))
	for i, u := range units {
		corpus[i] = u.Text
	}
	if err := e.embedder.Prepare(corpus); err != nil {
		return fmt.Errorf("%w: preparing embedder: %v", domain.ErrDependency, err)
	}
	vectors := make([][]float64, len(units))
	dim := 0
	for i, u := range units {
		vec, err := e.embedder.Embed(ctx, u.Text)
		if err != nil {
			return fmt.Errorf("%w: embedding %s: %v", domain.ErrDependency, u.SourceID, err)
		}
		if dim == 0 {
			dim = len(vec)
		}
		if len(vec) != dim {
			return fmt.Errorf("%w: embedder returned inconsistent dimensions", domain.ErrDependency)
		}
		vectors[i] = vec
	}
	e.mu.Lock()
	e.vectors = vectors
	e.units = units
	e.dimension = dim
	e.loaded = true
	e.mu.Unlock()
	e.log.Info("index built in memory",
		zap.Int("units", len(units)),
		zap.Int("dimension", dim),
		zap.String("embedder", e.embedder.Name()))
	return nil
}

// Persist writes the artifact pair under loc. Each file goes to a
// temporary sibling first and is renamed into place, so a crashed write
// never leaves a readable-but-partial artifact.
func (e *Engine) Persist(loc Location) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded {
		return fmt.Errorf("%w: nothing to persist", domain.ErrNotLoaded)
	}
	if err := os.MkdirAll(loc.Dir, 0o755); err != nil {
		return fmt.Errorf("%w: creating index directory: %v", domain.ErrIO, err)
	}
	vecData, err := json.Marshal(vectorsFile{Dimension: e.dimension, Vectors: e.vectors})
	if err != nil {
		return fmt.Errorf("%w: encoding vectors: %v", domain.ErrIO, err)
	}
	store := docstoreFile{
		Embedder:  e.embedder.Name(),
		Dimension: e.dimension,
		Count:     len(e.vectors),
		Units:     e.units,
	}
	if st, ok := e.embedder.(embedding.Stateful); ok {
		snap, err := st.Snapshot()
		if err != nil {
			return fmt.Errorf("%w: snapshotting embedder state: %v", domain.ErrIO, err)
		}
		store.EmbedderState = snap
	}
	storeData, err := json.Marshal(store)
	if err != nil {
		return fmt.Errorf("%w: encoding docstore: %v", domain.ErrIO, err)
	}
	// Vectors first, docstore last: Exists requires both, so an
	// interrupted persist is still reported as absent.
	if err := writeAtomic(loc.VectorsPath(), vecData); err != nil {
		return fmt.Errorf("%w: writing vectors: %v", domain.ErrIO, err)
	}
	if err := writeAtomic(loc.DocstorePath(), storeData); err != nil {
		return fmt.Errorf("%w: writing docstore: %v", domain.ErrIO, err)
	}
	e.log.Info("index persisted",
		zap.String("vectors", loc.VectorsPath()),
		zap.String("docstore", loc.DocstorePath()))
	return nil
}

// Load deserializes the artifact pair and transitions to loaded. The
// stored embedder fingerprint, dimension, and vector count must all be
// consistent with the configured provider; mismatches fail with
// ErrIncompatibleIndex instead of silently returning nonsense rankings.
func (e *Engine) Load(loc Location) error {
	if !e.Exists(loc) {
		return fmt.Errorf("%w: no index at %s", domain.ErrNotFound, filepath.Join(loc.Dir, loc.Base))
	}
	storeData, err := os.ReadFile(loc.DocstorePath())
	if err != nil {
		return fmt.Errorf("%w: reading docstore: %v", domain.ErrIO, err)
	}
	var store docstoreFile
	if err := json.Unmarshal(storeData, &store); err != nil {
		return fmt.Errorf("%w: docstore is not parseable: %v", domain.ErrIncompatibleIndex, err)
	}
	if store.Embedder != e.embedder.Name() {
		return fmt.Errorf("%w: index built with embedder %q, configured %q",
			domain.ErrIncompatibleIndex, store.Embedder, e.embedder.Name())
	}
	vecData, err := os.ReadFile(loc.VectorsPath())
	if err != nil {
		return fmt.Errorf("%w: reading vectors: %v", domain.ErrIO, err)
	}
	var vecs vectorsFile
	if err := json.Unmarshal(vecData, &vecs); err != nil {
		return fmt.Errorf("%w: vectors are not parseable: %v", domain.ErrIncompatibleIndex, err)
	}
	if len(vecs.Vectors) != store.Count || len(store.Units) != store.Count ||
		vecs.Dimension != store.Dimension {
		return fmt.Errorf("%w: artifact pair is internally inconsistent", domain.ErrIncompatibleIndex)
	}
	for _, v := range vecs.Vectors {
		if len(v) != vecs.Dimension {
			return fmt.Errorf("%w: vector dimension mismatch", domain.ErrIncompatibleIndex)
		}
	}
	if st, ok := e.embedder.(embedding.Stateful); ok {
		if len(store.EmbedderState) == 0 {
			return fmt.Errorf("%w: index lacks state for embedder %q",
				domain.ErrIncompatibleIndex, e.embedder.Name())
		}
		if err := st.Restore(store.EmbedderState); err != nil {
			return fmt.Errorf("%w: restoring embedder state: %v", domain.ErrIncompatibleIndex, err)
		}
	}
	e.mu.Lock()
	e.vectors = vecs.Vectors
	e.units = store.Units
	e.dimension = vecs.Dimension
	e.loaded = true
	e.mu.Unlock()
	e.log.Info("index loaded",
		zap.Int("units", store.Count),
		zap.Int("dimension", store.Dimension),
		zap.String("embedder", store.Embedder))
	return nil
}

// Search embeds the query and returns up to k units ordered by
// decreasing similarity, ties broken by insertion order. Calling it on
// an unloaded engine is a programming error and fails with ErrNotLoaded.
// Any underlying embedding or scoring failure degrades to an empty
// result with a logged diagnostic; it never reaches the caller.
func (e *Engine) Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded {
		return nil, fmt.Errorf("%w: search requires a built or loaded index", domain.ErrNotLoaded)
	}
	if k <= 0 {
		k = DefaultK
	}
	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		e.log.Error("query embedding failed, returning no results", zap.Error(err))
		return []domain.SearchResult{}, nil
	}
	if len(vec) != e.dimension {
		e.log.Error("query vector dimension mismatch, returning no results",
			zap.Int("got", len(vec)), zap.Int("want", e.dimension))
		return []domain.SearchResult{}, nil
	}
	idxs := make([]int, len(e.vectors))
	scores := make([]float64, len(e.vectors))
	for i := range e.vectors {
		idxs[i] = i
		scores[i] = dot(e.vectors[i], vec)
	}
	sort.SliceStable(idxs, func(a, b int) bool { return scores[idxs[a]] > scores[idxs[b]] })
	if k > len(idxs) {
		k = len(idxs)
	}
	results := make([]domain.SearchResult, 0, k)
	for _, i := range idxs[:k] {
		results = append(results, domain.SearchResult{Unit: e.units[i], Score: scores[i]})
	}
	return results, nil
}

// Remove deletes both artifact files. A missing file is a no-op for
// that half; a real deletion failure aborts immediately with ErrIO,
// which can leave the pair half-present.
func (e *Engine) Remove(loc Location) error {
	for _, p := range []string{loc.VectorsPath(), loc.DocstorePath()} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("%w: removing %s: %v", domain.ErrIO, p, err)
		}
	}
	return nil
}

// Rebuild destroys any persisted index and recreates it from the
// current contents of srcDir. All failure modes convert to a false
// return; details go to the log. On failure no partial index is left
// behind, because removal happens first.
func (e *Engine) Rebuild(ctx context.Context, srcDir string, loc Location, units UnitLoader) bool {
	e.log.Info("rebuilding index", zap.String("source", srcDir), zap.String("dir", loc.Dir))
	if err := e.Remove(loc); err != nil {
		e.log.Error("failed to remove existing index", zap.Error(err))
		return false
	}
	ok, err := hasEligibleFiles(srcDir)
	if err != nil {
		e.log.Error("cannot read source directory", zap.String("dir", srcDir), zap.Error(err))
		return false
	}
	if !ok {
		e.log.Error("cannot rebuild index",
			zap.String("dir", srcDir), zap.Error(domain.ErrEmptySource))
		return false
	}
	us, err := units.Load(srcDir)
	if err != nil {
		e.log.Error("loading document units failed", zap.Error(err))
		return false
	}
	if len(us) == 0 {
		e.log.Error("no document units produced from source directory",
			zap.String("dir", srcDir), zap.Error(domain.ErrEmptySource))
		return false
	}
	if err := e.Build(ctx, us); err != nil {
		e.log.Error("index build failed", zap.Error(err))
		return false
	}
	if err := e.Persist(loc); err != nil {
		e.log.Error("index persist failed", zap.Error(err))
		return false
	}
	e.log.Info("index rebuilt", zap.Int("units", len(us)))
	return true
}

// Setup is the idempotent bootstrap: load the index if it exists,
// otherwise rebuild it from srcDir.
func (e *Engine) Setup(ctx context.Context, srcDir string, loc Location, units UnitLoader) bool {
	if e.Exists(loc) {
		e.log.Info("existing index found, loading", zap.String("dir", loc.Dir))
		if err := e.Load(loc); err != nil {
			e.log.Error("failed to load existing index", zap.Error(err))
			return false
		}
		return true
	}
	e.log.Info("no index found, creating one", zap.String("dir", loc.Dir))
	return e.Rebuild(ctx, srcDir, loc, units)
}

func hasEligibleFiles(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			return true, nil
		}
	}
	return false, nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
