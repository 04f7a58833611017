package index

import "path/filepath"

// DefaultBaseName is the fixed base name shared by the artifact pair.
const DefaultBaseName = "docfinder"

// Location identifies the on-disk artifact pair: the vector file and
// the docstore file, siblings under Dir sharing Base. Both must exist
// for the index to count as present.
type Location struct {
	Dir  string
	Base string
}

// DefaultLocation returns the standard location under dir.
func DefaultLocation(dir string) Location {
	return Location{Dir: dir, Base: DefaultBaseName}
}

// VectorsPath is the file holding the embedding vectors.
func (l Location) VectorsPath() string {
	return filepath.Join(l.Dir, l.Base+".vectors.json")
}

// DocstorePath is the file holding per-vector unit metadata plus the
// embedding-space manifest.
func (l Location) DocstorePath() string {
	return filepath.Join(l.Dir, l.Base+".docstore.json")
}
