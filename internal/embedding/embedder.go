package embedding

import "context"

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
// The same embedder (by Name) must be used to build and to query a
// given index; mixing spaces silently corrupts relevance.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Stateful is implemented by embedders whose embedding space is derived
// from the corpus. Their state must travel with a persisted index so a
// fresh process can reproduce identical query vectors.
type Stateful interface {
	Snapshot() ([]byte, error)
	Restore(data []byte) error
}
