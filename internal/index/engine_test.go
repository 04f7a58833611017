package index

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kamalkrbh/doc-finder/internal/domain"
	"github.com/kamalkrbh/doc-finder/internal/embedding/tfidf"
)

// stubEmbedder maps known texts to fixed 2D vectors so rankings are
// easy to reason about.
type stubEmbedder struct {
	name    string
	vecs    map[string][]float64
	failing bool
}

func (s *stubEmbedder) Name() string {
	if s.name == "" {
		return "stub"
	}
	return s.name
}

func (s *stubEmbedder) Prepare(corpus []string) error { return nil }

func (s *stubEmbedder) Dimension() int { return 2 }

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	if s.failing {
		return nil, errors.New("embedder unavailable")
	}
	if v, ok := s.vecs[text]; ok {
		return v, nil
	}
	return []float64{0, 0}, nil
}

type stubLoader struct {
	units []domain.DocumentUnit
	err   error
}

func (s stubLoader) Load(string) ([]domain.DocumentUnit, error) { return s.units, s.err }

const (
	foxText   = "The quick brown fox jumps over cats"
	qubitText = "Quantum entanglement in superconducting qubits"
	animalQ   = "animal behavior"
)

func newTestEmbedder() *stubEmbedder {
	return &stubEmbedder{vecs: map[string][]float64{
		foxText:   {0.9, 0.1},
		qubitText: {0.05, 0.95},
		animalQ:   {1, 0},
	}}
}

func testUnits() []domain.DocumentUnit {
	return []domain.DocumentUnit{
		{SourceID: "a.pdf", Text: foxText, Preview: "The quick brown fox."},
		{SourceID: "b.pdf", Text: qubitText},
	}
}

func TestBuildRequiresUnits(t *testing.T) {
	eng := New(newTestEmbedder(), zap.NewNop())
	err := eng.Build(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.False(t, eng.Loaded())
}

func TestSearchUnloaded(t *testing.T) {
	eng := New(newTestEmbedder(), zap.NewNop())
	res, err := eng.Search(context.Background(), animalQ, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotLoaded)
	assert.Nil(t, res)
}

func TestPersistUnloaded(t *testing.T) {
	eng := New(newTestEmbedder(), zap.NewNop())
	err := eng.Persist(DefaultLocation(t.TempDir()))
	assert.ErrorIs(t, err, domain.ErrNotLoaded)
}

func TestLoadMissing(t *testing.T) {
	eng := New(newTestEmbedder(), zap.NewNop())
	err := eng.Load(DefaultLocation(t.TempDir()))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSearchRanking(t *testing.T) {
	eng := New(newTestEmbedder(), zap.NewNop())
	require.NoError(t, eng.Build(context.Background(), testUnits()))

	res, err := eng.Search(context.Background(), animalQ, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "a.pdf", res[0].Unit.SourceID)
	assert.Equal(t, "b.pdf", res[1].Unit.SourceID)
	assert.Greater(t, res[0].Score, res[1].Score)
}

func TestSearchKBounds(t *testing.T) {
	eng := New(newTestEmbedder(), zap.NewNop())
	require.NoError(t, eng.Build(context.Background(), testUnits()))

	res, err := eng.Search(context.Background(), animalQ, 1)
	require.NoError(t, err)
	assert.Len(t, res, 1)

	res, err = eng.Search(context.Background(), animalQ, 10)
	require.NoError(t, err)
	assert.Len(t, res, 2)

	// k <= 0 falls back to the default of 2
	res, err = eng.Search(context.Background(), animalQ, 0)
	require.NoError(t, err)
	assert.Len(t, res, 2)
}

func TestSearchDegradesOnEmbedFailure(t *testing.T) {
	emb := newTestEmbedder()
	eng := New(emb, zap.NewNop())
	require.NoError(t, eng.Build(context.Background(), testUnits()))

	emb.failing = true
	res, err := eng.Search(context.Background(), animalQ, 2)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestExistsLifecycle(t *testing.T) {
	eng := New(newTestEmbedder(), zap.NewNop())
	loc := DefaultLocation(t.TempDir())

	assert.False(t, eng.Exists(loc))
	require.NoError(t, eng.Build(context.Background(), testUnits()))
	require.NoError(t, eng.Persist(loc))
	assert.True(t, eng.Exists(loc))
	require.NoError(t, eng.Remove(loc))
	assert.False(t, eng.Exists(loc))
}

func TestExistsRejectsPartialPair(t *testing.T) {
	eng := New(newTestEmbedder(), zap.NewNop())
	loc := DefaultLocation(t.TempDir())
	require.NoError(t, eng.Build(context.Background(), testUnits()))
	require.NoError(t, eng.Persist(loc))

	require.NoError(t, os.Remove(loc.VectorsPath()))
	assert.False(t, eng.Exists(loc))
}

func TestRemoveHalfPairIsNoOpForMissingHalf(t *testing.T) {
	eng := New(newTestEmbedder(), zap.NewNop())
	loc := DefaultLocation(t.TempDir())
	require.NoError(t, eng.Build(context.Background(), testUnits()))
	require.NoError(t, eng.Persist(loc))
	require.NoError(t, os.Remove(loc.VectorsPath()))

	require.NoError(t, eng.Remove(loc))
	_, err := os.Stat(loc.DocstorePath())
	assert.True(t, os.IsNotExist(err))
}

func TestPersistLoadRoundTrip(t *testing.T) {
	loc := DefaultLocation(t.TempDir())
	builder := New(newTestEmbedder(), zap.NewNop())
	require.NoError(t, builder.Build(context.Background(), testUnits()))
	require.NoError(t, builder.Persist(loc))

	want, err := builder.Search(context.Background(), animalQ, 2)
	require.NoError(t, err)

	fresh := New(newTestEmbedder(), zap.NewNop())
	require.NoError(t, fresh.Load(loc))
	got, err := fresh.Search(context.Background(), animalQ, 2)
	require.NoError(t, err)

	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Unit.SourceID, got[i].Unit.SourceID)
		assert.InDelta(t, want[i].Score, got[i].Score, 1e-12)
	}
	// docstore metadata survives the round trip
	assert.Equal(t, "The quick brown fox.", got[0].Unit.Preview)
}

func TestTFIDFRoundTripRestoresEmbeddingSpace(t *testing.T) {
	loc := DefaultLocation(t.TempDir())
	units := []domain.DocumentUnit{
		{SourceID: "cats.pdf", Text: "cats and foxes are animals that jump"},
		{SourceID: "qubits.pdf", Text: "qubits show quantum entanglement effects"},
	}
	builder := New(tfidf.NewEmbedder(), zap.NewNop())
	require.NoError(t, builder.Build(context.Background(), units))
	require.NoError(t, builder.Persist(loc))

	want, err := builder.Search(context.Background(), "jumping animals", 2)
	require.NoError(t, err)
	require.Len(t, want, 2)
	assert.Equal(t, "cats.pdf", want[0].Unit.SourceID)

	// A fresh unprepared embedder must be rebound by Load.
	fresh := New(tfidf.NewEmbedder(), zap.NewNop())
	require.NoError(t, fresh.Load(loc))
	got, err := fresh.Search(context.Background(), "jumping animals", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, want[0].Unit.SourceID, got[0].Unit.SourceID)
	assert.InDelta(t, want[0].Score, got[0].Score, 1e-12)
}

func TestLoadRejectsForeignEmbedder(t *testing.T) {
	loc := DefaultLocation(t.TempDir())
	builder := New(newTestEmbedder(), zap.NewNop())
	require.NoError(t, builder.Build(context.Background(), testUnits()))
	require.NoError(t, builder.Persist(loc))

	other := newTestEmbedder()
	other.name = "remote:text-embedding-3-small"
	eng := New(other, zap.NewNop())
	err := eng.Load(loc)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIncompatibleIndex)
	assert.False(t, eng.Loaded())
}

func TestLoadRejectsInconsistentPair(t *testing.T) {
	loc := DefaultLocation(t.TempDir())
	builder := New(newTestEmbedder(), zap.NewNop())
	require.NoError(t, builder.Build(context.Background(), testUnits()))
	require.NoError(t, builder.Persist(loc))

	// Corrupt the docstore count so it no longer matches the vectors.
	data, err := os.ReadFile(loc.DocstorePath())
	require.NoError(t, err)
	var store map[string]any
	require.NoError(t, json.Unmarshal(data, &store))
	store["count"] = 99
	data, err = json.Marshal(store)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(loc.DocstorePath(), data, 0o644))

	err = New(newTestEmbedder(), zap.NewNop()).Load(loc)
	assert.ErrorIs(t, err, domain.ErrIncompatibleIndex)
}

func TestRebuildEmptySource(t *testing.T) {
	srcDir := t.TempDir()
	loc := DefaultLocation(t.TempDir())
	eng := New(newTestEmbedder(), zap.NewNop())

	ok := eng.Rebuild(context.Background(), srcDir, loc, stubLoader{})
	assert.False(t, ok)
	assert.False(t, eng.Exists(loc))
}

func TestRebuildAndSetup(t *testing.T) {
	srcDir := t.TempDir()
	// Eligibility only inspects the extension; units come from the loader.
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "a.PDF"), []byte("x"), 0o644))
	loc := DefaultLocation(t.TempDir())
	ldr := stubLoader{units: testUnits()}

	eng := New(newTestEmbedder(), zap.NewNop())
	require.True(t, eng.Rebuild(context.Background(), srcDir, loc, ldr))
	assert.True(t, eng.Exists(loc))
	assert.True(t, eng.Loaded())

	// Setup against existing artifacts loads instead of rebuilding.
	fresh := New(newTestEmbedder(), zap.NewNop())
	require.True(t, fresh.Setup(context.Background(), srcDir, loc, stubLoader{err: errors.New("must not be called")}))
	assert.True(t, fresh.Loaded())

	// Setup without artifacts falls back to a rebuild.
	emptyLoc := DefaultLocation(t.TempDir())
	again := New(newTestEmbedder(), zap.NewNop())
	require.True(t, again.Setup(context.Background(), srcDir, emptyLoc, ldr))
	assert.True(t, again.Exists(emptyLoc))
}

func TestRebuildIsDeterministic(t *testing.T) {
	srcDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "a.pdf"), []byte("x"), 0o644))
	loc := DefaultLocation(t.TempDir())
	ldr := stubLoader{units: testUnits()}

	eng := New(newTestEmbedder(), zap.NewNop())
	require.True(t, eng.Rebuild(context.Background(), srcDir, loc, ldr))
	first, err := eng.Search(context.Background(), animalQ, 2)
	require.NoError(t, err)

	require.True(t, eng.Rebuild(context.Background(), srcDir, loc, ldr))
	second, err := eng.Search(context.Background(), animalQ, 2)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Unit.SourceID, second[i].Unit.SourceID)
		assert.InDelta(t, first[i].Score, second[i].Score, 1e-12)
	}
}
