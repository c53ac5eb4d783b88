package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanglvm/tool-preselect/internal/embedding"
	"github.com/khanglvm/tool-preselect/internal/toolset"
)

// fakeEmbedder returns fixed vectors keyed by text.
type fakeEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	err     error
	calls   int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func (f *fakeEmbedder) Model() string { return "fake" }

// failingStore fails every operation.
type failingStore struct{ err error }

func (s failingStore) Upsert(context.Context, ToolRecord) error { return s.err }
func (s failingStore) NearestNeighbors(context.Context, []float32, int) ([]Neighbor, error) {
	return nil, s.err
}
func (s failingStore) Get(context.Context, string) (ToolRecord, bool, error) {
	return ToolRecord{}, false, s.err
}
func (s failingStore) All(context.Context) ([]ToolRecord, error) { return nil, s.err }
func (s failingStore) Count(context.Context) (int, error)        { return 1, nil }

func newFake() *fakeEmbedder {
	return &fakeEmbedder{vectors: map[string][]float32{
		"Extracts numbers from text": {1, 0, 0},
		"Reverses a string":          {0, 1, 0},
		"numbers please":             {0.9, 0.1, 0},
	}}
}

// TestRegister_AssignsFreshIDs verifies identical registrations are never deduplicated.
func TestRegister_AssignsFreshIDs(t *testing.T) {
	ctx := context.Background()
	c := New(newFake(), NewMemoryStore())

	first, err := c.Register(ctx, "ExtractNumbers", "UtilityPlugin", "Extracts numbers from text")
	require.NoError(t, err)
	second, err := c.Register(ctx, "ExtractNumbers", "UtilityPlugin", "Extracts numbers from text")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "UtilityPlugin/ExtractNumbers", first.Key())
	assert.Equal(t, "fake", first.Model)

	n, err := c.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	hits, err := c.Search(ctx, "numbers please", 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, first.ID, hits[0].Record.ID)
	assert.Equal(t, second.ID, hits[1].Record.ID)
}

// TestRegister_EmbedsDescriptionOnly verifies name and group never reach the embedder.
func TestRegister_EmbedsDescriptionOnly(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{"Reverses a string": {0, 1, 0}}}
	c := New(emb, NewMemoryStore())

	record, err := c.Register(context.Background(), "ReverseString", "StringManipulationPlugin", "Reverses a string")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, 0}, record.Embedding)
}

// TestSearch_EmptyCatalog verifies an empty catalog is an empty result, not an error.
func TestSearch_EmptyCatalog(t *testing.T) {
	emb := newFake()
	c := New(emb, NewMemoryStore())

	hits, err := c.Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
	assert.Equal(t, 0, emb.calls)
}

func TestSearch_BlankQuery(t *testing.T) {
	ctx := context.Background()
	emb := newFake()
	c := New(emb, NewMemoryStore())
	_, err := c.Register(ctx, "ExtractNumbers", "UtilityPlugin", "Extracts numbers from text")
	require.NoError(t, err)

	hits, err := c.Search(ctx, "  \n", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Equal(t, 1, emb.calls)
}

// TestSearch_OrderedAndCapped verifies descending scores and the default top-K.
func TestSearch_OrderedAndCapped(t *testing.T) {
	ctx := context.Background()
	emb := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0}}}
	c := New(emb, NewMemoryStore())

	descriptions := map[string][]float32{
		"d1": {0.2, 1}, "d2": {1, 0}, "d3": {1, 1}, "d4": {0, 1},
		"d5": {1, 0.1}, "d6": {1, 0.5}, "d7": {0.5, 1},
	}
	for d, v := range descriptions {
		emb.vectors[d] = v
	}
	for _, d := range []string{"d1", "d2", "d3", "d4", "d5", "d6", "d7"} {
		_, err := c.Register(ctx, d, "G", d)
		require.NoError(t, err)
	}

	hits, err := c.Search(ctx, "q", 0)
	require.NoError(t, err)
	require.Len(t, hits, DefaultTopK)
	assert.Equal(t, "d2", hits[0].Record.Name)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}

	hits, err = c.Search(ctx, "q", 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

// TestEmbeddingFailure verifies backend errors surface as ErrEmbeddingUnavailable.
func TestEmbeddingFailure(t *testing.T) {
	ctx := context.Background()
	backend := errors.New("connection refused")
	emb := newFake()
	c := New(emb, NewMemoryStore())
	_, err := c.Register(ctx, "ExtractNumbers", "UtilityPlugin", "Extracts numbers from text")
	require.NoError(t, err)

	emb.err = backend
	_, err = c.Register(ctx, "X", "G", "Reverses a string")
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
	assert.ErrorIs(t, err, backend)

	_, err = c.Search(ctx, "numbers please", 5)
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
	assert.NotErrorIs(t, err, ErrStorageUnavailable)
}

// TestStorageFailure verifies store errors surface as ErrStorageUnavailable.
func TestStorageFailure(t *testing.T) {
	ctx := context.Background()
	c := New(newFake(), failingStore{err: errors.New("disk I/O error")})

	_, err := c.Register(ctx, "ExtractNumbers", "UtilityPlugin", "Extracts numbers from text")
	assert.ErrorIs(t, err, ErrStorageUnavailable)

	_, err = c.Search(ctx, "numbers please", 5)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.NotErrorIs(t, err, ErrEmbeddingUnavailable)

	_, err = c.Records(ctx)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

// TestDimensionMismatch verifies vectors of the wrong length are rejected.
func TestDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	emb := &fakeEmbedder{vectors: map[string][]float32{"short": {1, 0}}}

	c := New(emb, NewMemoryStore(), WithDimension(3))
	_, err := c.Register(ctx, "A", "G", "short")
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)

	inferred := New(emb, NewMemoryStore())
	_, err = inferred.Register(ctx, "A", "G", "long")
	require.NoError(t, err)
	assert.Equal(t, 3, inferred.Dimension())
	_, err = inferred.Register(ctx, "B", "G", "short")
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
}

// TestSearch_StoredDimensionDiffers verifies a catalog reopened with an embedder of
// another dimension fails instead of scoring every record 0.
func TestSearch_StoredDimensionDiffers(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	indexed := New(newFake(), store)
	_, err := indexed.Register(ctx, "ExtractNumbers", "UtilityPlugin", "Extracts numbers from text")
	require.NoError(t, err)

	shorter := &fakeEmbedder{vectors: map[string][]float32{
		"numbers please":    {1, 0},
		"Reverses a string": {0, 1},
	}}
	reopened := New(shorter, store)

	hits, err := reopened.Search(ctx, "numbers please", 5)
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
	assert.Empty(t, hits)
	assert.Equal(t, 3, reopened.Dimension())

	_, err = reopened.Register(ctx, "ReverseString", "StringManipulationPlugin", "Reverses a string")
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
}

// TestMemoryStore_DimensionMismatch verifies the store refuses to compare vectors of different length.
func TestMemoryStore_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Upsert(ctx, ToolRecord{ID: "a", Embedding: []float32{1, 0, 0, 0}}))

	_, err := store.NearestNeighbors(ctx, []float32{1, 0, 0, 0, 0, 0, 0, 0}, 5)
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)

	neighbors, err := store.NearestNeighbors(ctx, []float32{1, 0, 0, 0}, 5)
	require.NoError(t, err)
	assert.Len(t, neighbors, 1)
}

// TestTimeout verifies a slow backend fails with its error kind instead of hanging.
func TestTimeout(t *testing.T) {
	c := New(slowEmbedder{}, NewMemoryStore(), WithTimeout(10*time.Millisecond))

	_, err := c.Register(context.Background(), "A", "G", "desc")
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type slowEmbedder struct{}

func (slowEmbedder) Embed(ctx context.Context, _ string) ([]float32, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (slowEmbedder) Model() string { return "slow" }

func TestRegisterAll_StopsAtFirstError(t *testing.T) {
	ctx := context.Background()
	emb := &fakeEmbedder{vectors: map[string][]float32{"bad": {1}}}
	c := New(emb, NewMemoryStore(), WithDimension(3))

	n, err := c.RegisterAll(ctx, []toolset.Definition{
		{Name: "A", Group: "G", Description: "ok"},
		{Name: "B", Group: "G", Description: "bad"},
		{Name: "C", Group: "G", Description: "ok"},
	})
	assert.Equal(t, 1, n)
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
}

func TestRegisterAll_Builtin(t *testing.T) {
	ctx := context.Background()
	c := New(embedding.NewHashingEmbedder(64), NewMemoryStore())

	n, err := c.RegisterAll(ctx, toolset.Builtin())
	require.NoError(t, err)
	assert.Equal(t, len(toolset.Builtin()), n)

	records, err := c.Records(ctx)
	require.NoError(t, err)
	assert.Len(t, records, n)
	assert.Equal(t, "ConvertLength", records[0].Name)
}

// TestConcurrentSearch verifies searches are safe to run in parallel after registration.
func TestConcurrentSearch(t *testing.T) {
	ctx := context.Background()
	c := New(embedding.NewHashingEmbedder(64), NewMemoryStore())
	_, err := c.RegisterAll(ctx, toolset.Builtin())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hits, err := c.Search(ctx, "validate an email address", 5)
			assert.NoError(t, err)
			assert.Len(t, hits, 5)
		}()
	}
	wg.Wait()
}
