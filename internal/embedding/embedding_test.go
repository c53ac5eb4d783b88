package embedding

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	einoembedding "github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeEinoEmbedder implements einoembedding.Embedder for testing.
type fakeEinoEmbedder struct {
	vectors [][]float64
	err     error
	calls   int
}

func (f *fakeEinoEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...einoembedding.Option) ([][]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors, nil
}

// countingEmbedder counts how often the wrapped embedder is reached.
type countingEmbedder struct {
	inner Embedder
	calls int
	err   error
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.inner.Embed(ctx, text)
}

func (c *countingEmbedder) Model() string { return c.inner.Model() }

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// TestEinoEmbedder_ConvertsVector verifies float64 vectors are narrowed to float32.
func TestEinoEmbedder_ConvertsVector(t *testing.T) {
	fake := &fakeEinoEmbedder{vectors: [][]float64{{0.5, -0.25, 1}}}
	e := NewEinoEmbedder(fake, "test-model")

	vec, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -0.25, 1}, vec)
	assert.Equal(t, "test-model", e.Model())
}

// TestEinoEmbedder_WrapsBackendErrors verifies failures carry ErrUnavailable.
func TestEinoEmbedder_WrapsBackendErrors(t *testing.T) {
	backendErr := errors.New("503 service unavailable")
	e := NewEinoEmbedder(&fakeEinoEmbedder{err: backendErr}, "m")

	_, err := e.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, backendErr)
}

// TestEinoEmbedder_RejectsEmptyResponse verifies an empty batch is a backend failure.
func TestEinoEmbedder_RejectsEmptyResponse(t *testing.T) {
	e := NewEinoEmbedder(&fakeEinoEmbedder{vectors: nil}, "m")

	_, err := e.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNewOpenAIEmbedder_RequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIEmbedder(context.Background(), OpenAIConfig{})
	assert.Error(t, err)
}

// TestHashingEmbedder_Deterministic verifies identical text yields identical unit vectors.
func TestHashingEmbedder_Deterministic(t *testing.T) {
	h := NewHashingEmbedder(64)
	ctx := context.Background()

	a, err := h.Embed(ctx, "Extracts numbers from text")
	require.NoError(t, err)
	b, err := h.Embed(ctx, "Extracts numbers from text")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.InDelta(t, 1.0, math.Sqrt(dot(a, a)), 1e-5)
	assert.Equal(t, "local-hashing-64", h.Model())
}

// TestHashingEmbedder_SharedVocabularyScoresHigher verifies overlap raises similarity.
func TestHashingEmbedder_SharedVocabularyScoresHigher(t *testing.T) {
	h := NewHashingEmbedder(512)
	ctx := context.Background()

	tool, _ := h.Embed(ctx, "Validates email addresses")
	related, _ := h.Embed(ctx, "Can you validate this email address?")
	unrelated, _ := h.Embed(ctx, "Calculates monthly loan payment")

	assert.Greater(t, dot(tool, related), dot(tool, unrelated))
}

// TestHashingEmbedder_EmptyText verifies blank input gives a zero vector, not an error.
func TestHashingEmbedder_EmptyText(t *testing.T) {
	vec, err := NewHashingEmbedder(8).Embed(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 8), vec)
}

// TestHashingEmbedder_Cancelled verifies a cancelled context is reported as unavailable.
func TestHashingEmbedder_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHashingEmbedder(8).Embed(ctx, "text")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestCachedEmbedder_HitsAfterFirstCall verifies the cache short-circuits repeat texts.
func TestCachedEmbedder_HitsAfterFirstCall(t *testing.T) {
	inner := &countingEmbedder{inner: NewHashingEmbedder(16)}
	cache, err := OpenCache(filepath.Join(t.TempDir(), "cache.bolt"), inner, zap.NewNop())
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	first, err := cache.Embed(ctx, "Formats JSON data")
	require.NoError(t, err)
	second, err := cache.Embed(ctx, "Formats JSON data")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
	hits, misses := cache.Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)
}

// TestCachedEmbedder_PersistsAcrossOpen verifies vectors survive reopening the file.
func TestCachedEmbedder_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.bolt")
	ctx := context.Background()

	inner := &countingEmbedder{inner: NewHashingEmbedder(16)}
	cache, err := OpenCache(path, inner, nil)
	require.NoError(t, err)
	want, err := cache.Embed(ctx, "Reverses a string")
	require.NoError(t, err)
	require.NoError(t, cache.Close())

	reopenedInner := &countingEmbedder{inner: NewHashingEmbedder(16)}
	reopened, err := OpenCache(path, reopenedInner, nil)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Embed(ctx, "Reverses a string")
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 0, reopenedInner.calls)
}

// TestCachedEmbedder_DoesNotCacheFailures verifies errors pass through and are retried.
func TestCachedEmbedder_DoesNotCacheFailures(t *testing.T) {
	inner := &countingEmbedder{inner: NewHashingEmbedder(16), err: ErrUnavailable}
	cache, err := OpenCache(filepath.Join(t.TempDir(), "cache.bolt"), inner, nil)
	require.NoError(t, err)
	defer cache.Close()

	_, err = cache.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, ErrUnavailable)

	inner.err = nil
	_, err = cache.Embed(context.Background(), "x")
	assert.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

// TestCachedEmbedder_KeyIncludesModel verifies models never share entries.
func TestCachedEmbedder_KeyIncludesModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.bolt")
	small, err := OpenCache(path, NewHashingEmbedder(16), nil)
	require.NoError(t, err)
	k16 := small.key("same text")
	require.NoError(t, small.Close())

	large, err := OpenCache(path, NewHashingEmbedder(32), nil)
	require.NoError(t, err)
	defer large.Close()

	assert.NotEqual(t, k16, large.key("same text"))
}

// TestModelName_IncludesDimension verifies shortened embeddings get their own model name.
func TestModelName_IncludesDimension(t *testing.T) {
	assert.Equal(t, "text-embedding-3-small", ModelName("text-embedding-3-small", 0))
	assert.Equal(t, "text-embedding-3-small@256", ModelName("text-embedding-3-small", 256))
	assert.NotEqual(t, ModelName("text-embedding-3-small", 256), ModelName("text-embedding-3-small", 512))
}

// TestCachedEmbedder_KeyIncludesDimension verifies one model at two dimensions never shares entries.
func TestCachedEmbedder_KeyIncludesDimension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.bolt")
	model := "text-embedding-3-small"

	short, err := OpenCache(path, NewEinoEmbedder(&fakeEinoEmbedder{}, ModelName(model, 256)), nil)
	require.NoError(t, err)
	k256 := short.key("same text")
	require.NoError(t, short.Close())

	long, err := OpenCache(path, NewEinoEmbedder(&fakeEinoEmbedder{}, ModelName(model, 1536)), nil)
	require.NoError(t, err)
	defer long.Close()

	assert.NotEqual(t, k256, long.key("same text"))
}

func TestOpenCache_RequiresPath(t *testing.T) {
	_, err := OpenCache("  ", NewHashingEmbedder(8), nil)
	assert.Error(t, err)
}
