/*
Package embedding turns text into fixed-length vectors.

The Embedder interface is the only embedding contract the catalog depends on.
Implementations:
  - EinoEmbedder wraps any eino embedding component (OpenAI / Azure OpenAI via NewOpenAIEmbedder)
  - CachedEmbedder memoizes another Embedder in a bbolt file
  - HashingEmbedder is a deterministic local embedder for offline runs and tests
*/
package embedding

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable is returned (wrapped) when the embedding backend is unreachable,
// errors, times out, or returns an unusable vector.
var ErrUnavailable = errors.New("embedding backend unavailable")

// Embedder produces an embedding for a single string.
type Embedder interface {
	// Embed returns the vector for text. Errors wrap ErrUnavailable.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Model identifies the embedding model; vectors from different models are not comparable.
	Model() string
}

// unavailable wraps err with ErrUnavailable unless it already carries it.
func unavailable(err error) error {
	if err == nil || errors.Is(err, ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
