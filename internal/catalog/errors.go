package catalog

import (
	"errors"
	"fmt"

	"github.com/khanglvm/tool-preselect/internal/embedding"
)

var (
	// ErrEmbeddingUnavailable is returned when the embedding backend fails, times out,
	// or returns a vector of the wrong dimension.
	ErrEmbeddingUnavailable = embedding.ErrUnavailable

	// ErrStorageUnavailable is returned when the vector store cannot be read or written.
	ErrStorageUnavailable = errors.New("vector store unavailable")
)

// classify wraps err with kind unless it already carries one of the catalog kinds.
func classify(kind, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrEmbeddingUnavailable) || errors.Is(err, ErrStorageUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}
