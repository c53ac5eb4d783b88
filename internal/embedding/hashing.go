package embedding

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/zeebo/blake3"
)

// DefaultHashingDimension keeps local vectors small; they never mix with OpenAI vectors.
const DefaultHashingDimension = 256

// HashingEmbedder is a deterministic bag-of-words embedder (feature hashing with
// signed buckets and L2 normalization). It needs no network and is used for
// offline runs and tests. Similarity reflects shared vocabulary only.
type HashingEmbedder struct {
	dimension int
}

// NewHashingEmbedder creates a local embedder producing vectors of the given dimension.
func NewHashingEmbedder(dimension int) *HashingEmbedder {
	if dimension <= 0 {
		dimension = DefaultHashingDimension
	}
	return &HashingEmbedder{dimension: dimension}
}

// Embed hashes each lowercased token (and its 4-char stem) into the vector.
func (h *HashingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}

	vector := make([]float32, h.dimension)
	for _, token := range tokenize(text) {
		h.add(vector, token, 1.0)
		if len(token) > 5 {
			h.add(vector, token[:4]+"~", 0.5)
		}
	}

	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vector, nil
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vector {
		vector[i] *= scale
	}
	return vector, nil
}

func (h *HashingEmbedder) add(vector []float32, token string, weight float32) {
	sum := blake3.Sum256([]byte(token))
	bucket := binary.LittleEndian.Uint64(sum[:8]) % uint64(h.dimension)
	if sum[8]&1 == 1 {
		weight = -weight
	}
	vector[bucket] += weight
}

// Model names the local scheme including its dimension.
func (h *HashingEmbedder) Model() string {
	return fmt.Sprintf("local-hashing-%d", h.dimension)
}

// Dimension returns the vector length.
func (h *HashingEmbedder) Dimension() int {
	return h.dimension
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) < 2 || stopwords[f] {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true, "be": true,
	"by": true, "can": true, "for": true, "from": true, "how": true, "in": true, "is": true,
	"it": true, "me": true, "my": true, "of": true, "on": true, "or": true, "our": true,
	"the": true, "this": true, "to": true, "we": true, "what": true, "with": true, "you": true,
	"your": true, "need": true, "please": true, "that": true, "these": true, "i": true,
}

var _ Embedder = (*HashingEmbedder)(nil)
