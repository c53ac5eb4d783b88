package catalog

import (
	"fmt"
	"math"
	"sort"
)

// CosineSimilarity computes cosine similarity between two vectors.
// Vectors of different length or with zero norm score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	var dotProduct float64
	var normA float64
	var normB float64

	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// CheckDimension fails with ErrEmbeddingUnavailable when a stored vector and the
// query vector differ in length. Such vectors cannot be compared, and scoring
// them 0 would read as "no match".
func CheckDimension(id string, query, stored []float32) error {
	if len(query) != len(stored) {
		return fmt.Errorf("%w: record %s has %d dimensions, query has %d (re-index the catalog)",
			ErrEmbeddingUnavailable, id, len(stored), len(query))
	}
	return nil
}

// RankNeighbors sorts neighbors by descending score, keeping the input order on
// ties, and truncates to topK.
func RankNeighbors(neighbors []Neighbor, topK int) []Neighbor {
	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].Score > neighbors[j].Score
	})
	if topK > 0 && len(neighbors) > topK {
		neighbors = neighbors[:topK]
	}
	return neighbors
}
