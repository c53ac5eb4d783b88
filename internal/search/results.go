/*
Package search turns catalog similarity hits into accepted tool candidates.

The Matcher applies a fixed acceptance threshold to a semantic search. The
Indexer is a bleve BM25 keyword index over the same records, used as a
baseline next to the embedding pipelines.
*/
package search

import "github.com/khanglvm/tool-preselect/internal/catalog"

// Candidate is a tool accepted for a request.
type Candidate struct {
	Name        string  `json:"name"`
	Group       string  `json:"group"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// Key returns group/name.
func (c Candidate) Key() string {
	return c.Group + "/" + c.Name
}

func candidateFromHit(hit catalog.SearchHit) Candidate {
	return Candidate{
		Name:        hit.Record.Name,
		Group:       hit.Record.Group,
		Description: hit.Record.Description,
		Score:       hit.Score,
	}
}

// Names returns the candidate tool names in order.
func Names(candidates []Candidate) []string {
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Name
	}
	return names
}
