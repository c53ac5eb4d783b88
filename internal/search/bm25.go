package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

var storedFields = []string{"name", "description", "group"}

// SearchBM25 performs BM25 keyword search. Scores are raw BM25, not similarities,
// so no threshold applies.
func (i *Indexer) SearchBM25(ctx context.Context, text string, limit int) ([]Candidate, error) {
	if strings.TrimSpace(text) == "" {
		return []Candidate{}, nil
	}
	return i.search(ctx, i.buildMatchQuery(text), limit, 10)
}

// SearchByGroup performs BM25 search scoped to one group.
func (i *Indexer) SearchByGroup(ctx context.Context, text, group string, limit int) ([]Candidate, error) {
	if strings.TrimSpace(text) == "" {
		return []Candidate{}, nil
	}
	groupQuery := bleve.NewTermQuery(group)
	groupQuery.SetField("group")

	return i.search(ctx, bleve.NewConjunctionQuery(i.buildMatchQuery(text), groupQuery), limit, 10)
}

func (i *Indexer) search(ctx context.Context, q query.Query, limit, defaultLimit int) ([]Candidate, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if limit <= 0 {
		limit = defaultLimit
	}

	searchRequest := bleve.NewSearchRequestOptions(q, limit, 0, false)
	searchRequest.Fields = storedFields

	results, err := i.bleveIndex.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}

	return convertBleveResults(results), nil
}

// convertBleveResults converts Bleve hits to candidates.
func convertBleveResults(results *bleve.SearchResult) []Candidate {
	candidates := make([]Candidate, 0, len(results.Hits))

	for _, hit := range results.Hits {
		name, _ := hit.Fields["name"].(string)
		description, _ := hit.Fields["description"].(string)
		group, _ := hit.Fields["group"].(string)

		candidates = append(candidates, Candidate{
			Name:        name,
			Group:       group,
			Description: description,
			Score:       hit.Score,
		})
	}

	return candidates
}
