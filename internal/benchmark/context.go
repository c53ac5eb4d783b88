package benchmark

import (
	"encoding/json"

	"github.com/khanglvm/tool-preselect/internal/catalog"
	"github.com/khanglvm/tool-preselect/internal/search"
)

// ContextEstimate compares the prompt cost of offering every catalog tool to a
// model against offering only a pipeline's candidates.
type ContextEstimate struct {
	Pipeline        string  `json:"pipeline"`
	CatalogTools    int     `json:"catalogTools"`
	CatalogTokens   int     `json:"catalogTokens"`
	MeanCandidates  float64 `json:"meanCandidates"`
	CandidateTokens int     `json:"candidateTokens"`
	SavingsPercent  float64 `json:"savingsPercent"`
}

// toolDefinition is the shape a tool takes in a model prompt.
type toolDefinition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CountTokens estimates token count for a JSON structure.
// Uses approximation: ~3 characters per token for JSON.
func CountTokens(v interface{}) int {
	data, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return len(data) / 3
}

// EstimateContext estimates prompt tokens for the full catalog versus the mean
// candidate list of p.
func EstimateContext(records []catalog.ToolRecord, p PipelineReport) ContextEstimate {
	all := make([]toolDefinition, len(records))
	for i, r := range records {
		all[i] = toolDefinition{Name: r.Name, Description: r.Description}
	}

	est := ContextEstimate{
		Pipeline:      p.Name,
		CatalogTools:  len(records),
		CatalogTokens: CountTokens(all),
	}
	if len(p.Results) == 0 {
		return est
	}

	candidates, tokens := 0, 0
	for _, r := range p.Results {
		candidates += len(r.Candidates)
		tokens += CountTokens(definitions(r.Candidates))
	}
	est.MeanCandidates = float64(candidates) / float64(len(p.Results))
	est.CandidateTokens = tokens / len(p.Results)
	if est.CatalogTokens > 0 {
		est.SavingsPercent = float64(est.CatalogTokens-est.CandidateTokens) / float64(est.CatalogTokens) * 100
	}
	return est
}

func definitions(candidates []search.Candidate) []toolDefinition {
	out := make([]toolDefinition, len(candidates))
	for i, c := range candidates {
		out[i] = toolDefinition{Name: c.Name, Description: c.Description}
	}
	return out
}
