package search

import (
	"context"
	"sort"

	"github.com/khanglvm/tool-preselect/internal/catalog"
)

const (
	// DefaultThreshold is the minimum similarity a hit needs to be accepted.
	DefaultThreshold = 0.75

	// DefaultMaxResults caps the candidate list.
	DefaultMaxResults = 5
)

// Searcher is the ranked search the matcher filters. *catalog.Catalog implements it.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]catalog.SearchHit, error)
}

// Matcher accepts search hits that clear a fixed threshold.
// Threshold and result cap are set at construction, never per call.
type Matcher struct {
	threshold  float64
	maxResults int
}

// MatcherOption configures a Matcher.
type MatcherOption func(*Matcher)

// WithThreshold sets the acceptance threshold.
func WithThreshold(threshold float64) MatcherOption {
	return func(m *Matcher) { m.threshold = threshold }
}

// WithMaxResults sets the result cap. Non-positive values keep the default.
func WithMaxResults(n int) MatcherOption {
	return func(m *Matcher) {
		if n > 0 {
			m.maxResults = n
		}
	}
}

// NewMatcher creates a matcher with the default threshold and cap.
func NewMatcher(opts ...MatcherOption) *Matcher {
	m := &Matcher{
		threshold:  DefaultThreshold,
		maxResults: DefaultMaxResults,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Threshold returns the acceptance threshold.
func (m *Matcher) Threshold() float64 { return m.threshold }

// MaxResults returns the result cap.
func (m *Matcher) MaxResults() int { return m.maxResults }

// Accepts reports whether score clears the threshold. The boundary is inclusive.
func (m *Matcher) Accepts(score float64) bool {
	return score >= m.threshold
}

// FindCandidates searches for query and keeps the hits that clear the threshold,
// best first. No accepted hit is an empty slice and a nil error.
func (m *Matcher) FindCandidates(ctx context.Context, query string, searcher Searcher) ([]Candidate, error) {
	hits, err := searcher.Search(ctx, query, m.maxResults)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(hits))
	for _, hit := range hits {
		if !m.Accepts(hit.Score) {
			continue
		}
		candidates = append(candidates, candidateFromHit(hit))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > m.maxResults {
		candidates = candidates[:m.maxResults]
	}
	return candidates, nil
}
