package benchmark

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/khanglvm/tool-preselect/internal/search"
)

// Pipeline names.
const (
	PipelineDirect  = "direct"
	PipelineHyDE    = "hyde"
	PipelineKeyword = "keyword"
)

// Report is the outcome of one evaluator run.
type Report struct {
	Cases   int              `json:"cases"`
	Direct  PipelineReport   `json:"direct"`
	HyDE    PipelineReport   `json:"hyde"`
	Keyword *PipelineReport  `json:"keyword,omitempty"`
	Context *ContextEstimate `json:"context,omitempty"`
	Started time.Time        `json:"started"`
	Elapsed time.Duration    `json:"elapsed"`
}

// PipelineReport aggregates one pipeline over all cases.
// Accuracy is NaN when there are no cases.
type PipelineReport struct {
	Name        string        `json:"name"`
	Hits        int           `json:"hits"`
	Total       int           `json:"total"`
	Failures    int           `json:"failures"`
	Accuracy    float64       `json:"accuracy"`
	MeanLatency time.Duration `json:"meanLatency"`
	Results     []CaseResult  `json:"results"`
}

// CaseResult is one case through one pipeline.
type CaseResult struct {
	Query      string             `json:"query"`
	Expected   string             `json:"expected"`
	Rewritten  string             `json:"rewritten,omitempty"`
	Candidates []search.Candidate `json:"candidates"`
	Hit        bool               `json:"hit"`
	Latency    time.Duration      `json:"latency"`
	Err        string             `json:"error,omitempty"`
	Skipped    bool               `json:"skipped,omitempty"`
}

// MarshalJSON encodes a NaN accuracy as null.
func (p PipelineReport) MarshalJSON() ([]byte, error) {
	type plain PipelineReport
	out := struct {
		plain
		Accuracy      *float64 `json:"accuracy"`
		MeanLatencyMs float64  `json:"meanLatencyMs"`
	}{
		plain:         plain(p),
		MeanLatencyMs: float64(p.MeanLatency) / float64(time.Millisecond),
	}
	if !math.IsNaN(p.Accuracy) {
		acc := p.Accuracy
		out.Accuracy = &acc
	}
	return json.Marshal(out)
}

// JSON returns the indented JSON encoding of the report.
func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Pipelines returns the reports that were produced, in display order.
func (r *Report) Pipelines() []PipelineReport {
	out := []PipelineReport{r.Direct, r.HyDE}
	if r.Keyword != nil {
		out = append(out, *r.Keyword)
	}
	return out
}

// aggregate computes hits, failures, accuracy and mean latency over results.
// Skipped cases count in the denominator but not in the latency mean.
func aggregate(name string, results []CaseResult) PipelineReport {
	p := PipelineReport{Name: name, Total: len(results), Results: results}

	var latency time.Duration
	ran := 0
	for _, r := range results {
		if r.Hit {
			p.Hits++
		}
		if r.Err != "" {
			p.Failures++
		}
		if !r.Skipped {
			latency += r.Latency
			ran++
		}
	}

	if p.Total == 0 {
		p.Accuracy = math.NaN()
	} else {
		p.Accuracy = float64(p.Hits) / float64(p.Total)
	}
	if ran > 0 {
		p.MeanLatency = latency / time.Duration(ran)
	}
	return p
}

type outcome struct {
	Pipeline string
	Accuracy float64
	Hits     []bool
}

func outcomes(r *Report) []outcome {
	var out []outcome
	for _, p := range r.Pipelines() {
		o := outcome{Pipeline: p.Name, Accuracy: p.Accuracy}
		for _, c := range p.Results {
			o.Hits = append(o.Hits, c.Hit)
		}
		out = append(out, o)
	}
	return out
}

// Compare reports whether two runs produced the same accuracy figures and the
// same per-case hits. NaN accuracies compare equal.
func Compare(a, b *Report) error {
	if a == nil || b == nil {
		return fmt.Errorf("compare: nil report")
	}
	eqFloat := cmp.Comparer(func(x, y float64) bool {
		return x == y || (math.IsNaN(x) && math.IsNaN(y))
	})
	if diff := cmp.Diff(outcomes(a), outcomes(b), eqFloat); diff != "" {
		return fmt.Errorf("benchmark runs differ (-first +second):\n%s", diff)
	}
	return nil
}
