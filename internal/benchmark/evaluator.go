/*
Package benchmark measures how well each matching pipeline selects the expected tool.

For every labeled case the Evaluator runs:
  - direct:  query -> Matcher
  - hyde:    query -> Rewriter -> Matcher
  - keyword: query -> BM25 index (optional baseline, no threshold)

A case is a hit when the expected tool name appears (case-insensitively) among
the pipeline's candidates. A failing case is a miss for that pipeline; the run
never aborts because of one case.
*/
package benchmark

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/khanglvm/tool-preselect/internal/hyde"
	"github.com/khanglvm/tool-preselect/internal/metrics"
	"github.com/khanglvm/tool-preselect/internal/search"
)

const (
	// DefaultWorkers is the number of cases evaluated concurrently.
	DefaultWorkers = 4

	// DefaultCaseTimeout bounds each pipeline of each case.
	DefaultCaseTimeout = 30 * time.Second
)

var errNotRun = errors.New("not run: benchmark cancelled")

// CandidateFinder is the threshold matcher. *search.Matcher implements it.
type CandidateFinder interface {
	FindCandidates(ctx context.Context, query string, searcher search.Searcher) ([]search.Candidate, error)
}

// Rewriter turns a request into a hypothetical tool description. *hyde.Rewriter implements it.
type Rewriter interface {
	Rewrite(ctx context.Context, request string) (string, error)
}

// unavailableRewriter stands in for a missing chat model.
type unavailableRewriter struct{}

func (unavailableRewriter) Rewrite(context.Context, string) (string, error) {
	return "", fmt.Errorf("%w: no chat model configured", hyde.ErrGenerationUnavailable)
}

// KeywordSearcher is the BM25 baseline. *search.Indexer implements it.
type KeywordSearcher interface {
	SearchBM25(ctx context.Context, text string, limit int) ([]search.Candidate, error)
}

// Evaluator runs labeled cases through the pipelines. It keeps no state
// between runs.
type Evaluator struct {
	matcher     CandidateFinder
	keyword     KeywordSearcher
	keywordTopK int
	workers     int
	caseTimeout time.Duration
	logger      *zap.Logger
	metrics     metrics.Metrics
	now         func() time.Time
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithWorkers sets how many cases run at once.
func WithWorkers(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithCaseTimeout bounds each pipeline of each case.
func WithCaseTimeout(d time.Duration) Option {
	return func(e *Evaluator) {
		if d > 0 {
			e.caseTimeout = d
		}
	}
}

// WithKeywordIndex adds the BM25 baseline pipeline returning topK results.
func WithKeywordIndex(index KeywordSearcher, topK int) Option {
	return func(e *Evaluator) {
		e.keyword = index
		if topK > 0 {
			e.keywordTopK = topK
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m metrics.Metrics) Option {
	return func(e *Evaluator) { e.metrics = metrics.OrNop(m) }
}

// WithClock replaces the clock used for timestamps and latencies.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEvaluator creates an evaluator around matcher.
func NewEvaluator(matcher CandidateFinder, opts ...Option) *Evaluator {
	e := &Evaluator{
		matcher:     matcher,
		keywordTopK: search.DefaultMaxResults,
		workers:     DefaultWorkers,
		caseTimeout: DefaultCaseTimeout,
		logger:      zap.NewNop(),
		metrics:     metrics.Nop{},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.Named("benchmark")
	return e
}

type caseOutcome struct {
	direct  CaseResult
	hyde    CaseResult
	keyword CaseResult
}

// Run evaluates cases against searcher. Results keep the order of cases.
// If ctx is cancelled, cases that did not start are recorded as skipped misses
// and the partial report is returned with ctx's error. A nil rewriter makes
// every HyDE case a failed miss.
func (e *Evaluator) Run(ctx context.Context, cases []Case, searcher search.Searcher, rewriter Rewriter) (*Report, error) {
	if rewriter == nil {
		rewriter = unavailableRewriter{}
	}
	started := e.now()
	outcomes := make([]caseOutcome, len(cases))
	ran := make([]bool, len(cases))

	sem := make(chan struct{}, e.workers)
	var wg sync.WaitGroup

dispatch:
	for i, c := range cases {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break dispatch
		}

		ran[i] = true
		wg.Add(1)
		go func(i int, c Case) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[i] = e.runCase(ctx, i, c, searcher, rewriter)
		}(i, c)
	}
	wg.Wait()

	for i, c := range cases {
		if !ran[i] {
			outcomes[i] = skippedOutcome(c)
		}
	}

	report := e.buildReport(cases, outcomes)
	report.Started = started
	report.Elapsed = e.now().Sub(started)

	for _, p := range report.Pipelines() {
		e.metrics.ObserveBenchmark(p.Name, p.Accuracy, p.MeanLatency)
		e.logger.Info("pipeline finished",
			zap.String("pipeline", p.Name),
			zap.Int("hits", p.Hits),
			zap.Int("total", p.Total),
			zap.Int("failures", p.Failures),
			zap.Duration("meanLatency", p.MeanLatency),
		)
	}

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("benchmark interrupted: %w", err)
	}
	return report, nil
}

func (e *Evaluator) runCase(ctx context.Context, index int, c Case, searcher search.Searcher, rewriter Rewriter) caseOutcome {
	out := caseOutcome{
		direct: e.runDirect(ctx, c, searcher),
		hyde:   e.runHyDE(ctx, c, searcher, rewriter),
	}
	if e.keyword != nil {
		out.keyword = e.runKeyword(ctx, c)
	}

	for _, r := range []struct {
		pipeline string
		result   CaseResult
	}{{PipelineDirect, out.direct}, {PipelineHyDE, out.hyde}, {PipelineKeyword, out.keyword}} {
		if r.result.Err != "" {
			e.logger.Warn("case failed, counted as miss",
				zap.String("pipeline", r.pipeline),
				zap.Int("case", index),
				zap.String("expected", c.ExpectedTool),
				zap.String("error", r.result.Err),
			)
		}
	}
	return out
}

func (e *Evaluator) runDirect(ctx context.Context, c Case, searcher search.Searcher) CaseResult {
	callCtx, cancel := context.WithTimeout(ctx, e.caseTimeout)
	defer cancel()

	start := e.now()
	candidates, err := e.matcher.FindCandidates(callCtx, c.Query, searcher)
	latency := e.now().Sub(start)
	e.metrics.ObserveMatch(PipelineDirect, latency, len(candidates), err)

	return newResult(c, "", candidates, latency, err)
}

func (e *Evaluator) runHyDE(ctx context.Context, c Case, searcher search.Searcher, rewriter Rewriter) CaseResult {
	callCtx, cancel := context.WithTimeout(ctx, e.caseTimeout)
	defer cancel()

	start := e.now()
	rewritten, err := rewriter.Rewrite(callCtx, c.Query)
	var candidates []search.Candidate
	if err == nil {
		candidates, err = e.matcher.FindCandidates(callCtx, rewritten, searcher)
	}
	latency := e.now().Sub(start)
	e.metrics.ObserveMatch(PipelineHyDE, latency, len(candidates), err)

	return newResult(c, rewritten, candidates, latency, err)
}

func (e *Evaluator) runKeyword(ctx context.Context, c Case) CaseResult {
	callCtx, cancel := context.WithTimeout(ctx, e.caseTimeout)
	defer cancel()

	start := e.now()
	candidates, err := e.keyword.SearchBM25(callCtx, c.Query, e.keywordTopK)
	latency := e.now().Sub(start)
	e.metrics.ObserveMatch(PipelineKeyword, latency, len(candidates), err)

	return newResult(c, "", candidates, latency, err)
}

func newResult(c Case, rewritten string, candidates []search.Candidate, latency time.Duration, err error) CaseResult {
	r := CaseResult{
		Query:      c.Query,
		Expected:   c.ExpectedTool,
		Rewritten:  rewritten,
		Candidates: candidates,
		Latency:    latency,
	}
	if r.Candidates == nil {
		r.Candidates = []search.Candidate{}
	}
	if err != nil {
		r.Err = err.Error()
		return r
	}
	r.Hit = IsHit(c.ExpectedTool, candidates)
	return r
}

func skippedOutcome(c Case) caseOutcome {
	r := newResult(c, "", nil, 0, errNotRun)
	r.Skipped = true
	return caseOutcome{direct: r, hyde: r, keyword: r}
}

// IsHit reports whether expected names one of the candidates, ignoring case.
func IsHit(expected string, candidates []search.Candidate) bool {
	for _, c := range candidates {
		if strings.EqualFold(c.Name, expected) {
			return true
		}
	}
	return false
}

func (e *Evaluator) buildReport(cases []Case, outcomes []caseOutcome) *Report {
	direct := make([]CaseResult, len(outcomes))
	hyde := make([]CaseResult, len(outcomes))
	keyword := make([]CaseResult, len(outcomes))
	for i, o := range outcomes {
		direct[i], hyde[i], keyword[i] = o.direct, o.hyde, o.keyword
	}

	report := &Report{
		Cases:  len(cases),
		Direct: aggregate(PipelineDirect, direct),
		HyDE:   aggregate(PipelineHyDE, hyde),
	}
	if e.keyword != nil {
		kw := aggregate(PipelineKeyword, keyword)
		report.Keyword = &kw
	}
	return report
}
