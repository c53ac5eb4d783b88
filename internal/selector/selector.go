/*
Package selector runs the interactive matching pipelines.

Direct matches the raw request against the catalog. HyDE first rewrites the
request into a hypothetical tool description and matches that instead; when the
rewrite backend fails, HyDE falls back to the direct query so the caller still
gets candidates. Every run is timed and handed to the history recorder.
*/
package selector

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/khanglvm/tool-preselect/internal/benchmark"
	"github.com/khanglvm/tool-preselect/internal/history"
	"github.com/khanglvm/tool-preselect/internal/metrics"
	"github.com/khanglvm/tool-preselect/internal/search"
)

// ErrNoRewriter is the fallback cause when HyDE is requested without a rewriter.
var ErrNoRewriter = errors.New("query rewriting is not configured")

// Outcome is the result of one pipeline for one request.
type Outcome struct {
	Pipeline   string
	Query      string
	Rewritten  string
	Candidates []search.Candidate
	Latency    time.Duration

	// Err is set when no candidate list could be produced.
	Err error

	// RewriteErr is set when HyDE fell back to the direct query.
	RewriteErr error
}

// FellBack reports whether a HyDE run used the direct query.
func (o Outcome) FellBack() bool {
	return o.RewriteErr != nil
}

// Selector matches requests against a catalog.
type Selector struct {
	searcher search.Searcher
	matcher  benchmark.CandidateFinder
	rewriter benchmark.Rewriter
	recorder *history.Recorder
	logger   *zap.Logger
	metrics  metrics.Metrics
	now      func() time.Time
}

// Option configures a Selector.
type Option func(*Selector)

// WithRewriter enables the HyDE pipeline.
func WithRewriter(r benchmark.Rewriter) Option {
	return func(s *Selector) { s.rewriter = r }
}

// WithRecorder sends every outcome to the search history.
func WithRecorder(r *history.Recorder) Option {
	return func(s *Selector) { s.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Selector) {
		if logger != nil {
			s.logger = logger.Named("selector")
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m metrics.Metrics) Option {
	return func(s *Selector) { s.metrics = metrics.OrNop(m) }
}

// WithClock replaces time.Now for latency measurement.
func WithClock(now func() time.Time) Option {
	return func(s *Selector) { s.now = now }
}

// New creates a Selector over searcher.
func New(searcher search.Searcher, matcher benchmark.CandidateFinder, opts ...Option) *Selector {
	s := &Selector{
		searcher: searcher,
		matcher:  matcher,
		logger:   zap.NewNop(),
		metrics:  metrics.Nop{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HasRewriter reports whether HyDE can rewrite requests.
func (s *Selector) HasRewriter() bool {
	return s.rewriter != nil
}

// Select runs the HyDE pipeline when hyde is set, otherwise the direct one.
func (s *Selector) Select(ctx context.Context, query string, hyde bool) Outcome {
	if hyde {
		return s.HyDE(ctx, query)
	}
	return s.Direct(ctx, query)
}

// Direct matches the request as typed.
func (s *Selector) Direct(ctx context.Context, query string) Outcome {
	start := s.now()
	candidates, err := s.matcher.FindCandidates(ctx, query, s.searcher)
	out := Outcome{
		Pipeline:   benchmark.PipelineDirect,
		Query:      query,
		Candidates: candidates,
		Latency:    s.now().Sub(start),
		Err:        err,
	}
	return s.finish(out)
}

// HyDE matches a generated tool description, falling back to the request on rewrite failure.
func (s *Selector) HyDE(ctx context.Context, query string) Outcome {
	start := s.now()
	out := Outcome{Pipeline: benchmark.PipelineHyDE, Query: query}

	text := query
	if s.rewriter == nil {
		out.RewriteErr = ErrNoRewriter
	} else if rewritten, err := s.rewriter.Rewrite(ctx, query); err != nil {
		out.RewriteErr = err
		s.logger.Warn("rewrite failed, matching the request directly", zap.Error(err))
	} else {
		out.Rewritten = rewritten
		text = rewritten
	}

	out.Candidates, out.Err = s.matcher.FindCandidates(ctx, text, s.searcher)
	out.Latency = s.now().Sub(start)
	return s.finish(out)
}

func (s *Selector) finish(out Outcome) Outcome {
	if out.Candidates == nil {
		out.Candidates = []search.Candidate{}
	}
	s.metrics.ObserveMatch(out.Pipeline, out.Latency, len(out.Candidates), out.Err)

	if out.Err != nil {
		s.logger.Warn("match failed", zap.String("pipeline", out.Pipeline), zap.Error(out.Err))
	} else {
		s.logger.Debug("match finished",
			zap.String("pipeline", out.Pipeline),
			zap.Strings("candidates", search.Names(out.Candidates)),
			zap.Duration("latency", out.Latency),
			zap.Bool("fellBack", out.FellBack()),
		)
	}

	if s.recorder != nil {
		err := out.Err
		if err == nil {
			err = out.RewriteErr
		}
		event := history.NewEvent(out.Query, out.Pipeline, out.Candidates, err)
		event.Timestamp = s.now()
		s.recorder.Record(event)
	}
	return out
}
