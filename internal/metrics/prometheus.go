package metrics

import (
	"math"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Prometheus struct {
	gatherer prometheus.Gatherer

	embedDuration    *prometheus.HistogramVec
	generateDuration *prometheus.HistogramVec
	storeDuration    *prometheus.HistogramVec
	matchDuration    *prometheus.HistogramVec
	matchCandidates  *prometheus.HistogramVec
	benchAccuracy    *prometheus.GaugeVec
	benchLatency     *prometheus.GaugeVec
}

// NewPrometheus registers the collectors on reg. A nil reg gets a fresh registry.
func NewPrometheus(reg *prometheus.Registry) *Prometheus {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Prometheus{
		gatherer: reg,
		embedDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "toolpreselect_embed_duration_seconds",
				Help:    "Latency of embedding calls in seconds",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"model", "status"},
		),
		generateDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "toolpreselect_generate_duration_seconds",
				Help:    "Latency of text-generation calls in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"model", "status"},
		),
		storeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "toolpreselect_store_duration_seconds",
				Help:    "Latency of vector store operations in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, 1},
			},
			[]string{"op", "status"},
		),
		matchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "toolpreselect_match_duration_seconds",
				Help:    "Latency of candidate matching per pipeline in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"pipeline", "status"},
		),
		matchCandidates: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "toolpreselect_match_candidates",
				Help:    "Number of candidates clearing the acceptance threshold",
				Buckets: []float64{0, 1, 2, 3, 4, 5},
			},
			[]string{"pipeline"},
		),
		benchAccuracy: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "toolpreselect_benchmark_accuracy",
				Help: "Top-K hit accuracy of the last benchmark run per pipeline",
			},
			[]string{"pipeline"},
		),
		benchLatency: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "toolpreselect_benchmark_mean_latency_seconds",
				Help: "Mean per-case latency of the last benchmark run per pipeline",
			},
			[]string{"pipeline"},
		),
	}
}

func (p *Prometheus) ObserveEmbed(model string, duration time.Duration, err error) {
	p.embedDuration.WithLabelValues(model, status(err)).Observe(duration.Seconds())
}

func (p *Prometheus) ObserveGenerate(model string, duration time.Duration, err error) {
	p.generateDuration.WithLabelValues(model, status(err)).Observe(duration.Seconds())
}

func (p *Prometheus) ObserveStore(op string, duration time.Duration, err error) {
	p.storeDuration.WithLabelValues(op, status(err)).Observe(duration.Seconds())
}

func (p *Prometheus) ObserveMatch(pipeline string, duration time.Duration, candidates int, err error) {
	p.matchDuration.WithLabelValues(pipeline, status(err)).Observe(duration.Seconds())
	if err == nil {
		p.matchCandidates.WithLabelValues(pipeline).Observe(float64(candidates))
	}
}

func (p *Prometheus) ObserveBenchmark(pipeline string, accuracy float64, meanLatency time.Duration) {
	// An empty run has no defined accuracy; leave the gauge untouched.
	if !math.IsNaN(accuracy) {
		p.benchAccuracy.WithLabelValues(pipeline).Set(accuracy)
	}
	p.benchLatency.WithLabelValues(pipeline).Set(meanLatency.Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}

var _ Metrics = (*Prometheus)(nil)
