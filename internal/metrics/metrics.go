/*
Package metrics defines the observation points of the selection engine.

Every external call (embedding, generation, vector search) and every benchmark
pipeline reports through the Metrics interface. The Prometheus implementation
is used by the CLI; libraries default to Nop.
*/
package metrics

import "time"

// Metrics receives latency and outcome observations.
type Metrics interface {
	// ObserveEmbed records one embedding call.
	ObserveEmbed(model string, duration time.Duration, err error)

	// ObserveGenerate records one text-generation call.
	ObserveGenerate(model string, duration time.Duration, err error)

	// ObserveStore records one vector store operation ("upsert", "search", "get").
	ObserveStore(op string, duration time.Duration, err error)

	// ObserveMatch records one matcher invocation and how many candidates survived.
	ObserveMatch(pipeline string, duration time.Duration, candidates int, err error)

	// ObserveBenchmark records the aggregate outcome of one benchmark pipeline.
	ObserveBenchmark(pipeline string, accuracy float64, meanLatency time.Duration)
}

// Nop discards all observations.
type Nop struct{}

func (Nop) ObserveEmbed(string, time.Duration, error) {}
func (Nop) ObserveGenerate(string, time.Duration, error) {}
func (Nop) ObserveStore(string, time.Duration, error) {}
func (Nop) ObserveMatch(string, time.Duration, int, error) {}
func (Nop) ObserveBenchmark(string, float64, time.Duration) {}

var _ Metrics = Nop{}

// OrNop returns m, or Nop when m is nil.
func OrNop(m Metrics) Metrics {
	if m == nil {
		return Nop{}
	}
	return m
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
