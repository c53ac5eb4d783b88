/*
Package storage provides data models for the history tables.
*/
package storage

import "time"

// SearchRecord represents one search for analytics. The query itself is never stored.
type SearchRecord struct {
	// SearchID is a unique identifier for this search (UUID).
	SearchID string `json:"search_id"`

	// QueryHash is the SHA256 hash of the search query for privacy.
	QueryHash string `json:"query_hash"`

	// Pipeline is the pipeline that produced the candidates ("direct", "hyde").
	Pipeline string `json:"pipeline"`

	// Timestamp is when the search was performed.
	Timestamp time.Time `json:"timestamp"`

	// ResultsCount is the number of accepted candidates.
	ResultsCount int `json:"results_count"`

	// TopTool is group/name of the best candidate, or empty.
	TopTool string `json:"top_tool"`

	// TopScore is the score of the best candidate, or 0.
	TopScore float64 `json:"top_score"`

	// Error is the backend failure, if the search failed.
	Error string `json:"error,omitempty"`
}

// BenchmarkRun is the summary of one evaluator run.
type BenchmarkRun struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	Cases     int       `json:"cases"`

	// Accuracies are nil when undefined (no cases, or pipeline not run).
	DirectAccuracy  *float64 `json:"direct_accuracy"`
	HyDEAccuracy    *float64 `json:"hyde_accuracy"`
	KeywordAccuracy *float64 `json:"keyword_accuracy"`

	DirectLatencyMs float64 `json:"direct_latency_ms"`
	HyDELatencyMs   float64 `json:"hyde_latency_ms"`

	EmbeddingModel string `json:"embedding_model"`
	ChatModel      string `json:"chat_model"`

	// Report is the full JSON report.
	Report string `json:"report,omitempty"`
}
