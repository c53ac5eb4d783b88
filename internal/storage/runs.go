package storage

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// RecordBenchmarkRun stores a benchmark summary. Failures are logged, not returned.
func (s *SQLiteStorage) RecordBenchmarkRun(ctx context.Context, run BenchmarkRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled || s.db == nil {
		return nil
	}

	query := `
		INSERT INTO benchmark_runs (
			run_id, started_at, cases,
			direct_accuracy, hyde_accuracy, keyword_accuracy,
			direct_latency_ms, hyde_latency_ms,
			embedding_model, chat_model, report
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		run.RunID,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.Cases,
		nullFloat(run.DirectAccuracy),
		nullFloat(run.HyDEAccuracy),
		nullFloat(run.KeywordAccuracy),
		run.DirectLatencyMs,
		run.HyDELatencyMs,
		run.EmbeddingModel,
		run.ChatModel,
		run.Report,
	)

	if err != nil {
		s.logger.Warn("failed to record benchmark run", zap.Error(err))
	}

	return nil
}

// ListBenchmarkRuns returns up to limit runs, newest first. Reports are omitted.
func (s *SQLiteStorage) ListBenchmarkRuns(ctx context.Context, limit int) ([]BenchmarkRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.enabled || s.db == nil {
		return []BenchmarkRun{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, started_at, cases,
			direct_accuracy, hyde_accuracy, keyword_accuracy,
			direct_latency_ms, hyde_latency_ms,
			embedding_model, chat_model
		FROM benchmark_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		s.logger.Warn("failed to query benchmark runs", zap.Error(err))
		return []BenchmarkRun{}, nil
	}
	defer rows.Close()

	runs := []BenchmarkRun{}
	for rows.Next() {
		var run BenchmarkRun
		var startedAt string
		var direct, hyde, keyword sql.NullFloat64

		if err := rows.Scan(
			&run.RunID,
			&startedAt,
			&run.Cases,
			&direct,
			&hyde,
			&keyword,
			&run.DirectLatencyMs,
			&run.HyDELatencyMs,
			&run.EmbeddingModel,
			&run.ChatModel,
		); err != nil {
			s.logger.Warn("failed to scan benchmark row", zap.Error(err))
			continue
		}

		run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			s.logger.Warn("failed to parse timestamp", zap.Error(err))
			continue
		}
		run.DirectAccuracy = floatPtr(direct)
		run.HyDEAccuracy = floatPtr(hyde)
		run.KeywordAccuracy = floatPtr(keyword)

		runs = append(runs, run)
	}

	return runs, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
