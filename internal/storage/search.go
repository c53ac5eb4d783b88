package storage

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RecordSearch records a search for analytics. Failures are logged, not returned.
func (s *SQLiteStorage) RecordSearch(ctx context.Context, search SearchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled || s.db == nil {
		return nil
	}

	query := `
		INSERT INTO search_history (search_id, query_hash, pipeline, timestamp, results_count, top_tool, top_score, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		search.SearchID,
		search.QueryHash,
		search.Pipeline,
		search.Timestamp.UTC().Format(time.RFC3339Nano),
		search.ResultsCount,
		search.TopTool,
		search.TopScore,
		search.Error,
	)

	if err != nil {
		s.logger.Warn("failed to record search", zap.Error(err))
	}

	return nil
}

// RecentSearches returns up to limit searches, newest first.
func (s *SQLiteStorage) RecentSearches(ctx context.Context, limit int) ([]SearchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.enabled || s.db == nil {
		return []SearchRecord{}, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT search_id, query_hash, pipeline, timestamp, results_count, top_tool, top_score, error
		FROM search_history
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		s.logger.Warn("failed to query search history", zap.Error(err))
		return []SearchRecord{}, nil
	}
	defer rows.Close()

	searches := []SearchRecord{}
	for rows.Next() {
		var record SearchRecord
		var timestamp string

		if err := rows.Scan(
			&record.SearchID,
			&record.QueryHash,
			&record.Pipeline,
			&timestamp,
			&record.ResultsCount,
			&record.TopTool,
			&record.TopScore,
			&record.Error,
		); err != nil {
			s.logger.Warn("failed to scan search row", zap.Error(err))
			continue
		}

		record.Timestamp, err = time.Parse(time.RFC3339Nano, timestamp)
		if err != nil {
			s.logger.Warn("failed to parse timestamp", zap.Error(err))
			continue
		}

		searches = append(searches, record)
	}

	return searches, nil
}

// Cleanup removes history older than retention.
func (s *SQLiteStorage) Cleanup(ctx context.Context, retention time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled || s.db == nil {
		return nil
	}

	cutoff := time.Now().Add(-retention).UTC().Format(time.RFC3339Nano)

	if _, err := s.db.ExecContext(ctx, "DELETE FROM search_history WHERE timestamp < ?", cutoff); err != nil {
		s.logger.Warn("failed to cleanup search_history", zap.Error(err))
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM benchmark_runs WHERE started_at < ?", cutoff); err != nil {
		s.logger.Warn("failed to cleanup benchmark_runs", zap.Error(err))
	}

	// Reclaim space
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		s.logger.Warn("failed to vacuum database", zap.Error(err))
	}

	return nil
}
