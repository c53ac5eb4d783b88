package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/khanglvm/tool-preselect/internal/catalog"
)

// conn returns the open database or a storage outage error. Caller holds s.mu.
func (s *SQLiteStorage) conn() (*sql.DB, error) {
	if !s.enabled || s.db == nil {
		return nil, unavailable(errClosed)
	}
	return s.db, nil
}

// Upsert stores a tool record, replacing any record with the same ID.
func (s *SQLiteStorage) Upsert(ctx context.Context, record catalog.ToolRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return err
	}

	embedding, err := vectorToJSON(record.Embedding)
	if err != nil {
		return unavailable(err)
	}

	query := `
		INSERT INTO tool_records (id, name, tool_group, description, embedding, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			tool_group = excluded.tool_group,
			description = excluded.description,
			embedding = excluded.embedding,
			model = excluded.model,
			created_at = excluded.created_at
	`

	if _, err := db.ExecContext(ctx, query,
		record.ID,
		record.Name,
		record.Group,
		record.Description,
		embedding,
		record.Model,
		record.CreatedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return unavailable(fmt.Errorf("failed to upsert tool record: %w", err))
	}

	return nil
}

// NearestNeighbors scores every stored vector by cosine similarity. A stored
// vector of another dimension fails the query with catalog.ErrEmbeddingUnavailable.
func (s *SQLiteStorage) NearestNeighbors(ctx context.Context, vector []float32, topK int) ([]catalog.Neighbor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, "SELECT id, embedding FROM tool_records ORDER BY seq")
	if err != nil {
		return nil, unavailable(fmt.Errorf("failed to query embeddings: %w", err))
	}
	defer rows.Close()

	var neighbors []catalog.Neighbor
	for rows.Next() {
		var id, embedding string
		if err := rows.Scan(&id, &embedding); err != nil {
			return nil, unavailable(fmt.Errorf("failed to scan embedding: %w", err))
		}
		stored, err := jsonToVector(embedding)
		if err != nil {
			return nil, unavailable(fmt.Errorf("corrupt embedding for %s: %w", id, err))
		}
		if err := catalog.CheckDimension(id, vector, stored); err != nil {
			return nil, err
		}
		neighbors = append(neighbors, catalog.Neighbor{
			ID:    id,
			Score: catalog.CosineSimilarity(vector, stored),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err)
	}

	return catalog.RankNeighbors(neighbors, topK), nil
}

// Get returns the tool record with id.
func (s *SQLiteStorage) Get(ctx context.Context, id string) (catalog.ToolRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.conn()
	if err != nil {
		return catalog.ToolRecord{}, false, err
	}

	row := db.QueryRowContext(ctx, `
		SELECT id, name, tool_group, description, embedding, model, created_at
		FROM tool_records
		WHERE id = ?
	`, id)

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.ToolRecord{}, false, nil
	}
	if err != nil {
		return catalog.ToolRecord{}, false, unavailable(err)
	}
	return record, true, nil
}

// All returns every tool record in registration order.
func (s *SQLiteStorage) All(ctx context.Context) ([]catalog.ToolRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, name, tool_group, description, embedding, model, created_at
		FROM tool_records
		ORDER BY seq
	`)
	if err != nil {
		return nil, unavailable(fmt.Errorf("failed to query tool records: %w", err))
	}
	defer rows.Close()

	records := []catalog.ToolRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, unavailable(err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err)
	}
	return records, nil
}

// Count returns the number of stored tool records.
func (s *SQLiteStorage) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.conn()
	if err != nil {
		return 0, err
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tool_records").Scan(&count); err != nil {
		return 0, unavailable(fmt.Errorf("failed to count tool records: %w", err))
	}
	return count, nil
}

// Reset deletes every tool record. History tables are kept.
func (s *SQLiteStorage) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, "DELETE FROM tool_records"); err != nil {
		return unavailable(fmt.Errorf("failed to reset tool records: %w", err))
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (catalog.ToolRecord, error) {
	var record catalog.ToolRecord
	var embedding, createdAt string

	if err := row.Scan(
		&record.ID,
		&record.Name,
		&record.Group,
		&record.Description,
		&embedding,
		&record.Model,
		&createdAt,
	); err != nil {
		return catalog.ToolRecord{}, err
	}

	vector, err := jsonToVector(embedding)
	if err != nil {
		return catalog.ToolRecord{}, fmt.Errorf("corrupt embedding for %s: %w", record.ID, err)
	}
	record.Embedding = vector

	record.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return catalog.ToolRecord{}, fmt.Errorf("failed to parse created_at for %s: %w", record.ID, err)
	}

	return record, nil
}
