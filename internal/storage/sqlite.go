/*
Package storage provides SQLite database migrations and helper functions.

This file contains schema definitions, migration logic, and vector serialization
utilities for the storage layer.
*/
package storage

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// runMigrations executes database schema migrations. Caller holds s.mu.
func (s *SQLiteStorage) runMigrations() error {
	if err := s.createMigrationsTable(); err != nil {
		return err
	}

	version, err := s.getCurrentMigrationVersion()
	if err != nil {
		return err
	}

	migrations := []migration{
		{version: 1, name: "initial_schema", up: s.migration001InitialSchema},
	}

	for _, m := range migrations {
		if version < m.version {
			s.logger.Info("running migration", zap.Int("version", m.version), zap.String("name", m.name))
			if err := m.up(); err != nil {
				return fmt.Errorf("migration %d failed: %w", m.version, err)
			}
			if err := s.setMigrationVersion(m.version, m.name); err != nil {
				return err
			}
		}
	}

	return nil
}

// migration represents a single database migration.
type migration struct {
	version int
	name    string
	up      func() error
}

// createMigrationsTable creates the schema_migrations table.
func (s *SQLiteStorage) createMigrationsTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`
	_, err := s.db.Exec(query)
	return err
}

// getCurrentMigrationVersion returns the highest applied migration version.
func (s *SQLiteStorage) getCurrentMigrationVersion() (int, error) {
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")

	var version int
	if err := row.Scan(&version); err != nil {
		return 0, err
	}

	return version, nil
}

// setMigrationVersion records a migration as applied.
func (s *SQLiteStorage) setMigrationVersion(version int, name string) error {
	_, err := s.db.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", version, name)
	return err
}

// migration001InitialSchema creates the initial database schema.
func (s *SQLiteStorage) migration001InitialSchema() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS tool_records (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			tool_group TEXT NOT NULL,
			description TEXT NOT NULL,
			embedding TEXT NOT NULL,
			model TEXT NOT NULL,
			created_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create tool_records table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_tool_records_key
		ON tool_records(tool_group, name)
	`); err != nil {
		return fmt.Errorf("failed to create tool_records key index: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS search_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			search_id TEXT NOT NULL UNIQUE,
			query_hash TEXT NOT NULL,
			pipeline TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			results_count INTEGER NOT NULL,
			top_tool TEXT NOT NULL DEFAULT '',
			top_score REAL NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT ''
		)
	`); err != nil {
		return fmt.Errorf("failed to create search_history table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_search_history_timestamp
		ON search_history(timestamp DESC)
	`); err != nil {
		return fmt.Errorf("failed to create search_history timestamp index: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS benchmark_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL UNIQUE,
			started_at TEXT NOT NULL,
			cases INTEGER NOT NULL,
			direct_accuracy REAL,
			hyde_accuracy REAL,
			keyword_accuracy REAL,
			direct_latency_ms REAL NOT NULL,
			hyde_latency_ms REAL NOT NULL,
			embedding_model TEXT NOT NULL DEFAULT '',
			chat_model TEXT NOT NULL DEFAULT '',
			report TEXT NOT NULL DEFAULT ''
		)
	`); err != nil {
		return fmt.Errorf("failed to create benchmark_runs table: %w", err)
	}

	return nil
}

// vectorToJSON converts a float32 vector to JSON for storage.
func vectorToJSON(vector []float32) (string, error) {
	data, err := json.Marshal(vector)
	if err != nil {
		return "", fmt.Errorf("failed to marshal vector: %w", err)
	}
	return string(data), nil
}

// jsonToVector parses JSON storage back to a float32 vector.
func jsonToVector(jsonStr string) ([]float32, error) {
	var vector []float32
	if err := json.Unmarshal([]byte(jsonStr), &vector); err != nil {
		return nil, err
	}
	return vector, nil
}
