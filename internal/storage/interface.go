/*
Package storage implements the persistent layer of the selection engine.

SQLiteStorage keeps three tables:
  - tool_records: the catalog's vector store (catalog.VectorStore)
  - search_history: hashed queries with candidate counts, written by the history recorder
  - benchmark_runs: one summary row per evaluator run

The database defaults to ~/.tool-preselect/catalog.db and uses modernc.org/sqlite
(a pure Go, CGo-free implementation). Vector store operations fail with
catalog.ErrStorageUnavailable when the database cannot be used; history writes
degrade to logged no-ops.
*/
package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/khanglvm/tool-preselect/internal/catalog"
)

// Storage is the history side of the store, used by the recorder and the CLI.
type Storage interface {
	// Init opens the database and runs migrations.
	Init() error

	// RecordSearch records a search for analytics.
	RecordSearch(ctx context.Context, search SearchRecord) error

	// RecentSearches returns the latest searches, newest first.
	RecentSearches(ctx context.Context, limit int) ([]SearchRecord, error)

	// RecordBenchmarkRun stores the summary of one benchmark run.
	RecordBenchmarkRun(ctx context.Context, run BenchmarkRun) error

	// ListBenchmarkRuns returns the latest benchmark runs, newest first.
	ListBenchmarkRuns(ctx context.Context, limit int) ([]BenchmarkRun, error)

	// Cleanup removes history older than retention.
	Cleanup(ctx context.Context, retention time.Duration) error

	// Close closes the database connection.
	Close() error
}

// SQLiteStorage implements Storage and catalog.VectorStore using SQLite.
type SQLiteStorage struct {
	db       *sql.DB
	dbPath   string
	enabled  bool
	logger   *zap.Logger
	mu       sync.RWMutex
	initOnce sync.Once
}

var (
	_ Storage             = (*SQLiteStorage)(nil)
	_ catalog.VectorStore = (*SQLiteStorage)(nil)
)

// DefaultPath returns ~/.tool-preselect/catalog.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".tool-preselect", "catalog.db"), nil
}

// NewStorage creates a new SQLite storage instance at dbPath (DefaultPath when empty).
// Nothing is opened until Init.
func NewStorage(dbPath string, logger *zap.Logger) *SQLiteStorage {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("storage")

	if dbPath == "" {
		path, err := DefaultPath()
		if err != nil {
			logger.Warn("storage disabled", zap.Error(err))
			return &SQLiteStorage{enabled: false, logger: logger}
		}
		dbPath = path
	}

	return &SQLiteStorage{
		dbPath:  dbPath,
		enabled: true,
		logger:  logger,
	}
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// Enabled reports whether the database is usable.
func (s *SQLiteStorage) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled && s.db != nil
}

// Init initializes the database and runs migrations.
//
// If initialization fails, storage is disabled: vector operations then fail with
// catalog.ErrStorageUnavailable and history operations become no-ops.
func (s *SQLiteStorage) Init() error {
	if !s.enabled {
		return fmt.Errorf("%w: storage disabled", catalog.ErrStorageUnavailable)
	}

	var initErr error
	s.initOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if err := os.MkdirAll(filepath.Dir(s.dbPath), 0755); err != nil {
			initErr = fmt.Errorf("failed to create db directory: %w", err)
			s.enabled = false
			s.logger.Warn("storage disabled", zap.Error(initErr))
			return
		}

		dsn := "file:" + s.dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			initErr = fmt.Errorf("failed to open database: %w", err)
			s.enabled = false
			s.logger.Warn("storage disabled", zap.Error(initErr))
			return
		}

		if err := db.Ping(); err != nil {
			_ = db.Close()
			initErr = fmt.Errorf("failed to ping database: %w", err)
			s.enabled = false
			s.logger.Warn("storage disabled", zap.Error(initErr))
			return
		}
		s.db = db

		if err := s.runMigrations(); err != nil {
			_ = db.Close()
			s.db = nil
			initErr = fmt.Errorf("failed to run migrations: %w", err)
			s.enabled = false
			s.logger.Warn("storage disabled", zap.Error(initErr))
			return
		}
	})

	if initErr != nil {
		return fmt.Errorf("%w: %w", catalog.ErrStorageUnavailable, initErr)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled || s.db == nil {
		return nil
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.db = nil
	return nil
}

// HashQuery creates a SHA256 hash of a query string for privacy.
func HashQuery(query string) string {
	hash := sha256.Sum256([]byte(query))
	return hex.EncodeToString(hash[:])
}

// unavailable marks err as a storage outage.
func unavailable(err error) error {
	return fmt.Errorf("%w: %w", catalog.ErrStorageUnavailable, err)
}

var errClosed = errors.New("database not open")
