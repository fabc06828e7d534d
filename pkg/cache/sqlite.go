package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mercator-hq/saturn/pkg/cascade"
)

// sqliteSchema holds cached results as JSON blobs with an absolute expiry.
// A zero expiry (stored as NULL) means the entry never expires.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS response_cache (
    key        TEXT PRIMARY KEY,
    result     TEXT NOT NULL,
    expires_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_response_cache_expires ON response_cache(expires_at);
`

// SQLiteConfig configures the persistent cache store.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns bounds the connection pool. Default: 10.
	MaxOpenConns int

	// WALMode enables Write-Ahead Logging for better concurrency.
	// Default: true.
	WALMode bool

	// BusyTimeout is how long to wait on a locked database.
	// Default: 5 seconds.
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default configuration.
func DefaultSQLiteConfig(path string) *SQLiteConfig {
	return &SQLiteConfig{
		Path:         path,
		MaxOpenConns: 10,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStore is a Store backed by a SQLite database, for caches that must
// survive process restarts.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the database and prepares the schema.
func NewSQLiteStore(config *SQLiteConfig) (*SQLiteStore, error) {
	if config == nil {
		return nil, fmt.Errorf("sqlite cache requires a config")
	}
	logger := slog.Default().With("component", "cache.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}

	if config.WALMode {
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable wal mode: %w", err)
		}
	}
	if config.BusyTimeout > 0 {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", config.BusyTimeout.Milliseconds())); err != nil {
			db.Close()
			return nil, fmt.Errorf("set busy timeout: %w", err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}

	logger.Info("sqlite cache initialized", "path", config.Path)
	return &SQLiteStore{db: db, logger: logger}, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, key string) (*cascade.Result, bool, error) {
	var blob string
	var expiresAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		"SELECT result, expires_at FROM response_cache WHERE key = ?", key,
	).Scan(&blob, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	if expiresAt.Valid && time.Now().After(expiresAt.Time) {
		// Expired entries are removed lazily; a failed delete is harmless.
		if _, err := s.db.ExecContext(ctx, "DELETE FROM response_cache WHERE key = ?", key); err != nil {
			s.logger.Warn("failed to delete expired entry", "error", err)
		}
		return nil, false, nil
	}

	var result cascade.Result
	if err := json.Unmarshal([]byte(blob), &result); err != nil {
		return nil, false, fmt.Errorf("cache decode: %w", err)
	}
	return &result, true, nil
}

// Set implements Store.
func (s *SQLiteStore) Set(ctx context.Context, key string, result *cascade.Result, ttl time.Duration) error {
	blob, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}

	var expiresAt interface{}
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO response_cache (key, result, expires_at, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			result = excluded.result,
			expires_at = excluded.expires_at,
			created_at = excluded.created_at`,
		key, string(blob), expiresAt, time.Now())
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Prune removes every expired entry and returns how many were deleted.
func (s *SQLiteStore) Prune(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM response_cache WHERE expires_at IS NOT NULL AND expires_at < ?", time.Now())
	if err != nil {
		return 0, fmt.Errorf("cache prune: %w", err)
	}
	return res.RowsAffected()
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
