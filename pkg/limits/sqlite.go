package limits

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const usageSchema = `
CREATE TABLE IF NOT EXISTS usage_records (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    tenant      TEXT NOT NULL,
    cost        REAL NOT NULL,
    recorded_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_usage_tenant_time ON usage_records(tenant, recorded_at);
`

// SQLiteStore is a UsageStore backed by SQLite. Suitable for
// single-instance deployments that need budgets to survive restarts.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the usage database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("usage store requires a database path")
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open usage database: %w", err)
	}
	if _, err := db.Exec(usageSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create usage schema: %w", err)
	}

	logger := slog.Default().With("component", "limits.sqlite")
	logger.Info("usage store initialized", "path", path)
	return &SQLiteStore{db: db, logger: logger}, nil
}

// Record implements UsageStore.
func (s *SQLiteStore) Record(ctx context.Context, record UsageRecord) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO usage_records (tenant, cost, recorded_at) VALUES (?, ?, ?)",
		record.Tenant, record.Cost, record.RecordedAt)
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

// UsageSince implements UsageStore.
func (s *SQLiteStore) UsageSince(ctx context.Context, tenant string, since time.Time) (float64, error) {
	var total sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		"SELECT SUM(cost) FROM usage_records WHERE tenant = ? AND recorded_at >= ?",
		tenant, since).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum usage: %w", err)
	}
	return total.Float64, nil
}

// Prune implements UsageStore.
func (s *SQLiteStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM usage_records WHERE recorded_at < ?", before)
	if err != nil {
		return 0, fmt.Errorf("prune usage: %w", err)
	}
	return res.RowsAffected()
}

// Close implements UsageStore.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
