package limits

import (
	"context"
	"sync"
	"time"
)

// UsageStore persists realized spend so budgets survive restarts.
// Implementations must be safe for concurrent use.
type UsageStore interface {
	// Record appends one usage record.
	Record(ctx context.Context, record UsageRecord) error

	// UsageSince sums a tenant's spend recorded at or after since.
	UsageSince(ctx context.Context, tenant string, since time.Time) (float64, error)

	// Prune deletes records older than before, returning how many were removed.
	Prune(ctx context.Context, before time.Time) (int64, error)

	// Close releases store resources.
	Close() error
}

// MemoryStore is an in-process UsageStore for tests and single-run tools.
type MemoryStore struct {
	mu      sync.RWMutex
	records []UsageRecord
}

// NewMemoryStore creates an empty in-memory usage store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Record implements UsageStore.
func (s *MemoryStore) Record(ctx context.Context, record UsageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

// UsageSince implements UsageStore.
func (s *MemoryStore) UsageSince(ctx context.Context, tenant string, since time.Time) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total float64
	for _, r := range s.records {
		if r.Tenant == tenant && !r.RecordedAt.Before(since) {
			total += r.Cost
		}
	}
	return total, nil
}

// Prune implements UsageStore.
func (s *MemoryStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	var removed int64
	for _, r := range s.records {
		if r.RecordedAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
	return removed, nil
}

// Close implements UsageStore.
func (s *MemoryStore) Close() error { return nil }
