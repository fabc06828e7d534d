package cache

import (
	"context"
	"sync"
	"time"

	"mercator-hq/saturn/pkg/cascade"
)

// memoryEntry is one cached result with its bookkeeping.
type memoryEntry struct {
	result         *cascade.Result
	expiresAt      time.Time
	lastAccessedAt time.Time
}

// MemoryStore is an in-process Store with TTL expiry and LRU eviction.
// Entries expire lazily on Get and in a periodic sweep; when the store is
// full, the least recently accessed entry is evicted.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[string]*memoryEntry
	maxEntries int

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore creates a memory store holding at most maxEntries results.
// maxEntries of 0 means unlimited. The sweep runs at the given interval;
// zero disables it.
func NewMemoryStore(maxEntries int, sweepInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries:    make(map[string]*memoryEntry),
		maxEntries: maxEntries,
		stopCh:     make(chan struct{}),
	}
	if sweepInterval > 0 {
		go s.sweep(sweepInterval)
	}
	return s
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, key string) (*cascade.Result, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(s.entries, key)
		return nil, false, nil
	}
	entry.lastAccessedAt = time.Now()
	return entry.result, true, nil
}

// Set implements Store.
func (s *MemoryStore) Set(ctx context.Context, key string, result *cascade.Result, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		if _, exists := s.entries[key]; !exists {
			s.evictLRU()
		}
	}

	now := time.Now()
	entry := &memoryEntry{result: result, lastAccessedAt: now}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	s.entries[key] = entry
	return nil
}

// Close implements Store, stopping the sweep goroutine.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	return nil
}

// Len returns the current entry count.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// evictLRU removes the least recently accessed entry. Caller holds the lock.
func (s *MemoryStore) evictLRU() {
	var oldestKey string
	var oldestTime time.Time
	for key, entry := range s.entries {
		if oldestKey == "" || entry.lastAccessedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.lastAccessedAt
		}
	}
	if oldestKey != "" {
		delete(s.entries, oldestKey)
	}
}

// sweep periodically removes expired entries.
func (s *MemoryStore) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for key, entry := range s.entries {
				if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		case <-s.stopCh:
			return
		}
	}
}
