package cache

import (
	"context"
	"log/slog"
	"time"

	"mercator-hq/saturn/pkg/cascade"
)

// Store is the cache contract. Implementations must be safe for concurrent
// use. A miss is (nil, false, nil); errors are reserved for storage faults.
type Store interface {
	// Get returns the cached result for key, if present and unexpired.
	Get(ctx context.Context, key string) (*cascade.Result, bool, error)

	// Set stores a result under key with the given time-to-live.
	// A zero ttl means the entry never expires.
	Set(ctx context.Context, key string, result *cascade.Result, ttl time.Duration) error

	// Close releases store resources.
	Close() error
}

// RunFunc matches the orchestrator's Execute signature.
type RunFunc func(ctx context.Context, query string) (*cascade.Result, error)

// Wrap composes a cache lookup/store around a run function. The tier
// fingerprint and params feed key derivation so that config changes never
// serve stale answers. Store faults degrade to cache-miss behavior; they
// never fail the query.
func Wrap(store Store, ttl time.Duration, tierFingerprint string, params map[string]string, run RunFunc) RunFunc {
	logger := slog.Default().With("component", "cache")
	return func(ctx context.Context, query string) (*cascade.Result, error) {
		key := Key(query, tierFingerprint, params)

		if cached, ok, err := store.Get(ctx, key); err != nil {
			logger.Warn("cache lookup failed", "error", err)
		} else if ok {
			logger.Debug("cache hit", "key", key)
			return cached, nil
		}

		result, err := run(ctx, query)
		if err != nil {
			return nil, err
		}
		if err := store.Set(ctx, key, result, ttl); err != nil {
			logger.Warn("cache store failed", "error", err)
		}
		return result, nil
	}
}
