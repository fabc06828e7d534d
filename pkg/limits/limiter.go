package limits

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Config configures the limiter.
type Config struct {
	// Default applies to tenants without an explicit entry.
	Default TenantLimits `yaml:"default"`

	// Tenants overrides limits per tenant name.
	Tenants map[string]TenantLimits `yaml:"tenants"`

	// Path, when set, persists usage in SQLite so budgets survive
	// restarts. Empty keeps usage in memory only.
	Path string `yaml:"path"`

	// Retention prunes old usage records on a cron schedule.
	Retention RetentionConfig `yaml:"retention"`
}

// Limiter enforces per-tenant request rates and cost budgets. Safe for
// concurrent use; per-tenant state is created lazily.
type Limiter struct {
	config Config
	store  UsageStore
	logger *slog.Logger

	mu      sync.Mutex
	tenants map[string]*tenantState
}

type tenantState struct {
	limits TenantLimits
	bucket *tokenBucket
	hourly *rollingWindow
	daily  *rollingWindow
}

// NewLimiter creates a limiter. The store may be nil, in which case usage
// is tracked in memory only.
func NewLimiter(config Config, store UsageStore) *Limiter {
	return &Limiter{
		config:  config,
		store:   store,
		logger:  slog.Default().With("component", "limits"),
		tenants: make(map[string]*tenantState),
	}
}

// CheckLimit admits or rejects a request with the given estimated cost.
// Returns nil on admission or a *LimitExceededError with a retry hint.
// Admission consumes one rate token but does not book the estimate; book
// realized spend with RecordUsage.
func (l *Limiter) CheckLimit(ctx context.Context, tenant string, estimatedCost float64) error {
	state := l.stateFor(tenant)

	if state.bucket != nil {
		if ok, wait := state.bucket.take(); !ok {
			l.logger.Debug("rate limited", "tenant", tenant, "retry_after", wait)
			return &LimitExceededError{Tenant: tenant, Reason: "request rate", RetryAfter: wait}
		}
	}
	if state.hourly != nil {
		if state.hourly.sum()+estimatedCost > state.limits.CostPerHour {
			wait := state.hourly.nextExpiry()
			l.logger.Debug("hourly budget exhausted", "tenant", tenant, "retry_after", wait)
			return &LimitExceededError{Tenant: tenant, Reason: "hourly budget", RetryAfter: wait}
		}
	}
	if state.daily != nil {
		if state.daily.sum()+estimatedCost > state.limits.CostPerDay {
			wait := state.daily.nextExpiry()
			l.logger.Debug("daily budget exhausted", "tenant", tenant, "retry_after", wait)
			return &LimitExceededError{Tenant: tenant, Reason: "daily budget", RetryAfter: wait}
		}
	}
	return nil
}

// RecordUsage books a realized cost against the tenant's budgets and, when
// a store is configured, persists it.
func (l *Limiter) RecordUsage(ctx context.Context, tenant string, actualCost float64) error {
	state := l.stateFor(tenant)
	if state.hourly != nil {
		state.hourly.add(actualCost)
	}
	if state.daily != nil {
		state.daily.add(actualCost)
	}

	if l.store != nil {
		record := UsageRecord{Tenant: tenant, Cost: actualCost, RecordedAt: time.Now()}
		if err := l.store.Record(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

// stateFor returns the tenant's limiter state, creating it on first use.
// Persisted usage seeds the windows so budgets survive restarts.
func (l *Limiter) stateFor(tenant string) *tenantState {
	l.mu.Lock()
	defer l.mu.Unlock()

	if state, ok := l.tenants[tenant]; ok {
		return state
	}

	limits := l.config.Default
	if override, ok := l.config.Tenants[tenant]; ok {
		limits = override
	}

	state := &tenantState{limits: limits}
	if limits.RequestsPerMinute > 0 {
		burst := limits.Burst
		if burst <= 0 {
			burst = int64(limits.RequestsPerMinute)
			if burst < 1 {
				burst = 1
			}
		}
		state.bucket = newTokenBucket(burst, limits.RequestsPerMinute/60)
	}
	if limits.CostPerHour > 0 {
		state.hourly = newRollingWindow(time.Hour, time.Minute)
		l.seedWindow(tenant, state.hourly, time.Hour)
	}
	if limits.CostPerDay > 0 {
		state.daily = newRollingWindow(24*time.Hour, time.Hour)
		l.seedWindow(tenant, state.daily, 24*time.Hour)
	}
	l.tenants[tenant] = state
	return state
}

// seedWindow loads persisted spend into a fresh window.
func (l *Limiter) seedWindow(tenant string, window *rollingWindow, span time.Duration) {
	if l.store == nil {
		return
	}
	spent, err := l.store.UsageSince(context.Background(), tenant, time.Now().Add(-span))
	if err != nil {
		l.logger.Warn("failed to seed budget window", "tenant", tenant, "error", err)
		return
	}
	if spent > 0 {
		window.add(spent)
	}
}
