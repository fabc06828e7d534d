package limits

import (
	"fmt"
	"time"
)

// TenantLimits configures one tenant's admission limits.
// Zero values disable the corresponding limit.
type TenantLimits struct {
	// RequestsPerMinute is the sustained request rate.
	RequestsPerMinute float64 `yaml:"requests_per_minute"`

	// Burst is the token bucket capacity. Defaults to RequestsPerMinute.
	Burst int64 `yaml:"burst"`

	// CostPerHour and CostPerDay are rolling budget caps in dollars.
	CostPerHour float64 `yaml:"cost_per_hour"`
	CostPerDay  float64 `yaml:"cost_per_day"`
}

// LimitExceededError reports a rejected admission with a retry hint.
type LimitExceededError struct {
	// Tenant is the rejected tenant.
	Tenant string

	// Reason names the exhausted limit ("request rate", "hourly budget",
	// "daily budget").
	Reason string

	// RetryAfter is the suggested wait before retrying.
	RetryAfter time.Duration
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("tenant %q: %s limit exceeded, retry after %s", e.Tenant, e.Reason, e.RetryAfter)
}

// UsageRecord is one booked spend for a tenant.
type UsageRecord struct {
	Tenant     string    `json:"tenant"`
	Cost       float64   `json:"cost"`
	RecordedAt time.Time `json:"recorded_at"`
}
