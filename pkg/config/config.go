package config

import (
	"time"

	"mercator-hq/saturn/pkg/batch"
	"mercator-hq/saturn/pkg/cascade"
	"mercator-hq/saturn/pkg/complexity"
	"mercator-hq/saturn/pkg/limits"
	"mercator-hq/saturn/pkg/quality"
)

// Config is the root configuration for a cascade deployment.
type Config struct {
	// Backends lists the model backends available to tiers.
	Backends []BackendConfig `yaml:"backends"`

	// Tiers is the cascade tier list. Order does not matter; the
	// orchestrator sorts by cost.
	Tiers []cascade.Tier `yaml:"tiers"`

	// Validator configures the quality gate.
	Validator quality.ValidatorConfig `yaml:"validator"`

	// Calibrations is the per-backend confidence calibration table.
	// Merged over the built-in defaults; must keep a "default" entry.
	Calibrations map[string]quality.Calibration `yaml:"calibrations"`

	// Classifier tunes complexity classification thresholds.
	Classifier complexity.Config `yaml:"classifier"`

	// Retry configures the retry wrapper composed around each backend.
	Retry RetryConfig `yaml:"retry"`

	// Batch configures the batch executor.
	Batch batch.Config `yaml:"batch"`

	// Limits configures per-tenant rate and budget enforcement.
	Limits limits.Config `yaml:"limits"`

	// Cache configures response caching.
	Cache CacheConfig `yaml:"cache"`

	// Telemetry configures metrics and logging.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// BackendConfig describes one HTTP model backend.
type BackendConfig struct {
	// Name is the registry key tiers refer to.
	Name string `yaml:"name"`

	// BaseURL is the OpenAI-compatible API root.
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates requests. Empty for unauthenticated local backends.
	APIKey string `yaml:"api_key"`

	// Timeout bounds one round-trip. Default: 60s.
	Timeout time.Duration `yaml:"timeout"`
}

// RetryConfig mirrors the retry wrapper's knobs.
type RetryConfig struct {
	// Enabled composes the retry wrapper around every backend.
	Enabled bool `yaml:"enabled"`

	// MaxRetries bounds retry attempts per call. Default: 3.
	MaxRetries int `yaml:"max_retries"`

	// InitialBackoff is the first backoff delay. Default: 500ms.
	InitialBackoff time.Duration `yaml:"initial_backoff"`

	// MaxBackoff caps exponential growth. Default: 30s.
	MaxBackoff time.Duration `yaml:"max_backoff"`

	// RateLimitDelay is the fixed wait after a rate-limit rejection when the
	// backend gives no hint. Default: 5s.
	RateLimitDelay time.Duration `yaml:"rate_limit_delay"`
}

// CacheConfig configures the response cache.
type CacheConfig struct {
	// Enabled turns response caching on.
	Enabled bool `yaml:"enabled"`

	// TTL is how long cached results stay valid. Default: 15m.
	TTL time.Duration `yaml:"ttl"`

	// MaxEntries bounds the in-memory store. Default: 10000.
	MaxEntries int `yaml:"max_entries"`

	// Path, when set, uses the persistent SQLite store instead of memory.
	Path string `yaml:"path"`
}

// TelemetryConfig configures observability.
type TelemetryConfig struct {
	// Metrics configures the Prometheus collector.
	Metrics MetricsConfig `yaml:"metrics"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`
}

// MetricsConfig configures Prometheus metric emission.
type MetricsConfig struct {
	// Enabled turns metric recording on.
	Enabled bool `yaml:"enabled"`

	// Namespace and Subsystem prefix every metric name.
	// Defaults: "mercator", "saturn".
	Namespace string `yaml:"namespace"`
	Subsystem string `yaml:"subsystem"`

	// DurationBuckets are histogram buckets for call latencies in seconds.
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is the minimum level ("debug", "info", "warn", "error").
	// Default: "info".
	Level string `yaml:"level"`

	// Format is "json" or "text". Default: "json".
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	AddSource bool `yaml:"add_source"`
}
