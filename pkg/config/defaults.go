package config

import (
	"time"

	"mercator-hq/saturn/pkg/quality"
)

// ApplyDefaults fills zero-valued fields with defaults. Called by LoadConfig
// between parsing and validation; hosts building a Config in code should
// call it themselves.
func ApplyDefaults(cfg *Config) {
	for i := range cfg.Backends {
		if cfg.Backends[i].Timeout <= 0 {
			cfg.Backends[i].Timeout = 60 * time.Second
		}
	}

	// Calibration entries merge over the built-in table so partial overrides
	// keep sensible values for unlisted backends.
	merged := quality.DefaultCalibrations()
	for name, cal := range cfg.Calibrations {
		merged[name] = cal
	}
	cfg.Calibrations = merged

	if cfg.Retry.MaxRetries <= 0 {
		cfg.Retry.MaxRetries = 3
	}
	if cfg.Retry.InitialBackoff <= 0 {
		cfg.Retry.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.Retry.MaxBackoff <= 0 {
		cfg.Retry.MaxBackoff = 30 * time.Second
	}
	if cfg.Retry.RateLimitDelay <= 0 {
		cfg.Retry.RateLimitDelay = 5 * time.Second
	}

	if cfg.Cache.TTL <= 0 {
		cfg.Cache.TTL = 15 * time.Minute
	}
	if cfg.Cache.MaxEntries <= 0 {
		cfg.Cache.MaxEntries = 10000
	}

	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = "mercator"
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = "saturn"
	}
	if len(cfg.Telemetry.Metrics.DurationBuckets) == 0 {
		// Spans LLM round-trip latencies from fast local models to slow
		// frontier models.
		cfg.Telemetry.Metrics.DurationBuckets = []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0}
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = "info"
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = "json"
	}
}
