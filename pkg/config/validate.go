package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"

	"mercator-hq/saturn/pkg/limits"
	"mercator-hq/saturn/pkg/quality"
)

// FieldError is a validation error for one configuration field.
type FieldError struct {
	// Field is the dotted path to the field (e.g., "tiers[0].backend").
	Field string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError aggregates every field error found in a configuration.
type ValidationError struct {
	Errors []FieldError
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d errors:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

// Validate checks the whole configuration, collecting every error before
// failing. Returns nil when the configuration is valid.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateBackends(cfg.Backends)...)
	errs = append(errs, validateTiers(cfg)...)
	errs = append(errs, validateValidator(&cfg.Validator)...)
	errs = append(errs, validateCalibrations(cfg.Calibrations)...)
	errs = append(errs, validateLimits(cfg)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateBackends(backends []BackendConfig) []FieldError {
	var errs []FieldError
	seen := make(map[string]bool, len(backends))

	if len(backends) == 0 {
		errs = append(errs, FieldError{
			Field:   "backends",
			Message: "at least one backend is required",
		})
	}
	for i, b := range backends {
		field := fmt.Sprintf("backends[%d]", i)
		if b.Name == "" {
			errs = append(errs, FieldError{Field: field + ".name", Message: "name is required"})
		} else if seen[b.Name] {
			errs = append(errs, FieldError{Field: field + ".name", Message: fmt.Sprintf("duplicate backend name %q", b.Name)})
		}
		seen[b.Name] = true

		if b.BaseURL == "" {
			errs = append(errs, FieldError{Field: field + ".base_url", Message: "base URL is required"})
		} else if u, err := url.Parse(b.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, FieldError{Field: field + ".base_url", Message: fmt.Sprintf("invalid URL %q", b.BaseURL)})
		}
	}
	return errs
}

func validateTiers(cfg *Config) []FieldError {
	var errs []FieldError

	if len(cfg.Tiers) == 0 {
		errs = append(errs, FieldError{
			Field:   "tiers",
			Message: "at least one tier is required",
		})
	}

	backendNames := make(map[string]bool, len(cfg.Backends))
	for _, b := range cfg.Backends {
		backendNames[b.Name] = true
	}
	seen := make(map[string]bool, len(cfg.Tiers))

	for i, t := range cfg.Tiers {
		field := fmt.Sprintf("tiers[%d]", i)
		if t.ID == "" {
			errs = append(errs, FieldError{Field: field + ".id", Message: "id is required"})
		} else if seen[t.ID] {
			errs = append(errs, FieldError{Field: field + ".id", Message: fmt.Sprintf("duplicate tier id %q", t.ID)})
		}
		seen[t.ID] = true

		if t.Backend == "" {
			errs = append(errs, FieldError{Field: field + ".backend", Message: "backend is required"})
		} else if len(cfg.Backends) > 0 && !backendNames[t.Backend] {
			errs = append(errs, FieldError{Field: field + ".backend", Message: fmt.Sprintf("unknown backend %q", t.Backend)})
		}
		if t.CostPer1K < 0 {
			errs = append(errs, FieldError{Field: field + ".cost_per_1k", Message: "cost must not be negative"})
		}
		if t.Temperature < 0 || t.Temperature > 2 {
			errs = append(errs, FieldError{Field: field + ".temperature", Message: "temperature must be within [0, 2]"})
		}
		if t.Threshold != nil && (*t.Threshold < 0 || *t.Threshold > 1) {
			errs = append(errs, FieldError{Field: field + ".threshold", Message: "threshold must be within [0, 1]"})
		}
	}
	return errs
}

func validateValidator(cfg *quality.ValidatorConfig) []FieldError {
	var errs []FieldError

	if cfg.DefaultThreshold < 0 || cfg.DefaultThreshold > 1 {
		errs = append(errs, FieldError{
			Field:   "validator.default_threshold",
			Message: "threshold must be within [0, 1]",
		})
	}
	for level, threshold := range cfg.LevelThresholds {
		if threshold < 0 || threshold > 1 {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("validator.level_thresholds.%s", level),
				Message: "threshold must be within [0, 1]",
			})
		}
	}
	if cfg.AlignmentFloor < 0 || cfg.AlignmentFloor > 1 {
		errs = append(errs, FieldError{
			Field:   "validator.alignment_floor",
			Message: "floor must be within [0, 1]",
		})
	}
	if cfg.MinWords < 0 {
		errs = append(errs, FieldError{
			Field:   "validator.min_words",
			Message: "minimum word count must not be negative",
		})
	}
	return errs
}

func validateCalibrations(table map[string]quality.Calibration) []FieldError {
	var errs []FieldError

	if _, ok := table[quality.DefaultCalibrationKey]; len(table) > 0 && !ok {
		errs = append(errs, FieldError{
			Field:   "calibrations",
			Message: fmt.Sprintf("a %q entry is required", quality.DefaultCalibrationKey),
		})
	}
	for name, cal := range table {
		field := "calibrations." + name
		if cal.BaseMultiplier <= 0 {
			errs = append(errs, FieldError{Field: field + ".base_multiplier", Message: "multiplier must be positive"})
		}
		if cal.Min < 0 || cal.Max > 1 || cal.Min > cal.Max {
			errs = append(errs, FieldError{Field: field, Message: "min/max must satisfy 0 <= min <= max <= 1"})
		}
	}
	return errs
}

func validateLimits(cfg *Config) []FieldError {
	var errs []FieldError

	check := func(field string, l limits.TenantLimits) {
		if l.RequestsPerMinute < 0 {
			errs = append(errs, FieldError{Field: field + ".requests_per_minute", Message: "rate must not be negative"})
		}
		if l.Burst < 0 {
			errs = append(errs, FieldError{Field: field + ".burst", Message: "burst must not be negative"})
		}
		if l.CostPerHour < 0 {
			errs = append(errs, FieldError{Field: field + ".cost_per_hour", Message: "budget must not be negative"})
		}
		if l.CostPerDay < 0 {
			errs = append(errs, FieldError{Field: field + ".cost_per_day", Message: "budget must not be negative"})
		}
	}
	check("limits.default", cfg.Limits.Default)
	for tenant, l := range cfg.Limits.Tenants {
		check("limits.tenants."+tenant, l)
	}

	if cfg.Limits.Retention.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Limits.Retention.Schedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "limits.retention.schedule",
				Message: fmt.Sprintf("invalid cron expression %q", cfg.Limits.Retention.Schedule),
			})
		}
	}
	if cfg.Limits.Retention.KeepFor < 0 {
		errs = append(errs, FieldError{
			Field:   "limits.retention.keep_for",
			Message: "retention period must not be negative",
		})
	}
	return errs
}
