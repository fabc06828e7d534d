package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"mercator-hq/saturn/pkg/backends"
	"mercator-hq/saturn/pkg/cache"
	"mercator-hq/saturn/pkg/cascade"
	"mercator-hq/saturn/pkg/complexity"
	"mercator-hq/saturn/pkg/config"
	"mercator-hq/saturn/pkg/limits"
	"mercator-hq/saturn/pkg/quality"
	"mercator-hq/saturn/pkg/telemetry/logging"
	"mercator-hq/saturn/pkg/telemetry/metrics"
)

// engine bundles the wired subsystems behind one run function. Commands
// build it from the loaded configuration and close it when done.
type engine struct {
	cfg       *config.Config
	registry  *backends.Registry
	orch      *cascade.Orchestrator
	collector *metrics.Collector
	limiter   *limits.Limiter
	usage     limits.UsageStore
	retention *limits.RetentionScheduler
	store     cache.Store
	run       cache.RunFunc
}

// buildEngine assembles backends, quality gate, classifier, orchestrator,
// cache, and limiter from the configuration.
func buildEngine(cfg *config.Config, logger *slog.Logger, minimal bool) (*engine, error) {
	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Telemetry.Metrics, nil)
	}

	registry := backends.NewRegistry()
	for _, bc := range cfg.Backends {
		hb, err := backends.NewHTTPBackend(backends.HTTPConfig{
			Name:    bc.Name,
			BaseURL: bc.BaseURL,
			APIKey:  bc.APIKey,
			Timeout: bc.Timeout,
		})
		if err != nil {
			registry.Close()
			return nil, fmt.Errorf("backend %q: %w", bc.Name, err)
		}
		var b backends.Backend = hb
		if cfg.Retry.Enabled {
			rc := backends.RetryConfig{
				MaxRetries:     cfg.Retry.MaxRetries,
				InitialBackoff: cfg.Retry.InitialBackoff,
				MaxBackoff:     cfg.Retry.MaxBackoff,
				RateLimitDelay: cfg.Retry.RateLimitDelay,
			}
			if collector != nil {
				rc.Metrics = collector
			}
			b = backends.WithRetry(b, rc)
		}
		registry.Register(b)
	}

	scorer := quality.NewScorer(quality.DefaultAlignmentConfig())
	estimator := quality.NewEstimator(quality.EstimatorConfig{Calibrations: cfg.Calibrations}, scorer)
	validator := quality.NewValidator(cfg.Validator, scorer, estimator, nil)
	classifier := complexity.NewClassifier(cfg.Classifier)

	opts := cascade.Options{
		Tiers:      cfg.Tiers,
		Registry:   registry,
		Validator:  validator,
		Classifier: classifier,
		Minimal:    minimal,
		Logger:     logger,
	}

	if collector != nil {
		opts.Metrics = collector
	}

	orch, err := cascade.New(opts)
	if err != nil {
		registry.Close()
		return nil, err
	}

	var usage limits.UsageStore = limits.NewMemoryStore()
	if cfg.Limits.Path != "" {
		sqlStore, err := limits.NewSQLiteStore(cfg.Limits.Path)
		if err != nil {
			registry.Close()
			return nil, fmt.Errorf("open usage store: %w", err)
		}
		usage = sqlStore
	}

	eng := &engine{
		cfg:       cfg,
		registry:  registry,
		orch:      orch,
		collector: collector,
		limiter:   limits.NewLimiter(cfg.Limits, usage),
		usage:     usage,
	}
	eng.run = orch.Execute

	if cfg.Limits.Retention.Schedule != "" {
		eng.retention = limits.NewRetentionScheduler(cfg.Limits.Retention, usage)
	}

	if cfg.Cache.Enabled {
		var store cache.Store
		if cfg.Cache.Path != "" {
			store, err = cache.NewSQLiteStore(&cache.SQLiteConfig{Path: cfg.Cache.Path})
			if err != nil {
				usage.Close()
				registry.Close()
				return nil, fmt.Errorf("open response cache: %w", err)
			}
		} else {
			store = cache.NewMemoryStore(cfg.Cache.MaxEntries, 0)
		}
		eng.store = store
		eng.run = cache.Wrap(store, cfg.Cache.TTL, tierFingerprint(cfg.Tiers), nil, eng.run)
	}
	return eng, nil
}

// start launches background maintenance tied to the command context.
func (e *engine) start(ctx context.Context) error {
	if e.retention != nil {
		return e.retention.Start(ctx)
	}
	return nil
}

// tenantRun wraps the run function with rate and budget enforcement for
// the named tenant. An empty tenant skips enforcement.
func (e *engine) tenantRun(tenant string) cache.RunFunc {
	if tenant == "" {
		return e.run
	}
	return func(ctx context.Context, query string) (*cascade.Result, error) {
		if err := e.limiter.CheckLimit(ctx, tenant, 0); err != nil {
			return nil, err
		}
		result, err := e.run(ctx, query)
		if err != nil {
			return nil, err
		}
		if err := e.limiter.RecordUsage(ctx, tenant, result.TotalCost); err != nil {
			slog.Default().Warn("usage recording failed", "tenant", tenant, "error", err)
		}
		return result, nil
	}
}

// streamEvents starts a streaming run with the same rate and budget
// enforcement as tenantRun. Realized cost is booked from the completion
// event. An empty tenant skips enforcement.
func (e *engine) streamEvents(ctx context.Context, tenant, query string) (<-chan cascade.Event, error) {
	if tenant == "" {
		return e.orch.Stream(ctx, query), nil
	}
	if err := e.limiter.CheckLimit(ctx, tenant, 0); err != nil {
		return nil, err
	}
	events := e.orch.Stream(ctx, query)
	out := make(chan cascade.Event)
	go func() {
		defer close(out)
		for event := range events {
			if event.Type == cascade.EventComplete && event.Result != nil {
				if err := e.limiter.RecordUsage(ctx, tenant, event.Result.TotalCost); err != nil {
					slog.Default().Warn("usage recording failed", "tenant", tenant, "error", err)
				}
			}
			out <- event
		}
	}()
	return out, nil
}

// Close stops retention, then releases backends and the stores.
func (e *engine) Close() {
	if e.retention != nil {
		e.retention.Stop()
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			slog.Default().Warn("cache close failed", "error", err)
		}
	}
	if e.usage != nil {
		if err := e.usage.Close(); err != nil {
			slog.Default().Warn("usage store close failed", "error", err)
		}
	}
	if err := e.registry.Close(); err != nil {
		slog.Default().Warn("backend close failed", "error", err)
	}
}

// loadEngine is the common command preamble: load config, install the
// logger, and assemble the engine.
func loadEngine(minimal bool) (*engine, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}

	logCfg := cfg.Telemetry.Logging
	if verbose {
		logCfg.Level = "debug"
	}
	logger, err := logging.Install(logCfg, os.Stderr)
	if err != nil {
		return nil, err
	}

	return buildEngine(cfg, logger, minimal)
}

// tierFingerprint derives a cache key component from the tier list so that
// tier changes invalidate cached answers.
func tierFingerprint(tiers []cascade.Tier) string {
	parts := make([]string, 0, len(tiers))
	for _, t := range tiers {
		parts = append(parts, fmt.Sprintf("%s:%s:%s:%g:%g", t.ID, t.Backend, t.Model, t.CostPer1K, t.Temperature))
	}
	return strings.Join(parts, ",")
}
