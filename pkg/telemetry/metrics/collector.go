// Package metrics records Prometheus metrics for cascade, batch, and retry
// activity. The Collector satisfies the metrics interfaces the cascade and
// batch packages accept, so wiring is one constructor call.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/saturn/pkg/config"
)

// Collector owns every Prometheus metric the engine emits. Metrics are
// pre-registered at construction; recording is lock-free counter updates.
type Collector struct {
	config   config.MetricsConfig
	registry *prometheus.Registry

	// Tier call metrics
	tierCallsTotal   *prometheus.CounterVec
	tierCallDuration *prometheus.HistogramVec
	tierTokensTotal  *prometheus.CounterVec
	tierCostTotal    *prometheus.CounterVec

	// Cascade outcome metrics
	cascadesTotal *prometheus.CounterVec
	savingsTotal  prometheus.Counter

	// Batch metrics
	batchesTotal  prometheus.Counter
	batchItems    *prometheus.CounterVec
	batchDuration prometheus.Histogram

	// Retry metrics
	retriesTotal *prometheus.CounterVec
}

// NewCollector creates a collector and registers its metrics. A nil
// registry uses a fresh private registry.
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "mercator"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "saturn"
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0}
	}

	c := &Collector{
		config:   cfg,
		registry: registry,

		tierCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "tier_calls_total",
				Help:      "Total backend tier calls by tier, backend, and status",
			},
			[]string{"tier", "backend", "status"},
		),
		tierCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "tier_call_duration_seconds",
				Help:      "Duration of backend tier calls in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"tier", "backend"},
		),
		tierTokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "tier_tokens_total",
				Help:      "Total tokens consumed by tier",
			},
			[]string{"tier", "backend"},
		),
		tierCostTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "tier_cost_dollars_total",
				Help:      "Total realized cost in dollars by tier",
			},
			[]string{"tier", "backend"},
		),
		cascadesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cascades_total",
				Help:      "Total cascades by outcome (accepted, escalated, error)",
			},
			[]string{"outcome"},
		),
		savingsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "savings_dollars_total",
				Help:      "Total realized savings versus the most expensive tier",
			},
		),
		batchesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "batches_total",
				Help:      "Total batch executions",
			},
		),
		batchItems: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "batch_items_total",
				Help:      "Total batch items by outcome (succeeded, failed)",
			},
			[]string{"outcome"},
		),
		batchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "batch_duration_seconds",
				Help:      "Duration of batch executions in seconds",
				Buckets:   cfg.DurationBuckets,
			},
		),
		retriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "retries_total",
				Help:      "Total retry attempts by backend and error class",
			},
			[]string{"backend", "class"},
		),
	}

	registry.MustRegister(
		c.tierCallsTotal,
		c.tierCallDuration,
		c.tierTokensTotal,
		c.tierCostTotal,
		c.cascadesTotal,
		c.savingsTotal,
		c.batchesTotal,
		c.batchItems,
		c.batchDuration,
		c.retriesTotal,
	)
	return c
}

// RecordTierCall implements the cascade metrics interface.
func (c *Collector) RecordTierCall(tier, backend, status string, latency time.Duration, tokens int, cost float64) {
	if !c.config.Enabled {
		return
	}
	c.tierCallsTotal.WithLabelValues(tier, backend, status).Inc()
	if status == "success" {
		c.tierCallDuration.WithLabelValues(tier, backend).Observe(latency.Seconds())
		c.tierTokensTotal.WithLabelValues(tier, backend).Add(float64(tokens))
		c.tierCostTotal.WithLabelValues(tier, backend).Add(cost)
	}
}

// RecordCascade implements the cascade metrics interface.
func (c *Collector) RecordCascade(outcome string, savings float64) {
	if !c.config.Enabled {
		return
	}
	c.cascadesTotal.WithLabelValues(outcome).Inc()
	if savings > 0 {
		c.savingsTotal.Add(savings)
	}
}

// RecordBatch implements the batch metrics interface.
func (c *Collector) RecordBatch(size, succeeded, failed int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.batchesTotal.Inc()
	c.batchItems.WithLabelValues("succeeded").Add(float64(succeeded))
	c.batchItems.WithLabelValues("failed").Add(float64(failed))
	c.batchDuration.Observe(duration.Seconds())
}

// RecordRetry counts one retry attempt.
func (c *Collector) RecordRetry(backend, class string) {
	if !c.config.Enabled {
		return
	}
	c.retriesTotal.WithLabelValues(backend, class).Inc()
}
