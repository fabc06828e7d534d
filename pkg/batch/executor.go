package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"mercator-hq/saturn/pkg/cascade"
)

// Failure reasons for timed-out items. Item timeouts and batch timeouts are
// distinguished so callers can tell a slow item from an exhausted budget.
const (
	ReasonItemTimeout  = "timeout"
	ReasonTotalTimeout = "total timeout exceeded"
)

// RunFunc executes one query and returns its cascade result. In production
// this is Orchestrator.Execute, possibly wrapped with caching or limits.
type RunFunc func(ctx context.Context, query string) (*cascade.Result, error)

// Config tunes the batch executor.
type Config struct {
	// MaxParallel bounds concurrently in-flight queries. Default: 4.
	MaxParallel int `yaml:"max_parallel"`

	// ItemTimeout bounds each query, including its single retry attempt
	// individually. Zero disables the per-item timer.
	ItemTimeout time.Duration `yaml:"item_timeout"`

	// TotalTimeout bounds the whole batch. When it fires, pending items fail
	// with ReasonTotalTimeout and completed items are kept. Zero disables it.
	TotalTimeout time.Duration `yaml:"total_timeout"`

	// RetryOnFailure grants each failed item exactly one retry.
	RetryOnFailure bool `yaml:"retry_on_failure"`

	// StopOnError aborts the batch at the first terminal failure. In-flight
	// items are not force-cancelled; their results are discarded.
	StopOnError bool `yaml:"stop_on_error"`

	// PreserveOrder sorts results by original index. Otherwise completion
	// order stands.
	PreserveOrder bool `yaml:"preserve_order"`
}

// applyDefaults fills zero-valued fields with defaults.
func (c *Config) applyDefaults() {
	if c.MaxParallel <= 0 {
		c.MaxParallel = 4
	}
}

// ItemResult is the settled outcome of one batch item. Exactly one of
// Result and Err is meaningful.
type ItemResult struct {
	// Index is the item's position in the input query list.
	Index int `json:"index"`

	// Query is the item's query text.
	Query string `json:"query"`

	// Result is the cascade outcome; nil on failure.
	Result *cascade.Result `json:"result,omitempty"`

	// Err is the failure description; empty on success.
	Err string `json:"error,omitempty"`

	// Attempts counts how many times the item ran.
	Attempts int `json:"attempts"`

	// Latency is the item's total wall-clock time across attempts.
	Latency time.Duration `json:"latency_ms"`
}

// Result is the aggregate outcome of one batch.
type Result struct {
	// Items holds every settled item. With PreserveOrder, Items[i]
	// corresponds to queries[i].
	Items []ItemResult `json:"items"`

	// Succeeded and Failed count settled items by outcome.
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`

	// TotalCost and TotalSavings sum over successful items.
	TotalCost    float64 `json:"total_cost"`
	TotalSavings float64 `json:"total_savings"`

	// TimedOut is true when the total timeout fired before all items settled.
	TimedOut bool `json:"timed_out"`

	// Duration is the batch's wall-clock time.
	Duration time.Duration `json:"duration_ms"`
}

// Metrics receives batch telemetry. A nil Metrics disables recording.
type Metrics interface {
	// RecordBatch records one finished batch.
	RecordBatch(size, succeeded, failed int, duration time.Duration)
}

// Executor runs query batches. It is immutable after construction and safe
// for concurrent use; each Execute call coordinates its own goroutines.
type Executor struct {
	config  Config
	run     RunFunc
	metrics Metrics
	logger  *slog.Logger
}

// NewExecutor creates a batch executor around a run function.
func NewExecutor(config Config, run RunFunc, metrics Metrics, logger *slog.Logger) (*Executor, error) {
	if run == nil {
		return nil, fmt.Errorf("batch executor requires a run function")
	}
	config.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		config:  config,
		run:     run,
		metrics: metrics,
		logger:  logger.With("component", "batch"),
	}, nil
}

// Execute runs every query and returns the aggregate result. Without
// StopOnError the result is always returned, even under a total timeout;
// with StopOnError the first terminal failure aborts the batch and is
// returned as an error.
//
// A timed-out item's underlying call may still be running when the batch
// reports its failure; the batch result never blocks on stragglers beyond
// releasing their semaphore slots.
func (e *Executor) Execute(ctx context.Context, queries []string) (*Result, error) {
	start := time.Now()

	total := ctx
	if e.config.TotalTimeout > 0 {
		var cancel context.CancelFunc
		total, cancel = context.WithTimeout(ctx, e.config.TotalTimeout)
		defer cancel()
	}

	sem := semaphore.NewWeighted(int64(e.config.MaxParallel))
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		settled []ItemResult
		stopped atomic.Bool
		stopErr error
	)

	for i, query := range queries {
		if stopped.Load() {
			break
		}
		if err := sem.Acquire(total, 1); err != nil {
			// Admission failed: the total timeout (or the caller's context)
			// fired while this item was queued.
			mu.Lock()
			settled = append(settled, ItemResult{Index: i, Query: query, Err: ReasonTotalTimeout})
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(index int, query string) {
			defer wg.Done()
			defer sem.Release(1)

			item := e.runItem(total, index, query)
			mu.Lock()
			defer mu.Unlock()
			if stopped.Load() {
				// Batch already aborted; discard late results.
				return
			}
			settled = append(settled, item)
			if item.Err != "" && e.config.StopOnError {
				stopped.Store(true)
				stopErr = fmt.Errorf("batch aborted at item %d (%q): %s", index, query, item.Err)
			}
		}(i, query)
	}

	wg.Wait()

	if stopErr != nil {
		e.logger.Warn("batch aborted", "error", stopErr)
		return nil, stopErr
	}

	if e.config.PreserveOrder {
		sort.Slice(settled, func(a, b int) bool { return settled[a].Index < settled[b].Index })
	}

	result := &Result{
		Items:    settled,
		Duration: time.Since(start),
		TimedOut: total.Err() != nil,
	}
	for _, item := range settled {
		if item.Err == "" {
			result.Succeeded++
			result.TotalCost += item.Result.TotalCost
			result.TotalSavings += item.Result.Savings
		} else {
			result.Failed++
		}
	}

	if e.metrics != nil {
		e.metrics.RecordBatch(len(queries), result.Succeeded, result.Failed, result.Duration)
	}
	e.logger.Info("batch complete",
		"size", len(queries),
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"timed_out", result.TimedOut,
		"duration", result.Duration)
	return result, nil
}

// runItem settles one item, racing each attempt against the per-item timer
// and granting one retry when configured.
func (e *Executor) runItem(total context.Context, index int, query string) ItemResult {
	item := ItemResult{Index: index, Query: query}
	itemStart := time.Now()

	attempts := 1
	if e.config.RetryOnFailure {
		attempts = 2
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		item.Attempts = attempt

		attemptCtx := total
		var cancel context.CancelFunc
		if e.config.ItemTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(total, e.config.ItemTimeout)
		}
		res, err := e.run(attemptCtx, query)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			item.Result = res
			item.Err = ""
			break
		}

		item.Err = failureReason(total, attemptCtx, err)
		if total.Err() != nil {
			// The batch budget is gone; a retry cannot succeed.
			break
		}
	}

	item.Latency = time.Since(itemStart)
	return item
}

// failureReason normalizes an attempt error, distinguishing item timeouts
// from batch-budget exhaustion.
func failureReason(total, attempt context.Context, err error) string {
	if total.Err() != nil {
		return ReasonTotalTimeout
	}
	if attempt.Err() == context.DeadlineExceeded {
		return ReasonItemTimeout
	}
	return err.Error()
}
