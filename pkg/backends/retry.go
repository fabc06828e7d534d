package backends

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand"
	"sync/atomic"
	"time"
)

// RetryConfig controls the retry wrapper.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts after the initial
	// call. Default: 3.
	MaxRetries int

	// InitialBackoff is the delay before the first retry; it doubles on each
	// subsequent retry. Default: 500ms.
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential backoff delay. Default: 30s.
	MaxBackoff time.Duration

	// RateLimitDelay is the fixed delay applied on rate-limit errors when the
	// backend does not report a Retry-After. Default: 5s.
	RateLimitDelay time.Duration

	// JitterFraction is the fraction of the computed delay randomized away to
	// avoid thundering herds (0.0 to 1.0). Default: 0.25.
	JitterFraction float64

	// Metrics, when set, is notified of each retried call with the backend
	// name and the class of the error being retried.
	Metrics RetryMetrics
}

// RetryMetrics receives a notification for each retried call.
type RetryMetrics interface {
	RecordRetry(backend, class string)
}

// applyDefaults fills zero-valued fields with defaults.
func (c *RetryConfig) applyDefaults() {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 500 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.RateLimitDelay <= 0 {
		c.RateLimitDelay = 5 * time.Second
	}
	if c.JitterFraction <= 0 || c.JitterFraction > 1 {
		c.JitterFraction = 0.25
	}
}

// RetryStats exposes attempt and latency counters for the wrapper.
// All counters are updated atomically.
type RetryStats struct {
	// Calls is the number of Generate invocations on the wrapper.
	Calls int64

	// Attempts is the total number of underlying backend calls, including retries.
	Attempts int64

	// Retries is the number of retried calls.
	Retries int64

	// Failures is the number of calls that exhausted retries or hit a
	// non-retryable error.
	Failures int64

	// TotalLatency is the cumulative wall-clock time spent in Generate,
	// backoff delays included.
	TotalLatency time.Duration
}

// RetryingBackend wraps a Backend with classification-aware retries.
//
// Only rate-limit, timeout, server, and network errors are retried; auth,
// not-found, bad-request, and unknown errors surface immediately. Rate-limit
// errors use the backend's Retry-After when present, or the configured fixed
// delay; other retryable errors use exponential backoff with jitter.
//
// The wrapper itself implements Backend, so it composes transparently around
// any adapter. Streaming calls are not retried: a stream that has emitted
// chunks cannot be restarted transparently.
type RetryingBackend struct {
	backend Backend
	config  RetryConfig

	calls        atomic.Int64
	attempts     atomic.Int64
	retries      atomic.Int64
	failures     atomic.Int64
	totalLatency atomic.Int64 // nanoseconds
}

// WithRetry wraps backend with the retry policy in config.
func WithRetry(backend Backend, config RetryConfig) *RetryingBackend {
	config.applyDefaults()
	return &RetryingBackend{
		backend: backend,
		config:  config,
	}
}

// Generate calls the wrapped backend, retrying transient failures.
func (r *RetryingBackend) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	r.calls.Add(1)
	start := time.Now()
	defer func() {
		r.totalLatency.Add(int64(time.Since(start)))
	}()

	var lastErr error
	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := r.delayFor(lastErr, attempt)
			slog.Debug("retrying backend call",
				"backend", r.backend.Name(),
				"attempt", attempt,
				"max_retries", r.config.MaxRetries,
				"delay", delay,
				"error_class", Classify(lastErr),
			)
			select {
			case <-ctx.Done():
				r.failures.Add(1)
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			r.retries.Add(1)
			if r.config.Metrics != nil {
				r.config.Metrics.RecordRetry(r.backend.Name(), string(Classify(lastErr)))
			}
		}

		r.attempts.Add(1)
		resp, err := r.backend.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		class := Classify(err)
		if !class.Retryable() {
			r.failures.Add(1)
			return nil, err
		}
		// Context expiry is terminal even when the wrapped error is retryable.
		if ctx.Err() != nil {
			r.failures.Add(1)
			return nil, err
		}
	}

	r.failures.Add(1)
	return nil, lastErr
}

// delayFor computes the wait before retry number attempt (1-based).
func (r *RetryingBackend) delayFor(err error, attempt int) time.Duration {
	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		if rateLimitErr.RetryAfter > 0 {
			return rateLimitErr.RetryAfter
		}
		return r.config.RateLimitDelay
	}

	backoff := time.Duration(float64(r.config.InitialBackoff) * math.Pow(2, float64(attempt-1)))
	if backoff > r.config.MaxBackoff {
		backoff = r.config.MaxBackoff
	}

	// Subtract up to JitterFraction of the delay.
	jitter := time.Duration(rand.Float64() * r.config.JitterFraction * float64(backoff))
	return backoff - jitter
}

// StreamGenerate delegates to the wrapped backend without retrying.
func (r *RetryingBackend) StreamGenerate(ctx context.Context, req *GenerateRequest) (<-chan *StreamChunk, error) {
	return r.backend.StreamGenerate(ctx, req)
}

// Name returns the wrapped backend's name.
func (r *RetryingBackend) Name() string {
	return r.backend.Name()
}

// Close closes the wrapped backend.
func (r *RetryingBackend) Close() error {
	return r.backend.Close()
}

// Stats returns a snapshot of the wrapper's counters.
func (r *RetryingBackend) Stats() RetryStats {
	return RetryStats{
		Calls:        r.calls.Load(),
		Attempts:     r.attempts.Load(),
		Retries:      r.retries.Load(),
		Failures:     r.failures.Load(),
		TotalLatency: time.Duration(r.totalLatency.Load()),
	}
}
