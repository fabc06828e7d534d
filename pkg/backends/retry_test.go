package backends

import (
	"context"
	"sync"
	"testing"
	"time"
)

// scriptedBackend fails with errs[i] on call i, then succeeds.
type scriptedBackend struct {
	name    string
	errs    []error
	calls   int
	streams int
	closed  bool
}

func (s *scriptedBackend) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	s.calls++
	if s.calls <= len(s.errs) && s.errs[s.calls-1] != nil {
		return nil, s.errs[s.calls-1]
	}
	return &GenerateResponse{Content: "ok", FinishReason: FinishReasonStop}, nil
}

func (s *scriptedBackend) StreamGenerate(ctx context.Context, req *GenerateRequest) (<-chan *StreamChunk, error) {
	s.streams++
	return nil, &ServerError{Backend: s.name, StatusCode: 500}
}

func (s *scriptedBackend) Name() string { return s.name }

func (s *scriptedBackend) Close() error {
	s.closed = true
	return nil
}

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		RateLimitDelay: time.Millisecond,
	}
}

func TestRetrySucceedsAfterTransientFailure(t *testing.T) {
	stub := &scriptedBackend{
		name: "flaky",
		errs: []error{&RateLimitError{Backend: "flaky", RetryAfter: time.Millisecond}},
	}
	r := WithRetry(stub, fastRetryConfig())

	resp, err := r.Generate(context.Background(), &GenerateRequest{Model: "m"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("content = %q", resp.Content)
	}

	stats := r.Stats()
	if stats.Calls != 1 || stats.Attempts != 2 || stats.Retries != 1 || stats.Failures != 0 {
		t.Errorf("stats = %+v, want 1 call, 2 attempts, 1 retry, 0 failures", stats)
	}
}

func TestRetryExhaustsAndFails(t *testing.T) {
	stub := &scriptedBackend{
		name: "down",
		errs: []error{
			&ServerError{Backend: "down", StatusCode: 503},
			&ServerError{Backend: "down", StatusCode: 503},
			&ServerError{Backend: "down", StatusCode: 503},
		},
	}
	r := WithRetry(stub, fastRetryConfig())

	if _, err := r.Generate(context.Background(), &GenerateRequest{Model: "m"}); err == nil {
		t.Fatal("expected failure after exhausting retries")
	}

	stats := r.Stats()
	if stats.Attempts != 3 {
		t.Errorf("attempts = %d, want 3 (initial + 2 retries)", stats.Attempts)
	}
	if stats.Failures != 1 {
		t.Errorf("failures = %d, want 1", stats.Failures)
	}
}

func TestRetryTerminalErrorsSurfaceImmediately(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"auth", &AuthError{Backend: "openai", Message: "bad key"}},
		{"not found", &NotFoundError{Backend: "openai", Resource: "gpt-99"}},
		{"bad request", &BadRequestError{Backend: "openai", Message: "temperature"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &scriptedBackend{name: "openai", errs: []error{tt.err}}
			r := WithRetry(stub, fastRetryConfig())

			if _, err := r.Generate(context.Background(), &GenerateRequest{Model: "m"}); err == nil {
				t.Fatal("expected the terminal error to surface")
			}
			if stub.calls != 1 {
				t.Errorf("backend called %d times, want 1", stub.calls)
			}
		})
	}
}

func TestRetryCancelledContextStopsRetrying(t *testing.T) {
	stub := &scriptedBackend{
		name: "slow",
		errs: []error{
			&ServerError{Backend: "slow", StatusCode: 503},
			&ServerError{Backend: "slow", StatusCode: 503},
		},
	}
	cfg := fastRetryConfig()
	cfg.InitialBackoff = time.Second
	r := WithRetry(stub, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Generate(ctx, &GenerateRequest{Model: "m"}); err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if stub.calls > 1 {
		t.Errorf("backend called %d times after cancellation, want at most 1", stub.calls)
	}
}

// retryRecorder captures RecordRetry notifications.
type retryRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *retryRecorder) RecordRetry(backend, class string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, backend+"/"+class)
}

func TestRetryReportsToMetrics(t *testing.T) {
	stub := &scriptedBackend{
		name: "flaky",
		errs: []error{&RateLimitError{Backend: "flaky", RetryAfter: time.Millisecond}},
	}
	recorder := &retryRecorder{}
	cfg := fastRetryConfig()
	cfg.Metrics = recorder
	r := WithRetry(stub, cfg)

	if _, err := r.Generate(context.Background(), &GenerateRequest{Model: "m"}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(recorder.calls) != 1 || recorder.calls[0] != "flaky/rate_limit" {
		t.Errorf("recorded retries = %v, want one flaky/rate_limit entry", recorder.calls)
	}
}

func TestRetryStreamNotRetried(t *testing.T) {
	stub := &scriptedBackend{name: "s"}
	r := WithRetry(stub, fastRetryConfig())

	if _, err := r.StreamGenerate(context.Background(), &GenerateRequest{Model: "m"}); err == nil {
		t.Fatal("expected stream error to pass through")
	}
	if stub.streams != 1 {
		t.Errorf("stream attempted %d times, want 1", stub.streams)
	}
}

func TestRegistry(t *testing.T) {
	a := &scriptedBackend{name: "alpha"}
	b := &scriptedBackend{name: "beta"}
	reg := NewRegistry(a, b)

	got, err := reg.Get("beta")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name() != "beta" {
		t.Errorf("got backend %q", got.Name())
	}

	if _, err := reg.Get("gamma"); err == nil {
		t.Error("expected error for unknown backend")
	}

	if err := reg.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !a.closed || !b.closed {
		t.Error("Close did not close every backend")
	}
}
