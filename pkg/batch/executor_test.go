package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mercator-hq/saturn/pkg/cascade"
)

// okRun answers every query immediately.
func okRun(ctx context.Context, query string) (*cascade.Result, error) {
	return &cascade.Result{Query: query, Content: "answer to " + query, TotalCost: 0.01, Savings: 0.02}, nil
}

func queries(n int) []string {
	qs := make([]string, n)
	for i := range qs {
		qs[i] = fmt.Sprintf("query %d", i)
	}
	return qs
}

func TestExecuteBoundedParallelism(t *testing.T) {
	const k = 3
	var inFlight, peak atomic.Int64

	run := func(ctx context.Context, query string) (*cascade.Result, error) {
		now := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := peak.Load()
			if now <= old || peak.CompareAndSwap(old, now) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		return &cascade.Result{Query: query}, nil
	}

	e, err := NewExecutor(Config{MaxParallel: k}, run, nil, nil)
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	result, err := e.Execute(context.Background(), queries(20))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Succeeded != 20 {
		t.Errorf("succeeded = %d, want 20", result.Succeeded)
	}
	if got := peak.Load(); got > k {
		t.Errorf("peak in-flight = %d, want <= %d", got, k)
	}
}

func TestExecutePreserveOrder(t *testing.T) {
	// Earlier items run slower so completion order inverts input order.
	run := func(ctx context.Context, query string) (*cascade.Result, error) {
		var i int
		fmt.Sscanf(query, "query %d", &i)
		time.Sleep(time.Duration(10-i) * 5 * time.Millisecond)
		return &cascade.Result{Query: query}, nil
	}

	e, err := NewExecutor(Config{MaxParallel: 10, PreserveOrder: true}, run, nil, nil)
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	qs := queries(10)
	result, err := e.Execute(context.Background(), qs)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(result.Items) != len(qs) {
		t.Fatalf("items = %d, want %d", len(result.Items), len(qs))
	}
	for i, item := range result.Items {
		if item.Index != i || item.Query != qs[i] {
			t.Errorf("Items[%d] = {index %d, query %q}, want index %d query %q",
				i, item.Index, item.Query, i, qs[i])
		}
	}
}

func TestExecuteFailureIsolation(t *testing.T) {
	run := func(ctx context.Context, query string) (*cascade.Result, error) {
		if strings.HasSuffix(query, "3") {
			return nil, errors.New("backend exploded")
		}
		return &cascade.Result{Query: query, TotalCost: 0.01}, nil
	}

	e, err := NewExecutor(Config{MaxParallel: 4, PreserveOrder: true}, run, nil, nil)
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	result, err := e.Execute(context.Background(), queries(8))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Succeeded != 7 || result.Failed != 1 {
		t.Errorf("succeeded/failed = %d/%d, want 7/1", result.Succeeded, result.Failed)
	}
	failed := result.Items[3]
	if failed.Result != nil || failed.Err != "backend exploded" {
		t.Errorf("failed item = %+v, want nil result with error string", failed)
	}
}

func TestExecuteStopOnError(t *testing.T) {
	run := func(ctx context.Context, query string) (*cascade.Result, error) {
		if query == "query 0" {
			return nil, errors.New("fatal")
		}
		time.Sleep(5 * time.Millisecond)
		return &cascade.Result{Query: query}, nil
	}

	e, err := NewExecutor(Config{MaxParallel: 1, StopOnError: true}, run, nil, nil)
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	result, err := e.Execute(context.Background(), queries(5))
	if err == nil {
		t.Fatal("expected the first failure to abort the batch")
	}
	if result != nil {
		t.Errorf("aborted batch should not return a result, got %+v", result)
	}
	if !strings.Contains(err.Error(), "fatal") {
		t.Errorf("error %v should carry the item failure", err)
	}
}

func TestExecuteSingleRetry(t *testing.T) {
	var calls atomic.Int64
	run := func(ctx context.Context, query string) (*cascade.Result, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("transient")
		}
		return &cascade.Result{Query: query}, nil
	}

	e, err := NewExecutor(Config{MaxParallel: 1, RetryOnFailure: true}, run, nil, nil)
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	result, err := e.Execute(context.Background(), []string{"only"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Succeeded != 1 {
		t.Fatalf("retry should have settled the item: %+v", result.Items)
	}
	if result.Items[0].Attempts != 2 {
		t.Errorf("attempts = %d, want 2", result.Items[0].Attempts)
	}
}

func TestExecuteRetryIsTerminal(t *testing.T) {
	var calls atomic.Int64
	run := func(ctx context.Context, query string) (*cascade.Result, error) {
		calls.Add(1)
		return nil, errors.New("persistent")
	}

	e, err := NewExecutor(Config{MaxParallel: 1, RetryOnFailure: true}, run, nil, nil)
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	result, err := e.Execute(context.Background(), []string{"only"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Failed != 1 {
		t.Fatalf("expected terminal failure, got %+v", result.Items)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("run called %d times, want exactly 2 (one retry)", got)
	}
}

func TestExecuteItemTimeout(t *testing.T) {
	run := func(ctx context.Context, query string) (*cascade.Result, error) {
		select {
		case <-time.After(time.Second):
			return &cascade.Result{Query: query}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	e, err := NewExecutor(Config{MaxParallel: 1, ItemTimeout: 20 * time.Millisecond}, run, nil, nil)
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	result, err := e.Execute(context.Background(), []string{"slow"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Items[0].Err != ReasonItemTimeout {
		t.Errorf("reason = %q, want %q", result.Items[0].Err, ReasonItemTimeout)
	}
}

func TestExecuteTotalTimeout(t *testing.T) {
	var mu sync.Mutex
	completed := 0
	run := func(ctx context.Context, query string) (*cascade.Result, error) {
		select {
		case <-time.After(30 * time.Millisecond):
			mu.Lock()
			completed++
			mu.Unlock()
			return &cascade.Result{Query: query}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	e, err := NewExecutor(Config{
		MaxParallel:   1,
		TotalTimeout:  80 * time.Millisecond,
		PreserveOrder: true,
	}, run, nil, nil)
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	result, err := e.Execute(context.Background(), queries(10))
	if err != nil {
		t.Fatalf("a total timeout must still produce a batch result: %v", err)
	}
	if !result.TimedOut {
		t.Error("expected TimedOut")
	}
	if result.Succeeded == 0 {
		t.Error("completed items should be kept")
	}
	if result.Failed == 0 {
		t.Error("pending items should be failed")
	}
	for _, item := range result.Items {
		if item.Err != "" && item.Err != ReasonTotalTimeout {
			t.Errorf("item %d failed with %q, want %q", item.Index, item.Err, ReasonTotalTimeout)
		}
	}
}
