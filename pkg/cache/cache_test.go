package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"mercator-hq/saturn/pkg/cascade"
)

func TestKeyStability(t *testing.T) {
	a := Key("what is go", "draft", map[string]string{"model": "m1", "temp": "0.2"})
	b := Key("what is go", "draft", map[string]string{"temp": "0.2", "model": "m1"})
	if a != b {
		t.Error("parameter order must not change the key")
	}

	if Key("what is go", "draft", nil) == Key("what is go", "verifier", nil) {
		t.Error("different tiers must produce different keys")
	}
	if Key("what is go", "draft", nil) == Key("what is rust", "draft", nil) {
		t.Error("different queries must produce different keys")
	}
	if Key("a", "b", map[string]string{"m": "x"}) == Key("a", "b", map[string]string{"m": "y"}) {
		t.Error("different params must produce different keys")
	}
}

func TestMemoryStoreTTL(t *testing.T) {
	s := NewMemoryStore(0, 0)
	defer s.Close()
	ctx := context.Background()

	if err := s.Set(ctx, "k", &cascade.Result{Content: "v"}, 20*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "k"); !ok {
		t.Fatal("fresh entry should hit")
	}

	time.Sleep(30 * time.Millisecond)
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Error("expired entry should miss")
	}
}

func TestMemoryStoreLRU(t *testing.T) {
	s := NewMemoryStore(2, 0)
	defer s.Close()
	ctx := context.Background()

	s.Set(ctx, "a", &cascade.Result{Content: "a"}, 0)
	time.Sleep(time.Millisecond)
	s.Set(ctx, "b", &cascade.Result{Content: "b"}, 0)
	time.Sleep(time.Millisecond)

	// Touch "a" so "b" becomes least recently used.
	s.Get(ctx, "a")
	time.Sleep(time.Millisecond)

	s.Set(ctx, "c", &cascade.Result{Content: "c"}, 0)
	if s.Len() != 2 {
		t.Fatalf("len = %d, want 2", s.Len())
	}
	if _, ok, _ := s.Get(ctx, "b"); ok {
		t.Error("least recently used entry should have been evicted")
	}
	if _, ok, _ := s.Get(ctx, "a"); !ok {
		t.Error("recently touched entry should survive")
	}
}

func TestWrapHitSkipsRun(t *testing.T) {
	s := NewMemoryStore(0, 0)
	defer s.Close()
	var calls atomic.Int64
	run := Wrap(s, time.Minute, "tiers-v1", nil, func(ctx context.Context, query string) (*cascade.Result, error) {
		calls.Add(1)
		return &cascade.Result{Query: query, Content: "computed"}, nil
	})

	ctx := context.Background()
	first, err := run(ctx, "what is go")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	second, err := run(ctx, "what is go")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("run called %d times, want 1 (second call served from cache)", calls.Load())
	}
	if first.Content != second.Content {
		t.Error("cached result should match the computed one")
	}

	if _, err := run(ctx, "a different query"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if calls.Load() != 2 {
		t.Error("a different query must miss")
	}
}

func TestWrapErrorNotCached(t *testing.T) {
	s := NewMemoryStore(0, 0)
	defer s.Close()
	var calls atomic.Int64
	boom := errors.New("backend down")
	run := Wrap(s, time.Minute, "tiers-v1", nil, func(ctx context.Context, query string) (*cascade.Result, error) {
		if calls.Add(1) == 1 {
			return nil, boom
		}
		return &cascade.Result{Content: "recovered"}, nil
	})

	ctx := context.Background()
	if _, err := run(ctx, "q"); !errors.Is(err, boom) {
		t.Fatalf("expected the run error, got %v", err)
	}
	result, err := run(ctx, "q")
	if err != nil || result.Content != "recovered" {
		t.Errorf("failure must not be cached: %v, %+v", err, result)
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	path := t.TempDir() + "/cache.db"
	s, err := NewSQLiteStore(DefaultSQLiteConfig(path))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	want := &cascade.Result{
		RequestID: "r1",
		Query:     "what is go",
		Content:   "a programming language",
		FinalTier: "draft",
		TotalCost: 0.004,
	}
	if err := s.Set(ctx, "k1", want, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok, err := s.Get(ctx, "k1")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.Content != want.Content || got.FinalTier != want.FinalTier || got.TotalCost != want.TotalCost {
		t.Errorf("round trip mismatch: %+v", got)
	}

	if _, ok, _ := s.Get(ctx, "absent"); ok {
		t.Error("unknown key should miss")
	}
}

func TestSQLiteStoreExpiry(t *testing.T) {
	path := t.TempDir() + "/cache.db"
	s, err := NewSQLiteStore(DefaultSQLiteConfig(path))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	if err := s.Set(ctx, "k", &cascade.Result{Content: "v"}, 10*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Error("expired entry should miss")
	}

	s.Set(ctx, "gone", &cascade.Result{}, 10*time.Millisecond)
	s.Set(ctx, "kept", &cascade.Result{}, time.Hour)
	time.Sleep(20 * time.Millisecond)
	pruned, err := s.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if pruned != 1 {
		t.Errorf("pruned = %d, want 1", pruned)
	}
	if _, ok, _ := s.Get(ctx, "kept"); !ok {
		t.Error("unexpired entry should survive pruning")
	}
}
