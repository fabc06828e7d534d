package limits

import (
	"context"
	"testing"
	"time"
)

func TestRetentionSchedulerPrunes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewMemoryStore()
	store.Record(ctx, UsageRecord{Tenant: "acme", Cost: 1, RecordedAt: time.Now().Add(-48 * time.Hour)})
	store.Record(ctx, UsageRecord{Tenant: "acme", Cost: 2, RecordedAt: time.Now()})

	s := NewRetentionScheduler(RetentionConfig{Schedule: "@every 1s", KeepFor: 24 * time.Hour}, store)
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for {
		total, err := store.UsageSince(ctx, "acme", time.Now().Add(-72*time.Hour))
		if err != nil {
			t.Fatalf("UsageSince: %v", err)
		}
		if total == 2 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("old record not pruned, total = %v", total)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestRetentionSchedulerRejectsBadSchedule(t *testing.T) {
	s := NewRetentionScheduler(RetentionConfig{Schedule: "not a cron line"}, NewMemoryStore())
	if err := s.Start(context.Background()); err == nil {
		t.Error("expected error for invalid schedule")
	}
}

func TestRetentionSchedulerIdleWithoutSchedule(t *testing.T) {
	s := NewRetentionScheduler(RetentionConfig{}, NewMemoryStore())
	if err := s.Start(context.Background()); err != nil {
		t.Errorf("empty schedule should idle, not fail: %v", err)
	}
	// Stop on a scheduler that never started must not block.
	s.Stop()
}
