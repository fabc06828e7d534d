package limits

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// RetentionConfig controls scheduled pruning of old usage records.
type RetentionConfig struct {
	// Schedule is a standard cron expression ("0 3 * * *" runs daily at
	// 3 AM). Empty disables scheduled pruning.
	Schedule string `yaml:"schedule"`

	// KeepFor is how long usage records are retained. Default: 35 days,
	// enough to cover a monthly budget window with margin.
	KeepFor time.Duration `yaml:"keep_for"`
}

// RetentionScheduler prunes old usage records on a cron schedule.
type RetentionScheduler struct {
	config RetentionConfig
	store  UsageStore
	cron   *cron.Cron
	logger *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewRetentionScheduler creates a scheduler over a usage store.
func NewRetentionScheduler(config RetentionConfig, store UsageStore) *RetentionScheduler {
	if config.KeepFor <= 0 {
		config.KeepFor = 35 * 24 * time.Hour
	}
	return &RetentionScheduler{
		config: config,
		store:  store,
		cron:   cron.New(),
		logger: slog.Default().With("component", "limits.retention"),
	}
}

// Start begins scheduled pruning. A missing schedule is not an error; the
// scheduler simply stays idle.
func (s *RetentionScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.Schedule == "" {
		s.logger.Info("retention schedule not configured, skipping")
		return nil
	}
	if _, err := cron.ParseStandard(s.config.Schedule); err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", s.config.Schedule, err)
	}
	if _, err := s.cron.AddFunc(s.config.Schedule, func() { s.prune(ctx) }); err != nil {
		return fmt.Errorf("schedule retention pruning: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("retention scheduler started",
		"schedule", s.config.Schedule,
		"keep_for", s.config.KeepFor)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// prune runs one pruning cycle.
func (s *RetentionScheduler) prune(ctx context.Context) {
	cutoff := time.Now().Add(-s.config.KeepFor)
	deleted, err := s.store.Prune(ctx, cutoff)
	if err != nil {
		s.logger.Error("scheduled usage pruning failed", "error", err)
		return
	}
	if deleted > 0 {
		s.logger.Info("pruned usage records", "deleted", deleted, "cutoff", cutoff)
	}
}

// Stop stops the scheduler, waiting for a running job to finish.
func (s *RetentionScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("retention scheduler stopped")
}
