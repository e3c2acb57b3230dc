// Package scheduler heals sync gaps on a ticker. Each run asks the sync
// engine to fill every missing or partial closed season, retrying transient
// provider failures, and logs what it could not fix for the next run.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/hankstank/mlb-data/internal/seed"
)

// Syncer is the part of the sync engine the scheduler drives.
type Syncer interface {
	SyncMissingData(ctx context.Context, opts seed.Options) ([]seed.Result, error)
}

// Config controls the gap-healing loop. A zero Interval disables it.
type Config struct {
	Interval    time.Duration
	MaxAttempts int
	// RunAtStart runs one pass as soon as the service starts.
	RunAtStart bool
}

// Scheduler runs SyncMissingData periodically.
type Scheduler struct {
	syncer Syncer
	cfg    Config
	logger *slog.Logger
}

// New creates a Scheduler.
func New(s Syncer, cfg Config, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Scheduler{syncer: s, cfg: cfg, logger: logger}
}

func (s *Scheduler) String() string { return "sync-scheduler" }

// Serve blocks until ctx is cancelled.
func (s *Scheduler) Serve(ctx context.Context) error {
	if s.cfg.Interval <= 0 {
		s.logger.Info("Sync scheduler disabled")
		<-ctx.Done()
		return ctx.Err()
	}
	s.logger.Info("Sync scheduler started", "interval", s.cfg.Interval, "max_attempts", s.cfg.MaxAttempts)

	if s.cfg.RunAtStart {
		s.RunOnce(ctx)
	}

	t := time.NewTicker(s.cfg.Interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			s.RunOnce(ctx)
		case <-ctx.Done():
			s.logger.Info("Sync scheduler stopped")
			return ctx.Err()
		}
	}
}

// RunOnce performs one gap-healing pass and returns its summary.
func (s *Scheduler) RunOnce(ctx context.Context) seed.Summary {
	start := time.Now()
	results, err := s.syncer.SyncMissingData(ctx, seed.Options{MaxAttempts: s.cfg.MaxAttempts})
	if err != nil {
		s.logger.Error("Scheduled sync rejected", "error", err)
		return seed.Summary{}
	}

	sum := seed.Summarize(results)
	for _, r := range sum.Failures() {
		s.logger.Error("Scheduled sync failed",
			"table", r.Table, "year", r.Year, "attempts", r.Attempts, "error", r.Error)
	}
	if sum.Total == 0 {
		s.logger.Debug("Scheduled sync found no gaps")
		return sum
	}
	s.logger.Info("Scheduled sync complete",
		"summary", sum.String(), "duration", time.Since(start).Round(time.Millisecond))
	return sum
}
