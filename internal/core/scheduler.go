package core

// scheduler.go prunes old cleaning runs in the background.
//
// Each run keeps its full cleaned output, so history grows with every upload.
// The retention job deletes runs older than the retention window on start and
// then on every tick. A failed pass is logged and retried on the next tick.

import (
	"context"
	"log/slog"
	"time"
)

// RetentionConfig controls the retention job. Zero values use the defaults.
type RetentionConfig struct {
	RetentionDays int           // Days to keep runs (default: 30)
	CheckInterval time.Duration // How often to prune (default: 1h)
}

const (
	DefaultRetentionDays = 30
	DefaultCheckInterval = time.Hour
	retentionPassTimeout = time.Minute
)

func (c RetentionConfig) withDefaults() RetentionConfig {
	if c.RetentionDays <= 0 {
		c.RetentionDays = DefaultRetentionDays
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = DefaultCheckInterval
	}
	return c
}

// StartRetentionScheduler prunes immediately and then every CheckInterval
// until ctx is cancelled. It blocks; run it in its own goroutine.
func (s *Service) StartRetentionScheduler(ctx context.Context, cfg RetentionConfig) {
	cfg = cfg.withDefaults()
	slog.Info("retention scheduler started",
		"retention_days", cfg.RetentionDays,
		"check_interval", cfg.CheckInterval.String(),
	)

	s.runRetentionPass(ctx, cfg)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("retention scheduler stopped")
			return
		case <-ticker.C:
			s.runRetentionPass(ctx, cfg)
		}
	}
}

func (s *Service) runRetentionPass(ctx context.Context, cfg RetentionConfig) {
	ctx, cancel := context.WithTimeout(ctx, retentionPassTimeout)
	defer cancel()

	start := time.Now()
	deleted, err := s.PruneRuns(ctx, cfg.RetentionDays)
	if err != nil {
		slog.Error("retention pass failed", "error", err)
		return
	}
	slog.Info("retention pass completed",
		"runs_deleted", deleted,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// PruneRuns deletes runs older than retentionDays.
func (s *Service) PruneRuns(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := s.now().AddDate(0, 0, -retentionDays)
	return s.store.DeleteRunsBefore(ctx, cutoff)
}
