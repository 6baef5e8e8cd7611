// Package maintenance periodically discards the restaurant cache so that
// writes made outside the directory service, and dish names no longer
// served, are picked up by a full rebuild.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/logger"
)

// Cache is the part of cache.Cache the scheduler drives.
type Cache interface {
	Reset()
	EnsureReady(ctx context.Context) (*cache.View, error)
}

type Scheduler struct {
	cache    Cache
	interval time.Duration
	warm     bool
	logger   *slog.Logger
}

// NewScheduler resets c every interval and, when warm is set, rebuilds it
// immediately instead of on the next request.
func NewScheduler(c Cache, interval time.Duration, warm bool) *Scheduler {
	return &Scheduler{
		cache:    c,
		interval: interval,
		warm:     warm,
		logger:   logger.WithComponent("maintenance"),
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.logger.Info("cache maintenance started", "interval", s.interval, "warm", s.warm)

	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-ctx.Done():
			s.logger.Info("cache maintenance stopped")
			return
		}
	}
}

// RunOnce performs a single reset cycle. A failed warm-up leaves the cache
// empty; the next request retries the rebuild.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()
	s.cache.Reset()
	if !s.warm {
		return nil
	}
	if _, err := s.cache.EnsureReady(ctx); err != nil {
		s.logger.Error("cache warm-up after reset failed", "error", err)
		return err
	}
	s.logger.Info("cache reset and warmed", "duration", time.Since(start))
	return nil
}
