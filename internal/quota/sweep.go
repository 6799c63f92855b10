package quota

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper periodically zeroes counters that have gone stale. It is a
// cleanup optimization only; Authorize re-checks window expiry on every
// call regardless of whether the sweep has run.
type Sweeper struct {
	store    Store
	window   time.Duration
	interval time.Duration
	clock    func() time.Time
}

// NewSweeper creates a Sweeper that runs every interval and zeroes
// counters idle for longer than window.
func NewSweeper(store Store, window, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:    store,
		window:   window,
		interval: interval,
		clock:    time.Now,
	}
}

// Run blocks, sweeping on each tick until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce zeroes all counters whose last activity predates the window.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	horizon := s.clock().Add(-s.window)
	n, err := s.store.SweepStale(ctx, horizon)
	if err != nil {
		zap.L().Warn("quota sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		zap.L().Info("quota sweep complete", zap.Int64("zeroed", n))
	}
}
