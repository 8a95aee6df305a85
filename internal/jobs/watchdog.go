package jobs

import (
	"context"
	"log/slog"
	"time"
)

// Default stale-recovery tuning. A job still in processing after MaxAge is
// presumed crashed; it is the store's updated_at, not started_at, that the
// cutoff compares against, so a job making progress never goes stale.
const (
	DefaultStaleAge      = 30 * time.Minute
	DefaultSweepInterval = 5 * time.Minute
)

// StaleMarker transitions processing jobs older than the cutoff to stale
// and reports how many were moved.
type StaleMarker interface {
	MarkStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error)
}

// Watchdog recovers jobs orphaned by a crash or restart. Run it once at
// process start, then on a timer.
type Watchdog struct {
	store    StaleMarker
	maxAge   time.Duration
	interval time.Duration
	logger   *slog.Logger
}

// NewWatchdog creates a watchdog; non-positive durations take the defaults.
func NewWatchdog(store StaleMarker, maxAge, interval time.Duration, logger *slog.Logger) *Watchdog {
	if maxAge <= 0 {
		maxAge = DefaultStaleAge
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watchdog{store: store, maxAge: maxAge, interval: interval, logger: logger}
}

// RunOnce performs a single sweep.
func (w *Watchdog) RunOnce(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-w.maxAge)
	moved, err := w.store.MarkStaleProcessing(ctx, cutoff)
	if err != nil {
		w.logger.Error("stale sweep failed", "error", err)
		return 0, err
	}
	if moved > 0 {
		w.logger.Warn("recovered stuck jobs", "count", moved, "older_than", w.maxAge)
	}
	return moved, nil
}

// Run sweeps immediately, then on every tick until the context is done.
func (w *Watchdog) Run(ctx context.Context) {
	if _, err := w.RunOnce(ctx); err != nil && ctx.Err() != nil {
		return
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}
