// Package refresher keeps the persisted category snapshot warm.
//
// It periodically re-runs the category list fetch so the stored snapshot
// and downstream analysis inputs stay current without a request having to
// pay for the provider call.
package refresher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rotationlab/rotation-data/internal/rotation"
)

// SnapshotSource refreshes the category snapshot.
type SnapshotSource interface {
	ListCategories(ctx context.Context) ([]rotation.Category, error)
}

// Config holds refresher configuration.
type Config struct {
	Interval time.Duration // refresh interval; zero disables the refresher
	Timeout  time.Duration // per-refresh timeout (default: 2m)
}

// Refresher periodically refreshes the category snapshot.
type Refresher struct {
	cfg    Config
	source SnapshotSource
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Refresher.
func New(cfg Config, source SnapshotSource, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &Refresher{
		cfg:    cfg,
		source: source,
		logger: logger,
	}
}

// Start begins the refresh loop. With a zero interval it does nothing.
func (r *Refresher) Start(ctx context.Context) error {
	if r.cfg.Interval <= 0 {
		r.logger.Info("snapshot refresher disabled")
		return nil
	}

	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.run()

	r.logger.Info("snapshot refresher started", "interval", r.cfg.Interval)
	return nil
}

// Stop gracefully shuts down the refresher.
func (r *Refresher) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("snapshot refresher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the main refresh loop.
func (r *Refresher) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	// Refresh immediately on start.
	r.refresh()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.refresh()
		}
	}
}

// refresh fetches the category list once, replacing the stored snapshot.
func (r *Refresher) refresh() {
	ctx, cancel := context.WithTimeout(r.ctx, r.cfg.Timeout)
	defer cancel()

	start := time.Now()
	cats, err := r.source.ListCategories(ctx)
	if err != nil {
		r.logger.Warn("snapshot refresh failed", "err", err)
		return
	}

	r.logger.Info("snapshot refreshed",
		"categories", len(cats),
		"duration", time.Since(start),
	)
}
