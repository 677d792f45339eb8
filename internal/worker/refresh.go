// Package worker contains background jobs.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lllypuk/userdir/internal/service"
)

// RefreshConfig contains configuration for the refresh worker.
type RefreshConfig struct {
	// Interval is the time between reloads. Zero disables periodic reloads;
	// the initial load still runs.
	Interval time.Duration
}

// DirectoryLoader is the part of service.Directory the worker needs.
type DirectoryLoader interface {
	Load(ctx context.Context) error
}

// RefreshWorker performs the initial directory load and, when configured,
// reloads it on a fixed interval.
type RefreshWorker struct {
	directory DirectoryLoader
	logger    *slog.Logger
	config    RefreshConfig
}

// NewRefreshWorker creates a new refresh worker.
func NewRefreshWorker(directory DirectoryLoader, logger *slog.Logger, config RefreshConfig) *RefreshWorker {
	if logger == nil {
		logger = slog.Default()
	}

	return &RefreshWorker{
		directory: directory,
		logger:    logger,
		config:    config,
	}
}

// Run loads the directory once, then keeps reloading until ctx is cancelled.
func (w *RefreshWorker) Run(ctx context.Context) error {
	w.refresh(ctx)

	if w.config.Interval <= 0 {
		w.logger.InfoContext(ctx, "periodic refresh is disabled")
		return nil
	}

	w.logger.InfoContext(ctx, "starting refresh worker", slog.Duration("interval", w.config.Interval))

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "refresh worker stopped")
			return ctx.Err()
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

func (w *RefreshWorker) refresh(ctx context.Context) {
	err := w.directory.Load(ctx)
	switch {
	case err == nil, errors.Is(err, service.ErrLoadSuperseded):
	case ctx.Err() != nil:
		// shutting down
	default:
		// the directory already logged and recorded the failure
		w.logger.DebugContext(ctx, "refresh failed", slog.String("error", err.Error()))
	}
}
