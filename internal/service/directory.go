// Package service holds the in-memory user directory and the per-session
// list intents built on top of it.
package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/lllypuk/userdir/internal/domain/listing"
	"github.com/lllypuk/userdir/internal/domain/user"
	"github.com/lllypuk/userdir/internal/infrastructure/metrics"
)

// ErrLoadSuperseded is returned by Load when a newer load started before
// this one finished. Its result was discarded.
var ErrLoadSuperseded = errors.New("load superseded by a newer request")

// UserSource loads the full user list.
type UserSource interface {
	LoadAll(ctx context.Context) ([]user.User, error)
}

// LoadFailure is the only load error the UI sees. Status and network
// failures render the same retry affordance.
type LoadFailure struct {
	Message string
	Cause   error
}

func (e *LoadFailure) Error() string { return e.Message }

func (e *LoadFailure) Unwrap() error { return e.Cause }

// HTTPStatus implements httpserver.HTTPError.
func (e *LoadFailure) HTTPStatus() int { return http.StatusBadGateway }

// HTTPCode implements httpserver.HTTPError.
func (e *LoadFailure) HTTPCode() string { return "LOAD_FAILED" }

// HTTPMessage implements httpserver.HTTPError.
func (e *LoadFailure) HTTPMessage() string { return e.Message }

// LoadEvent describes a completed load.
type LoadEvent struct {
	Version  uint64
	Total    int
	Err      error
	Duration time.Duration
	LoadedAt time.Time
}

// Failed reports whether the load failed.
func (e LoadEvent) Failed() bool { return e.Err != nil }

// DirectoryOption configures a Directory.
type DirectoryOption func(*Directory)

// WithDirectoryLogger sets the logger.
func WithDirectoryLogger(logger *slog.Logger) DirectoryOption {
	return func(d *Directory) {
		d.logger = logger
	}
}

// WithDirectoryMetrics enables load metrics.
func WithDirectoryMetrics(m *metrics.DirectoryMetrics) DirectoryOption {
	return func(d *Directory) {
		d.metrics = m
	}
}

// Directory owns the single loaded user collection. All writes go through
// Load, which is safe to call concurrently: the newest call always wins.
type Directory struct {
	source  UserSource
	logger  *slog.Logger
	metrics *metrics.DirectoryMetrics

	mu         sync.Mutex
	collection user.Collection
	loading    bool
	err        error
	loadedAt   time.Time
	ready      bool
	generation uint64
	cancel     context.CancelFunc
	listeners  []func(LoadEvent)
}

// NewDirectory creates a directory that has not loaded yet. Until the first
// load completes it reports itself as loading.
func NewDirectory(source UserSource, opts ...DirectoryOption) *Directory {
	d := &Directory{
		source:     source,
		logger:     slog.Default(),
		collection: user.NewCollection(nil, 0),
		loading:    true,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Load fetches a fresh collection. It cancels any load still in flight; a
// result from a cancelled load is discarded and reported as
// ErrLoadSuperseded. Any recorded failure is cleared when the load starts.
// On failure the collection is cleared and a *LoadFailure is both recorded
// and returned.
func (d *Directory) Load(ctx context.Context) error {
	d.mu.Lock()
	d.generation++
	gen := d.generation
	if d.cancel != nil {
		d.cancel()
	}
	loadCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.loading = true
	// a retry starts clean; the previous failure is not reported alongside it
	d.err = nil
	d.mu.Unlock()
	defer cancel()

	d.logger.InfoContext(ctx, "loading users", slog.Uint64("generation", gen))

	start := time.Now()
	users, err := d.source.LoadAll(loadCtx)
	duration := time.Since(start)

	d.mu.Lock()
	if gen != d.generation {
		d.mu.Unlock()
		d.logger.InfoContext(ctx, "discarding superseded load", slog.Uint64("generation", gen))
		d.observe(metrics.OutcomeSuperseded, duration, -1)
		return ErrLoadSuperseded
	}

	d.loading = false
	d.cancel = nil

	event := LoadEvent{Version: gen, Duration: duration}
	if err != nil {
		failure := &LoadFailure{Message: err.Error(), Cause: err}
		d.collection = user.NewCollection(nil, gen)
		d.err = failure
		event.Err = failure
	} else {
		d.collection = user.NewCollection(users, gen)
		d.err = nil
		d.loadedAt = time.Now()
		d.ready = true
		event.Total = len(users)
	}
	event.LoadedAt = d.loadedAt
	listeners := slices.Clone(d.listeners)
	d.mu.Unlock()

	if event.Failed() {
		d.logger.ErrorContext(ctx, "user load failed",
			slog.Uint64("generation", gen),
			slog.String("error", err.Error()),
		)
		d.observe(metrics.OutcomeFailure, duration, 0)
	} else {
		d.logger.InfoContext(ctx, "users loaded",
			slog.Uint64("generation", gen),
			slog.Int("count", event.Total),
			slog.Duration("duration", duration),
		)
		d.observe(metrics.OutcomeSuccess, duration, event.Total)
	}

	for _, fn := range listeners {
		fn(event)
	}

	return event.Err
}

// observe records a finished load. users < 0 leaves the gauge alone.
func (d *Directory) observe(outcome string, duration time.Duration, users int) {
	if d.metrics == nil {
		return
	}
	d.metrics.LoadsTotal.WithLabelValues(outcome).Inc()
	d.metrics.LoadDuration.Observe(duration.Seconds())
	if users >= 0 {
		d.metrics.Users.Set(float64(users))
	}
}

// Snapshot returns the current collection and load state.
func (d *Directory) Snapshot() listing.Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	return listing.Snapshot{
		Users:    d.collection.All(),
		Loading:  d.loading,
		Err:      d.err,
		Version:  d.collection.Version(),
		LoadedAt: d.loadedAt,
	}
}

// User looks up a user in the loaded collection.
func (d *Directory) User(id int) (user.User, error) {
	d.mu.Lock()
	collection := d.collection
	d.mu.Unlock()

	return collection.ByID(id)
}

// Ready reports whether at least one load has succeeded.
func (d *Directory) Ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ready
}

// OnLoad registers fn to run after every load that was not superseded.
// fn runs on the loading goroutine and must not block.
func (d *Directory) OnLoad(fn func(LoadEvent)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, fn)
}

// Close cancels a load in flight.
func (d *Directory) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}
