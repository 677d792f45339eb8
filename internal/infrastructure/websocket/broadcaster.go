package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/lllypuk/userdir/internal/service"
)

// Frame types pushed to browsers.
const (
	TypeDirectoryLoaded = "directory.loaded"
	TypeDirectoryFailed = "directory.failed"
)

// LoadNotifier is the source of directory load events.
// Declared on the consumer side.
type LoadNotifier interface {
	OnLoad(fn func(service.LoadEvent))
}

// LoadPayload is the data of a directory frame.
type LoadPayload struct {
	Version  uint64    `json:"version"`
	Total    int       `json:"total"`
	LoadedAt time.Time `json:"loaded_at,omitzero"`
	Error    string    `json:"error,omitempty"`
}

// Broadcaster forwards directory load events to every connected client.
type Broadcaster struct {
	hub      *Hub
	notifier LoadNotifier
	logger   *slog.Logger

	running   bool
	runningMu sync.RWMutex
}

// BroadcasterOption configures a Broadcaster.
type BroadcasterOption func(*Broadcaster)

// WithBroadcasterLogger sets the logger for the broadcaster.
func WithBroadcasterLogger(logger *slog.Logger) BroadcasterOption {
	return func(b *Broadcaster) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBroadcaster creates a new Broadcaster.
func NewBroadcaster(hub *Hub, notifier LoadNotifier, opts ...BroadcasterOption) *Broadcaster {
	b := &Broadcaster{
		hub:      hub,
		notifier: notifier,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Start subscribes to load events. It does not block and is a no-op when
// already started.
func (b *Broadcaster) Start(ctx context.Context) {
	b.runningMu.Lock()
	defer b.runningMu.Unlock()

	if b.running {
		return
	}
	b.running = true

	b.notifier.OnLoad(b.handleLoad)

	b.logger.InfoContext(ctx, "websocket broadcaster started")
}

// IsRunning returns whether the broadcaster has subscribed.
func (b *Broadcaster) IsRunning() bool {
	b.runningMu.RLock()
	defer b.runningMu.RUnlock()
	return b.running
}

func (b *Broadcaster) handleLoad(evt service.LoadEvent) {
	data, err := EncodeLoadEvent(evt)
	if err != nil {
		b.logger.Error("failed to encode load event", slog.String("error", err.Error()))
		return
	}

	if !b.hub.Broadcast(data) {
		return
	}

	b.logger.Debug("load event broadcast",
		slog.Uint64("version", evt.Version),
		slog.Bool("failed", evt.Failed()),
	)
}

// EncodeLoadEvent renders evt as a JSON frame.
func EncodeLoadEvent(evt service.LoadEvent) ([]byte, error) {
	payload := LoadPayload{
		Version: evt.Version,
		Total:   evt.Total,
	}

	msgType := TypeDirectoryLoaded
	if evt.Failed() {
		msgType = TypeDirectoryFailed
		payload.Error = evt.Err.Error()
	} else {
		payload.LoadedAt = evt.LoadedAt.UTC()
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(Message{Type: msgType, Data: data})
}
