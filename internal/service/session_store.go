package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lllypuk/userdir/internal/domain/listing"
)

const (
	defaultSessionIdleTimeout = 30 * time.Minute
	minSessionSweepInterval   = time.Second
)

type session struct {
	state    *listing.QueryState
	lastSeen time.Time
}

// SessionStore keeps one QueryState per browser session in memory.
type SessionStore struct {
	mu          sync.Mutex
	sessions    map[string]*session
	idleTimeout time.Duration
	now         func() time.Time
}

// NewSessionStore creates an empty store. Sessions idle longer than
// idleTimeout are dropped by Evict.
func NewSessionStore(idleTimeout time.Duration) *SessionStore {
	if idleTimeout <= 0 {
		idleTimeout = defaultSessionIdleTimeout
	}
	return &SessionStore{
		sessions:    make(map[string]*session),
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// With runs fn on the session's state while holding the store lock,
// creating the session on first use.
func (s *SessionStore) With(id string, fn func(*listing.QueryState)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{state: listing.NewQueryState()}
		s.sessions[id] = sess
	}
	sess.lastSeen = s.now()

	fn(sess.state)
}

// Peek runs fn on the session's state if the session exists, or on a fresh
// state that is not stored. Reads from clients that never change their
// query, such as first visits and crawlers, leave nothing behind.
func (s *SessionStore) Peek(id string, fn func(*listing.QueryState)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		fn(listing.NewQueryState())
		return
	}
	sess.lastSeen = s.now()

	fn(sess.state)
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Evict drops idle sessions and returns how many were removed.
func (s *SessionStore) Evict() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.idleTimeout)
	removed := 0
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Run evicts idle sessions periodically until ctx is cancelled.
func (s *SessionStore) Run(ctx context.Context, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	interval := max(s.idleTimeout/2, minSessionSweepInterval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Evict(); n > 0 {
				logger.DebugContext(ctx, "evicted idle sessions", slog.Int("count", n))
			}
		}
	}
}
