package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lllypuk/userdir/internal/domain/listing"
)

func TestSessionStore_With(t *testing.T) {
	store := NewSessionStore(time.Minute)

	store.With("a", func(q *listing.QueryState) {
		assert.Equal(t, 1, q.CurrentPage())
		q.SetSearchTerm("graham")
	})
	store.With("a", func(q *listing.QueryState) {
		assert.Equal(t, "graham", q.SearchTerm())
	})
	store.With("b", func(q *listing.QueryState) {
		assert.Empty(t, q.SearchTerm(), "sessions are independent")
	})

	assert.Equal(t, 2, store.Len())
}

func TestSessionStore_Evict(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewSessionStore(10 * time.Minute)
	store.now = func() time.Time { return now }

	store.With("old", func(*listing.QueryState) {})
	now = now.Add(8 * time.Minute)
	store.With("recent", func(*listing.QueryState) {})
	now = now.Add(5 * time.Minute)

	removed := store.Evict()

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.Len())

	store.With("old", func(q *listing.QueryState) {
		assert.Empty(t, q.SearchTerm())
	})
}

func TestNewSessionStore_DefaultTimeout(t *testing.T) {
	store := NewSessionStore(0)
	assert.Equal(t, defaultSessionIdleTimeout, store.idleTimeout)
}

func TestSessionStore_Peek(t *testing.T) {
	store := NewSessionStore(time.Minute)

	store.Peek("visitor", func(q *listing.QueryState) {
		assert.Equal(t, 1, q.CurrentPage())
		q.SetSearchTerm("graham")
	})
	assert.Zero(t, store.Len(), "peeking an unknown session stores nothing")

	store.With("known", func(q *listing.QueryState) {
		q.SetSearchTerm("bauch")
	})
	store.Peek("known", func(q *listing.QueryState) {
		assert.Equal(t, "bauch", q.SearchTerm())
	})
	assert.Equal(t, 1, store.Len())
}

func TestSessionStore_PeekRefreshesLastSeen(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewSessionStore(10 * time.Minute)
	store.now = func() time.Time { return now }

	store.With("a", func(*listing.QueryState) {})
	now = now.Add(8 * time.Minute)
	store.Peek("a", func(*listing.QueryState) {})
	now = now.Add(5 * time.Minute)

	assert.Zero(t, store.Evict())
	assert.Equal(t, 1, store.Len())
}
