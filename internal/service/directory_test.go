package service_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/userdir/internal/domain/errs"
	"github.com/lllypuk/userdir/internal/domain/user"
	"github.com/lllypuk/userdir/internal/infrastructure/metrics"
	"github.com/lllypuk/userdir/internal/service"
)

type loadFunc func(ctx context.Context, call int) ([]user.User, error)

type fakeSource struct {
	mu    sync.Mutex
	calls int
	fn    loadFunc
}

func (f *fakeSource) LoadAll(ctx context.Context) ([]user.User, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	return f.fn(ctx, call)
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func sampleUsers(t *testing.T, n int) []user.User {
	t.Helper()

	users := make([]user.User, 0, n)
	for i := 1; i <= n; i++ {
		u, err := user.NewUser(user.Fields{ID: i, Name: fmt.Sprintf("User %d", i)})
		require.NoError(t, err)
		users = append(users, u)
	}
	return users
}

func TestDirectory_InitialState(t *testing.T) {
	d := service.NewDirectory(&fakeSource{})

	snap := d.Snapshot()

	assert.True(t, snap.Loading)
	assert.Empty(t, snap.Users)
	assert.NoError(t, snap.Err)
	assert.False(t, d.Ready())

	_, err := d.User(1)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestDirectory_LoadSuccess(t *testing.T) {
	users := sampleUsers(t, 10)
	d := service.NewDirectory(&fakeSource{fn: func(context.Context, int) ([]user.User, error) {
		return users, nil
	}})

	require.NoError(t, d.Load(context.Background()))

	snap := d.Snapshot()
	assert.False(t, snap.Loading)
	assert.NoError(t, snap.Err)
	assert.Len(t, snap.Users, 10)
	assert.Equal(t, uint64(1), snap.Version)
	assert.False(t, snap.LoadedAt.IsZero())
	assert.True(t, d.Ready())

	u, err := d.User(7)
	require.NoError(t, err)
	assert.Equal(t, "User 7", u.Name())
}

func TestDirectory_LoadFailure(t *testing.T) {
	upstreamErr := errors.New("upstream request failed: status 500")
	source := &fakeSource{fn: func(_ context.Context, call int) ([]user.User, error) {
		if call == 1 {
			return sampleUsers(t, 3), nil
		}
		return nil, upstreamErr
	}}
	d := service.NewDirectory(source)
	require.NoError(t, d.Load(context.Background()))

	err := d.Load(context.Background())

	var failure *service.LoadFailure
	require.ErrorAs(t, err, &failure)
	require.ErrorIs(t, err, upstreamErr)
	assert.Equal(t, "upstream request failed: status 500", failure.Message)
	assert.Equal(t, http.StatusBadGateway, failure.HTTPStatus())
	assert.Equal(t, "LOAD_FAILED", failure.HTTPCode())

	snap := d.Snapshot()
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Users, "failure clears the collection")
	require.ErrorAs(t, snap.Err, &failure)
	assert.True(t, d.Ready(), "ready stays true after the first success")

	_, err = d.User(1)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestDirectory_RetryIssuesNewRequest(t *testing.T) {
	source := &fakeSource{fn: func(_ context.Context, call int) ([]user.User, error) {
		if call == 1 {
			return nil, errors.New("connection refused")
		}
		return sampleUsers(t, 2), nil
	}}
	d := service.NewDirectory(source)

	require.Error(t, d.Load(context.Background()))
	require.NoError(t, d.Load(context.Background()))

	assert.Equal(t, 2, source.Calls())
	snap := d.Snapshot()
	assert.NoError(t, snap.Err)
	assert.Len(t, snap.Users, 2)
}

func TestDirectory_RetryClearsPreviousFailure(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	source := &fakeSource{fn: func(_ context.Context, call int) ([]user.User, error) {
		if call == 1 {
			return nil, errors.New("upstream request failed: status 500")
		}
		close(started)
		<-release
		return sampleUsers(t, 2), nil
	}}
	d := service.NewDirectory(source)
	require.Error(t, d.Load(context.Background()))

	retryErr := make(chan error, 1)
	go func() {
		retryErr <- d.Load(context.Background())
	}()
	<-started

	snap := d.Snapshot()
	assert.True(t, snap.Loading)
	assert.NoError(t, snap.Err, "an in-flight retry does not report the old failure")
	assert.Empty(t, snap.Users)

	close(release)
	select {
	case err := <-retryErr:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("retry did not return")
	}
	assert.Len(t, d.Snapshot().Users, 2)
}

func TestDirectory_SupersededLoadIsDiscarded(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	stale := sampleUsers(t, 1)
	fresh := sampleUsers(t, 5)

	source := &fakeSource{fn: func(_ context.Context, call int) ([]user.User, error) {
		if call == 1 {
			close(started)
			<-release
			return stale, nil
		}
		return fresh, nil
	}}
	d := service.NewDirectory(source)

	firstErr := make(chan error, 1)
	go func() {
		firstErr <- d.Load(context.Background())
	}()
	<-started

	require.NoError(t, d.Load(context.Background()))
	close(release)

	select {
	case err := <-firstErr:
		require.ErrorIs(t, err, service.ErrLoadSuperseded)
	case <-time.After(5 * time.Second):
		t.Fatal("first load did not return")
	}

	snap := d.Snapshot()
	assert.Len(t, snap.Users, 5)
	assert.Equal(t, uint64(2), snap.Version)
	assert.False(t, snap.Loading)
}

func TestDirectory_NewLoadCancelsInFlight(t *testing.T) {
	started := make(chan struct{})
	source := &fakeSource{fn: func(ctx context.Context, call int) ([]user.User, error) {
		if call == 1 {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return sampleUsers(t, 3), nil
	}}
	d := service.NewDirectory(source)

	firstErr := make(chan error, 1)
	go func() {
		firstErr <- d.Load(context.Background())
	}()
	<-started

	require.NoError(t, d.Load(context.Background()))

	select {
	case err := <-firstErr:
		require.ErrorIs(t, err, service.ErrLoadSuperseded)
	case <-time.After(5 * time.Second):
		t.Fatal("in-flight load was not cancelled")
	}

	snap := d.Snapshot()
	assert.NoError(t, snap.Err)
	assert.Len(t, snap.Users, 3)
}

func TestDirectory_OnLoad(t *testing.T) {
	source := &fakeSource{fn: func(_ context.Context, call int) ([]user.User, error) {
		if call == 2 {
			return nil, errors.New("boom")
		}
		return sampleUsers(t, 4), nil
	}}
	d := service.NewDirectory(source)

	var events []service.LoadEvent
	d.OnLoad(func(e service.LoadEvent) {
		events = append(events, e)
	})

	require.NoError(t, d.Load(context.Background()))
	require.Error(t, d.Load(context.Background()))

	require.Len(t, events, 2)
	assert.False(t, events[0].Failed())
	assert.Equal(t, 4, events[0].Total)
	assert.Equal(t, uint64(1), events[0].Version)
	assert.True(t, events[1].Failed())
	assert.Equal(t, uint64(2), events[1].Version)
}

func TestDirectory_Metrics(t *testing.T) {
	m := metrics.NewDirectoryMetrics(prometheus.NewRegistry())
	source := &fakeSource{fn: func(_ context.Context, call int) ([]user.User, error) {
		if call == 2 {
			return nil, errors.New("boom")
		}
		return sampleUsers(t, 6), nil
	}}
	d := service.NewDirectory(source, service.WithDirectoryMetrics(m))

	require.NoError(t, d.Load(context.Background()))
	assert.InDelta(t, 6, testutil.ToFloat64(m.Users), 0)

	require.Error(t, d.Load(context.Background()))
	assert.InDelta(t, 0, testutil.ToFloat64(m.Users), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.LoadsTotal.WithLabelValues(metrics.OutcomeSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.LoadsTotal.WithLabelValues(metrics.OutcomeFailure)), 0)
}
