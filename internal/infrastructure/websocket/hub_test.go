package websocket_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ws "github.com/lllypuk/userdir/internal/infrastructure/websocket"
)

func TestNewHub(t *testing.T) {
	hub := ws.NewHub(ws.WithHubLogger(nil))

	assert.False(t, hub.IsRunning())
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_Run(t *testing.T) {
	t.Run("stops with context cancellation", func(t *testing.T) {
		hub := ws.NewHub()
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan struct{})
		go func() {
			hub.Run(ctx)
			close(done)
		}()

		require.Eventually(t, hub.IsRunning, time.Second, time.Millisecond)
		cancel()

		select {
		case <-done:
			assert.False(t, hub.IsRunning())
		case <-time.After(time.Second):
			t.Fatal("hub did not stop in time")
		}
	})

	t.Run("stops with Stop", func(t *testing.T) {
		hub := ws.NewHub()

		done := make(chan struct{})
		go func() {
			hub.Run(context.Background())
			close(done)
		}()

		require.Eventually(t, hub.IsRunning, time.Second, time.Millisecond)
		hub.Stop()
		hub.Stop()

		select {
		case <-done:
			assert.False(t, hub.IsRunning())
		case <-time.After(time.Second):
			t.Fatal("hub did not stop in time")
		}
	})

	t.Run("stop before run is a no-op", func(t *testing.T) {
		hub := ws.NewHub()
		assert.NotPanics(t, hub.Stop)
	})
}

func TestHub_Broadcast(t *testing.T) {
	hub, _ := startHub(t)

	_, first := connectClient(t, hub, "a")
	_, second := connectClient(t, hub, "b")

	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	msg := []byte(`{"type":"directory.loaded"}`)
	assert.True(t, hub.Broadcast(msg))

	assert.Equal(t, msg, readFrame(t, first))
	assert.Equal(t, msg, readFrame(t, second))
}

func TestHub_BroadcastQueueFull(t *testing.T) {
	hub := ws.NewHub()

	// nothing drains the queue while the hub is not running
	accepted := 0
	for range 1000 {
		if hub.Broadcast([]byte("x")) {
			accepted++
		}
	}

	assert.Positive(t, accepted)
	assert.Less(t, accepted, 1000)
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub, cancel := startHub(t)
	client, clientConn := connectClient(t, hub, "s")

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	cancel()

	assert.Eventually(t, client.IsClosed, time.Second, 5*time.Millisecond)

	require.NoError(t, clientConn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := clientConn.ReadMessage()
	assert.Error(t, err)
}

func TestHub_RegisterAfterStop(t *testing.T) {
	hub, cancel := startHub(t)
	cancel()
	require.Eventually(t, func() bool { return !hub.IsRunning() }, time.Second, time.Millisecond)

	serverConn, _, cleanup := createWSConnPair(t)
	defer cleanup()

	client := ws.NewClient(hub, serverConn, "late")
	hub.Register(client)

	assert.True(t, client.IsClosed())
	assert.Equal(t, 0, hub.ClientCount())
}
