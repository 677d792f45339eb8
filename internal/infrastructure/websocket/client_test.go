package websocket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ws "github.com/lllypuk/userdir/internal/infrastructure/websocket"
)

func TestNewClient(t *testing.T) {
	hub := ws.NewHub()
	serverConn, _, cleanup := createWSConnPair(t)
	defer cleanup()

	client := ws.NewClient(hub, serverConn, "session-1",
		ws.WithClientConfig(ws.DefaultClientConfig()),
		ws.WithClientLogger(nil),
	)

	assert.Equal(t, "session-1", client.SessionID())
	assert.False(t, client.IsClosed())
}

func TestClient_Close(t *testing.T) {
	hub := ws.NewHub()
	serverConn, _, cleanup := createWSConnPair(t)
	defer cleanup()

	client := ws.NewClient(hub, serverConn, "")

	client.Close()
	assert.True(t, client.IsClosed())

	assert.NotPanics(t, func() {
		client.Close()
		client.Send([]byte("late"))
	})
}

func TestClient_Messages(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"ping", `{"type":"ping"}`, `{"type":"pong"}`},
		{"unknown type", `{"type":"subscribe"}`, `{"message":"unknown message type: subscribe","type":"error"}`},
		{"invalid json", `not json`, `{"message":"invalid message format","type":"error"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub, _ := startHub(t)
			_, clientConn := connectClient(t, hub, "s")

			require.NoError(t, clientConn.WriteMessage(websocket.TextMessage, []byte(tt.input)))

			assert.JSONEq(t, tt.expected, string(readFrame(t, clientConn)))
		})
	}
}

func TestClient_DisconnectUnregisters(t *testing.T) {
	hub, _ := startHub(t)
	client, clientConn := connectClient(t, hub, "s")

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, clientConn.Close())

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, client.IsClosed, time.Second, 5*time.Millisecond)
}

// startHub runs a hub until the test ends.
func startHub(t *testing.T) (*ws.Hub, context.CancelFunc) {
	t.Helper()

	hub := ws.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	require.Eventually(t, hub.IsRunning, time.Second, time.Millisecond)

	t.Cleanup(func() {
		cancel()
		<-done
	})

	return hub, cancel
}

// connectClient opens a connection, registers the server side with hub and
// starts its pumps. It returns the browser side of the connection.
func connectClient(t *testing.T, hub *ws.Hub, sessionID string) (*ws.Client, *websocket.Conn) {
	t.Helper()

	serverConn, clientConn, cleanup := createWSConnPair(t)
	t.Cleanup(cleanup)

	client := ws.NewClient(hub, serverConn, sessionID)
	hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	return client, clientConn
}

func readFrame(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return data
}

func createWSConnPair(t *testing.T) (*websocket.Conn, *websocket.Conn, func()) {
	t.Helper()

	upgrader := websocket.Upgrader{
		CheckOrigin: func(_ *http.Request) bool { return true },
	}

	serverChan := make(chan *websocket.Conn, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverChan <- conn
	}))

	wsURL := "ws" + server.URL[len("http"):]
	clientConn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	select {
	case serverConn := <-serverChan:
		cleanup := func() {
			_ = serverConn.Close()
			_ = clientConn.Close()
			server.Close()
		}
		return serverConn, clientConn, cleanup
	case <-time.After(time.Second):
		_ = clientConn.Close()
		server.Close()
		t.Fatal("timeout waiting for server connection")
		return nil, nil, nil
	}
}
