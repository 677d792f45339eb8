package httphandler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/userdir/internal/domain/listing"
	"github.com/lllypuk/userdir/internal/domain/user"
	"github.com/lllypuk/userdir/internal/infrastructure/httpserver"
	"github.com/lllypuk/userdir/internal/middleware"
	"github.com/lllypuk/userdir/internal/service"
)

const testSessionID = "6f1d7a52-0f2c-4f63-9a6d-3c1b0f6d2f10"

// stubSource serves a fixed user list, or err when set.
type stubSource struct {
	mu    sync.Mutex
	users []user.User
	err   error
	calls int
}

func (s *stubSource) LoadAll(context.Context) ([]user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.users, nil
}

func (s *stubSource) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *stubSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func numberedUsers(t *testing.T, n int) []user.User {
	t.Helper()

	users := make([]user.User, 0, n)
	for i := 1; i <= n; i++ {
		u, err := user.NewUser(user.Fields{
			ID:    i,
			Name:  fmt.Sprintf("User %d", i),
			Email: fmt.Sprintf("user%d@example.com", i),
			City:  "Gwenborough",
		})
		require.NoError(t, err)
		users = append(users, u)
	}
	return users
}

// newListService builds the real service over src. When load is true the
// directory is loaded once before returning.
func newListService(t *testing.T, src *stubSource, load bool) *service.UserListService {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	dir := service.NewDirectory(src, service.WithDirectoryLogger(logger))
	t.Cleanup(dir.Close)

	if load {
		_ = dir.Load(context.Background())
	}

	return service.NewUserListService(dir, service.NewSessionStore(time.Hour), listing.DefaultOptions())
}

func newJSONContext(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(middleware.SessionIDKey, testSessionID)
	return c, rec
}

type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Error   *httpserver.Error `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}
