package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/userdir/internal/middleware"
)

func newSessionEcho(seen *string) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Session(middleware.SessionConfig{MaxAge: 30 * time.Minute}))
	e.GET("/", func(c echo.Context) error {
		*seen = middleware.GetSessionID(c)
		return c.NoContent(http.StatusOK)
	})
	return e
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.DefaultSessionCookie {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestSession_IssuesCookie(t *testing.T) {
	var seen string
	e := newSessionEcho(&seen)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	cookie := sessionCookie(t, rec)
	_, err := uuid.Parse(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, cookie.Value, seen)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 1800, cookie.MaxAge)
}

func TestSession_KeepsValidCookie(t *testing.T) {
	var seen string
	e := newSessionEcho(&seen)
	existing := uuid.NewString()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: middleware.DefaultSessionCookie, Value: existing})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, existing, seen)
	assert.Equal(t, existing, sessionCookie(t, rec).Value)
}

func TestSession_ReplacesMalformedCookie(t *testing.T) {
	var seen string
	e := newSessionEcho(&seen)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: middleware.DefaultSessionCookie, Value: "../../etc"})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.NotEqual(t, "../../etc", seen)
	_, err := uuid.Parse(seen)
	require.NoError(t, err)
}
