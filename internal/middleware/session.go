package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	// DefaultSessionCookie is the cookie holding the session ID.
	DefaultSessionCookie = "userdir_session"

	// SessionIDKey is the echo context key for the session ID.
	SessionIDKey = "session_id"
)

// SessionConfig holds configuration for the session middleware.
type SessionConfig struct {
	CookieName string
	MaxAge     time.Duration
	Secure     bool
}

// Session returns a middleware that makes sure every request carries a
// session ID cookie. Unknown or malformed IDs are replaced.
func Session(config SessionConfig) echo.MiddlewareFunc {
	if config.CookieName == "" {
		config.CookieName = DefaultSessionCookie
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sid := ""
			if cookie, err := c.Cookie(config.CookieName); err == nil {
				if _, parseErr := uuid.Parse(cookie.Value); parseErr == nil {
					sid = cookie.Value
				}
			}

			if sid == "" {
				sid = uuid.NewString()
			}

			// sliding expiry
			c.SetCookie(&http.Cookie{
				Name:     config.CookieName,
				Value:    sid,
				Path:     "/",
				MaxAge:   int(config.MaxAge.Seconds()),
				HttpOnly: true,
				Secure:   config.Secure,
				SameSite: http.SameSiteLaxMode,
			})
			c.Set(SessionIDKey, sid)

			return next(c)
		}
	}
}

// GetSessionID retrieves the session ID from the echo context.
func GetSessionID(c echo.Context) string {
	if id, ok := c.Get(SessionIDKey).(string); ok {
		return id
	}
	return ""
}
