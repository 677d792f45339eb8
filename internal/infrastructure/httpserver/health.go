// Package httpserver provides HTTP server infrastructure components.
package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health status values shared by all health endpoints.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusDegraded  = "degraded"
	StatusReady     = "ready"
	StatusNotReady  = "not_ready"
)

// ComponentStatus represents the health status of a single component.
type ComponentStatus struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the response for health endpoints.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components []ComponentStatus `json:"components,omitempty"`
}

// HealthChecker reports readiness and per-component health. The context is
// the probe request's.
type HealthChecker interface {
	IsReady(ctx context.Context) bool
	GetHealthStatus(ctx context.Context) []ComponentStatus
}

// RegisterHealthEndpoints registers:
//   - GET /health: liveness, always 200
//   - GET /ready: 200 when checker is ready, 503 otherwise
//   - GET /health/details: per-component status, 503 if any is unhealthy
func (r *Router) RegisterHealthEndpoints(checker HealthChecker) {
	h := &healthEndpoints{checker: checker}
	r.echo.GET("/health", h.handleHealth)
	r.echo.GET("/ready", h.handleReady)
	r.echo.GET("/health/details", h.handleHealthDetails)
}

type healthEndpoints struct {
	checker HealthChecker
}

func (h *healthEndpoints) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: StatusHealthy})
}

func (h *healthEndpoints) handleReady(c echo.Context) error {
	ctx := c.Request().Context()

	if h.checker == nil || h.checker.IsReady(ctx) {
		return c.JSON(http.StatusOK, HealthResponse{
			Status:     StatusReady,
			Components: h.components(ctx),
		})
	}

	return c.JSON(http.StatusServiceUnavailable, HealthResponse{
		Status:     StatusNotReady,
		Components: h.components(ctx),
	})
}

func (h *healthEndpoints) handleHealthDetails(c echo.Context) error {
	components := h.components(c.Request().Context())

	overall := StatusHealthy
	code := http.StatusOK
	for _, comp := range components {
		if comp.Status == StatusUnhealthy {
			overall = StatusUnhealthy
			code = http.StatusServiceUnavailable
			break
		}
		if comp.Status == StatusDegraded {
			overall = StatusDegraded
		}
	}

	return c.JSON(code, HealthResponse{
		Status:     overall,
		Components: components,
	})
}

func (h *healthEndpoints) components(ctx context.Context) []ComponentStatus {
	if h.checker == nil {
		return nil
	}
	return h.checker.GetHealthStatus(ctx)
}
