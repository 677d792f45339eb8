// Package main provides the API server entry point.
package main

import (
	"github.com/labstack/echo/v4"

	httphandler "github.com/lllypuk/userdir/internal/handler/http"
	"github.com/lllypuk/userdir/internal/infrastructure/httpserver"
	"github.com/lllypuk/userdir/internal/middleware"
	"github.com/lllypuk/userdir/web"
)

const apiPrefix = "/api/v1"

// SetupRoutes configures all routes and middleware chains on e.
func SetupRoutes(e *echo.Echo, c *Container) *httpserver.Router {
	routerConfig := httpserver.RouterConfig{
		Logger: c.Logger,
		SessionMiddleware: middleware.Session(middleware.SessionConfig{
			CookieName: c.Config.Session.CookieName,
			MaxAge:     c.Config.Session.IdleTimeout,
			Secure:     c.Config.Session.Secure,
		}),
		RateLimitMiddleware: rateLimitMiddleware(c),
		CORSConfig:          middleware.DefaultCORSConfig(),
		LoggingConfig:       middleware.DefaultLoggingConfig(),
		APIPrefix:           apiPrefix,
	}

	router := httpserver.NewRouter(e, routerConfig)

	e.Renderer = c.TemplateRenderer
	e.HTTPErrorHandler = c.TemplateHandler.ErrorHandler(apiPrefix, e.DefaultHTTPErrorHandler)

	if err := httphandler.SetupStaticRoutes(e, web.StaticFS); err != nil {
		c.Logger.Error("failed to setup static routes", "error", err)
	}

	// Container implements httpserver.HealthChecker, so we pass it directly.
	router.RegisterHealthEndpoints(c)
	router.RegisterMetricsEndpoint(c.Registry)

	c.TemplateHandler.SetupPageRoutes(router.Pages())
	c.UserHandler.RegisterRoutes(router)
	c.WSHandler.RegisterRoutesWithGroup(router.Pages())

	if c.Config.IsDevelopment() {
		router.PrintRoutes()
	}

	return router
}

func rateLimitMiddleware(c *Container) echo.MiddlewareFunc {
	if c.RateLimitStore == nil {
		return nil
	}

	cfg := middleware.DefaultRateLimitConfig()
	cfg.Logger = c.Logger
	cfg.Store = c.RateLimitStore
	cfg.Limit = c.Config.RateLimit.Limit
	cfg.Window = c.Config.RateLimit.Window
	cfg.BurstSize = c.Config.RateLimit.Burst
	// one upgrade per tab, not worth counting
	cfg.SkipPaths = append(cfg.SkipPaths, "/ws")

	return middleware.RateLimit(cfg)
}
