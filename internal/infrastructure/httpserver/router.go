package httpserver

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lllypuk/userdir/internal/middleware"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger *slog.Logger

	// SessionMiddleware assigns the browser session. It runs before rate
	// limiting so limits are keyed per session.
	SessionMiddleware echo.MiddlewareFunc

	// RateLimitMiddleware is optional.
	RateLimitMiddleware echo.MiddlewareFunc

	CORSConfig    middleware.CORSConfig
	LoggingConfig middleware.LoggingConfig

	// APIPrefix is the prefix for JSON routes. Default is "/api/v1".
	APIPrefix string
}

// DefaultRouterConfig returns a RouterConfig with sensible defaults.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		Logger:        slog.Default(),
		CORSConfig:    middleware.DefaultCORSConfig(),
		LoggingConfig: middleware.DefaultLoggingConfig(),
		APIPrefix:     "/api/v1",
	}
}

// Router owns the middleware chain and the route groups.
type Router struct {
	echo   *echo.Echo
	config RouterConfig
	logger *slog.Logger

	api   *echo.Group
	pages *echo.Group
}

// NewRouter creates a new router with the given configuration.
func NewRouter(e *echo.Echo, config RouterConfig) *Router {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.APIPrefix == "" {
		config.APIPrefix = "/api/v1"
	}
	if config.LoggingConfig.Logger == nil {
		config.LoggingConfig.Logger = config.Logger
	}

	r := &Router{
		echo:   e,
		config: config,
		logger: config.Logger,
	}

	// recovery first so it sees panics from every other middleware
	e.Use(middleware.Recovery(config.Logger))
	e.Use(middleware.CORS(config.CORSConfig))

	var sessionScoped []echo.MiddlewareFunc
	if config.SessionMiddleware != nil {
		sessionScoped = append(sessionScoped, config.SessionMiddleware)
	}
	if config.RateLimitMiddleware != nil {
		sessionScoped = append(sessionScoped, config.RateLimitMiddleware)
	}
	// logging goes last so it can read the session ID
	sessionScoped = append(sessionScoped, middleware.Logging(config.LoggingConfig))

	r.api = e.Group(config.APIPrefix, sessionScoped...)
	r.pages = e.Group("", sessionScoped...)

	return r
}

// Echo returns the underlying Echo instance.
func (r *Router) Echo() *echo.Echo {
	return r.echo
}

// API returns the JSON route group.
func (r *Router) API() *echo.Group {
	return r.api
}

// Pages returns the group for HTML pages and partials.
func (r *Router) Pages() *echo.Group {
	return r.pages
}

// RegisterMetricsEndpoint serves gatherer on /metrics.
func (r *Router) RegisterMetricsEndpoint(gatherer prometheus.Gatherer) {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}

// PrintRoutes logs all registered routes at debug level.
func (r *Router) PrintRoutes() {
	for _, route := range r.echo.Routes() {
		r.logger.Debug("registered route",
			slog.String("method", route.Method),
			slog.String("path", route.Path),
		)
	}
}
