// Package main provides the API server entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/lllypuk/userdir/internal/config"
	"github.com/lllypuk/userdir/internal/domain/listing"
	httphandler "github.com/lllypuk/userdir/internal/handler/http"
	wshandler "github.com/lllypuk/userdir/internal/handler/websocket"
	"github.com/lllypuk/userdir/internal/infrastructure/httpserver"
	"github.com/lllypuk/userdir/internal/infrastructure/metrics"
	"github.com/lllypuk/userdir/internal/infrastructure/ratelimit"
	"github.com/lllypuk/userdir/internal/infrastructure/upstream"
	"github.com/lllypuk/userdir/internal/infrastructure/websocket"
	"github.com/lllypuk/userdir/internal/middleware"
	"github.com/lllypuk/userdir/internal/service"
	"github.com/lllypuk/userdir/internal/worker"
	"github.com/lllypuk/userdir/web"
)

// Container initialization timeouts.
const (
	redisPingTimeout = 5 * time.Second
)

// WebSocket client configuration constants.
const (
	defaultWSWriteWait      = 10 * time.Second
	defaultWSMaxMessageSize = 4096
)

// Container holds all application dependencies and manages their lifecycle.
// It implements httpserver.HealthChecker for unified health endpoint support.
type Container struct {
	// Configuration
	Config *config.Config
	Logger *slog.Logger

	// Metrics
	Registry *prometheus.Registry

	// Infrastructure
	Upstream       *upstream.Client
	Redis          *redis.Client
	RateLimitStore middleware.RateLimitStore
	Hub            *websocket.Hub
	Broadcaster    *websocket.Broadcaster

	// Services
	Directory       *service.Directory
	Sessions        *service.SessionStore
	UserListService *service.UserListService
	RefreshWorker   *worker.RefreshWorker

	// HTTP Handlers
	UserHandler *httphandler.UserHandler
	WSHandler   *wshandler.Handler

	// Template Rendering
	TemplateRenderer *httphandler.TemplateRenderer
	TemplateHandler  *httphandler.TemplateHandler
}

// Ensure Container implements httpserver.HealthChecker.
var _ httpserver.HealthChecker = (*Container)(nil)

// ContainerOption configures the Container.
type ContainerOption func(*Container)

// WithLogger sets a custom logger for the container.
func WithLogger(logger *slog.Logger) ContainerOption {
	return func(c *Container) {
		c.Logger = logger
	}
}

// NewContainer creates a new dependency injection container.
func NewContainer(cfg *config.Config, opts ...ContainerOption) (*Container, error) {
	c := &Container{
		Config: cfg,
		Logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.setupMetrics()

	if err := c.setupInfrastructure(); err != nil {
		// Clean up any partially initialized resources
		_ = c.Close()
		return nil, fmt.Errorf("failed to setup infrastructure: %w", err)
	}

	c.setupServices()

	if err := c.setupTemplateRenderer(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to setup template renderer: %w", err)
	}

	c.setupHTTPHandlers()

	if err := c.validateWiring(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("wiring validation failed: %w", err)
	}

	return c, nil
}

// validateWiring ensures all required dependencies are properly initialized.
func (c *Container) validateWiring() error {
	var errs []error

	if c.Upstream == nil {
		errs = append(errs, errors.New("upstream client not initialized"))
	}
	if c.Hub == nil {
		errs = append(errs, errors.New("websocket hub not initialized"))
	}
	if c.Directory == nil || c.UserListService == nil {
		errs = append(errs, errors.New("directory services not initialized"))
	}
	if c.UserHandler == nil || c.TemplateHandler == nil || c.WSHandler == nil {
		errs = append(errs, errors.New("http handlers not initialized"))
	}
	if c.Config.Redis.Enabled && c.Redis == nil {
		errs = append(errs, errors.New("redis is enabled but the client is not initialized"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

func (c *Container) setupMetrics() {
	c.Registry = prometheus.NewRegistry()
	c.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// setupInfrastructure initializes the upstream client, Redis and the hub.
func (c *Container) setupInfrastructure() error {
	if err := c.setupUpstream(); err != nil {
		return fmt.Errorf("upstream: %w", err)
	}

	if c.Config.Redis.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		defer cancel()

		if err := c.setupRedis(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	c.setupRateLimitStore()

	c.Hub = websocket.NewHub(websocket.WithHubLogger(c.Logger))
	c.Logger.Debug("websocket hub initialized")

	return nil
}

func (c *Container) setupUpstream() error {
	httpClient := &http.Client{
		Timeout: c.Config.Upstream.Timeout,
	}

	client, err := upstream.NewClient(upstream.Config{
		BaseURL:    c.Config.Upstream.BaseURL,
		HTTPClient: httpClient,
		UserAgent:  c.Config.Upstream.UserAgent,
		Metrics:    metrics.NewUpstreamMetrics(c.Registry),
	})
	if err != nil {
		return err
	}

	c.Upstream = client
	c.Logger.Info("upstream configured",
		slog.String("base_url", c.Config.Upstream.BaseURL),
		slog.Duration("timeout", c.Config.Upstream.Timeout),
	)
	return nil
}

// setupRedis initializes the Redis client.
func (c *Container) setupRedis(ctx context.Context) error {
	c.Redis = redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Addr,
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
		PoolSize: c.Config.Redis.PoolSize,
	})

	if pingErr := c.Redis.Ping(ctx).Err(); pingErr != nil {
		return fmt.Errorf("failed to ping: %w", pingErr)
	}

	c.Logger.InfoContext(ctx, "connected to Redis",
		slog.String("addr", c.Config.Redis.Addr),
	)

	return nil
}

// setupRateLimitStore shares counters through Redis when it is available
// and keeps them in process otherwise.
func (c *Container) setupRateLimitStore() {
	if !c.Config.RateLimit.Enabled {
		return
	}

	if c.Redis != nil {
		c.RateLimitStore = ratelimit.NewRedisStore(c.Redis, ratelimit.DefaultKeyPrefix)
		c.Logger.Debug("rate limit counters stored in redis")
		return
	}

	c.RateLimitStore = middleware.NewMemoryRateLimitStore()
	c.Logger.Debug("rate limit counters stored in memory")
}

func (c *Container) setupServices() {
	c.Directory = service.NewDirectory(
		c.Upstream,
		service.WithDirectoryLogger(c.Logger),
		service.WithDirectoryMetrics(metrics.NewDirectoryMetrics(c.Registry)),
	)

	c.Sessions = service.NewSessionStore(c.Config.Session.IdleTimeout)

	c.UserListService = service.NewUserListService(c.Directory, c.Sessions, listing.Options{
		PageSize:        c.Config.Listing.PageSize,
		MaxVisiblePages: c.Config.Listing.MaxVisiblePages,
	})

	c.Broadcaster = websocket.NewBroadcaster(
		c.Hub,
		c.Directory,
		websocket.WithBroadcasterLogger(c.Logger),
	)

	c.RefreshWorker = worker.NewRefreshWorker(c.Directory, c.Logger, worker.RefreshConfig{
		Interval: c.Config.Refresh.Interval,
	})
}

func (c *Container) setupTemplateRenderer() error {
	renderer, err := httphandler.NewTemplateRenderer(httphandler.TemplateRendererConfig{
		FS:      web.TemplatesFS,
		Logger:  c.Logger,
		DevMode: c.Config.App.Mode == config.AppModeDevelopment,
	})
	if err != nil {
		return fmt.Errorf("failed to create template renderer: %w", err)
	}

	c.TemplateRenderer = renderer
	c.TemplateHandler = httphandler.NewTemplateHandler(renderer, c.UserListService, c.Logger)

	c.Logger.Debug("template renderer initialized",
		slog.Bool("dev_mode", c.Config.App.Mode == config.AppModeDevelopment),
	)

	return nil
}

func (c *Container) setupHTTPHandlers() {
	c.UserHandler = httphandler.NewUserHandler(c.UserListService)

	wsCfg := c.Config.WebSocket
	c.WSHandler = wshandler.NewHandler(c.Hub, wshandler.WithHandlerConfig(wshandler.HandlerConfig{
		ReadBufferSize:  wsCfg.ReadBufferSize,
		WriteBufferSize: wsCfg.WriteBufferSize,
		Logger:          c.Logger,
		ClientConfig: websocket.ClientConfig{
			ReadBufferSize:  wsCfg.ReadBufferSize,
			WriteBufferSize: wsCfg.WriteBufferSize,
			PingInterval:    wsCfg.PingInterval,
			PongWait:        wsCfg.PongTimeout,
			WriteWait:       defaultWSWriteWait,
			MaxMessageSize:  defaultWSMaxMessageSize,
		},
	}))
}

// StartHub starts the WebSocket hub and subscribes the broadcaster to
// directory loads. This should be called before the first load.
func (c *Container) StartHub(ctx context.Context) {
	go c.Hub.Run(ctx)
	c.Broadcaster.Start(ctx)
}

// StartWorkers starts the refresh worker, which performs the initial load,
// and the idle session sweeper.
func (c *Container) StartWorkers(ctx context.Context) {
	go func() {
		if err := c.RefreshWorker.Run(ctx); err != nil {
			c.Logger.ErrorContext(ctx, "refresh worker stopped", slog.String("error", err.Error()))
		}
	}()

	go c.Sessions.Run(ctx, c.Logger)

	c.Logger.InfoContext(ctx, "background workers started",
		slog.Duration("refresh_interval", c.Config.Refresh.Interval),
		slog.Duration("session_idle_timeout", c.Config.Session.IdleTimeout),
	)
}

// Close releases all resources held by the container.
func (c *Container) Close() error {
	c.Logger.Info("closing container resources...")

	var errs []error

	if c.Directory != nil {
		c.Directory.Close()
	}

	if c.Hub != nil {
		c.Hub.Stop()
		c.Logger.Debug("websocket hub stopped")
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		} else {
			c.Logger.Debug("redis connection closed")
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	c.Logger.Info("all container resources closed")
	return nil
}

// IsReady implements httpserver.HealthChecker. The service is ready once
// the directory has loaded at least once and Redis, if used, answers.
func (c *Container) IsReady(ctx context.Context) bool {
	if c.Directory == nil || !c.Directory.Ready() {
		return false
	}

	if c.Redis != nil {
		if err := c.Redis.Ping(ctx).Err(); err != nil {
			c.Logger.WarnContext(ctx, "redis health check failed", slog.String("error", err.Error()))
			return false
		}
	}

	if c.Hub == nil || !c.Hub.IsRunning() {
		c.Logger.WarnContext(ctx, "websocket hub is not running")
		return false
	}

	return true
}

// GetHealthStatus implements httpserver.HealthChecker.
func (c *Container) GetHealthStatus(ctx context.Context) []httpserver.ComponentStatus {
	statuses := []httpserver.ComponentStatus{c.directoryStatus()}

	if c.Config.Redis.Enabled {
		redisStatus := httpserver.ComponentStatus{Name: "redis", Status: httpserver.StatusHealthy}
		if c.Redis == nil {
			redisStatus.Status = httpserver.StatusUnhealthy
			redisStatus.Message = "client not initialized"
		} else if err := c.Redis.Ping(ctx).Err(); err != nil {
			redisStatus.Status = httpserver.StatusUnhealthy
			redisStatus.Message = err.Error()
		}
		statuses = append(statuses, redisStatus)
	}

	hubStatus := httpserver.ComponentStatus{Name: "websocket_hub", Status: httpserver.StatusHealthy}
	if c.Hub == nil {
		hubStatus.Status = httpserver.StatusUnhealthy
		hubStatus.Message = "hub not initialized"
	} else if !c.Hub.IsRunning() {
		hubStatus.Status = httpserver.StatusDegraded
		hubStatus.Message = "hub not running"
	}
	statuses = append(statuses, hubStatus)

	return statuses
}

// directoryStatus is degraded while loading or after a failed load: the
// pages still serve and offer a retry.
func (c *Container) directoryStatus() httpserver.ComponentStatus {
	status := httpserver.ComponentStatus{Name: "directory", Status: httpserver.StatusHealthy}
	if c.Directory == nil {
		status.Status = httpserver.StatusUnhealthy
		status.Message = "directory not initialized"
		return status
	}

	snap := c.Directory.Snapshot()
	switch {
	case snap.Loading:
		status.Status = httpserver.StatusDegraded
		status.Message = "loading"
	case snap.Err != nil:
		status.Status = httpserver.StatusDegraded
		status.Message = snap.Err.Error()
	default:
		status.Message = fmt.Sprintf("%d users", len(snap.Users))
	}
	return status
}
