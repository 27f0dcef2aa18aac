// Package server provides the HTTP API of the wallet bridge.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"cosmossdk.io/log"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sonr-io/passkey/bridge/handlers"
)

const (
	DefaultHTTPAddr = ":8080"
)

// Config holds server configuration
type Config struct {
	HTTPAddr string
	// HealthInterval is the period of background dependency checks.
	HealthInterval time.Duration
}

// Dependencies are the collaborators the routes call into.
type Dependencies struct {
	Queue   handlers.Enqueuer
	Relay   handlers.RelayProbe
	Bundles handlers.BundleSource
	Logger  log.Logger
}

// Server represents the HTTP server
type Server struct {
	config   *Config
	echo     *echo.Echo
	health   *handlers.HealthChecker
	accounts *handlers.AccountHandlers
	bundles  *handlers.BundleHandlers
	logger   log.Logger
}

// NewServer creates a server with its middleware and routes installed.
func NewServer(config *Config, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	logger = logger.With(log.ModuleKey, "server")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		config:   config,
		echo:     e,
		health:   handlers.NewHealthChecker(deps.Queue, deps.Relay),
		accounts: handlers.NewAccountHandlers(deps.Queue, logger),
		bundles:  handlers.NewBundleHandlers(deps.Bundles),
		logger:   logger,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Echo returns the underlying Echo instance for testing
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Health returns the dependency checker behind /health and /ready.
func (s *Server) Health() *handlers.HealthChecker {
	return s.health
}

// Start serves until Shutdown is called. Dependency checks run until ctx is
// done.
func (s *Server) Start(ctx context.Context) error {
	interval := s.config.HealthInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go s.health.Run(ctx, interval)

	addr := s.config.HTTPAddr
	if addr == "" {
		addr = DefaultHTTPAddr
	}
	s.logger.Info("starting HTTP server", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// setupMiddleware configures Echo middleware
func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURIPath: true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Warn("request", "method", v.Method, "path", v.URIPath, "status", v.Status, "latency", v.Latency, "error", v.Error)
				return nil
			}
			s.logger.Debug("request", "method", v.Method, "path", v.URIPath, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORS())
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.health.HealthCheckHandler) // Liveness probe
	s.echo.GET("/ready", s.health.ReadinessHandler)    // Readiness probe

	s.echo.POST("/accounts/:tag/upgrade-retry", s.accounts.UpgradeRetryHandler)
	s.echo.GET("/bundles/:id", s.bundles.StatusHandler)
}
