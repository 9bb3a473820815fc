package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/taskd/internal/activation"
	"github.com/fyrsmithlabs/taskd/internal/execstate"
	"github.com/fyrsmithlabs/taskd/internal/logging"
	"github.com/fyrsmithlabs/taskd/internal/telemetry"
	"github.com/fyrsmithlabs/taskd/internal/worktree"
)

// Activator starts work on tasks and reports the active one.
type Activator interface {
	Activate(ctx context.Context, rawTaskID any) (*activation.Result, error)
	State(ctx context.Context) (*execstate.State, error)
}

// Worktrees checks and removes git worktrees.
type Worktrees interface {
	IsSafeToRemove(ctx context.Context, worktreePath string) worktree.Verdict
	Cleanup(ctx context.Context, repoRoot, worktreePath string) worktree.CleanupResult
}

// Server provides the taskd HTTP API.
type Server struct {
	echo      *echo.Echo
	activator Activator
	worktrees Worktrees
	telemetry *telemetry.Telemetry
	metrics   *Metrics
	logger    *logging.Logger
	config    *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// Registry receives the API collectors and backs /metrics. Nil creates
	// a private registry.
	Registry *prometheus.Registry

	// Telemetry is reported by /health. Nil reports healthy.
	Telemetry *telemetry.Telemetry
}

// NewServer creates a new HTTP server.
func NewServer(activator Activator, worktrees Worktrees, logger *logging.Logger, cfg *Config) (*Server, error) {
	if activator == nil {
		return nil, errors.New("activator is required")
	}
	if worktrees == nil {
		return nil, errors.New("worktree manager is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9191,
		}
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	metrics, err := NewMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:      e,
		activator: activator,
		worktrees: worktrees,
		telemetry: cfg.Telemetry,
		metrics:   metrics,
		logger:    logger.Named("http"),
		config:    cfg,
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			c.SetRequest(req.WithContext(logging.WithRequestID(req.Context(), id)))
		},
	}))
	e.Use(metrics.Middleware())
	e.Use(s.requestLogger())

	s.registerRoutes(registry)
	return s, nil
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}

			s.logger.Info(c.Request().Context(), "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return nil
		}
	}
}

func (s *Server) registerRoutes(registry *prometheus.Registry) {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/work-on", s.handleWorkOn)
	v1.GET("/execution-state", s.handleExecutionState)
	v1.POST("/worktrees/safety", s.handleWorktreeSafety)
	v1.POST("/worktrees/cleanup", s.handleWorktreeCleanup)
}

// Handler exposes the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until Shutdown. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
