package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/metric"

	"github.com/fyrsmithlabs/taskd/internal/activation"
	"github.com/fyrsmithlabs/taskd/internal/execstate"
	"github.com/fyrsmithlabs/taskd/internal/logging"
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

// Server is the taskd MCP server.
type Server struct {
	mcp       *mcp.Server
	activator Activator
	worktrees Worktrees
	metrics   *Metrics
	logger    *logging.Logger
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "taskd")
	Name string

	// Version is the server version (default: "dev")
	Version string

	// Logger for structured logging
	Logger *logging.Logger

	// Meter records tool metrics. Nil uses the global meter provider.
	Meter metric.Meter
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "taskd",
		Version: "dev",
		Logger:  logging.NewNop(),
	}
}

// NewServer creates an MCP server and registers its tools.
func NewServer(cfg *Config, activator Activator, worktrees Worktrees) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if activator == nil {
		return nil, errors.New("activator is required")
	}
	if worktrees == nil {
		return nil, errors.New("worktree manager is required")
	}
	name, version := cfg.Name, cfg.Version
	if name == "" {
		name = "taskd"
	}
	if version == "" {
		version = "dev"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.Named("mcp")

	s := &Server{
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    name,
			Version: version,
		}, nil),
		activator: activator,
		worktrees: worktrees,
		metrics:   NewMetrics(cfg.Meter, logger.Underlying()),
		logger:    logger,
	}
	s.registerTools()
	return s, nil
}

// Run serves on the stdio transport until ctx is done or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info(ctx, "starting MCP server on stdio transport")
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}
