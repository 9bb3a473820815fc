package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/taskd/internal/activation"
	"github.com/fyrsmithlabs/taskd/internal/config"
	"github.com/fyrsmithlabs/taskd/internal/execstate"
	"github.com/fyrsmithlabs/taskd/internal/logging"
	"github.com/fyrsmithlabs/taskd/internal/tasks"
	"github.com/fyrsmithlabs/taskd/internal/telemetry"
	"github.com/fyrsmithlabs/taskd/internal/worktree"
)

// app holds the wired services for one command invocation.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	telemetry *telemetry.Telemetry
	tasks     *tasks.FileStore
	state     *execstate.FileStore
	orch      *activation.Orchestrator
	worktrees *worktree.Manager
}

// newApp loads configuration and builds every service. Logs go to logOut.
func newApp(ctx context.Context, opts *rootOptions, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(config.Options{
		Workspace:  opts.workspace,
		ConfigFile: opts.configFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.NewLoggerWithWriter(&cfg.Logging, zapcore.AddSync(logOut))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	tel, err := telemetry.New(ctx, &cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	taskStore, err := tasks.NewFileStore(cfg.Tasks.File)
	if err != nil {
		return nil, err
	}
	stateStore, err := execstate.NewFileStore(cfg.State.File)
	if err != nil {
		return nil, err
	}

	manager := worktree.NewManager(worktree.Config{
		GitBinary: cfg.Git.Binary,
		Timeout:   cfg.Git.Timeout.Duration(),
		Root:      cfg.Worktree.Root,
	}, worktree.WithLogger(logger.Underlying().Named("worktree")))

	orch, err := activation.New(taskStore, stateStore, activation.Config{
		WorktreeEnabled: cfg.Worktree.Enabled,
		RepoRoot:        cfg.Worktree.Repo,
		Worktrees:       manager,
	}, logger.Named("activation"))
	if err != nil {
		return nil, err
	}

	logger.Debug(ctx, "taskd configured",
		zap.String("workspace", cfg.Workspace),
		zap.String("tasks_file", cfg.Tasks.File),
		zap.String("state_file", cfg.State.File),
		zap.Bool("worktree_enabled", cfg.Worktree.Enabled),
		zap.Bool("telemetry_enabled", tel.IsEnabled()))

	return &app{
		cfg:       cfg,
		logger:    logger,
		telemetry: tel,
		tasks:     taskStore,
		state:     stateStore,
		orch:      orch,
		worktrees: manager,
	}, nil
}

// Close flushes telemetry and logs.
func (a *app) Close(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Telemetry.Shutdown.Timeout)
	defer cancel()
	if err := a.telemetry.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn(ctx, "telemetry shutdown failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// withApp builds the app for cmd, runs fn, and closes the app.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close(ctx)
	return fn(ctx, a)
}

// errReported marks a failure already written to stdout as JSON.
var errReported = errors.New("command failed")

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
