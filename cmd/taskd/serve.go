package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpserver "github.com/fyrsmithlabs/taskd/internal/http"
	"github.com/fyrsmithlabs/taskd/internal/mcp"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP tools on stdio",
		Long: `Serve work_on, safe_to_remove_worktree, cleanup_worktree_after_completion and
get_execution_state over the MCP stdio transport. stdout carries the protocol;
logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)

			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				srv, err := mcp.NewServer(&mcp.Config{
					Name:    "taskd",
					Version: version,
					Logger:  a.logger,
					Meter:   a.telemetry.Meter("github.com/fyrsmithlabs/taskd/internal/mcp"),
				}, a.orch, a.worktrees)
				if err != nil {
					return fmt.Errorf("failed to create MCP server: %w", err)
				}
				if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			})
		},
	}
}

func newHTTPCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "http",
		Short: "Serve the HTTP API",
		Long: `Serve the HTTP API on http.host:http.port until interrupted.

Routes:
  GET  /health
  GET  /metrics
  POST /api/v1/work-on
  GET  /api/v1/execution-state
  POST /api/v1/worktrees/safety
  POST /api/v1/worktrees/cleanup`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)

			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				srv, err := httpserver.NewServer(a.orch, a.worktrees, a.logger, &httpserver.Config{
					Host:      a.cfg.HTTP.Host,
					Port:      a.cfg.HTTP.Port,
					Telemetry: a.telemetry,
				})
				if err != nil {
					return fmt.Errorf("failed to create HTTP server: %w", err)
				}
				return runHTTP(ctx, a, srv)
			})
		},
	}
}

// runHTTP serves until ctx is done, then shuts down within the configured
// timeout.
func runHTTP(ctx context.Context, a *app, srv *httpserver.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info(ctx, "received shutdown signal", zap.Duration("shutdown_timeout", a.cfg.HTTP.ShutdownTimeout.Duration()))
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.HTTP.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return <-errCh
}
