// Taskd starts work on tracked tasks and tears down their git worktrees.
//
// Usage:
//
//	# Serve MCP on stdio for an agent
//	taskd serve
//
//	# Serve the HTTP API
//	taskd http
//
//	# Start task 42 from a shell
//	taskd work-on 42
//
//	# Remove a finished worktree if nothing would be lost
//	taskd worktree cleanup . .worktrees/task-42
//
// Configuration is read from <workspace>/.taskd/config.yaml and TASKD_*
// environment variables. Results go to stdout as JSON; logs go to stderr.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configFile string
	workspace  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "taskd",
		Short: "Task activation and worktree lifecycle for agent workflows",
		Long: `taskd records which task is being worked on, reports whether its blockers
are finished, and removes a task's git worktree once nothing would be lost.

It serves agents over MCP (taskd serve), tooling over HTTP (taskd http), and
operators directly through the subcommands below.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(fmt.Sprintf("taskd %s (commit %s, built %s)\n", version, gitCommit, buildDate))

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default <workspace>/.taskd/config.yaml)")
	root.PersistentFlags().StringVar(&opts.workspace, "workspace", "", "workspace directory (default $TASKD_WORKSPACE or the current directory)")

	root.AddCommand(
		newServeCmd(opts),
		newHTTPCmd(opts),
		newWorkOnCmd(opts),
		newStateCmd(opts),
		newWorktreeCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "taskd by Fyrsmith Labs\n")
			fmt.Fprintf(out, "Version:    %s\n", version)
			fmt.Fprintf(out, "Commit:     %s\n", gitCommit)
			fmt.Fprintf(out, "Build Date: %s\n", buildDate)
		},
	}
}
