package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/taskd/internal/worktree"
)

func newWorktreeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worktree",
		Short: "Inspect, remove and create task worktrees",
	}
	cmd.AddCommand(
		newWorktreeCheckCmd(opts),
		newWorktreeCleanupCmd(opts),
		newWorktreeAddCmd(opts),
	)
	return cmd
}

func newWorktreeCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <worktree-path>",
		Short: "Report whether a worktree can be removed without losing work",
		Long: `Report whether a worktree has no uncommitted changes and no commits missing
from its remote. An unsafe verdict exits non-zero.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				verdict := a.worktrees.IsSafeToRemove(ctx, args[0])
				if err := writeJSON(cmd.OutOrStdout(), verdict); err != nil {
					return err
				}
				if !verdict.Safe {
					return errReported
				}
				return nil
			})
		},
	}
}

func newWorktreeCleanupCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup <repo-root> <worktree-path>",
		Short: "Remove a worktree only if it is safe to remove",
		Long: `Remove a finished task's worktree. Removal is refused when the worktree has
uncommitted changes or unpushed commits, and is never forced.

Examples:
  taskd worktree cleanup . .worktrees/task-42
  taskd worktree cleanup ~/src/shop ~/src/shop/.worktrees/task-42`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				res := a.worktrees.Cleanup(ctx, args[0], args[1])
				if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
				if !res.Success {
					return errReported
				}
				return nil
			})
		},
	}
}

func newWorktreeAddCmd(opts *rootOptions) *cobra.Command {
	var (
		repoRoot string
		spec     worktree.AddSpec
	)
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a worktree for a task branch",
		Long: `Create <repo>/<worktree.root>/<name> checked out on --branch (default <name>).
The branch is created from --base when it does not exist. An existing worktree
on the same branch is reused.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec.Name = args[0]
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				root := repoRoot
				if root == "" {
					root = a.cfg.Workspace
				}
				res, err := a.worktrees.Add(ctx, root, spec)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().StringVar(&repoRoot, "repo", "", "repository root (default the workspace)")
	cmd.Flags().StringVar(&spec.Branch, "branch", "", "branch to check out (default the worktree name)")
	cmd.Flags().StringVar(&spec.BaseBranch, "base", "", "start point for a new branch (default HEAD)")
	return cmd
}

