package main

import (
	"context"
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/taskd/internal/activation"
	"github.com/fyrsmithlabs/taskd/internal/execstate"
)

func newWorkOnCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "work-on <task-id>",
		Short: "Make a task the active task",
		Long: `Validate a task id, report whether the task is blocked by unfinished tasks,
and record it as the active execution state.

A blocked task is still activated; the result carries is_blocked and the
blocking task ids.

Examples:
  taskd work-on 42
  taskd work-on 42 --workspace ~/src/shop`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				res, err := a.orch.Activate(ctx, taskIDArg(args[0]))
				if err != nil {
					if verr, ok := activation.AsValidationError(err); ok {
						if werr := writeJSON(cmd.OutOrStdout(), verr); werr != nil {
							return werr
						}
						return errReported
					}
					return err
				}
				return writeJSON(cmd.OutOrStdout(), res)
			})
		},
	}
}

// taskIDArg converts a numeric argument to an int. Anything else is passed
// through as a string so activation reports it as an invalid type.
func taskIDArg(arg string) any {
	if id, err := strconv.Atoi(arg); err == nil {
		return id
	}
	return arg
}

func newStateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Show the active task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				st, err := a.orch.State(ctx)
				if errors.Is(err, execstate.ErrNoState) {
					if werr := writeJSON(cmd.OutOrStdout(), map[string]string{
						"error": "No task is currently active",
						"code":  "no_active_task",
					}); werr != nil {
						return werr
					}
					return errReported
				}
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), st)
			})
		},
	}
}
