package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/taskd/internal/activation"
	"github.com/fyrsmithlabs/taskd/internal/execstate"
	"github.com/fyrsmithlabs/taskd/internal/logging"
)

const (
	toolWorkOn            = "work_on"
	toolSafeToRemove      = "safe_to_remove_worktree"
	toolCleanupWorktree   = "cleanup_worktree_after_completion"
	toolGetExecutionState = "get_execution_state"
)

// Error codes for tool errors that do not come from activation.
const (
	codeWorktreeUnsafe = "worktree_unsafe"
	codeRemovalFailed  = "worktree_removal_failed"
	codeNoActiveTask   = "no_active_task"
)

// toolError is the body of every IsError result.
type toolError struct {
	Error    string         `json:"error"`
	Code     string         `json:"code"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type workOnInput struct {
	TaskID any `json:"task_id,omitempty" jsonschema:"Numeric id of the task to start"`
}

type safeToRemoveInput struct {
	WorktreePath string `json:"worktree_path,omitempty" jsonschema:"Path of the worktree to inspect"`
}

type cleanupInput struct {
	RepoRoot     string `json:"repo_root,omitempty" jsonschema:"Root of the main repository checkout"`
	WorktreePath string `json:"worktree_path,omitempty" jsonschema:"Worktree to remove; relative paths resolve against repo_root"`
}

type getStateInput struct{}

// toolFunc runs one tool. reason is non-empty when the result is a tool
// error; err is reserved for failures the caller cannot fix.
type toolFunc func(ctx context.Context) (res *mcp.CallToolResult, reason string, err error)

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: toolWorkOn,
		Description: "Start work on a task: validates the id, reports whether open blockers remain, " +
			"and records the task as the active execution state",
	}, s.workOn)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolSafeToRemove,
		Description: "Check whether a git worktree has no uncommitted changes and no unpushed commits",
	}, s.safeToRemove)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolCleanupWorktree,
		Description: "Remove a git worktree after its task is complete, only if it is safe to remove",
	}, s.cleanupWorktree)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolGetExecutionState,
		Description: "Return the currently active task",
	}, s.getExecutionState)
}

func (s *Server) workOn(ctx context.Context, _ *mcp.CallToolRequest, in workOnInput) (*mcp.CallToolResult, any, error) {
	return s.instrument(ctx, toolWorkOn, func(ctx context.Context) (*mcp.CallToolResult, string, error) {
		res, err := s.activator.Activate(ctx, in.TaskID)
		if err != nil {
			if verr, ok := activation.AsValidationError(err); ok {
				return errorResult(toolError{Error: verr.Message, Code: string(verr.Code), Metadata: verr.Metadata}), string(verr.Code), nil
			}
			return nil, categorizeError(err), fmt.Errorf("work_on: %w", err)
		}
		return jsonResult(res)
	})
}

func (s *Server) safeToRemove(ctx context.Context, _ *mcp.CallToolRequest, in safeToRemoveInput) (*mcp.CallToolResult, any, error) {
	return s.instrument(ctx, toolSafeToRemove, func(ctx context.Context) (*mcp.CallToolResult, string, error) {
		return jsonResult(s.worktrees.IsSafeToRemove(ctx, in.WorktreePath))
	})
}

func (s *Server) cleanupWorktree(ctx context.Context, _ *mcp.CallToolRequest, in cleanupInput) (*mcp.CallToolResult, any, error) {
	return s.instrument(ctx, toolCleanupWorktree, func(ctx context.Context) (*mcp.CallToolResult, string, error) {
		res := s.worktrees.Cleanup(ctx, in.RepoRoot, in.WorktreePath)
		if res.Success {
			return jsonResult(res)
		}
		code := codeRemovalFailed
		if res.Refused() {
			code = codeWorktreeUnsafe
		}
		return errorResult(toolError{
			Error: res.Error,
			Code:  code,
			Metadata: map[string]any{
				"repo-root":     in.RepoRoot,
				"worktree-path": in.WorktreePath,
			},
		}), code, nil
	})
}

func (s *Server) getExecutionState(ctx context.Context, _ *mcp.CallToolRequest, _ getStateInput) (*mcp.CallToolResult, any, error) {
	return s.instrument(ctx, toolGetExecutionState, func(ctx context.Context) (*mcp.CallToolResult, string, error) {
		st, err := s.activator.State(ctx)
		if errors.Is(err, execstate.ErrNoState) {
			return errorResult(toolError{Error: "No task is currently active", Code: codeNoActiveTask}), codeNoActiveTask, nil
		}
		if err != nil {
			return nil, categorizeError(err), fmt.Errorf("get_execution_state: %w", err)
		}
		return jsonResult(st)
	})
}

// instrument tags ctx with a fresh request id and records metrics and a log
// line for the call.
func (s *Server) instrument(ctx context.Context, tool string, fn toolFunc) (*mcp.CallToolResult, any, error) {
	ctx = logging.WithRequestID(ctx, uuid.NewString())
	start := time.Now()
	s.metrics.IncrementActive(ctx, tool)

	res, reason, err := fn(ctx)

	elapsed := time.Since(start)
	s.metrics.DecrementActive(ctx, tool)
	s.metrics.RecordInvocation(ctx, tool, elapsed, reason)

	switch {
	case err != nil:
		s.logger.Error(ctx, "tool failed", zap.String("tool", tool), zap.Duration("duration", elapsed), zap.Error(err))
	case reason != "":
		s.logger.Info(ctx, "tool returned error result", zap.String("tool", tool), zap.String("reason", reason))
	default:
		s.logger.Debug(ctx, "tool completed", zap.String("tool", tool), zap.Duration("duration", elapsed))
	}
	return res, nil, err
}

func jsonResult(v any) (*mcp.CallToolResult, string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, "internal_error", fmt.Errorf("encode result: %w", err)
	}
	return &mcp.CallToolResult{
		Content:           []mcp.Content{&mcp.TextContent{Text: string(data)}},
		StructuredContent: v,
	}, "", nil
}

func errorResult(body toolError) *mcp.CallToolResult {
	// toolError always marshals.
	data, _ := json.Marshal(body)
	return &mcp.CallToolResult{
		IsError:           true,
		Content:           []mcp.Content{&mcp.TextContent{Text: string(data)}},
		StructuredContent: body,
	}
}
