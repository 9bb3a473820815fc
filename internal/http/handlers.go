package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/taskd/internal/activation"
	"github.com/fyrsmithlabs/taskd/internal/execstate"
	"github.com/fyrsmithlabs/taskd/internal/telemetry"
)

// Error codes that do not come from activation.
const (
	CodeInvalidRequest = "invalid_request"
	CodeNoActiveTask   = "no_active_task"
	CodeWorktreeUnsafe = "worktree_unsafe"
	CodeRemovalFailed  = "worktree_removal_failed"
	CodeInternal       = "internal_error"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error    string         `json:"error"`
	Code     string         `json:"code"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status    string                  `json:"status"`
	Telemetry *telemetry.HealthStatus `json:"telemetry,omitempty"`
}

// WorkOnRequest is the request body for POST /api/v1/work-on. TaskID keeps
// the decoded JSON value so type errors are reported, not rejected by Bind.
type WorkOnRequest struct {
	TaskID any `json:"task_id"`
}

// SafetyRequest is the request body for POST /api/v1/worktrees/safety.
type SafetyRequest struct {
	WorktreePath string `json:"worktree_path"`
}

// CleanupRequest is the request body for POST /api/v1/worktrees/cleanup.
type CleanupRequest struct {
	RepoRoot     string `json:"repo_root"`
	WorktreePath string `json:"worktree_path"`
}

func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{Status: "ok"}
	if s.telemetry != nil {
		health := s.telemetry.Health()
		resp.Telemetry = &health
		if health.Degraded {
			resp.Status = "degraded"
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleWorkOn(c echo.Context) error {
	ctx := c.Request().Context()

	var req WorkOnRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(ctx, "invalid work-on request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: CodeInvalidRequest})
	}

	res, err := s.activator.Activate(ctx, req.TaskID)
	if err != nil {
		if verr, ok := activation.AsValidationError(err); ok {
			s.metrics.observeActivation("rejected")
			status := http.StatusBadRequest
			if verr.Code == activation.CodeTaskNotFound {
				status = http.StatusNotFound
			}
			return c.JSON(status, ErrorResponse{Error: verr.Message, Code: string(verr.Code), Metadata: verr.Metadata})
		}
		s.metrics.observeActivation("failed")
		return s.internalError(c, "work-on failed", err)
	}

	if res.IsBlocked {
		s.metrics.observeActivation("activated_blocked")
	} else {
		s.metrics.observeActivation("activated")
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleExecutionState(c echo.Context) error {
	st, err := s.activator.State(c.Request().Context())
	if errors.Is(err, execstate.ErrNoState) {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "No task is currently active", Code: CodeNoActiveTask})
	}
	if err != nil {
		return s.internalError(c, "read execution state failed", err)
	}
	return c.JSON(http.StatusOK, st)
}

func (s *Server) handleWorktreeSafety(c echo.Context) error {
	var req SafetyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: CodeInvalidRequest})
	}
	return c.JSON(http.StatusOK, s.worktrees.IsSafeToRemove(c.Request().Context(), req.WorktreePath))
}

func (s *Server) handleWorktreeCleanup(c echo.Context) error {
	var req CleanupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: CodeInvalidRequest})
	}
	if strings.TrimSpace(req.RepoRoot) == "" || strings.TrimSpace(req.WorktreePath) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "repo_root and worktree_path are required",
			Code:  string(activation.CodeMissingParameter),
		})
	}

	res := s.worktrees.Cleanup(c.Request().Context(), req.RepoRoot, req.WorktreePath)
	if res.Success {
		s.metrics.observeCleanup("removed")
		return c.JSON(http.StatusOK, res)
	}

	code := CodeRemovalFailed
	if res.Refused() {
		code = CodeWorktreeUnsafe
	}
	s.metrics.observeCleanup(code)
	return c.JSON(http.StatusConflict, ErrorResponse{
		Error: res.Error,
		Code:  code,
		Metadata: map[string]any{
			"repo-root":     req.RepoRoot,
			"worktree-path": req.WorktreePath,
		},
	})
}

func (s *Server) internalError(c echo.Context, msg string, err error) error {
	s.logger.Error(c.Request().Context(), msg, zap.Error(err))
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: CodeInternal})
}
