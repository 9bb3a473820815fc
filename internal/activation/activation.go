// Package activation starts work on a task: it validates the requested id,
// resolves whether the task is blocked, and records it as the active task.
package activation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/taskd/internal/blocking"
	"github.com/fyrsmithlabs/taskd/internal/execstate"
	"github.com/fyrsmithlabs/taskd/internal/logging"
	"github.com/fyrsmithlabs/taskd/internal/tasks"
	"github.com/fyrsmithlabs/taskd/internal/worktree"
)

const instrumentationName = "github.com/fyrsmithlabs/taskd/internal/activation"

// Config controls optional parts of activation.
type Config struct {
	// WorktreeEnabled gives every activated task its own worktree and adds
	// worktree_name to results.
	WorktreeEnabled bool

	// RepoRoot is the repository task worktrees are added to.
	RepoRoot string

	// Worktrees creates task worktrees. Required when WorktreeEnabled is set.
	Worktrees WorktreeAdder
}

// WorktreeAdder creates (or reuses) a worktree in a repository.
type WorktreeAdder interface {
	Add(ctx context.Context, repoRoot string, spec worktree.AddSpec) (worktree.AddResult, error)
}

// TaskWorktree returns the worktree name and branch used for a task.
func TaskWorktree(taskID int) worktree.AddSpec {
	return worktree.AddSpec{
		Name:   "task-" + strconv.Itoa(taskID),
		Branch: "task/" + strconv.Itoa(taskID),
	}
}

// Result describes an activated task.
type Result struct {
	TaskID             int          `json:"task_id"`
	Title              string       `json:"title"`
	Category           string       `json:"category"`
	Type               tasks.Type   `json:"type"`
	Status             tasks.Status `json:"status"`
	IsBlocked          bool         `json:"is_blocked"`
	BlockingTaskIDs    []int        `json:"blocking_task_ids"`
	StoryID            *int         `json:"story_id,omitempty"`
	StartedAt          string       `json:"started_at"`
	ExecutionStateFile string       `json:"execution_state_file"`
	WorktreeName       *string      `json:"worktree_name,omitempty"`
	Message            string       `json:"message"`
}

// Orchestrator activates tasks.
type Orchestrator struct {
	tasks  tasks.Store
	state  execstate.Store
	cfg    Config
	logger *logging.Logger
	tracer trace.Tracer
}

// New creates an Orchestrator. A nil logger discards output.
func New(taskStore tasks.Store, stateStore execstate.Store, cfg Config, logger *logging.Logger) (*Orchestrator, error) {
	if taskStore == nil {
		return nil, errors.New("task store is required")
	}
	if stateStore == nil {
		return nil, errors.New("execution state store is required")
	}
	if cfg.WorktreeEnabled {
		if cfg.Worktrees == nil {
			return nil, errors.New("worktree adder is required when worktrees are enabled")
		}
		if strings.TrimSpace(cfg.RepoRoot) == "" {
			return nil, errors.New("repository root is required when worktrees are enabled")
		}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		tasks:  taskStore,
		state:  stateStore,
		cfg:    cfg,
		logger: logger,
		tracer: otel.Tracer(instrumentationName),
	}, nil
}

// Activate makes the task identified by rawTaskID the active task.
//
// rawTaskID is the caller's value as decoded from JSON. Validation failures
// are returned as *ValidationError and write nothing. On success the
// execution state is overwritten exactly once, whether or not the task is
// blocked.
func (o *Orchestrator) Activate(ctx context.Context, rawTaskID any) (*Result, error) {
	ctx, span := o.tracer.Start(ctx, "activation.Activate")
	defer span.End()

	res, err := o.activate(ctx, rawTaskID)
	if err != nil {
		if verr, ok := AsValidationError(err); ok {
			span.SetAttributes(attribute.String("validation.code", string(verr.Code)))
			span.SetStatus(codes.Error, verr.Message)
			o.logger.Info(ctx, "task activation rejected",
				zap.String("code", string(verr.Code)),
				zap.String("reason", verr.Message))
			return nil, err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.logger.Error(ctx, "task activation failed", zap.Error(err))
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("task.id", res.TaskID),
		attribute.Bool("task.blocked", res.IsBlocked),
	)
	return res, nil
}

func (o *Orchestrator) activate(ctx context.Context, rawTaskID any) (*Result, error) {
	id, verr := parseTaskID(rawTaskID)
	if verr != nil {
		return nil, verr
	}
	ctx = logging.WithTaskID(ctx, id)

	task, err := o.tasks.Get(ctx, id)
	if errors.Is(err, tasks.ErrTaskNotFound) {
		return nil, taskNotFound(id, o.tasks.Location())
	}
	if err != nil {
		return nil, fmt.Errorf("load task %d: %w", id, err)
	}

	all, err := o.tasks.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	blocked := blocking.Resolve(*task, blocking.Index(all))

	var storyID *int
	if task.Parent != nil {
		parent := *task.Parent
		storyID = &parent
	}

	var worktreeName *string
	if o.cfg.WorktreeEnabled {
		wt, err := o.cfg.Worktrees.Add(ctx, o.cfg.RepoRoot, TaskWorktree(task.ID))
		if err != nil {
			return nil, fmt.Errorf("create worktree for task %d: %w", task.ID, err)
		}
		if name := worktree.NameFromPath(wt.Path); name != "" {
			worktreeName = &name
		}
		o.logger.Debug(ctx, "task worktree ready",
			zap.String("worktree", wt.Path),
			zap.String("branch", wt.Branch),
			zap.Bool("reused", wt.Reused))
	}

	st, err := o.state.Overwrite(ctx, task.ID, storyID)
	if err != nil {
		return nil, fmt.Errorf("write execution state: %w", err)
	}

	res := &Result{
		TaskID:             task.ID,
		Title:              task.Title,
		Category:           task.Category,
		Type:               task.Type,
		Status:             task.Status,
		IsBlocked:          blocked.Blocked,
		BlockingTaskIDs:    blocked.BlockingIDs,
		StoryID:            st.StoryID,
		StartedAt:          st.StartedAt,
		ExecutionStateFile: o.state.Location(),
		WorktreeName:       worktreeName,
	}
	res.Message = message(res)

	fields := []zap.Field{
		zap.Bool("blocked", res.IsBlocked),
		zap.String("started_at", res.StartedAt),
	}
	if res.IsBlocked {
		fields = append(fields, zap.Ints("blocking_task_ids", res.BlockingTaskIDs))
		o.logger.Warn(ctx, "activated blocked task", fields...)
	} else {
		o.logger.Info(ctx, "task activated", fields...)
	}
	return res, nil
}

// State returns the current execution state.
func (o *Orchestrator) State(ctx context.Context) (*execstate.State, error) {
	return o.state.Read(ctx)
}

func message(r *Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task %d validated successfully; execution state written to %s", r.TaskID, r.ExecutionStateFile)
	if r.IsBlocked {
		ids := make([]string, len(r.BlockingTaskIDs))
		for i, id := range r.BlockingTaskIDs {
			ids[i] = strconv.Itoa(id)
		}
		fmt.Fprintf(&b, ". Warning: blocked by task(s) %s", strings.Join(ids, ", "))
	}
	return b.String()
}
