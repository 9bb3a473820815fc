package worktree

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/taskd/internal/worktree"

// CleanupResult is the outcome of a cleanup request. Exactly one of
// Message and Error is set.
type CleanupResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`

	refused bool
}

// RefusedCleanup is the result of a removal declined by the safety check.
func RefusedCleanup(reason string) CleanupResult {
	return CleanupResult{Error: "Cannot remove worktree: " + reason, refused: true}
}

// Refused reports whether the safety check declined the removal, as opposed
// to git failing to remove a worktree judged safe.
func (r CleanupResult) Refused() bool {
	return r.refused
}

// AddSpec describes a worktree to create.
type AddSpec struct {
	// Name is the directory name under the worktree root.
	Name string

	// Branch is checked out in the new worktree.
	Branch string

	// BaseBranch is the start point when Branch does not exist yet.
	// Defaults to HEAD of the main worktree.
	BaseBranch string
}

// AddResult describes a created (or reused) worktree.
type AddResult struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Branch string `json:"branch"`
	Reused bool   `json:"reused"`
}

// Manager creates and removes worktrees.
type Manager struct {
	cfg     Config
	git     gitRunner
	checker SafetyChecker
	logger  *zap.Logger
	tracer  trace.Tracer
}

// Option configures a Manager.
type Option func(*Manager)

// WithSafetyChecker replaces the default checker.
func WithSafetyChecker(c SafetyChecker) Option {
	return func(m *Manager) {
		m.checker = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a Manager.
func NewManager(cfg Config, opts ...Option) *Manager {
	cfg = cfg.withDefaults()
	m := &Manager{
		cfg:    cfg,
		git:    gitRunner{binary: cfg.GitBinary, timeout: cfg.Timeout},
		logger: zap.NewNop(),
		tracer: otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.checker == nil {
		m.checker = NewChecker(cfg)
	}
	return m
}

// IsSafeToRemove delegates to the configured checker.
func (m *Manager) IsSafeToRemove(ctx context.Context, worktreePath string) Verdict {
	return m.checker.IsSafeToRemove(ctx, worktreePath)
}

// Cleanup removes the worktree at worktreePath if and only if it is safe.
// Relative worktree paths are resolved against repoRoot. The removal is never
// forced; if git refuses, its error text is returned.
func (m *Manager) Cleanup(ctx context.Context, repoRoot, worktreePath string) CleanupResult {
	ctx, span := m.tracer.Start(ctx, "worktree.Cleanup",
		trace.WithAttributes(attribute.String("worktree.path", worktreePath)))
	defer span.End()

	if strings.TrimSpace(repoRoot) == "" {
		return m.failed(span, "repository root is required")
	}
	if strings.TrimSpace(worktreePath) == "" {
		return m.failed(span, "worktree path is required")
	}
	if !filepath.IsAbs(worktreePath) {
		worktreePath = filepath.Join(repoRoot, worktreePath)
	}

	verdict := m.checker.IsSafeToRemove(ctx, worktreePath)
	span.SetAttributes(attribute.Bool("worktree.safe", verdict.Safe))
	if !verdict.Safe {
		m.logger.Info("worktree not removed",
			zap.String("worktree", worktreePath),
			zap.String("reason", verdict.Reason))
		res := RefusedCleanup(verdict.Reason)
		span.SetStatus(codes.Error, res.Error)
		return res
	}

	if _, err := m.git.run(ctx, repoRoot, "worktree", "remove", worktreePath); err != nil {
		m.logger.Warn("git worktree remove failed",
			zap.String("worktree", worktreePath),
			zap.Error(err))
		return m.failed(span, toolMessage(err))
	}

	m.logger.Info("worktree removed", zap.String("worktree", worktreePath))
	span.SetStatus(codes.Ok, "")
	return CleanupResult{Success: true, Message: worktreePath + " removed"}
}

func (m *Manager) failed(span trace.Span, msg string) CleanupResult {
	span.SetStatus(codes.Error, msg)
	return CleanupResult{Success: false, Error: msg}
}

// Add creates a worktree for spec.Branch under <repoRoot>/<Root>/<Name>.
// The branch is created from BaseBranch when it does not exist. An existing
// worktree at the target path on the same branch is reused.
func (m *Manager) Add(ctx context.Context, repoRoot string, spec AddSpec) (AddResult, error) {
	ctx, span := m.tracer.Start(ctx, "worktree.Add",
		trace.WithAttributes(attribute.String("worktree.name", spec.Name)))
	defer span.End()

	res, err := m.add(ctx, repoRoot, spec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return AddResult{}, err
	}
	return res, nil
}

func (m *Manager) add(ctx context.Context, repoRoot string, spec AddSpec) (AddResult, error) {
	if strings.TrimSpace(repoRoot) == "" {
		return AddResult{}, errors.New("repository root is required")
	}
	if err := validateName(spec.Name); err != nil {
		return AddResult{}, err
	}
	branch := strings.TrimSpace(spec.Branch)
	if branch == "" {
		branch = spec.Name
	}

	path := filepath.Join(repoRoot, m.cfg.Root, spec.Name)
	res := AddResult{Name: spec.Name, Path: path, Branch: branch}

	if _, err := os.Stat(path); err == nil {
		current, err := m.git.run(ctx, path, "rev-parse", "--abbrev-ref", "HEAD")
		if err != nil {
			return AddResult{}, fmt.Errorf("inspect existing worktree %s: %w", path, err)
		}
		if got := strings.TrimSpace(current); got != branch {
			return AddResult{}, fmt.Errorf("worktree %s exists on branch %q, want %q", path, got, branch)
		}
		res.Reused = true
		return res, nil
	} else if !os.IsNotExist(err) {
		return AddResult{}, fmt.Errorf("stat worktree path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return AddResult{}, fmt.Errorf("create worktree root: %w", err)
	}

	exists, err := m.branchExists(ctx, repoRoot, branch)
	if err != nil {
		return AddResult{}, err
	}
	args := []string{"worktree", "add"}
	if exists {
		args = append(args, path, branch)
	} else {
		base := strings.TrimSpace(spec.BaseBranch)
		if base == "" {
			base = "HEAD"
		}
		args = append(args, "-b", branch, path, base)
	}
	if _, err := m.git.run(ctx, repoRoot, args...); err != nil {
		return AddResult{}, fmt.Errorf("add worktree %s: %w", spec.Name, err)
	}

	m.logger.Info("worktree added",
		zap.String("worktree", path),
		zap.String("branch", branch),
		zap.Bool("new_branch", !exists))
	return res, nil
}

func (m *Manager) branchExists(ctx context.Context, repoRoot, branch string) (bool, error) {
	_, err := m.git.run(ctx, repoRoot, "show-ref", "--verify", "--quiet", "refs/heads/"+branch)
	if err == nil {
		return true, nil
	}
	if isExitStatus(err, 1) {
		return false, nil
	}
	return false, fmt.Errorf("check branch %s: %w", branch, err)
}
