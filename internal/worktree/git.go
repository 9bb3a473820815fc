package worktree

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Config configures git invocation and worktree placement.
type Config struct {
	// GitBinary is the git executable (default: "git").
	GitBinary string

	// Timeout bounds every git subprocess (default: 30s).
	Timeout time.Duration

	// Root is the directory, relative to the repository root, that Add
	// creates worktrees under (default: ".worktrees").
	Root string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		GitBinary: "git",
		Timeout:   30 * time.Second,
		Root:      ".worktrees",
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if strings.TrimSpace(c.GitBinary) == "" {
		c.GitBinary = def.GitBinary
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if strings.TrimSpace(c.Root) == "" {
		c.Root = def.Root
	}
	return c
}

// GitError is a failed git invocation with the tool's own error text.
type GitError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *GitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
	}
	return fmt.Sprintf("git %s: %v: %s", strings.Join(e.Args, " "), e.Err, e.Stderr)
}

func (e *GitError) Unwrap() error {
	return e.Err
}

// toolMessage returns the text git printed for err, falling back to err itself.
func toolMessage(err error) string {
	var gitErr *GitError
	if errors.As(err, &gitErr) && gitErr.Stderr != "" {
		return gitErr.Stderr
	}
	return err.Error()
}

// gitRunner executes git with a per-call timeout.
type gitRunner struct {
	binary  string
	timeout time.Duration
}

// run executes git in dir and returns stdout.
func (g gitRunner) run(ctx context.Context, dir string, args ...string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", errors.New("git directory is required")
	}
	if len(args) == 0 {
		return "", errors.New("git arguments are required")
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, g.binary, args...)
	cmd.Dir = dir
	// Never block on credential prompts; keep output parseable.
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "LC_ALL=C")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", &GitError{Args: args, Err: fmt.Errorf("timed out after %v", g.timeout)}
		}
		return "", &GitError{Args: args, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return stdout.String(), nil
}

// isExitStatus reports whether err is an exec.ExitError with the given status.
func isExitStatus(err error, status int) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	return exitErr.ExitCode() == status
}
