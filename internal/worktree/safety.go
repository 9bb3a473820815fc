package worktree

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-git/go-git/v5"
)

// Verdict is the outcome of a removal safety check. Reason is always set.
type Verdict struct {
	Safe   bool   `json:"safe"`
	Reason string `json:"reason"`
}

const safeReason = "Worktree is clean and all commits are pushed to remote"

// SafetyChecker decides whether a worktree can be removed without data loss.
type SafetyChecker interface {
	IsSafeToRemove(ctx context.Context, worktreePath string) Verdict
}

// remoteLister returns the names of the remotes configured for the
// repository containing path.
type remoteLister func(ctx context.Context, path string) ([]string, error)

// Checker inspects worktrees with read-only git commands.
type Checker struct {
	git     gitRunner
	remotes remoteLister
}

// NewChecker creates a Checker for the given git configuration.
func NewChecker(cfg Config) *Checker {
	cfg = cfg.withDefaults()
	c := &Checker{git: gitRunner{binary: cfg.GitBinary, timeout: cfg.Timeout}}
	c.remotes = c.listRemotes
	return c
}

// IsSafeToRemove reports whether the worktree at path has no uncommitted
// changes, has a remote, and has no commits missing from that remote.
func (c *Checker) IsSafeToRemove(ctx context.Context, path string) Verdict {
	if strings.TrimSpace(path) == "" {
		return unsafe("Worktree path is required")
	}

	status, err := c.git.run(ctx, path, "status", "--porcelain", "--untracked-files=normal")
	if err != nil {
		return unsafe(fmt.Sprintf("Unable to inspect worktree status at %s: %v", path, err))
	}
	if n := countLines(status); n > 0 {
		return unsafe(fmt.Sprintf("Uncommitted changes exist (%d %s)", n, plural(n, "path", "paths")))
	}

	remotes, err := c.remotes(ctx, path)
	if err != nil {
		return unsafe(fmt.Sprintf("Unable to list remotes: %v", err))
	}
	if len(remotes) == 0 {
		return unsafe("No remote configured; commits cannot be verified as pushed")
	}

	ahead, against, err := c.unpushed(ctx, path)
	if err != nil {
		return unsafe(fmt.Sprintf("Unable to compare local commits with remote: %v", err))
	}
	if ahead > 0 {
		return unsafe(fmt.Sprintf("%d %s not pushed to remote (compared with %s)",
			ahead, plural(ahead, "commit", "commits"), against))
	}

	return Verdict{Safe: true, Reason: safeReason}
}

// unpushed counts commits reachable from HEAD that the remote does not have.
// With an upstream the comparison is against it; otherwise against every
// remote-tracking ref.
func (c *Checker) unpushed(ctx context.Context, path string) (int, string, error) {
	var (
		out     string
		err     error
		against string
	)
	upstream, upErr := c.git.run(ctx, path, "rev-parse", "--abbrev-ref", "--symbolic-full-name", "@{upstream}")
	if upErr == nil && strings.TrimSpace(upstream) != "" {
		against = strings.TrimSpace(upstream)
		out, err = c.git.run(ctx, path, "rev-list", "--count", "@{upstream}..HEAD")
	} else {
		against = "all remote branches"
		out, err = c.git.run(ctx, path, "rev-list", "--count", "HEAD", "--not", "--remotes")
	}
	if err != nil {
		return 0, against, err
	}

	n, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, against, fmt.Errorf("parse rev-list count %q: %w", strings.TrimSpace(out), err)
	}
	return n, against, nil
}

// listRemotes reads remotes with go-git and falls back to the git CLI when
// go-git cannot open the repository (e.g. extensions it does not support).
func (c *Checker) listRemotes(ctx context.Context, path string) ([]string, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err == nil {
		remotes, err := repo.Remotes()
		if err == nil {
			names := make([]string, 0, len(remotes))
			for _, r := range remotes {
				names = append(names, r.Config().Name)
			}
			return names, nil
		}
	}

	out, err := c.git.run(ctx, path, "remote")
	if err != nil {
		return nil, err
	}
	return strings.Fields(out), nil
}

func unsafe(reason string) Verdict {
	return Verdict{Safe: false, Reason: reason}
}

func countLines(s string) int {
	n := 0
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
