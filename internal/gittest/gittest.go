// Package gittest builds throwaway git repositories for tests.
package gittest

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// Repo is a scratch repository with a main branch and one commit.
type Repo struct {
	Root string
}

// RequireGit skips tb when no git executable is on PATH.
func RequireGit(tb testing.TB) {
	tb.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		tb.Skip("git not available")
	}
}

// New initializes a repository in a temp directory with an initial commit on main.
func New(tb testing.TB) *Repo {
	tb.Helper()
	RequireGit(tb)

	root := tb.TempDir()
	Run(tb, root, "init", "--initial-branch=main")
	Run(tb, root, "config", "user.email", "test@example.com")
	Run(tb, root, "config", "user.name", "Test User")
	Run(tb, root, "config", "commit.gpgsign", "false")

	WriteFile(tb, root, "README.md", "test repo\n")
	Run(tb, root, "add", "README.md")
	Run(tb, root, "commit", "-m", "initial commit")

	return &Repo{Root: root}
}

// AddBareRemote creates a bare repository, registers it as remote name, and
// pushes main to it with upstream tracking. It returns the bare repo path.
func (r *Repo) AddBareRemote(tb testing.TB, name string) string {
	tb.Helper()
	bare := filepath.Join(tb.TempDir(), name+".git")
	Run(tb, filepath.Dir(bare), "init", "--bare", "--initial-branch=main", bare)
	Run(tb, r.Root, "remote", "add", name, bare)
	Run(tb, r.Root, "push", "-u", name, "main")
	return bare
}

// AddWorktree creates a worktree on a new branch outside the repository
// and returns its path.
func (r *Repo) AddWorktree(tb testing.TB, name, branch string) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), name)
	Run(tb, r.Root, "worktree", "add", "-b", branch, path, "main")
	return path
}

// Commit writes file in dir and commits it.
func Commit(tb testing.TB, dir, file, content, msg string) {
	tb.Helper()
	WriteFile(tb, dir, file, content)
	Run(tb, dir, "add", file)
	Run(tb, dir, "commit", "-m", msg)
}

// WriteFile writes content to dir/name, creating parent directories.
func WriteFile(tb testing.TB, dir, name, content string) {
	tb.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		tb.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		tb.Fatalf("write %s: %v", path, err)
	}
}

// Run executes git in dir and fails tb on error. It returns trimmed stdout.
func Run(tb testing.TB, dir string, args ...string) string {
	tb.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_TERMINAL_PROMPT=0",
		"GIT_CONFIG_NOSYSTEM=1",
		"GIT_AUTHOR_NAME=Test User",
		"GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=Test User",
		"GIT_COMMITTER_EMAIL=test@example.com",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		tb.Fatalf("git %s: %v: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String())
}
