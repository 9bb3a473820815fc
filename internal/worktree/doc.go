// Package worktree manages the lifecycle of task-scoped git worktrees.
//
// The package answers one question before it destroys anything: can this
// worktree be removed without losing work? A worktree is safe to remove only
// when it has no uncommitted or untracked changes, its repository has a
// remote, and every local commit on its branch is present on that remote.
//
// # Safety Checks
//
// Checks run in a fixed order and the first failure decides the reason:
//
//  1. Uncommitted changes (git status --porcelain)
//  2. Remote configuration (go-git, with a git CLI fallback)
//  3. Unpushed commits (rev-list against the upstream, or against all
//     remote-tracking refs when the branch has no upstream)
//
// All inspections are read-only. Every git subprocess is bounded by the
// configured timeout so a hung process cannot hang the caller.
//
// # Cleanup
//
// [Manager.Cleanup] re-uses the checker and then runs a non-forced
// "git worktree remove". The check and the removal are not atomic; if the
// worktree changes in between, git refuses the removal and the refusal is
// returned in the CleanupResult.
package worktree
