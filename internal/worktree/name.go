package worktree

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidWorktreeName is returned for names that are not a single path segment.
var ErrInvalidWorktreeName = errors.New("invalid worktree name")

// NameFromPath returns the final segment of path with trailing separators
// stripped. An empty path, or one made only of separators, yields "".
func NameFromPath(path string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(path), `/\`)
	if trimmed == "" {
		return ""
	}
	if i := strings.LastIndexAny(trimmed, `/\`); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

// validateName ensures name is safe to use as a directory under the worktree root.
func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidWorktreeName)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q must not contain path separators", ErrInvalidWorktreeName, name)
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q must not contain '..'", ErrInvalidWorktreeName, name)
	}
	return nil
}
