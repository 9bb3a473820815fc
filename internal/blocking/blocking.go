// Package blocking decides whether a task may be started given its
// "blocked-by" relations.
package blocking

import (
	"github.com/fyrsmithlabs/taskd/internal/tasks"
)

// Result is the outcome of resolving a task's blockers.
type Result struct {
	// Blocked is true when BlockingIDs is non-empty.
	Blocked bool

	// BlockingIDs lists unfinished blocker ids in relation order. Never nil.
	BlockingIDs []int
}

// Resolve scans task's relations in stored order and collects every
// "blocked-by" target that is not completed. A target missing from lookup
// cannot be verified and counts as blocking.
func Resolve(task tasks.Task, lookup map[int]tasks.Task) Result {
	ids := make([]int, 0)
	for _, rel := range task.Relations {
		if rel.Kind != tasks.RelationBlockedBy {
			continue
		}
		target, ok := lookup[rel.Target]
		if ok && target.IsCompleted() {
			continue
		}
		ids = append(ids, rel.Target)
	}
	return Result{Blocked: len(ids) > 0, BlockingIDs: ids}
}

// Index builds the id lookup Resolve expects.
func Index(list []tasks.Task) map[int]tasks.Task {
	lookup := make(map[int]tasks.Task, len(list))
	for _, t := range list {
		lookup[t.ID] = t
	}
	return lookup
}
