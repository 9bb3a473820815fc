package blocking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/taskd/internal/tasks"
)

func task(id int, status tasks.Status, rels ...tasks.Relation) tasks.Task {
	return tasks.Task{ID: id, Title: "t", Type: tasks.TypeTask, Status: status, Relations: rels}
}

func blockedBy(relID, target int) tasks.Relation {
	return tasks.Relation{ID: relID, Target: target, Kind: tasks.RelationBlockedBy}
}

func TestResolve(t *testing.T) {
	all := Index([]tasks.Task{
		task(1, tasks.StatusOpen),
		task(2, tasks.StatusCompleted),
		task(3, tasks.StatusInProgress),
		task(4, tasks.StatusCancelled),
	})

	tests := []struct {
		name        string
		task        tasks.Task
		wantBlocked bool
		wantIDs     []int
	}{
		{
			name:        "no relations",
			task:        task(10, tasks.StatusOpen),
			wantBlocked: false,
			wantIDs:     []int{},
		},
		{
			name: "only non-blocking relations",
			task: task(10, tasks.StatusOpen,
				tasks.Relation{ID: 1, Target: 1, Kind: tasks.RelationRelatesTo},
				tasks.Relation{ID: 2, Target: 3, Kind: tasks.RelationBlocks},
			),
			wantBlocked: false,
			wantIDs:     []int{},
		},
		{
			name:        "blocked by open task",
			task:        task(10, tasks.StatusOpen, blockedBy(1, 1)),
			wantBlocked: true,
			wantIDs:     []int{1},
		},
		{
			name:        "blocker completed",
			task:        task(10, tasks.StatusOpen, blockedBy(1, 2)),
			wantBlocked: false,
			wantIDs:     []int{},
		},
		{
			name:        "cancelled blocker still blocks",
			task:        task(10, tasks.StatusOpen, blockedBy(1, 4)),
			wantBlocked: true,
			wantIDs:     []int{4},
		},
		{
			name:        "missing blocker treated as blocking",
			task:        task(10, tasks.StatusOpen, blockedBy(1, 404)),
			wantBlocked: true,
			wantIDs:     []int{404},
		},
		{
			name: "relation order preserved, completed excluded",
			task: task(10, tasks.StatusOpen,
				blockedBy(1, 3),
				blockedBy(2, 2),
				tasks.Relation{ID: 3, Target: 1, Kind: tasks.RelationRelatesTo},
				blockedBy(4, 1),
			),
			wantBlocked: true,
			wantIDs:     []int{3, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.task, all)
			assert.Equal(t, tt.wantBlocked, got.Blocked)
			assert.NotNil(t, got.BlockingIDs)
			assert.Equal(t, tt.wantIDs, got.BlockingIDs)
		})
	}
}

func TestResolveNilLookup(t *testing.T) {
	got := Resolve(task(1, tasks.StatusOpen, blockedBy(1, 2)), nil)
	assert.True(t, got.Blocked)
	assert.Equal(t, []int{2}, got.BlockingIDs)
}

func TestIndex(t *testing.T) {
	lookup := Index([]tasks.Task{task(5, tasks.StatusOpen), task(7, tasks.StatusCompleted)})
	assert.Len(t, lookup, 2)
	assert.Equal(t, tasks.StatusCompleted, lookup[7].Status)
}
