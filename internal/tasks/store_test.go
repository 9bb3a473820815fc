package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTasksFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tasks.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewFileStore(t *testing.T) {
	_, err := NewFileStore("  ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tasks file path is required")

	store, err := NewFileStore("/tmp/tasks.json")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/tasks.json", store.Location())
}

func TestFileStore_List(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantLen int
		wantErr string
	}{
		{
			name:    "empty file",
			content: "",
			wantLen: 0,
		},
		{
			name:    "no tasks key",
			content: `{}`,
			wantLen: 0,
		},
		{
			name: "valid tasks",
			content: `{"tasks": [
				{"id": 1, "title": "Story", "category": "core", "type": "story", "status": "open"},
				{"id": 2, "title": "Child", "category": "core", "type": "task", "status": "in-progress", "parent": 1,
				 "relations": [{"id": 1, "relates-to": 3, "as-type": "blocked-by"}]},
				{"id": 3, "title": "Dep", "category": "core", "type": "bug", "status": "completed"}
			]}`,
			wantLen: 3,
		},
		{
			name:    "unknown status",
			content: `{"tasks": [{"id": 1, "title": "x", "type": "task", "status": "paused"}]}`,
			wantErr: `unknown task status "paused"`,
		},
		{
			name:    "unknown type",
			content: `{"tasks": [{"id": 1, "title": "x", "type": "epic", "status": "open"}]}`,
			wantErr: `unknown task type "epic"`,
		},
		{
			name:    "missing type",
			content: `{"tasks": [{"id": 4, "title": "x", "status": "open"}]}`,
			wantErr: `task 4: unknown task type ""`,
		},
		{
			name: "duplicate id",
			content: `{"tasks": [
				{"id": 1, "title": "a", "type": "task", "status": "open"},
				{"id": 1, "title": "b", "type": "task", "status": "open"}
			]}`,
			wantErr: "duplicate task id 1",
		},
		{
			name:    "non-positive id",
			content: `{"tasks": [{"id": 0, "title": "a", "type": "task", "status": "open"}]}`,
			wantErr: "task id must be positive",
		},
		{
			name:    "malformed json",
			content: `{"tasks": [`,
			wantErr: "decode tasks file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewFileStore(writeTasksFile(t, tt.content))
			require.NoError(t, err)

			got, err := store.List(context.Background())
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, got)
			assert.Len(t, got, tt.wantLen)
		})
	}
}

func TestFileStore_ListMissingFile(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)

	got, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFileStore_Get(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	parent := 10
	require.NoError(t, Save(path, []Task{
		{ID: 10, Title: "Story", Category: "core", Type: TypeStory, Status: StatusOpen},
		{ID: 11, Title: "Child", Category: "core", Type: TypeFeature, Status: StatusOpen, Parent: &parent,
			Relations: []Relation{{ID: 1, Target: 10, Kind: RelationRelatesTo}}},
	}))

	store, err := NewFileStore(path)
	require.NoError(t, err)

	task, err := store.Get(context.Background(), 11)
	require.NoError(t, err)
	assert.Equal(t, "Child", task.Title)
	assert.Equal(t, TypeFeature, task.Type)
	require.NotNil(t, task.Parent)
	assert.Equal(t, 10, *task.Parent)
	require.Len(t, task.Relations, 1)
	assert.Equal(t, RelationRelatesTo, task.Relations[0].Kind)

	_, err = store.Get(context.Background(), 99)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTaskNotFound))
}

func TestFileStore_ListCancelledContext(t *testing.T) {
	store, err := NewFileStore(writeTasksFile(t, `{}`))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTaskIsCompleted(t *testing.T) {
	assert.True(t, Task{Status: StatusCompleted}.IsCompleted())
	assert.False(t, Task{Status: StatusInProgress}.IsCompleted())
	assert.False(t, Task{Status: StatusCancelled}.IsCompleted())
}
