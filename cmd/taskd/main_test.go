package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/taskd/internal/gittest"
	"github.com/fyrsmithlabs/taskd/internal/tasks"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func decode(t *testing.T, out string) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &body), out)
	return body
}

func newWorkspace(t *testing.T) string {
	t.Helper()
	ws := t.TempDir()
	seedTasks(t, ws)
	return ws
}

func seedTasks(t *testing.T, ws string) {
	t.Helper()
	story := 1
	require.NoError(t, tasks.Save(filepath.Join(ws, ".taskd", "tasks.json"), []tasks.Task{
		{ID: 1, Title: "Search revamp", Category: "search", Type: tasks.TypeStory, Status: tasks.StatusOpen},
		{ID: 2, Title: "Synonym index", Category: "search", Type: tasks.TypeTask, Status: tasks.StatusOpen, Parent: &story,
			Relations: []tasks.Relation{{ID: 1, Target: 3, Kind: tasks.RelationBlockedBy}}},
		{ID: 3, Title: "Analyzer config", Category: "search", Type: tasks.TypeTask, Status: tasks.StatusCompleted},
	}))
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
		assert.NotEmpty(t, cmd.Short, cmd.Name())
	}
	assert.Subset(t, names, []string{"serve", "http", "work-on", "state", "worktree", "version"})
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.NotNil(t, root.PersistentFlags().Lookup("workspace"))
}

func TestVersionCmd(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version:    dev")
}

func TestTaskIDArg(t *testing.T) {
	assert.Equal(t, 42, taskIDArg("42"))
	assert.Equal(t, -1, taskIDArg("-1"))
	assert.Equal(t, "4.2", taskIDArg("4.2"))
	assert.Equal(t, "abc", taskIDArg("abc"))
}

func TestWorkOnCmd(t *testing.T) {
	ws := newWorkspace(t)

	out, _, err := execute(t, "--workspace", ws, "work-on", "2")
	require.NoError(t, err)

	body := decode(t, out)
	assert.Equal(t, float64(2), body["task_id"])
	assert.Equal(t, false, body["is_blocked"])
	assert.Equal(t, float64(1), body["story_id"])
	assert.NotContains(t, body, "worktree_name")

	statePath := filepath.Join(ws, ".taskd", "execution-state.json")
	assert.Equal(t, statePath, body["execution_state_file"])
	assert.FileExists(t, statePath)
}

func TestWorkOnCmd_ValidationErrors(t *testing.T) {
	tests := []struct {
		arg  string
		code string
	}{
		{"abc", "invalid_type"},
		{"99", "task_not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			ws := newWorkspace(t)

			out, _, err := execute(t, "--workspace", ws, "work-on", tt.arg)
			assert.ErrorIs(t, err, errReported)
			assert.Equal(t, tt.code, decode(t, out)["code"])
			assert.NoFileExists(t, filepath.Join(ws, ".taskd", "execution-state.json"))
		})
	}
}

func TestWorkOnCmd_CreatesTaskWorktree(t *testing.T) {
	repo := gittest.New(t)
	seedTasks(t, repo.Root)
	t.Setenv("TASKD_WORKTREE_ENABLED", "true")

	out, _, err := execute(t, "--workspace", repo.Root, "work-on", "2")
	require.NoError(t, err)
	assert.Equal(t, "task-2", decode(t, out)["worktree_name"])
	assert.DirExists(t, filepath.Join(repo.Root, ".worktrees", "task-2"))

	out, _, err = execute(t, "--workspace", repo.Root, "work-on", "3")
	require.NoError(t, err)
	assert.Equal(t, "task-3", decode(t, out)["worktree_name"])
	assert.Equal(t, "task/3", gittest.Run(t, filepath.Join(repo.Root, ".worktrees", "task-3"), "rev-parse", "--abbrev-ref", "HEAD"))
}

func TestStateCmd(t *testing.T) {
	ws := newWorkspace(t)

	out, _, err := execute(t, "--workspace", ws, "state")
	assert.ErrorIs(t, err, errReported)
	assert.Equal(t, "no_active_task", decode(t, out)["code"])

	_, _, err = execute(t, "--workspace", ws, "work-on", "3")
	require.NoError(t, err)

	out, _, err = execute(t, "--workspace", ws, "state")
	require.NoError(t, err)
	body := decode(t, out)
	assert.Equal(t, float64(3), body["task_id"])
	assert.NotContains(t, body, "story_id")
}

func TestLogsGoToStderr(t *testing.T) {
	ws := newWorkspace(t)
	t.Setenv("TASKD_LOGGING_LEVEL", "debug")

	out, errOut, err := execute(t, "--workspace", ws, "work-on", "2")
	require.NoError(t, err)
	assert.Contains(t, errOut, "task activated")
	assert.NotContains(t, out, "task activated")
}

func TestConfigFileFlag(t *testing.T) {
	ws := newWorkspace(t)
	cfgPath := filepath.Join(t.TempDir(), "taskd.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("state:\n  file: elsewhere/state.json\n"), 0o600))

	out, _, err := execute(t, "--workspace", ws, "--config", cfgPath, "work-on", "1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(ws, "elsewhere", "state.json"), decode(t, out)["execution_state_file"])
}

func TestWorktreeCommands(t *testing.T) {
	repo := gittest.New(t)

	out, _, err := execute(t, "--workspace", repo.Root, "worktree", "add", "task-7", "--base", "main")
	require.NoError(t, err)
	added := decode(t, out)
	wt := filepath.Join(repo.Root, ".worktrees", "task-7")
	assert.Equal(t, wt, added["path"])
	assert.Equal(t, "task-7", added["branch"])
	assert.DirExists(t, wt)

	out, _, err = execute(t, "--workspace", repo.Root, "worktree", "check", wt)
	assert.ErrorIs(t, err, errReported)
	assert.Equal(t, false, decode(t, out)["safe"])

	out, _, err = execute(t, "--workspace", repo.Root, "worktree", "cleanup", repo.Root, wt)
	assert.ErrorIs(t, err, errReported)
	assert.Contains(t, decode(t, out)["error"], "Cannot remove worktree")
	assert.DirExists(t, wt)

	repo.AddBareRemote(t, "origin")

	out, _, err = execute(t, "--workspace", repo.Root, "worktree", "check", wt)
	require.NoError(t, err)
	assert.Equal(t, true, decode(t, out)["safe"])

	out, _, err = execute(t, "--workspace", repo.Root, "worktree", "cleanup", repo.Root, wt)
	require.NoError(t, err)
	body := decode(t, out)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, wt+" removed", body["message"])
	assert.NoDirExists(t, wt)
}
