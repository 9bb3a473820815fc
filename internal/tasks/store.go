package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrTaskNotFound is returned by Store.Get when no task has the requested id.
var ErrTaskNotFound = errors.New("task not found")

// Store is the read side of the external task tracker.
type Store interface {
	// Get returns the task with the given id, or ErrTaskNotFound.
	Get(ctx context.Context, id int) (*Task, error)

	// List returns every task in file order.
	List(ctx context.Context) ([]Task, error)

	// Location describes where tasks are read from, for error metadata.
	Location() string
}

// FileStore reads tasks from a JSON document of the form {"tasks": [...]}.
//
// The file is re-read on every call because the tracker that owns it may
// rewrite it at any time.
type FileStore struct {
	path string
}

type taskFile struct {
	Tasks []Task `json:"tasks"`
}

// NewFileStore returns a FileStore for path.
func NewFileStore(path string) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("tasks file path is required")
	}
	return &FileStore{path: path}, nil
}

// Location returns the tasks file path.
func (s *FileStore) Location() string {
	return s.path
}

// Get returns a single task by id.
func (s *FileStore) Get(ctx context.Context, id int) (*Task, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			task := all[i]
			return &task, nil
		}
	}
	return nil, fmt.Errorf("%w: id %d in %s", ErrTaskNotFound, id, s.path)
}

// List decodes and validates the whole tasks file.
func (s *FileStore) List(ctx context.Context) ([]Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Task{}, nil
		}
		return nil, fmt.Errorf("read tasks file %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []Task{}, nil
	}

	var file taskFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode tasks file %s: %w", s.path, err)
	}
	if err := validate(file.Tasks); err != nil {
		return nil, fmt.Errorf("invalid tasks file %s: %w", s.path, err)
	}
	if file.Tasks == nil {
		return []Task{}, nil
	}
	return file.Tasks, nil
}

// validate checks the invariants the decoder cannot express.
func validate(list []Task) error {
	seen := make(map[int]struct{}, len(list))
	for _, task := range list {
		if task.ID <= 0 {
			return fmt.Errorf("task id must be positive, got %d", task.ID)
		}
		if _, dup := seen[task.ID]; dup {
			return fmt.Errorf("duplicate task id %d", task.ID)
		}
		seen[task.ID] = struct{}{}

		// Zero values are possible when the field is omitted entirely.
		if !task.Type.Valid() {
			return fmt.Errorf("task %d: unknown task type %q", task.ID, task.Type)
		}
		if !task.Status.Valid() {
			return fmt.Errorf("task %d: unknown task status %q", task.ID, task.Status)
		}
	}
	return nil
}

// Save writes tasks to path in the format FileStore reads. The tracker
// normally owns the file; Save is used to seed workspaces.
func Save(path string, list []Task) error {
	data, err := json.MarshalIndent(taskFile{Tasks: list}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}
	data = append(data, '\n')
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create tasks directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write tasks file %s: %w", path, err)
	}
	return nil
}
