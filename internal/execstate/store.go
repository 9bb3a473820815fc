// Package execstate persists the single "currently active task" record.
package execstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// TimeLayout is the on-disk format of StartedAt. Fixed-width microseconds
// keep values lexically ordered.
const TimeLayout = "2006-01-02T15:04:05.000000Z07:00"

const (
	stateDirMode  = 0o755
	stateFileMode = 0o644
)

// ErrNoState is returned by Read before the first activation.
var ErrNoState = errors.New("no execution state recorded")

// State is the most recent activation.
type State struct {
	TaskID    int    `json:"task_id"`
	StoryID   *int   `json:"story_id,omitempty"`
	StartedAt string `json:"started_at"`
}

// Store reads and overwrites the execution state.
type Store interface {
	// Read returns the current state or ErrNoState.
	Read(ctx context.Context) (*State, error)

	// Overwrite replaces the state with a new activation stamped now.
	Overwrite(ctx context.Context, taskID int, storyID *int) (State, error)

	// Location describes where the state is kept.
	Location() string
}

// FileStore keeps State as a JSON file, replaced atomically on each write.
type FileStore struct {
	path string
	now  func() time.Time

	mu sync.Mutex
}

// Option configures a FileStore.
type Option func(*FileStore)

// WithClock overrides the wall clock used for StartedAt.
func WithClock(now func() time.Time) Option {
	return func(s *FileStore) {
		s.now = now
	}
}

// NewFileStore returns a FileStore writing to path.
func NewFileStore(path string, opts ...Option) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("execution state path is required")
	}
	s := &FileStore{path: path, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Location returns the state file path.
func (s *FileStore) Location() string {
	return s.path
}

// Read loads the state file.
func (s *FileStore) Read(ctx context.Context) (*State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *FileStore) read() (*State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoState
		}
		return nil, fmt.Errorf("read execution state %s: %w", s.path, err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode execution state %s: %w", s.path, err)
	}
	return &st, nil
}

// Overwrite writes a fresh record. StartedAt is strictly after the
// previously persisted value, even when the clock has not advanced.
func (s *FileStore) Overwrite(ctx context.Context, taskID int, storyID *int) (State, error) {
	if err := ctx.Err(); err != nil {
		return State{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	started := s.now().UTC().Truncate(time.Microsecond)
	// An unreadable previous record is simply replaced.
	if prev, err := s.read(); err == nil {
		if last, perr := time.Parse(TimeLayout, prev.StartedAt); perr == nil && !started.After(last) {
			started = last.Add(time.Microsecond)
		}
	}

	st := State{TaskID: taskID, StartedAt: started.Format(TimeLayout)}
	if storyID != nil {
		id := *storyID
		st.StoryID = &id
	}
	if err := s.write(st); err != nil {
		return State{}, err
	}
	return st, nil
}

// write replaces the state file via a temp file and rename.
func (s *FileStore) write(st State) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, stateDirMode); err != nil {
		return fmt.Errorf("create execution state directory %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode execution state: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, ".execution-state-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp execution state in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write execution state %s: %w", tmpPath, err)
	}
	if err := tmp.Chmod(stateFileMode); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("chmod execution state %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close execution state %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		cleanup()
		return fmt.Errorf("replace execution state %s: %w", s.path, err)
	}
	return nil
}
