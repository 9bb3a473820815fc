package tasks

import (
	"fmt"
)

// Type classifies a task.
type Type string

const (
	TypeTask    Type = "task"
	TypeBug     Type = "bug"
	TypeFeature Type = "feature"
	TypeStory   Type = "story"
)

// Valid reports whether t is a known task type.
func (t Type) Valid() bool {
	switch t {
	case TypeTask, TypeBug, TypeFeature, TypeStory:
		return true
	}
	return false
}

// UnmarshalText rejects unknown task types.
func (t *Type) UnmarshalText(text []byte) error {
	v := Type(text)
	if !v.Valid() {
		return fmt.Errorf("unknown task type %q", string(text))
	}
	*t = v
	return nil
}

// Status is the lifecycle state of a task.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// UnmarshalText rejects unknown statuses.
func (s *Status) UnmarshalText(text []byte) error {
	v := Status(text)
	if !v.Valid() {
		return fmt.Errorf("unknown task status %q", string(text))
	}
	*s = v
	return nil
}

// RelationKind is the kind of a directed link between two tasks.
type RelationKind string

const (
	// RelationBlockedBy means the owning task cannot start until the target completes.
	RelationBlockedBy RelationKind = "blocked-by"
	RelationBlocks    RelationKind = "blocks"
	RelationRelatesTo RelationKind = "relates-to"
	RelationDuplicate RelationKind = "duplicates"
)

// Relation links a task to another task.
type Relation struct {
	// ID is unique only within the owning task's relation list.
	ID int `json:"id"`

	// Target is the related task's id.
	Target int `json:"relates-to"`

	// Kind is the relation kind, e.g. "blocked-by".
	Kind RelationKind `json:"as-type"`
}

// Task is a trackable unit of work.
type Task struct {
	ID        int        `json:"id"`
	Title     string     `json:"title"`
	Category  string     `json:"category"`
	Type      Type       `json:"type"`
	Status    Status     `json:"status"`
	Parent    *int       `json:"parent,omitempty"`
	Relations []Relation `json:"relations,omitempty"`
}

// IsCompleted reports whether the task has reached the completed status.
func (t Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}
