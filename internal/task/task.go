package task

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/bulssi/profile-api/internal/domain"
)

// TaskStatus represents the current state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// IsTerminal reports whether no further transitions are allowed from s.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// Failure kinds recorded by the runner itself. Pipeline failures use the
// kinds defined by the extraction package.
const (
	ErrorKindInternal = "internal_error"
	ErrorKindRejected = "rejected"
)

// Messages recorded on tasks the runner fails on its own.
const (
	MsgInternalError = "unexpected internal error while processing the video"
	MsgQueueFull     = "the server is busy, please retry later"
	MsgShuttingDown  = "service is shutting down"
)

// Common task errors
var (
	// ErrTaskNotFound is returned when no task exists for an id.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskAlreadyTerminal is returned when completing or failing a task
	// that already reached a terminal state.
	ErrTaskAlreadyTerminal = errors.New("task already in terminal state")

	// ErrQueueFull is returned by Submit when no worker queue slot is available.
	ErrQueueFull = errors.New("task queue is full")

	// ErrRunnerStopped is returned by Submit after Stop has been called.
	ErrRunnerStopped = errors.New("task runner is stopped")
)

// Task is a snapshot of one asynchronous video analysis.
// Result is set only when Status is completed; Error and ErrorKind only when
// Status is failed.
type Task struct {
	ID        uuid.UUID       `json:"task_id"`
	Status    TaskStatus      `json:"status"`
	Result    *domain.Profile `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	ErrorKind string          `json:"error_kind,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// clone returns a copy that shares no mutable state with t.
func (t *Task) clone() Task {
	c := *t
	c.Result = t.Result.Clone()
	return c
}
