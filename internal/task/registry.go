package task

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bulssi/profile-api/internal/domain"
)

// Registry tracks the lifecycle of every task.
//
// Implementations must be safe for concurrent use. Each task has a single
// writer (the worker that runs it), and a terminal state is written once:
// Complete and Fail return ErrTaskAlreadyTerminal without changing anything
// when the task has already finished.
type Registry interface {
	// Create registers a new task in the processing state and returns its id.
	Create() uuid.UUID

	// Get returns a snapshot of the task. Mutating the snapshot does not
	// affect the registry.
	Get(id uuid.UUID) (Task, error)

	// Complete moves a processing task to completed with the given profile.
	Complete(id uuid.UUID, profile *domain.Profile) error

	// Fail moves a processing task to failed with a failure kind and message.
	Fail(id uuid.UUID, kind, message string) error

	// Discard removes a task that never reached a worker. Only processing
	// tasks can be discarded; a terminal task returns ErrTaskAlreadyTerminal.
	Discard(id uuid.UUID) error

	// Counts returns the number of tasks in each status.
	Counts() map[TaskStatus]int
}

// InMemoryRegistry is a Registry backed by a map guarded by a RWMutex.
// Task state does not survive a restart.
type InMemoryRegistry struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*Task
	now   func() time.Time
}

var _ Registry = (*InMemoryRegistry)(nil)

// NewInMemoryRegistry creates an empty registry.
func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{
		tasks: make(map[uuid.UUID]*Task),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Create implements Registry.
func (r *InMemoryRegistry) Create() uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.New()
	for {
		if _, exists := r.tasks[id]; !exists {
			break
		}
		id = uuid.New()
	}

	now := r.now()
	r.tasks[id] = &Task{
		ID:        id,
		Status:    TaskStatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}

	return id
}

// Get implements Registry.
func (r *InMemoryRegistry) Get(id uuid.UUID) (Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return Task{}, ErrTaskNotFound
	}
	return t.clone(), nil
}

// Complete implements Registry. The profile is copied.
func (r *InMemoryRegistry) Complete(id uuid.UUID, profile *domain.Profile) error {
	return r.finish(id, func(t *Task) {
		t.Status = TaskStatusCompleted
		t.Result = profile.Clone()
		if t.Result == nil {
			t.Result = domain.NewProfile()
		}
	})
}

// Fail implements Registry.
func (r *InMemoryRegistry) Fail(id uuid.UUID, kind, message string) error {
	return r.finish(id, func(t *Task) {
		t.Status = TaskStatusFailed
		t.ErrorKind = kind
		t.Error = message
	})
}

// Discard implements Registry.
func (r *InMemoryRegistry) Discard(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	if t.Status.IsTerminal() {
		return ErrTaskAlreadyTerminal
	}

	delete(r.tasks, id)
	return nil
}

func (r *InMemoryRegistry) finish(id uuid.UUID, apply func(t *Task)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	if t.Status.IsTerminal() {
		return ErrTaskAlreadyTerminal
	}

	apply(t)
	t.UpdatedAt = r.now()
	return nil
}

// Counts implements Registry.
func (r *InMemoryRegistry) Counts() map[TaskStatus]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := map[TaskStatus]int{
		TaskStatusProcessing: 0,
		TaskStatusCompleted:  0,
		TaskStatusFailed:     0,
	}
	for _, t := range r.tasks {
		counts[t.Status]++
	}
	return counts
}
