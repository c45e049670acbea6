package service

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/bulssi/profile-api/internal/task"
)

// mockSubmitter implements TaskSubmitter for testing
type mockSubmitter struct {
	mu       sync.Mutex
	submitFn func(ctx context.Context, path string) (uuid.UUID, error)
	paths    []string
}

func (m *mockSubmitter) Submit(ctx context.Context, path string) (uuid.UUID, error) {
	m.mu.Lock()
	m.paths = append(m.paths, path)
	m.mu.Unlock()

	if m.submitFn != nil {
		return m.submitFn(ctx, path)
	}
	return uuid.New(), nil
}

// mockTaskReader implements TaskReader for testing
type mockTaskReader struct {
	tasks  map[uuid.UUID]task.Task
	counts map[task.TaskStatus]int
}

func (m *mockTaskReader) Get(id uuid.UUID) (task.Task, error) {
	t, ok := m.tasks[id]
	if !ok {
		return task.Task{}, task.ErrTaskNotFound
	}
	return t, nil
}

func (m *mockTaskReader) Counts() map[task.TaskStatus]int {
	return m.counts
}
