package mocks

import (
	"context"
	"sync"

	"github.com/bulssi/profile-api/internal/extraction"
)

// MockPipeline implements task.Pipeline for testing
type MockPipeline struct {
	// RunFn allows test cases to mock the Run behavior
	RunFn func(ctx context.Context, path string) (*extraction.Result, error)

	// Default response values
	Result *extraction.Result
	Err    error

	mu    sync.Mutex
	paths []string
}

// Run implements the task.Pipeline interface
func (m *MockPipeline) Run(ctx context.Context, path string) (*extraction.Result, error) {
	m.mu.Lock()
	m.paths = append(m.paths, path)
	m.mu.Unlock()

	if m.RunFn != nil {
		return m.RunFn(ctx, path)
	}
	return m.Result, m.Err
}

// Paths returns the paths passed to Run so far
func (m *MockPipeline) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.paths))
	copy(out, m.paths)
	return out
}
