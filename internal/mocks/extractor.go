package mocks

import (
	"context"
	"sync"
)

// DefaultProfileJSON is a well-formed model payload used by tests
const DefaultProfileJSON = `{"name":"김영수","age":"72세","gender":"M","hobbies":["등산","바둑"],"introduction":"손주 보는 재미로 삽니다."}`

// MockExtractor implements extraction.Extractor for testing
type MockExtractor struct {
	// ExtractFn allows test cases to mock the Extract behavior
	ExtractFn func(ctx context.Context, transcript string) ([]byte, error)

	// Default response values
	Payload []byte
	Err     error

	// Call tracking for verification
	ExtractCalls struct {
		// mu protects the call tracking state for concurrent test cases
		mu sync.Mutex

		// Count tracks how many times Extract was called
		Count int

		// Transcripts contains all transcripts passed to Extract calls
		Transcripts []string
	}
}

// Extract implements the extraction.Extractor interface
func (m *MockExtractor) Extract(ctx context.Context, transcript string) ([]byte, error) {
	m.ExtractCalls.mu.Lock()
	m.ExtractCalls.Count++
	m.ExtractCalls.Transcripts = append(m.ExtractCalls.Transcripts, transcript)
	m.ExtractCalls.mu.Unlock()

	if m.ExtractFn != nil {
		return m.ExtractFn(ctx, transcript)
	}

	return m.Payload, m.Err
}

// CallCount returns the number of Extract calls in a concurrency-safe way
func (m *MockExtractor) CallCount() int {
	m.ExtractCalls.mu.Lock()
	defer m.ExtractCalls.mu.Unlock()
	return m.ExtractCalls.Count
}

// NewMockExtractorWithJSON creates a MockExtractor that returns the given payload
func NewMockExtractorWithJSON(payload string) *MockExtractor {
	return &MockExtractor{
		Payload: []byte(payload),
	}
}

// NewMockExtractorWithError creates a MockExtractor that returns the given error
func NewMockExtractorWithError(err error) *MockExtractor {
	return &MockExtractor{
		Err: err,
	}
}
