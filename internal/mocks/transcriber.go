package mocks

import (
	"context"
	"sync"
)

// MockTranscriber implements extraction.Transcriber for testing
type MockTranscriber struct {
	// TranscribeFn allows test cases to mock the Transcribe behavior
	TranscribeFn func(ctx context.Context, path string, language string) (string, error)

	// Default response values
	Transcript string
	Err        error

	// Call tracking for verification
	TranscribeCalls struct {
		// mu protects the call tracking state for concurrent test cases
		mu sync.Mutex

		// Count tracks how many times Transcribe was called
		Count int

		// Paths contains all paths passed to Transcribe calls
		Paths []string

		// Languages contains all language codes passed to Transcribe calls
		Languages []string
	}
}

// Transcribe implements the extraction.Transcriber interface
func (m *MockTranscriber) Transcribe(ctx context.Context, path string, language string) (string, error) {
	m.TranscribeCalls.mu.Lock()
	m.TranscribeCalls.Count++
	m.TranscribeCalls.Paths = append(m.TranscribeCalls.Paths, path)
	m.TranscribeCalls.Languages = append(m.TranscribeCalls.Languages, language)
	m.TranscribeCalls.mu.Unlock()

	if m.TranscribeFn != nil {
		return m.TranscribeFn(ctx, path, language)
	}

	return m.Transcript, m.Err
}

// CallCount returns the number of Transcribe calls in a concurrency-safe way
func (m *MockTranscriber) CallCount() int {
	m.TranscribeCalls.mu.Lock()
	defer m.TranscribeCalls.mu.Unlock()
	return m.TranscribeCalls.Count
}

// NewMockTranscriberWithText creates a MockTranscriber that returns the given transcript
func NewMockTranscriberWithText(transcript string) *MockTranscriber {
	return &MockTranscriber{
		Transcript: transcript,
	}
}

// NewMockTranscriberWithError creates a MockTranscriber that returns the given error
func NewMockTranscriberWithError(err error) *MockTranscriber {
	return &MockTranscriber{
		Err: err,
	}
}
