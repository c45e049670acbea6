package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bulssi/profile-api/internal/extraction"
	"github.com/bulssi/profile-api/internal/task"
)

// ArtifactStore persists uploads for the duration of one analysis.
type ArtifactStore interface {
	// Validate checks upload metadata before any bytes are written
	Validate(originalName string, size int64) error

	// Save writes the upload and returns the stored path
	Save(ctx context.Context, upload io.Reader, originalName string) (string, error)

	// Delete removes a stored upload; failures are logged, never returned
	Delete(path string)
}

// TaskSubmitter defines the interface for submitting background analyses
type TaskSubmitter interface {
	// Submit queues the stored artifact for analysis and returns the task id
	Submit(ctx context.Context, path string) (uuid.UUID, error)
}

// TaskReader provides read access to task state
type TaskReader interface {
	Get(id uuid.UUID) (task.Task, error)
	Counts() map[task.TaskStatus]int
}

// AnalysisService provides video analysis operations
type AnalysisService interface {
	// SubmitVideo stores the upload and starts an asynchronous analysis.
	// It returns as soon as the task is registered.
	SubmitVideo(ctx context.Context, upload io.Reader, filename string, size int64) (uuid.UUID, error)

	// GetTask returns a snapshot of the task with the given id
	GetTask(ctx context.Context, id uuid.UUID) (task.Task, error)

	// AnalyzeVideo stores the upload, analyzes it synchronously and removes it
	AnalyzeVideo(ctx context.Context, upload io.Reader, filename string, size int64) (*extraction.Result, error)

	// TaskCounts returns the number of tasks in each status
	TaskCounts(ctx context.Context) map[task.TaskStatus]int
}

// AnalysisServiceError wraps errors from the analysis service with context.
type AnalysisServiceError struct {
	// Operation is the operation that failed (e.g., "submit_video", "analyze_video")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for AnalysisServiceError.
func (e *AnalysisServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("analysis service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("analysis service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *AnalysisServiceError) Unwrap() error {
	return e.Err
}

// NewAnalysisServiceError creates a new AnalysisServiceError.
// It returns known sentinel errors directly without wrapping.
func NewAnalysisServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, task.ErrTaskNotFound) {
		return task.ErrTaskNotFound
	}

	return &AnalysisServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// analysisServiceImpl implements the AnalysisService interface
type analysisServiceImpl struct {
	artifacts ArtifactStore
	submitter TaskSubmitter
	tasks     TaskReader
	pipeline  task.Pipeline
	logger    *slog.Logger
}

// NewAnalysisService creates a new AnalysisService
// It returns an error if any of the required dependencies are nil.
func NewAnalysisService(
	artifacts ArtifactStore,
	submitter TaskSubmitter,
	tasks TaskReader,
	pipeline task.Pipeline,
	logger *slog.Logger,
) (AnalysisService, error) {
	if artifacts == nil {
		return nil, &AnalysisServiceError{Operation: "create_service", Message: "artifacts cannot be nil"}
	}
	if submitter == nil {
		return nil, &AnalysisServiceError{Operation: "create_service", Message: "submitter cannot be nil"}
	}
	if tasks == nil {
		return nil, &AnalysisServiceError{Operation: "create_service", Message: "tasks cannot be nil"}
	}
	if pipeline == nil {
		return nil, &AnalysisServiceError{Operation: "create_service", Message: "pipeline cannot be nil"}
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	return &analysisServiceImpl{
		artifacts: artifacts,
		submitter: submitter,
		tasks:     tasks,
		pipeline:  pipeline,
		logger:    logger.With("component", "analysis_service"),
	}, nil
}

// SubmitVideo validates and stores the upload, then hands it to the task runner.
// Once the artifact is stored the runner owns it, including on rejection.
func (s *analysisServiceImpl) SubmitVideo(
	ctx context.Context,
	upload io.Reader,
	filename string,
	size int64,
) (uuid.UUID, error) {
	path, err := s.store(ctx, upload, filename, size)
	if err != nil {
		return uuid.Nil, NewAnalysisServiceError("submit_video", "failed to store upload", err)
	}

	id, err := s.submitter.Submit(ctx, path)
	if err != nil {
		s.logger.Warn("failed to submit analysis task", "error", err)
		return uuid.Nil, NewAnalysisServiceError("submit_video", "failed to queue analysis", err)
	}

	s.logger.Info("video accepted for analysis",
		"task_id", id,
		"size_bytes", size)

	return id, nil
}

// GetTask returns the current snapshot of a task.
func (s *analysisServiceImpl) GetTask(ctx context.Context, id uuid.UUID) (task.Task, error) {
	t, err := s.tasks.Get(id)
	if err != nil {
		return task.Task{}, NewAnalysisServiceError("get_task", "failed to load task", err)
	}
	return t, nil
}

// AnalyzeVideo runs the pipeline inline. The artifact is removed before returning.
func (s *analysisServiceImpl) AnalyzeVideo(
	ctx context.Context,
	upload io.Reader,
	filename string,
	size int64,
) (*extraction.Result, error) {
	path, err := s.store(ctx, upload, filename, size)
	if err != nil {
		return nil, NewAnalysisServiceError("analyze_video", "failed to store upload", err)
	}
	defer s.artifacts.Delete(path)

	result, err := s.pipeline.Run(ctx, path)
	if err != nil {
		return nil, NewAnalysisServiceError("analyze_video", "analysis failed", err)
	}
	return result, nil
}

// TaskCounts returns the number of tasks in each status.
func (s *analysisServiceImpl) TaskCounts(ctx context.Context) map[task.TaskStatus]int {
	return s.tasks.Counts()
}

func (s *analysisServiceImpl) store(ctx context.Context, upload io.Reader, filename string, size int64) (string, error) {
	if err := s.artifacts.Validate(filename, size); err != nil {
		return "", err
	}
	return s.artifacts.Save(ctx, upload, filename)
}
