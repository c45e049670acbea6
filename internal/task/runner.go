package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/panics"

	"github.com/bulssi/profile-api/internal/extraction"
	"github.com/bulssi/profile-api/internal/redact"
)

// Pipeline analyzes one stored video.
type Pipeline interface {
	Run(ctx context.Context, path string) (*extraction.Result, error)
}

// ArtifactRemover deletes stored uploads. Delete must tolerate missing files
// and never fail the caller.
type ArtifactRemover interface {
	Delete(path string)
}

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many videos are analyzed concurrently
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory job queue
	QueueSize int
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount: 2,
		QueueSize:   100,
	}
}

type job struct {
	id   uuid.UUID
	path string
}

// TaskRunner runs the analysis pipeline for submitted videos on a fixed pool
// of worker goroutines and records each outcome in the Registry.
//
// Every submitted artifact is deleted exactly once: after its pipeline run
// (before the terminal state is published), or when the job is rejected or
// drained at shutdown. Running pipelines are not cancelled by Stop.
type TaskRunner struct {
	registry   Registry
	pipeline   Pipeline
	artifacts  ArtifactRemover
	jobs       chan job
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     TaskRunnerConfig
	logger     *slog.Logger

	// mu guards started and stopped, and is held for reading while a job
	// is enqueued so that Stop never races with Submit.
	mu      sync.RWMutex
	started bool
	stopped bool

	onComplete func(task Task)
}

// NewTaskRunner creates a new TaskRunner
func NewTaskRunner(
	registry Registry,
	pipeline Pipeline,
	artifacts ArtifactRemover,
	config TaskRunnerConfig,
	logger *slog.Logger,
) (*TaskRunner, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	if pipeline == nil {
		return nil, fmt.Errorf("pipeline cannot be nil")
	}
	if artifacts == nil {
		return nil, fmt.Errorf("artifact remover cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "task_runner")

	// Apply defaults for invalid config values
	defaults := DefaultTaskRunnerConfig()
	if config.WorkerCount <= 0 {
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", defaults.WorkerCount)
		config.WorkerCount = defaults.WorkerCount
	}
	if config.QueueSize <= 0 {
		logger.Warn("invalid queue size specified, using default",
			"specified_size", config.QueueSize,
			"default_size", defaults.QueueSize)
		config.QueueSize = defaults.QueueSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &TaskRunner{
		registry:   registry,
		pipeline:   pipeline,
		artifacts:  artifacts,
		jobs:       make(chan job, config.QueueSize),
		ctx:        ctx,
		cancelFunc: cancel,
		config:     config,
		logger:     logger,
	}, nil
}

// SetCompletionHandler registers a function called with the final task
// snapshot after each terminal state is recorded. It must be set before Start.
func (r *TaskRunner) SetCompletionHandler(handler func(task Task)) {
	r.onComplete = handler
}

// Submit registers a task for the artifact at path and queues it for a
// worker. It never waits for the analysis itself.
//
// When the job cannot be queued the artifact is deleted and ErrQueueFull or
// ErrRunnerStopped is returned. A task rejected for a full queue is
// discarded from the registry.
func (r *TaskRunner) Submit(ctx context.Context, path string) (uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.stopped {
		r.artifacts.Delete(path)
		return uuid.Nil, ErrRunnerStopped
	}
	if err := ctx.Err(); err != nil {
		r.artifacts.Delete(path)
		return uuid.Nil, fmt.Errorf("submit cancelled: %w", err)
	}

	id := r.registry.Create()

	select {
	case r.jobs <- job{id: id, path: path}:
		r.logger.Debug("task queued", "task_id", id, "queue_length", len(r.jobs))
		return id, nil
	default:
		r.logger.Warn("task queue is full, rejecting task",
			"task_id", id,
			"queue_size", r.config.QueueSize)
		// The caller never sees this id, so it is removed rather than failed.
		r.artifacts.Delete(path)
		if err := r.registry.Discard(id); err != nil {
			r.logger.Error("failed to discard rejected task", "task_id", id, "error", err)
		}
		return uuid.Nil, ErrQueueFull
	}
}

// Start launches the worker goroutines.
func (r *TaskRunner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return ErrRunnerStopped
	}
	if r.started {
		return errors.New("task runner already started")
	}
	r.started = true

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.logger.Info("task runner started",
		"worker_count", r.config.WorkerCount,
		"queue_size", r.config.QueueSize)

	return nil
}

// Stop rejects new submissions, waits for in-flight jobs to finish, and
// fails any jobs still queued. It is safe to call more than once.
func (r *TaskRunner) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	r.cancelFunc()
	r.wg.Wait()

	drained := 0
	for {
		select {
		case j := <-r.jobs:
			r.reject(j.id, j.path, MsgShuttingDown)
			drained++
		default:
			r.logger.Info("task runner stopped", "drained_jobs", drained)
			return
		}
	}
}

// QueueLength returns the number of jobs waiting for a worker.
func (r *TaskRunner) QueueLength() int {
	return len(r.jobs)
}

// worker processes jobs from the queue
func (r *TaskRunner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("stopping worker", "worker_id", id)
			return

		case j := <-r.jobs:
			r.processJob(j, id)
		}
	}
}

// processJob handles execution of a single job
func (r *TaskRunner) processJob(j job, workerID int) {
	logger := r.logger.With(
		"task_id", j.id,
		"worker_id", workerID,
	)

	logger.Info("processing video")
	start := time.Now()

	result, err := r.runPipeline(j.path, logger)
	r.recordOutcome(j.id, result, err, logger)

	logger.Info("video processing finished", "duration_ms", time.Since(start).Milliseconds())
}

// runPipeline executes the pipeline with panic recovery. The artifact is
// deleted before it returns on every path.
func (r *TaskRunner) runPipeline(path string, logger *slog.Logger) (result *extraction.Result, err error) {
	defer r.artifacts.Delete(path)

	var catcher panics.Catcher
	catcher.Try(func() {
		// No deadline: collaborator calls are allowed to run to completion.
		result, err = r.pipeline.Run(context.Background(), path)
	})

	if recovered := catcher.Recovered(); recovered != nil {
		logger.Error("recovered panic in pipeline",
			"panic", fmt.Sprint(recovered.Value),
			"stack", string(recovered.Stack))
		return nil, recovered.AsError()
	}

	return result, err
}

// recordOutcome writes the terminal state for a job.
func (r *TaskRunner) recordOutcome(id uuid.UUID, result *extraction.Result, err error, logger *slog.Logger) {
	var updateErr error

	switch {
	case err != nil:
		kind, message := ErrorKindInternal, MsgInternalError
		if failure, ok := extraction.AsFailure(err); ok {
			kind, message = string(failure.Kind), failure.Message
		}
		logger.Warn("video analysis failed",
			"error_kind", kind,
			"error", redact.Error(err))
		updateErr = r.registry.Fail(id, kind, message)

	case result == nil || result.Profile == nil:
		logger.Error("pipeline returned no result")
		updateErr = r.registry.Fail(id, ErrorKindInternal, MsgInternalError)

	default:
		if validationErr := result.Profile.Validate(); validationErr != nil {
			logger.Error("pipeline returned an invalid profile", "error", validationErr)
			updateErr = r.registry.Fail(id, ErrorKindInternal, MsgInternalError)
			break
		}
		logger.Info("video analysis completed")
		updateErr = r.registry.Complete(id, result.Profile)
	}

	if updateErr != nil {
		logger.Error("failed to record task outcome", "error", updateErr)
		return
	}

	r.notify(id, logger)
}

// reject fails a job that never reached a worker and deletes its artifact.
func (r *TaskRunner) reject(id uuid.UUID, path string, message string) {
	r.artifacts.Delete(path)

	if err := r.registry.Fail(id, ErrorKindRejected, message); err != nil {
		r.logger.Error("failed to record rejected task",
			"task_id", id,
			"error", err)
		return
	}

	r.notify(id, r.logger.With("task_id", id))
}

func (r *TaskRunner) notify(id uuid.UUID, logger *slog.Logger) {
	if r.onComplete == nil {
		return
	}
	t, err := r.registry.Get(id)
	if err != nil {
		logger.Error("failed to load finished task", "error", err)
		return
	}
	r.onComplete(t)
}
