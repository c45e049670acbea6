package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/bulssi/profile-api/internal/artifact"
	"github.com/bulssi/profile-api/internal/config"
	"github.com/bulssi/profile-api/internal/extraction"
	"github.com/bulssi/profile-api/internal/platform/gemini"
	"github.com/bulssi/profile-api/internal/platform/whisper"
	"github.com/bulssi/profile-api/internal/service"
	"github.com/bulssi/profile-api/internal/task"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	artifacts *artifact.Store
	pipeline  *extraction.Pipeline
	registry  *task.InMemoryRegistry

	analysisService service.AnalysisService

	taskRunner *task.TaskRunner
}

// collaborators are the model-backed dependencies of the extraction pipeline.
type collaborators struct {
	transcriber extraction.Transcriber
	extractor   extraction.Extractor
}

// newApplication creates the application with real collaborators: the
// configured speech-to-text backend, the Gemini extractor and the OS filesystem.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	collab, err := newCollaborators(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return assembleApplication(cfg, logger, afero.NewOsFs(), collab)
}

// newCollaborators builds the transcriber selected by cfg.STT.Provider and
// the Gemini profile extractor.
func newCollaborators(ctx context.Context, cfg *config.Config, logger *slog.Logger) (collaborators, error) {
	client, err := gemini.NewClient(ctx, cfg.LLM)
	if err != nil {
		return collaborators{}, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	extractor, err := gemini.NewExtractor(client, cfg.LLM, logger)
	if err != nil {
		return collaborators{}, fmt.Errorf("failed to initialize profile extractor: %w", err)
	}

	var transcriber extraction.Transcriber
	switch cfg.STT.Provider {
	case "whisper":
		transcriber, err = whisper.NewTranscriber(cfg.STT, nil, logger)
	case "gemini":
		transcriber, err = gemini.NewTranscriber(client, cfg.LLM, logger)
	default:
		err = fmt.Errorf("unknown stt provider %q", cfg.STT.Provider)
	}
	if err != nil {
		return collaborators{}, fmt.Errorf("failed to initialize transcriber: %w", err)
	}

	logger.Info("model collaborators initialized",
		"stt_provider", cfg.STT.Provider,
		"llm_model", cfg.LLM.ModelName)

	return collaborators{transcriber: transcriber, extractor: extractor}, nil
}

// assembleApplication wires storage, pipeline, task runner and service
// around the given collaborators and starts the task runner.
func assembleApplication(
	cfg *config.Config,
	logger *slog.Logger,
	fs afero.Fs,
	collab collaborators,
) (*application, error) {
	app := &application{
		config:   cfg,
		logger:   logger,
		registry: task.NewInMemoryRegistry(),
	}

	var err error
	app.artifacts, err = artifact.NewStore(fs, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact store: %w", err)
	}

	app.pipeline, err = extraction.NewPipeline(collab.transcriber, collab.extractor, cfg.STT.Language, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction pipeline: %w", err)
	}

	app.taskRunner, err = setupTaskRunner(app)
	if err != nil {
		return nil, fmt.Errorf("failed to setup task runner: %w", err)
	}

	app.analysisService, err = service.NewAnalysisService(
		app.artifacts,
		app.taskRunner,
		app.registry,
		app.pipeline,
		logger,
	)
	if err != nil {
		app.taskRunner.Stop()
		return nil, fmt.Errorf("failed to create analysis service: %w", err)
	}

	logger.Info("application initialized successfully",
		"upload_dir", app.artifacts.Dir(),
		"queue_size", cfg.Task.QueueSize)
	return app, nil
}

// setupTaskRunner creates and starts the background analysis workers.
func setupTaskRunner(app *application) (*task.TaskRunner, error) {
	runner, err := task.NewTaskRunner(app.registry, app.pipeline, app.artifacts, task.TaskRunnerConfig{
		WorkerCount: app.config.Task.WorkerCount,
		QueueSize:   app.config.Task.QueueSize,
	}, app.logger)
	if err != nil {
		return nil, err
	}

	runner.SetCompletionHandler(func(t task.Task) {
		app.logger.Debug("task finished",
			"task_id", t.ID,
			"status", t.Status,
			"error_kind", t.ErrorKind,
			"duration_ms", t.UpdatedAt.Sub(t.CreatedAt).Milliseconds())
	})

	if err := runner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start task runner: %w", err)
	}
	return runner, nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops the task runner. Tasks still queued are failed and their
// artifacts removed.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}
	app.logger.Info("application shutdown completed")
}
