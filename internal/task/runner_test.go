package task

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bulssi/profile-api/internal/artifact"
	"github.com/bulssi/profile-api/internal/config"
	"github.com/bulssi/profile-api/internal/domain"
	"github.com/bulssi/profile-api/internal/extraction"
	"github.com/bulssi/profile-api/internal/mocks"
)

var mp4Header = []byte{
	0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'm', 'p', '4', '2',
	0x00, 0x00, 0x00, 0x00, 'm', 'p', '4', '2', 'i', 's', 'o', 'm',
}

type runnerFixture struct {
	runner   *TaskRunner
	registry *InMemoryRegistry
	store    *artifact.Store
	pipeline *mocks.MockPipeline
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func newRunnerFixture(t *testing.T, pipeline *mocks.MockPipeline, cfg TaskRunnerConfig) *runnerFixture {
	t.Helper()

	store, err := artifact.NewStore(afero.NewMemMapFs(), config.StorageConfig{
		UploadDir:         "uploads",
		MaxUploadBytes:    1 << 20,
		AllowedExtensions: []string{".mp4"},
	}, testLogger())
	require.NoError(t, err)

	registry := NewInMemoryRegistry()
	runner, err := NewTaskRunner(registry, pipeline, store, cfg, testLogger())
	require.NoError(t, err)

	return &runnerFixture{
		runner:   runner,
		registry: registry,
		store:    store,
		pipeline: pipeline,
	}
}

func (f *runnerFixture) saveArtifact(t *testing.T) string {
	t.Helper()
	payload := make([]byte, 256)
	copy(payload, mp4Header)
	path, err := f.store.Save(context.Background(), bytes.NewReader(payload), "video.mp4")
	require.NoError(t, err)
	return path
}

func waitForTerminal(t *testing.T, r Registry, id uuid.UUID) Task {
	t.Helper()
	var task Task
	require.Eventually(t, func() bool {
		var err error
		task, err = r.Get(id)
		return err == nil && task.Status.IsTerminal()
	}, 5*time.Second, 5*time.Millisecond, "task %s did not finish", id)
	return task
}

func successResult() *extraction.Result {
	p := domain.NewProfile()
	p.Name = domain.StringPtr("김영수")
	p.Gender = domain.GenderMale
	p.Hobbies = []string{"등산", "영화"}
	return &extraction.Result{Profile: p, Transcript: "안녕하세요"}
}

func TestNewTaskRunner_Validation(t *testing.T) {
	registry := NewInMemoryRegistry()
	pipeline := &mocks.MockPipeline{}
	store, err := artifact.NewStore(afero.NewMemMapFs(), config.StorageConfig{UploadDir: "u"}, nil)
	require.NoError(t, err)

	_, err = NewTaskRunner(nil, pipeline, store, DefaultTaskRunnerConfig(), nil)
	assert.Error(t, err)
	_, err = NewTaskRunner(registry, nil, store, DefaultTaskRunnerConfig(), nil)
	assert.Error(t, err)
	_, err = NewTaskRunner(registry, pipeline, nil, DefaultTaskRunnerConfig(), nil)
	assert.Error(t, err)

	runner, err := NewTaskRunner(registry, pipeline, store, TaskRunnerConfig{}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultTaskRunnerConfig(), runner.config, "invalid config falls back to defaults")
}

func TestTaskRunner_SubmitReturnsBeforePipelineFinishes(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	pipeline := &mocks.MockPipeline{
		RunFn: func(ctx context.Context, path string) (*extraction.Result, error) {
			<-release
			return successResult(), nil
		},
	}
	f := newRunnerFixture(t, pipeline, DefaultTaskRunnerConfig())
	require.NoError(t, f.runner.Start())
	defer f.runner.Stop()

	path := f.saveArtifact(t)

	start := time.Now()
	id, err := f.runner.Submit(context.Background(), path)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second, "submit must not wait for the pipeline")

	task, err := f.registry.Get(id)
	require.NoError(t, err)
	assert.Equal(t, TaskStatusProcessing, task.Status, "an immediate poll reports processing")
	assert.Nil(t, task.Result)

	close(release)

	task = waitForTerminal(t, f.registry, id)
	assert.Equal(t, TaskStatusCompleted, task.Status)
	require.NotNil(t, task.Result)
	assert.Equal(t, []string{"등산", "영화"}, task.Result.Hobbies)
	assert.False(t, f.store.Exists(path), "artifact must be deleted once the task is terminal")
	assert.Equal(t, []string{path}, pipeline.Paths())
}

func TestTaskRunner_FailureOutcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		run             func(ctx context.Context, path string) (*extraction.Result, error)
		expectedKind    string
		expectedMessage string
	}{
		{
			name: "empty transcript",
			run: func(ctx context.Context, path string) (*extraction.Result, error) {
				p, err := extraction.NewPipeline(
					mocks.NewMockTranscriberWithText(""),
					mocks.NewMockExtractorWithJSON(mocks.DefaultProfileJSON),
					"ko", testLogger())
				if err != nil {
					return nil, err
				}
				return p.Run(ctx, path)
			},
			expectedKind:    string(extraction.KindEmptyTranscript),
			expectedMessage: extraction.MsgEmptyTranscript,
		},
		{
			name: "malformed model response",
			run: func(ctx context.Context, path string) (*extraction.Result, error) {
				p, err := extraction.NewPipeline(
					mocks.NewMockTranscriberWithText("안녕하세요"),
					mocks.NewMockExtractorWithJSON("not json"),
					"ko", testLogger())
				if err != nil {
					return nil, err
				}
				return p.Run(ctx, path)
			},
			expectedKind:    string(extraction.KindMalformedModelResponse),
			expectedMessage: extraction.MsgMalformedResponse,
		},
		{
			name: "unclassified error",
			run: func(ctx context.Context, path string) (*extraction.Result, error) {
				return nil, errors.New("disk exploded at /var/secret/path")
			},
			expectedKind:    ErrorKindInternal,
			expectedMessage: MsgInternalError,
		},
		{
			name: "panic",
			run: func(ctx context.Context, path string) (*extraction.Result, error) {
				panic("nil map write")
			},
			expectedKind:    ErrorKindInternal,
			expectedMessage: MsgInternalError,
		},
		{
			name: "nil result",
			run: func(ctx context.Context, path string) (*extraction.Result, error) {
				return nil, nil
			},
			expectedKind:    ErrorKindInternal,
			expectedMessage: MsgInternalError,
		},
		{
			name: "invalid profile",
			run: func(ctx context.Context, path string) (*extraction.Result, error) {
				result := successResult()
				result.Profile.Gender = "X"
				return result, nil
			},
			expectedKind:    ErrorKindInternal,
			expectedMessage: MsgInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRunnerFixture(t, &mocks.MockPipeline{RunFn: tt.run}, DefaultTaskRunnerConfig())
			require.NoError(t, f.runner.Start())
			defer f.runner.Stop()

			path := f.saveArtifact(t)
			id, err := f.runner.Submit(context.Background(), path)
			require.NoError(t, err)

			task := waitForTerminal(t, f.registry, id)

			assert.Equal(t, TaskStatusFailed, task.Status)
			assert.Nil(t, task.Result)
			assert.Equal(t, tt.expectedKind, task.ErrorKind)
			assert.Equal(t, tt.expectedMessage, task.Error)
			assert.False(t, f.store.Exists(path), "artifact must be deleted on failure")
		})
	}
}

func TestTaskRunner_WorkerSurvivesPanic(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	calls := 0
	pipeline := &mocks.MockPipeline{
		RunFn: func(ctx context.Context, path string) (*extraction.Result, error) {
			mu.Lock()
			calls++
			first := calls == 1
			mu.Unlock()
			if first {
				panic("boom")
			}
			return successResult(), nil
		},
	}
	f := newRunnerFixture(t, pipeline, TaskRunnerConfig{WorkerCount: 1, QueueSize: 4})
	require.NoError(t, f.runner.Start())
	defer f.runner.Stop()

	first, err := f.runner.Submit(context.Background(), f.saveArtifact(t))
	require.NoError(t, err)
	second, err := f.runner.Submit(context.Background(), f.saveArtifact(t))
	require.NoError(t, err)

	assert.Equal(t, TaskStatusFailed, waitForTerminal(t, f.registry, first).Status)
	assert.Equal(t, TaskStatusCompleted, waitForTerminal(t, f.registry, second).Status,
		"the single worker must keep processing after a panic")
}

func TestTaskRunner_QueueFull(t *testing.T) {
	t.Parallel()

	f := newRunnerFixture(t, &mocks.MockPipeline{Result: successResult()},
		TaskRunnerConfig{WorkerCount: 1, QueueSize: 1})
	// Workers are not started so the queue fills up

	queuedPath := f.saveArtifact(t)
	queuedID, err := f.runner.Submit(context.Background(), queuedPath)
	require.NoError(t, err)
	assert.Equal(t, 1, f.runner.QueueLength())

	rejectedPath := f.saveArtifact(t)
	rejectedID, err := f.runner.Submit(context.Background(), rejectedPath)
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, uuid.Nil, rejectedID)
	assert.False(t, f.store.Exists(rejectedPath), "rejected artifact must be deleted")
	assert.True(t, f.store.Exists(queuedPath))

	// The rejected submission leaves nothing behind in the registry
	assert.Equal(t, map[TaskStatus]int{
		TaskStatusProcessing: 1,
		TaskStatusCompleted:  0,
		TaskStatusFailed:     0,
	}, f.registry.Counts())

	// Stopping drains the queued job
	f.runner.Stop()

	task, err := f.registry.Get(queuedID)
	require.NoError(t, err)
	assert.Equal(t, TaskStatusFailed, task.Status)
	assert.Equal(t, ErrorKindRejected, task.ErrorKind)
	assert.Equal(t, MsgShuttingDown, task.Error)
	assert.False(t, f.store.Exists(queuedPath), "drained artifact must be deleted")
	assert.Empty(t, f.pipeline.Paths(), "drained jobs never reach the pipeline")
}

func TestTaskRunner_SubmitAfterStop(t *testing.T) {
	t.Parallel()

	f := newRunnerFixture(t, &mocks.MockPipeline{Result: successResult()}, DefaultTaskRunnerConfig())
	require.NoError(t, f.runner.Start())
	f.runner.Stop()
	f.runner.Stop() // second call is a no-op

	path := f.saveArtifact(t)
	id, err := f.runner.Submit(context.Background(), path)

	assert.ErrorIs(t, err, ErrRunnerStopped)
	assert.Equal(t, uuid.Nil, id)
	assert.False(t, f.store.Exists(path))
	assert.ErrorIs(t, f.runner.Start(), ErrRunnerStopped)
}

func TestTaskRunner_SubmitCancelledContext(t *testing.T) {
	t.Parallel()

	f := newRunnerFixture(t, &mocks.MockPipeline{Result: successResult()}, DefaultTaskRunnerConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := f.saveArtifact(t)
	_, err := f.runner.Submit(ctx, path)

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, f.store.Exists(path))
	assert.Equal(t, 0, f.registry.Counts()[TaskStatusProcessing])
}

func TestTaskRunner_StartTwice(t *testing.T) {
	t.Parallel()

	f := newRunnerFixture(t, &mocks.MockPipeline{Result: successResult()}, DefaultTaskRunnerConfig())
	require.NoError(t, f.runner.Start())
	defer f.runner.Stop()

	assert.Error(t, f.runner.Start())
}

func TestTaskRunner_StopWaitsForInFlightJobs(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	pipeline := &mocks.MockPipeline{
		RunFn: func(ctx context.Context, path string) (*extraction.Result, error) {
			close(started)
			<-release
			return successResult(), nil
		},
	}
	f := newRunnerFixture(t, pipeline, TaskRunnerConfig{WorkerCount: 1, QueueSize: 4})
	require.NoError(t, f.runner.Start())

	path := f.saveArtifact(t)
	id, err := f.runner.Submit(context.Background(), path)
	require.NoError(t, err)
	<-started

	stopped := make(chan struct{})
	go func() {
		f.runner.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a job was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-stopped

	task, err := f.registry.Get(id)
	require.NoError(t, err)
	assert.Equal(t, TaskStatusCompleted, task.Status, "in-flight jobs are not interrupted")
	assert.False(t, f.store.Exists(path))
}

func TestTaskRunner_ConcurrentSubmissions(t *testing.T) {
	t.Parallel()

	pipeline := &mocks.MockPipeline{
		RunFn: func(ctx context.Context, path string) (*extraction.Result, error) {
			time.Sleep(time.Millisecond)
			return successResult(), nil
		},
	}
	f := newRunnerFixture(t, pipeline, TaskRunnerConfig{WorkerCount: 4, QueueSize: 64})

	var mu sync.Mutex
	notified := make(map[uuid.UUID]int)
	f.runner.SetCompletionHandler(func(task Task) {
		mu.Lock()
		defer mu.Unlock()
		notified[task.ID]++
	})

	require.NoError(t, f.runner.Start())
	defer f.runner.Stop()

	const n = 32
	paths := make([]string, n)
	for i := range paths {
		paths[i] = f.saveArtifact(t)
	}

	ids := make([]uuid.UUID, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := f.runner.Submit(context.Background(), paths[i])
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for i, id := range ids {
		task := waitForTerminal(t, f.registry, id)
		assert.Equal(t, TaskStatusCompleted, task.Status)
		assert.False(t, f.store.Exists(paths[i]))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(notified) == n
	}, 5*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for id, count := range notified {
		assert.Equal(t, 1, count, "task %s notified more than once", id)
	}
}
