package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bulssi/profile-api/internal/config"
	"github.com/bulssi/profile-api/internal/mocks"
)

var mp4Header = []byte{
	0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'm', 'p', '4', '2',
	0x00, 0x00, 0x00, 0x00, 'm', 'p', '4', '2', 'i', 's', 'o', 'm',
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8000, LogLevel: "debug", ShutdownTimeoutSeconds: 2},
		Storage: config.StorageConfig{
			UploadDir:         "uploads",
			MaxUploadBytes:    1 << 20,
			AllowedExtensions: []string{".mp4", ".mov"},
		},
		Task: config.TaskConfig{WorkerCount: 2, QueueSize: 10},
		STT:  config.STTConfig{Provider: "whisper", Language: "ko", WhisperBinary: "whisper", WhisperModel: "small"},
		LLM:  config.LLMConfig{GeminiAPIKey: "test-key", ModelName: "gemini-2.5-flash", TranscriptionModel: "gemini-2.5-flash"},
	}
}

type testApp struct {
	app         *application
	fs          afero.Fs
	server      *httptest.Server
	transcriber *mocks.MockTranscriber
	extractor   *mocks.MockExtractor
}

func newTestApp(t *testing.T, transcriber *mocks.MockTranscriber, extractor *mocks.MockExtractor) *testApp {
	t.Helper()

	fs := afero.NewMemMapFs()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app, err := assembleApplication(testConfig(), logger, fs, collaborators{
		transcriber: transcriber,
		extractor:   extractor,
	})
	require.NoError(t, err)

	server := httptest.NewServer(app.setupRouter())
	t.Cleanup(func() {
		server.Close()
		app.cleanup()
	})

	return &testApp{app: app, fs: fs, server: server, transcriber: transcriber, extractor: extractor}
}

func (a *testApp) upload(t *testing.T, path, field string) *http.Response {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, "interview.mp4")
	require.NoError(t, err)
	payload := make([]byte, 4096)
	copy(payload, mp4Header)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(a.server.URL+path, mw.FormDataContentType(), &body)
	require.NoError(t, err)
	return resp
}

func (a *testApp) getJSON(t *testing.T, path string) (int, map[string]interface{}) {
	t.Helper()

	resp, err := http.Get(a.server.URL + path)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func (a *testApp) waitForStatus(t *testing.T, taskID string) map[string]interface{} {
	t.Helper()

	var last map[string]interface{}
	require.Eventually(t, func() bool {
		_, last = a.getJSON(t, "/tasks/"+taskID)
		return last["status"] != "processing"
	}, 5*time.Second, 10*time.Millisecond)
	return last
}

func (a *testApp) storedUploads(t *testing.T) int {
	t.Helper()
	entries, err := afero.ReadDir(a.fs, "uploads")
	if err != nil {
		return 0
	}
	return len(entries)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestSubmitAndPollCompleted(t *testing.T) {
	a := newTestApp(t,
		mocks.NewMockTranscriberWithText("안녕하세요 저는 김영수이고 일흔두 살입니다"),
		mocks.NewMockExtractorWithJSON(mocks.DefaultProfileJSON))

	resp := a.upload(t, "/process-video", "video")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	submitted := decodeBody(t, resp)
	taskID, ok := submitted["task_id"].(string)
	require.True(t, ok)

	final := a.waitForStatus(t, taskID)

	assert.Equal(t, "completed", final["status"])
	result, ok := final["result"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "김영수", result["name"])
	assert.Equal(t, "72세", result["age"])
	assert.Equal(t, "M", result["gender"])
	assert.Equal(t, []interface{}{"등산", "바둑"}, result["hobbies"])
	assert.NotContains(t, final, "error")

	assert.Equal(t, 0, a.storedUploads(t), "artifact must be removed once the task is terminal")
	assert.Equal(t, []string{"ko"}, a.transcriber.TranscribeCalls.Languages)
}

func TestSubmitAndPollEmptyTranscript(t *testing.T) {
	a := newTestApp(t,
		mocks.NewMockTranscriberWithText("   "),
		mocks.NewMockExtractorWithJSON(mocks.DefaultProfileJSON))

	resp := a.upload(t, "/process-video", "video_file")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	taskID := decodeBody(t, resp)["task_id"].(string)

	final := a.waitForStatus(t, taskID)

	assert.Equal(t, "failed", final["status"])
	assert.Equal(t, "empty_transcript", final["error_kind"])
	assert.NotEmpty(t, final["error"])
	assert.NotContains(t, final, "result")
	assert.Equal(t, 0, a.extractor.CallCount(), "extractor is not called for an empty transcript")
	assert.Equal(t, 0, a.storedUploads(t))
}

func TestSubmitAndPollMalformedResponse(t *testing.T) {
	a := newTestApp(t,
		mocks.NewMockTranscriberWithText("안녕하세요"),
		mocks.NewMockExtractorWithJSON("Sure! Here is the profile you asked for."))

	resp := a.upload(t, "/process-video", "video")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	taskID := decodeBody(t, resp)["task_id"].(string)

	final := a.waitForStatus(t, taskID)

	assert.Equal(t, "failed", final["status"])
	assert.Equal(t, "malformed_model_response", final["error_kind"])
}

func TestGetUnknownTask(t *testing.T) {
	a := newTestApp(t,
		mocks.NewMockTranscriberWithText("x"),
		mocks.NewMockExtractorWithJSON(mocks.DefaultProfileJSON))

	status, body := a.getJSON(t, "/tasks/00000000-0000-0000-0000-000000000001")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "task not found", body["error"])
	assert.NotEmpty(t, body["trace_id"])
}

func TestAnalyzeVideoSynchronous(t *testing.T) {
	a := newTestApp(t,
		mocks.NewMockTranscriberWithText("저는 등산, 영화를 좋아해요"),
		mocks.NewMockExtractorWithJSON(`{"name":null,"age":"70대","hobbies":"등산, 영화","introduction":null}`))

	resp := a.upload(t, "/analyze-video", "video_file")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)

	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "저는 등산, 영화를 좋아해요", body["raw_stt_text_data"])
	info := body["extracted_info"].(map[string]interface{})
	assert.Equal(t, "F", info["gender"], "missing gender defaults to F")
	assert.Equal(t, []interface{}{"등산", "영화"}, info["hobbies"])
	assert.Equal(t, 0, a.storedUploads(t))
}

func TestHealth(t *testing.T) {
	a := newTestApp(t,
		mocks.NewMockTranscriberWithText("안녕하세요"),
		mocks.NewMockExtractorWithJSON(mocks.DefaultProfileJSON))

	resp := a.upload(t, "/process-video", "video")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	a.waitForStatus(t, decodeBody(t, resp)["task_id"].(string))

	status, body := a.getJSON(t, "/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	tasks := body["tasks"].(map[string]interface{})
	assert.Equal(t, float64(1), tasks["completed"])
}

func TestAssembleApplicationRejectsMissingCollaborators(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := assembleApplication(testConfig(), logger, afero.NewMemMapFs(), collaborators{
		extractor: mocks.NewMockExtractorWithJSON(mocks.DefaultProfileJSON),
	})
	assert.ErrorContains(t, err, "transcriber cannot be nil")

	cfg := testConfig()
	cfg.Storage.UploadDir = ""
	_, err = assembleApplication(cfg, logger, afero.NewMemMapFs(), collaborators{
		transcriber: mocks.NewMockTranscriberWithText("x"),
		extractor:   mocks.NewMockExtractorWithJSON(mocks.DefaultProfileJSON),
	})
	assert.ErrorContains(t, err, "artifact store")
}

func TestServeShutsDownOnCancel(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app, err := assembleApplication(testConfig(), logger, afero.NewMemMapFs(), collaborators{
		transcriber: mocks.NewMockTranscriberWithText("x"),
		extractor:   mocks.NewMockExtractorWithJSON(mocks.DefaultProfileJSON),
	})
	require.NoError(t, err)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.serve(ctx, listener, app.setupRouter()) }()

	url := fmt.Sprintf("http://%s/health", listener.Addr().String())
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	_, err = app.analysisService.SubmitVideo(context.Background(), bytes.NewReader(mp4Header), "a.mp4", int64(len(mp4Header)))
	assert.Error(t, err, "runner must be stopped after shutdown")
}
