package api

import (
	"log/slog"
	"net/http"

	"github.com/bulssi/profile-api/internal/api/shared"
	"github.com/bulssi/profile-api/internal/platform/logger"
	"github.com/bulssi/profile-api/internal/service"
)

// AnalysisHandler handles video submission and task status requests
type AnalysisHandler struct {
	analysisService service.AnalysisService
	maxUploadBytes  int64
}

// NewAnalysisHandler creates a new AnalysisHandler.
// maxUploadBytes bounds the request body; zero disables the bound.
// Handlers log through the request-scoped logger set by the trace middleware.
func NewAnalysisHandler(analysisService service.AnalysisService, maxUploadBytes int64) *AnalysisHandler {
	return &AnalysisHandler{
		analysisService: analysisService,
		maxUploadBytes:  maxUploadBytes,
	}
}

// SubmitVideo handles POST /process-video requests.
// It responds 202 as soon as the upload is stored and the task registered.
func (h *AnalysisHandler) SubmitVideo(w http.ResponseWriter, r *http.Request) {
	upload, err := readVideoUpload(w, r, h.maxUploadBytes)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	defer func() { _ = upload.file.Close() }()

	taskID, err := h.analysisService.SubmitVideo(r.Context(), upload.file, upload.meta.Filename, upload.meta.Size)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit video")
		return
	}

	logger.FromContextOrDefault(r.Context()).Info("analysis task created",
		slog.String("task_id", taskID.String()),
		slog.String("field", upload.meta.Field),
		slog.Int64("size_bytes", upload.meta.Size))

	shared.RespondWithJSON(w, r, http.StatusAccepted, SubmitResponse{
		TaskID:  taskID.String(),
		Message: msgTaskAccepted,
	})
}

// GetTask handles GET /tasks/{taskID} requests
func (h *AnalysisHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := getPathUUID(r, "taskID")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	t, err := h.analysisService.GetTask(r.Context(), taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, t)
}

// AnalyzeVideo handles POST /analyze-video requests.
// The analysis runs within the request and the profile is returned directly.
func (h *AnalysisHandler) AnalyzeVideo(w http.ResponseWriter, r *http.Request) {
	upload, err := readVideoUpload(w, r, h.maxUploadBytes)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	defer func() { _ = upload.file.Close() }()

	result, err := h.analysisService.AnalyzeVideo(r.Context(), upload.file, upload.meta.Filename, upload.meta.Size)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to analyze video")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, AnalyzeResponse{
		Status:        statusSuccess,
		ExtractedInfo: result.Profile,
		RawSTTText:    result.Transcript,
	})
}

// Health handles GET /health requests
func (h *AnalysisHandler) Health(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{
		Status: statusOK,
		Tasks:  h.analysisService.TaskCounts(r.Context()),
	})
}
