package api

import (
	"github.com/bulssi/profile-api/internal/domain"
	"github.com/bulssi/profile-api/internal/task"
)

// Response messages
const (
	msgTaskAccepted = "video accepted, analysis is processing"
	statusSuccess   = "success"
	statusOK        = "ok"
)

// SubmitResponse is returned by POST /process-video.
type SubmitResponse struct {
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
}

// AnalyzeResponse is returned by POST /analyze-video.
type AnalyzeResponse struct {
	Status        string          `json:"status"`
	ExtractedInfo *domain.Profile `json:"extracted_info"`
	RawSTTText    string          `json:"raw_stt_text_data"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string                  `json:"status"`
	Tasks  map[task.TaskStatus]int `json:"tasks"`
}
