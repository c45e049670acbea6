package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/bulssi/profile-api/internal/api/shared"
	"github.com/bulssi/profile-api/internal/artifact"
	"github.com/bulssi/profile-api/internal/extraction"
	"github.com/bulssi/profile-api/internal/task"
)

// Request errors raised by the handlers themselves
var (
	// ErrMissingVideo is returned when a multipart request has no video part.
	ErrMissingVideo = errors.New("missing video file")

	// ErrInvalidTaskID is returned when a task id path parameter is not a UUID.
	ErrInvalidTaskID = errors.New("invalid task id")

	// ErrMalformedUpload is returned when the request is not a readable multipart form.
	ErrMalformedUpload = errors.New("malformed multipart request")
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking internal error types to clients.
func MapErrorToStatusCode(err error) int {
	var maxBytesErr *http.MaxBytesError
	var validationErrs validator.ValidationErrors

	switch {
	// Bad request errors
	case errors.Is(err, ErrMissingVideo),
		errors.Is(err, ErrInvalidTaskID),
		errors.Is(err, ErrMalformedUpload),
		errors.Is(err, artifact.ErrUnsupportedMedia),
		errors.Is(err, extraction.ErrEmptyTranscript),
		errors.As(err, &validationErrs):
		return http.StatusBadRequest

	case errors.Is(err, artifact.ErrUploadTooLarge),
		errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge

	// Not found errors
	case errors.Is(err, task.ErrTaskNotFound):
		return http.StatusNotFound

	// Collaborator failures
	case errors.Is(err, extraction.ErrMalformedModelResponse),
		errors.Is(err, extraction.ErrCollaborator):
		return http.StatusBadGateway

	// Capacity
	case errors.Is(err, task.ErrQueueFull),
		errors.Is(err, task.ErrRunnerStopped):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

const genericErrorMessage = "An unexpected error occurred"

// GetSafeErrorMessage returns a client-safe message for err.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return genericErrorMessage
	}

	var maxBytesErr *http.MaxBytesError
	var validationErrs validator.ValidationErrors

	if failure, ok := extraction.AsFailure(err); ok && failure.Message != "" {
		return failure.Message
	}

	switch {
	case errors.Is(err, ErrMissingVideo):
		return "a video file is required in the 'video' form field"
	case errors.Is(err, ErrInvalidTaskID):
		return "invalid task id"
	case errors.Is(err, ErrMalformedUpload):
		return "request must be multipart/form-data"
	case errors.As(err, &validationErrs):
		return SanitizeValidationError(err)
	case errors.Is(err, artifact.ErrUnsupportedMedia):
		return "unsupported media type: upload a video file"
	case errors.Is(err, artifact.ErrUploadTooLarge),
		errors.As(err, &maxBytesErr):
		return "upload exceeds the maximum allowed size"
	case errors.Is(err, artifact.ErrStorageFailure):
		return "failed to store the uploaded video"
	case errors.Is(err, task.ErrTaskNotFound):
		return "task not found"
	case errors.Is(err, task.ErrQueueFull):
		return task.MsgQueueFull
	case errors.Is(err, task.ErrRunnerStopped):
		return task.MsgShuttingDown
	default:
		return genericErrorMessage
	}
}

// HandleAPIError writes the status and safe message for err and logs the
// redacted details. defaultMsg replaces the generic 500 message when set;
// errors with a known safe message keep it.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && defaultMsg != "" && message == genericErrorMessage {
		message = defaultMsg
	}

	var opts []shared.ResponseOption
	if status == http.StatusRequestEntityTooLarge {
		opts = append(opts, shared.WithElevatedLogLevel())
	}

	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}

// SanitizeValidationError turns validator errors into a short message that
// names the field without echoing the submitted value.
func SanitizeValidationError(err error) string {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		fe := validationErrs[0]
		return fmt.Sprintf("Invalid %s: %s", strings.ToLower(fe.Field()), getValidationTagMessage(fe.Tag()))
	}
	return "Validation error"
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "gt", "min":
		return "too small"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
