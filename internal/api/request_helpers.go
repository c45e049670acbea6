package api

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bulssi/profile-api/internal/api/shared"
)

// videoFields are the accepted multipart field names, in lookup order.
var videoFields = []string{"video", "video_file"}

// multipartMemory is the part of a multipart body kept in memory; the rest
// spills to temporary files managed by net/http.
const multipartMemory = 8 << 20

// multipartOverhead is allowed on top of the upload limit for boundaries and headers.
const multipartOverhead = 1 << 20

// getPathUUID extracts a UUID path parameter.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, fmt.Errorf("%w: %s is required", ErrInvalidTaskID, paramName)
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidTaskID, err)
	}
	return id, nil
}

// videoUpload is an opened multipart video part.
type videoUpload struct {
	file multipart.File
	meta shared.UploadMetadata
}

// readVideoUpload parses the multipart body and opens the video part.
// The caller must close the returned file.
func readVideoUpload(w http.ResponseWriter, r *http.Request, maxUploadBytes int64) (*videoUpload, error) {
	if maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+multipartOverhead)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedUpload, err)
	}

	for _, field := range videoFields {
		file, header, err := r.FormFile(field)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedUpload, err)
		}

		meta := shared.UploadMetadata{
			Field:    field,
			Filename: header.Filename,
			Size:     header.Size,
		}
		if err := shared.ValidateRequest(meta); err != nil {
			_ = file.Close()
			return nil, err
		}
		return &videoUpload{file: file, meta: meta}, nil
	}

	return nil, ErrMissingVideo
}
