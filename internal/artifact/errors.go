package artifact

import "errors"

// Common artifact errors
var (
	// ErrStorageFailure indicates the upload could not be written to disk.
	ErrStorageFailure = errors.New("failed to store upload")

	// ErrUnsupportedMedia indicates the upload is not an accepted video or audio file.
	ErrUnsupportedMedia = errors.New("unsupported media type")

	// ErrUploadTooLarge indicates the upload exceeds the configured size limit.
	ErrUploadTooLarge = errors.New("upload exceeds maximum allowed size")
)
