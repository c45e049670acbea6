package shared

import (
	"github.com/go-playground/validator/v10"
)

// Global validator instance for reuse
var validate = validator.New()

// UploadMetadata describes a multipart file part before its bytes are read.
type UploadMetadata struct {
	Field    string `validate:"required,oneof=video video_file"`
	Filename string `validate:"required,max=255"`
	Size     int64  `validate:"gt=0"`
}

// ValidateRequest validates the given struct using the validator package.
func ValidateRequest(v interface{}) error {
	// Check if the object implements the Validate interface
	if validator, ok := v.(interface{ Validate() error }); ok {
		return validator.Validate()
	}

	// Otherwise, use the struct validator
	return validate.Struct(v)
}
