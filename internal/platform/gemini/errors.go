package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrInvalidConfig is returned when the LLM configuration is unusable.
	ErrInvalidConfig = errors.New("invalid gemini configuration")

	// ErrEmptyInput is returned when there is no text or file to send.
	ErrEmptyInput = errors.New("input cannot be empty")

	// ErrInvalidResponse is returned when a response carries no usable text.
	ErrInvalidResponse = errors.New("invalid response from gemini")

	// ErrContentBlocked is returned when safety filters blocked the response.
	ErrContentBlocked = errors.New("content blocked by gemini safety filters")

	// ErrFileProcessing is returned when an uploaded file never became usable.
	ErrFileProcessing = errors.New("uploaded file could not be processed")
)
