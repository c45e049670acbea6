package extraction

import "errors"

// Kind classifies a pipeline failure.
type Kind string

// Pipeline failure kinds
const (
	KindEmptyTranscript        Kind = "empty_transcript"
	KindMalformedModelResponse Kind = "malformed_model_response"
	KindCollaboratorError      Kind = "collaborator_error"
)

// Sentinel errors matched by *Failure through errors.Is
var (
	// ErrEmptyTranscript indicates that no speech was recognized in the video.
	ErrEmptyTranscript = errors.New("empty transcript")

	// ErrMalformedModelResponse indicates the language model output could not be parsed.
	ErrMalformedModelResponse = errors.New("malformed model response")

	// ErrCollaborator indicates that a transcription or extraction call failed.
	ErrCollaborator = errors.New("collaborator call failed")
)

// Messages returned to API clients. They never include collaborator details.
const (
	MsgEmptyTranscript     = "no recognizable speech was found in the video"
	MsgMalformedResponse   = "the language model returned a response that could not be parsed"
	MsgTranscriptionFailed = "speech recognition failed"
	MsgExtractionFailed    = "profile extraction failed"
)

// Failure is the error returned by Pipeline.Run.
// Message is safe for clients; Err holds the underlying cause for logs.
type Failure struct {
	Kind    Kind
	Message string
	Err     error
}

func newFailure(kind Kind, message string, err error) *Failure {
	return &Failure{Kind: kind, Message: message, Err: err}
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.Err != nil {
		return f.Message + ": " + f.Err.Error()
	}
	return f.Message
}

// Unwrap exposes both the kind's sentinel error and the underlying cause.
func (f *Failure) Unwrap() []error {
	errs := make([]error, 0, 2)
	if sentinel := f.Kind.sentinel(); sentinel != nil {
		errs = append(errs, sentinel)
	}
	if f.Err != nil {
		errs = append(errs, f.Err)
	}
	return errs
}

func (k Kind) sentinel() error {
	switch k {
	case KindEmptyTranscript:
		return ErrEmptyTranscript
	case KindMalformedModelResponse:
		return ErrMalformedModelResponse
	case KindCollaboratorError:
		return ErrCollaborator
	default:
		return nil
	}
}

// AsFailure returns the *Failure in err's chain, if any.
func AsFailure(err error) (*Failure, bool) {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure, true
	}
	return nil, false
}
