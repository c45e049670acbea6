package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bulssi/profile-api/internal/domain"
)

// Transcriber converts the speech in a media file to text.
type Transcriber interface {
	// Transcribe returns the recognized text of the file at path.
	// language is an ISO 639-1 code such as "ko".
	Transcribe(ctx context.Context, path string, language string) (string, error)
}

// Extractor asks a language model to extract a profile from a transcript.
type Extractor interface {
	// Extract returns the raw model payload, expected to be a JSON object.
	Extract(ctx context.Context, transcript string) ([]byte, error)
}

// Result is the output of a successful pipeline run.
type Result struct {
	Profile    *domain.Profile `json:"extracted_info"`
	Transcript string          `json:"raw_stt_text_data"`
}

// Pipeline runs transcription followed by profile extraction.
// It holds no per-run state and may be shared by many goroutines.
type Pipeline struct {
	transcriber Transcriber
	extractor   Extractor
	language    string
	logger      *slog.Logger
}

// NewPipeline creates a Pipeline. language is passed to the transcriber.
func NewPipeline(
	transcriber Transcriber,
	extractor Extractor,
	language string,
	logger *slog.Logger,
) (*Pipeline, error) {
	if transcriber == nil {
		return nil, fmt.Errorf("transcriber cannot be nil")
	}
	if extractor == nil {
		return nil, fmt.Errorf("extractor cannot be nil")
	}
	if language == "" {
		return nil, fmt.Errorf("language cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		transcriber: transcriber,
		extractor:   extractor,
		language:    language,
		logger:      logger.With("component", "extraction_pipeline"),
	}, nil
}

// Run transcribes the file at path and extracts a normalized profile.
// Errors are always *Failure values.
func (p *Pipeline) Run(ctx context.Context, path string) (*Result, error) {
	transcript, err := p.transcriber.Transcribe(ctx, path, p.language)
	if err != nil {
		return nil, newFailure(KindCollaboratorError, MsgTranscriptionFailed, err)
	}

	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, newFailure(KindEmptyTranscript, MsgEmptyTranscript, nil)
	}
	p.logger.Debug("transcription finished", "transcript_chars", len([]rune(transcript)))

	raw, err := p.extractor.Extract(ctx, transcript)
	if err != nil {
		return nil, newFailure(KindCollaboratorError, MsgExtractionFailed, err)
	}

	profile, err := ParseProfile(raw)
	if err != nil {
		return nil, newFailure(KindMalformedModelResponse, MsgMalformedResponse, err)
	}

	return &Result{
		Profile:    profile,
		Transcript: transcript,
	}, nil
}
