package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"google.golang.org/genai"

	"github.com/bulssi/profile-api/internal/config"
)

const (
	defaultPollInterval = 2 * time.Second
	transcribePrompt    = "Transcribe the speech in this recording verbatim in the language with ISO 639-1 code %q. " +
		"Return only the transcript text. If there is no speech, return an empty response."
)

// Transcriber implements extraction.Transcriber using the Gemini Files API
// and a multimodal model.
type Transcriber struct {
	files        fileService
	models       contentGenerator
	model        string
	pollInterval time.Duration
	logger       *slog.Logger
}

// NewTranscriber creates a Transcriber backed by client.
func NewTranscriber(client *genai.Client, cfg config.LLMConfig, logger *slog.Logger) (*Transcriber, error) {
	if client == nil {
		return nil, errors.New("gemini client cannot be nil")
	}
	return newTranscriber(client.Files, client.Models, cfg, logger)
}

func newTranscriber(
	files fileService,
	models contentGenerator,
	cfg config.LLMConfig,
	logger *slog.Logger,
) (*Transcriber, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.TranscriptionModel == "" {
		return nil, fmt.Errorf("%w: transcription model cannot be empty", ErrInvalidConfig)
	}

	return &Transcriber{
		files:        files,
		models:       models,
		model:        cfg.TranscriptionModel,
		pollInterval: defaultPollInterval,
		logger:       logger.With("component", "gemini_transcriber"),
	}, nil
}

// Transcribe implements extraction.Transcriber. The uploaded copy is deleted
// from Gemini before returning.
func (t *Transcriber) Transcribe(ctx context.Context, path string, language string) (string, error) {
	if path == "" {
		return "", ErrEmptyInput
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("detecting media type: %w", err)
	}

	file, err := t.files.UploadFromPath(ctx, path, &genai.UploadFileConfig{
		MIMEType: mtype.String(),
	})
	if err != nil {
		return "", fmt.Errorf("gemini file upload: %w", err)
	}
	defer t.deleteFile(file.Name)

	file, err = t.waitForActive(ctx, file)
	if err != nil {
		return "", err
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromURI(file.URI, mtype.String()),
			genai.NewPartFromText(fmt.Sprintf(transcribePrompt, language)),
		}, genai.RoleUser),
	}

	resp, err := t.models.GenerateContent(ctx, t.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini transcription: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return "", err
	}

	t.logger.InfoContext(ctx, "gemini transcription finished",
		"model", t.model,
		"mime_type", mtype.String(),
		"transcript_chars", len([]rune(text)))

	return strings.TrimSpace(text), nil
}

// waitForActive polls an uploaded file until the service finished processing it.
func (t *Transcriber) waitForActive(ctx context.Context, file *genai.File) (*genai.File, error) {
	for {
		switch file.State {
		case genai.FileStateActive:
			return file, nil
		case genai.FileStateFailed:
			return nil, fmt.Errorf("%w: %s", ErrFileProcessing, file.Name)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(t.pollInterval):
		}

		next, err := t.files.Get(ctx, file.Name, nil)
		if err != nil {
			return nil, fmt.Errorf("gemini file status: %w", err)
		}
		file = next
	}
}

func (t *Transcriber) deleteFile(name string) {
	if name == "" {
		return
	}
	// Cleanup must not depend on the caller's context.
	if _, err := t.files.Delete(context.Background(), name, nil); err != nil {
		t.logger.Warn("failed to delete uploaded file from gemini",
			"file_name", name,
			"error", err)
	}
}
