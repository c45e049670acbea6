package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"google.golang.org/genai"

	"github.com/bulssi/profile-api/internal/config"
)

// Extractor implements extraction.Extractor with a Gemini model in JSON mode.
type Extractor struct {
	models contentGenerator
	model  string
	prompt *template.Template
	logger *slog.Logger
}

// NewExtractor creates an Extractor backed by client.
func NewExtractor(client *genai.Client, cfg config.LLMConfig, logger *slog.Logger) (*Extractor, error) {
	if client == nil {
		return nil, errors.New("gemini client cannot be nil")
	}
	return newExtractor(client.Models, cfg, logger)
}

func newExtractor(models contentGenerator, cfg config.LLMConfig, logger *slog.Logger) (*Extractor, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", ErrInvalidConfig)
	}

	prompt, err := LoadPromptTemplate(cfg.PromptTemplatePath)
	if err != nil {
		return nil, err
	}

	return &Extractor{
		models: models,
		model:  cfg.ModelName,
		prompt: prompt,
		logger: logger.With("component", "gemini_extractor"),
	}, nil
}

// Extract implements extraction.Extractor. It returns the model's raw JSON
// payload without interpreting it.
func (e *Extractor) Extract(ctx context.Context, transcript string) ([]byte, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, ErrEmptyInput
	}

	prompt, err := renderPrompt(e.prompt, transcript)
	if err != nil {
		return nil, err
	}

	e.logger.DebugContext(ctx, "calling gemini for profile extraction",
		"model", e.model,
		"prompt_length", len(prompt))
	start := time.Now()

	resp, err := e.models.GenerateContent(ctx, e.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "gemini profile extraction finished",
		"model", e.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"response_length", len(text))

	return []byte(text), nil
}
