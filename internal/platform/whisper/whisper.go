// Package whisper runs the OpenAI whisper command line tool as a speech-to-text
// backend.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bulssi/profile-api/internal/config"
)

// maxOutputInError bounds how much CLI output is kept in an error message.
const maxOutputInError = 512

// CommandRunner executes a command and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// Transcriber implements extraction.Transcriber by invoking the whisper CLI
// and reading the plain text transcript it writes.
type Transcriber struct {
	binary string
	model  string
	run    CommandRunner
	logger *slog.Logger
}

// NewTranscriber creates a Transcriber from the STT configuration.
// A nil runner executes the real binary.
func NewTranscriber(cfg config.STTConfig, run CommandRunner, logger *slog.Logger) (*Transcriber, error) {
	if cfg.WhisperBinary == "" {
		return nil, errors.New("whisper binary cannot be empty")
	}
	if cfg.WhisperModel == "" {
		return nil, errors.New("whisper model cannot be empty")
	}
	if run == nil {
		run = execCommand
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Transcriber{
		binary: cfg.WhisperBinary,
		model:  cfg.WhisperModel,
		run:    run,
		logger: logger.With("component", "whisper_transcriber"),
	}, nil
}

// Transcribe implements extraction.Transcriber.
func (t *Transcriber) Transcribe(ctx context.Context, path string, language string) (string, error) {
	outDir, err := os.MkdirTemp("", "whisper-*")
	if err != nil {
		return "", fmt.Errorf("creating whisper output directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(outDir); err != nil {
			t.logger.Warn("failed to remove whisper output directory", "error", err)
		}
	}()

	args := []string{
		path,
		"--model", t.model,
		"--language", language,
		"--task", "transcribe",
		"--output_format", "txt",
		"--output_dir", outDir,
		"--verbose", "False",
	}

	start := time.Now()
	output, err := t.run(ctx, t.binary, args...)
	if err != nil {
		return "", fmt.Errorf("whisper failed: %w: %s", err, truncate(string(output)))
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	raw, err := os.ReadFile(filepath.Join(outDir, base+".txt"))
	if err != nil {
		return "", fmt.Errorf("reading whisper transcript: %w", err)
	}

	text := joinSegments(string(raw))
	t.logger.InfoContext(ctx, "whisper transcription finished",
		"model", t.model,
		"language", language,
		"duration_ms", time.Since(start).Milliseconds(),
		"transcript_chars", len([]rune(text)))

	return text, nil
}

// joinSegments merges the one-segment-per-line txt output into a single line.
func joinSegments(raw string) string {
	lines := strings.Split(raw, "\n")
	segments := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			segments = append(segments, line)
		}
	}
	return strings.Join(segments, " ")
}

// truncate keeps the tail of s, cut on a rune boundary.
func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxOutputInError {
		return s
	}
	start := len(s) - maxOutputInError
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return s[start:]
}
