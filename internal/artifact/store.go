package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/bulssi/profile-api/internal/config"
)

// sniffLen is the number of leading bytes used for content type detection.
const sniffLen = 3072

// Store persists uploads under a single directory.
// It is safe for concurrent use; every saved file has a unique name.
type Store struct {
	fs       afero.Fs
	dir      string
	maxBytes int64
	allowed  map[string]struct{}
	logger   *slog.Logger
}

// NewStore creates a Store over fs using the given storage settings.
func NewStore(fs afero.Fs, cfg config.StorageConfig, logger *slog.Logger) (*Store, error) {
	if fs == nil {
		return nil, fmt.Errorf("filesystem cannot be nil")
	}
	if cfg.UploadDir == "" {
		return nil, fmt.Errorf("upload directory cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	allowed := make(map[string]struct{}, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		allowed[strings.ToLower(ext)] = struct{}{}
	}

	return &Store{
		fs:       fs,
		dir:      cfg.UploadDir,
		maxBytes: cfg.MaxUploadBytes,
		allowed:  allowed,
		logger:   logger.With("component", "artifact_store"),
	}, nil
}

// Dir returns the directory uploads are written to.
func (s *Store) Dir() string {
	return s.dir
}

// Validate checks upload metadata before any bytes are written.
// A negative size means the size is unknown and only the extension is checked.
func (s *Store) Validate(originalName string, size int64) error {
	ext := strings.ToLower(filepath.Ext(originalName))
	if _, ok := s.allowed[ext]; !ok {
		return fmt.Errorf("%w: extension %q is not allowed", ErrUnsupportedMedia, ext)
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrUploadTooLarge, size, s.maxBytes)
	}
	return nil
}

// Save writes upload to a new file named <uuid><ext> and returns its path.
// The content is sniffed and must be video or audio. On any failure the
// partially written file is removed before returning.
func (s *Store) Save(ctx context.Context, upload io.Reader, originalName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	if err := s.Validate(originalName, -1); err != nil {
		return "", err
	}

	header := make([]byte, sniffLen)
	n, err := io.ReadFull(upload, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("%w: reading upload: %w", ErrStorageFailure, err)
	}
	header = header[:n]
	if n == 0 {
		return "", fmt.Errorf("%w: upload is empty", ErrUnsupportedMedia)
	}

	mtype := mimetype.Detect(header)
	if !isMedia(mtype) {
		return "", fmt.Errorf("%w: detected %s", ErrUnsupportedMedia, mtype.String())
	}

	if err := s.fs.MkdirAll(s.dir, 0o750); err != nil {
		return "", fmt.Errorf("%w: creating upload directory: %w", ErrStorageFailure, err)
	}

	path := filepath.Join(s.dir, uuid.NewString()+strings.ToLower(filepath.Ext(originalName)))
	f, err := s.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("%w: creating file: %w", ErrStorageFailure, err)
	}

	src := io.MultiReader(bytes.NewReader(header), upload)
	if s.maxBytes > 0 {
		src = io.LimitReader(src, s.maxBytes+1)
	}

	written, copyErr := io.Copy(f, src)
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		s.removePartial(path)
		return "", fmt.Errorf("%w: writing file: %w", ErrStorageFailure, copyErr)
	case closeErr != nil:
		s.removePartial(path)
		return "", fmt.Errorf("%w: closing file: %w", ErrStorageFailure, closeErr)
	case s.maxBytes > 0 && written > s.maxBytes:
		s.removePartial(path)
		return "", fmt.Errorf("%w: limit %d bytes", ErrUploadTooLarge, s.maxBytes)
	}

	s.logger.Debug("stored upload",
		"path", path,
		"bytes", written,
		"mime_type", mtype.String())

	return path, nil
}

// Delete removes the file at path. A missing file is not an error; other
// failures are logged and swallowed so cleanup never masks an outcome.
func (s *Store) Delete(path string) {
	if path == "" {
		return
	}
	if err := s.fs.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return
		}
		s.logger.Error("failed to delete artifact",
			"path", path,
			"error", err)
		return
	}
	s.logger.Debug("deleted artifact", "path", path)
}

// Exists reports whether a file is present at path.
func (s *Store) Exists(path string) bool {
	ok, err := afero.Exists(s.fs, path)
	return err == nil && ok
}

func (s *Store) removePartial(path string) {
	if err := s.fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Error("failed to remove partial upload",
			"path", path,
			"error", err)
	}
}

// isMedia reports whether mtype or one of its ancestors is a video or audio type.
func isMedia(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "video/") || strings.HasPrefix(m.String(), "audio/") {
			return true
		}
	}
	return false
}
