package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AttachmentStore manages the files backing submission attachments.
// Save and Replace are on the critical path and return errors; Delete is
// best-effort and tolerates externally removed files.
type AttachmentStore interface {
	Save(ctx context.Context, source io.Reader, originalName string) (storedPath string, err error)
	Replace(ctx context.Context, oldPath string, source io.Reader, originalName string) (storedPath string, err error)
	Delete(ctx context.Context, path string) error
	Exists(path string) bool
}

// LocalStore stores attachments in one flat directory, created lazily on
// first use. Stored names are `<timestamp>_<uuid8>_<base>`: the timestamp
// keeps human-readable provenance, the uuid fragment removes the same-second
// collision risk of a purely wall-clock scheme.
type LocalStore struct {
	dir    string
	logger *slog.Logger
}

func NewLocalStore(dir string, logger *slog.Logger) *LocalStore {
	return &LocalStore{dir: dir, logger: logger}
}

func (s *LocalStore) Save(ctx context.Context, source io.Reader, originalName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	destPath := filepath.Join(s.dir, storedName(originalName))
	dest, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create attachment file: %w", err)
	}

	if _, err := io.Copy(dest, source); err != nil {
		dest.Close()
		os.Remove(destPath)
		return "", fmt.Errorf("failed to write attachment: %w", err)
	}
	if err := dest.Close(); err != nil {
		os.Remove(destPath)
		return "", fmt.Errorf("failed to close attachment file: %w", err)
	}

	return destPath, nil
}

// Replace writes the new file first, then removes the old one. Failure to
// remove the old file is logged, not fatal; an orphaned file is an accepted
// cost.
func (s *LocalStore) Replace(ctx context.Context, oldPath string, source io.Reader, originalName string) (string, error) {
	destPath, err := s.Save(ctx, source, originalName)
	if err != nil {
		return "", err
	}

	if oldPath != "" {
		if err := os.Remove(oldPath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("Failed to remove replaced attachment", "path", oldPath, "error", err)
		}
	}

	return destPath, nil
}

// Delete removes the stored file. A missing path is a no-op, not an error.
func (s *LocalStore) Delete(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete attachment: %w", err)
	}
	return nil
}

func (s *LocalStore) Exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func storedName(originalName string) string {
	base := filepath.Base(originalName)
	base = strings.ReplaceAll(base, string(os.PathSeparator), "_")
	timestamp := time.Now().Format("20060102150405")
	suffix := uuid.New().String()[:8]
	return fmt.Sprintf("%s_%s_%s", timestamp, suffix, base)
}
