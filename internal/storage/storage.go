package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Storage defines the interface for staging uploaded files before they are
// pushed to the hosted object store.
type Storage interface {
	// StoreFromBytes stages an uploaded file and returns its local path
	StoreFromBytes(ctx context.Context, data []byte, ext string) (string, error)

	// Delete removes a staged file
	Delete(ctx context.Context, path string) error
}

// LocalStorage implements Storage using the local filesystem
type LocalStorage struct {
	tempDir string
	maxSize int64
}

// NewLocalStorage creates a new LocalStorage instance
func NewLocalStorage(tempDir string, maxSize int64) (*LocalStorage, error) {
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	return &LocalStorage{tempDir: tempDir, maxSize: maxSize}, nil
}

func (s *LocalStorage) StoreFromBytes(ctx context.Context, data []byte, ext string) (string, error) {
	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return "", fmt.Errorf("file exceeds maximum size of %d bytes", s.maxSize)
	}

	ext = strings.TrimPrefix(ext, ".")
	switch ext {
	case "jpg", "jpeg", "png", "webp":
	default:
		return "", fmt.Errorf("unsupported image type: %s", ext)
	}

	tempFile, err := os.CreateTemp(s.tempDir, "upload-*."+ext)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer tempFile.Close()

	if _, err := tempFile.Write(data); err != nil {
		os.Remove(tempFile.Name()) // Clean up on error
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return tempFile.Name(), nil
}

func (s *LocalStorage) Delete(ctx context.Context, path string) error {
	// Verify the path is within our temp directory
	if !filepath.HasPrefix(path, s.tempDir) {
		return fmt.Errorf("invalid file path: must be within temp directory")
	}
	return os.Remove(path)
}
