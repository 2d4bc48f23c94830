package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// PhotoStore is the upload collaborator used by inspection creation.
// Failures are surfaced to the caller as a degraded creation, never as a
// creation failure.
type PhotoStore interface {
	Save(ctx context.Context, inspectionID int64, filename string, data []byte) (string, error)
}

// LocalPhotoStore writes photos under a per-inspection directory and
// returns a URL rooted at the configured base path.
type LocalPhotoStore struct {
	dir     string
	baseURL string
}

func NewLocalPhotoStore(dir, baseURL string) (*LocalPhotoStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create photo dir: %w", err)
	}
	return &LocalPhotoStore{dir: dir, baseURL: baseURL}, nil
}

func (s *LocalPhotoStore) Save(ctx context.Context, inspectionID int64, filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty photo payload")
	}

	subdir := filepath.Join(s.dir, fmt.Sprintf("%d", inspectionID))
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create inspection photo dir: %w", err)
	}

	name := uuid.NewString() + filepath.Ext(filename)
	if err := os.WriteFile(filepath.Join(subdir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write photo: %w", err)
	}

	return fmt.Sprintf("%s/%d/%s", s.baseURL, inspectionID, name), nil
}
