package media

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/vofas/vofas-backend/domain"
	"github.com/vofas/vofas-backend/domain/repositories"
)

// DiskStore persists uploaded audio under a configured root directory,
// one file per feedback id.
type DiskStore struct {
	root   string
	logger *zap.Logger
}

// NewDiskStore creates the storage root if it does not exist yet. Failure to
// do so is an unrecoverable startup condition for the service.
func NewDiskStore(root string, logger *zap.Logger) (*DiskStore, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage root %s: %w", root, err)
	}
	logger.Info("Media storage ready", zap.String("root", root))
	return &DiskStore{root: root, logger: logger}, nil
}

// Save implements repositories.MediaStore. The stored name is derived from
// the feedback id and the original extension, so the same feedback id always
// maps to the same path.
func (s *DiskStore) Save(data []byte, suggestedName, feedbackID string) (string, error) {
	ext := strings.ToLower(filepath.Ext(suggestedName))
	if ext == "" {
		ext = ".bin"
	}
	path := filepath.Join(s.root, "feedback_"+feedbackID+ext)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", &domain.StorageError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", &domain.StorageError{Path: path, Err: err}
	}

	s.logger.Info("Stored feedback media",
		zap.String("feedbackID", feedbackID),
		zap.String("path", path),
		zap.Int("bytes", len(data)))

	return path, nil
}

var _ repositories.MediaStore = (*DiskStore)(nil)
