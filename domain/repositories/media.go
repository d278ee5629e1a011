package repositories

import "time"

// MediaStore persists uploaded audio and derives playback metadata.
type MediaStore interface {
	// Save writes the clip under a name derived from the feedback id and the
	// original extension, creating directories as needed. Filesystem failures
	// surface as *domain.StorageError.
	Save(data []byte, suggestedName, feedbackID string) (string, error)

	// ProbeDuration derives the playback length from container metadata.
	// Unknown or corrupt media yields (0, false), never an error.
	ProbeDuration(path, contentType string) (time.Duration, bool)
}
