package repositories

import (
	"context"
	"time"

	"github.com/vofas/vofas-backend/domain/entities"
)

// SortField names the fields a feedback listing may be ordered by.
type SortField string

const (
	SortByID         SortField = "feedbackId"
	SortByReceivedAt SortField = "receivedAt"
)

// FeedbackFilter narrows a paginated feedback listing. Zero values mean
// "no constraint". Validation happens before the filter reaches a repository,
// a repository may assume the filter is well formed.
type FeedbackFilter struct {
	State     *entities.FeedbackState
	Sentiment *entities.Sentiment
	Start     *time.Time
	End       *time.Time
}

// PageRequest selects one page of a feedback listing.
type PageRequest struct {
	Number    int
	Size      int
	SortBy    SortField
	Ascending bool
}

// Page is one page of feedback records together with the total match count.
type Page struct {
	Items      []*entities.Feedback
	Number     int
	Size       int
	TotalItems int64
}

// FeedbackRepository defines data access for feedback records.
type FeedbackRepository interface {
	Create(ctx context.Context, feedback *entities.Feedback) error
	GetByID(ctx context.Context, id string) (*entities.Feedback, error)
	Update(ctx context.Context, feedback *entities.Feedback) error
	Find(ctx context.Context, filter FeedbackFilter, page PageRequest) (*Page, error)
}
