package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/vofas/vofas-backend/domain"
	"github.com/vofas/vofas-backend/domain/entities"
	"github.com/vofas/vofas-backend/domain/repositories"
)

// FeedbackRepository is an in-memory implementation of the feedback store,
// used in development mode and in tests.
type FeedbackRepository struct {
	mu       sync.RWMutex
	feedback map[string]*entities.Feedback
}

// NewFeedbackRepository creates an empty in-memory feedback repository.
func NewFeedbackRepository() *FeedbackRepository {
	return &FeedbackRepository{
		feedback: make(map[string]*entities.Feedback),
	}
}

// Create implements repositories.FeedbackRepository.
func (r *FeedbackRepository) Create(ctx context.Context, f *entities.Feedback) error {
	if f == nil {
		return errors.New("feedback cannot be nil")
	}
	if f.ID == "" {
		return errors.New("feedback id cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.feedback[f.ID]; exists {
		return errors.New("feedback with this id already exists")
	}

	copied := *f
	r.feedback[f.ID] = &copied
	return nil
}

// GetByID implements repositories.FeedbackRepository.
func (r *FeedbackRepository) GetByID(ctx context.Context, id string) (*entities.Feedback, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, exists := r.feedback[id]
	if !exists {
		return nil, &domain.NotFoundError{Resource: "feedback", Field: "id", Value: id}
	}

	copied := *f
	return &copied, nil
}

// Update implements repositories.FeedbackRepository. A missing row is a
// no-op, the pipeline is the only writer and tolerates the race.
func (r *FeedbackRepository) Update(ctx context.Context, f *entities.Feedback) error {
	if f == nil {
		return errors.New("feedback cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.feedback[f.ID]; !exists {
		return nil
	}

	copied := *f
	r.feedback[f.ID] = &copied
	return nil
}

// Find implements repositories.FeedbackRepository with the same filter and
// ordering semantics as the MongoDB repository.
func (r *FeedbackRepository) Find(ctx context.Context, filter repositories.FeedbackFilter, page repositories.PageRequest) (*repositories.Page, error) {
	r.mu.RLock()
	matched := make([]*entities.Feedback, 0, len(r.feedback))
	for _, f := range r.feedback {
		if !matches(f, filter) {
			continue
		}
		copied := *f
		matched = append(matched, &copied)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		var less bool
		switch page.SortBy {
		case repositories.SortByReceivedAt:
			if matched[i].ReceivedAt.Equal(matched[j].ReceivedAt) {
				less = matched[i].ID < matched[j].ID
			} else {
				less = matched[i].ReceivedAt.Before(matched[j].ReceivedAt)
			}
		default:
			less = matched[i].ID < matched[j].ID
		}
		if !page.Ascending {
			return !less
		}
		return less
	})

	total := int64(len(matched))
	start := page.Number * page.Size
	if start > len(matched) {
		start = len(matched)
	}
	end := start + page.Size
	if end > len(matched) {
		end = len(matched)
	}

	return &repositories.Page{
		Items:      matched[start:end],
		Number:     page.Number,
		Size:       page.Size,
		TotalItems: total,
	}, nil
}

func matches(f *entities.Feedback, filter repositories.FeedbackFilter) bool {
	if filter.State != nil && f.State != *filter.State {
		return false
	}
	if filter.Sentiment != nil {
		if f.Sentiment == nil || f.Sentiment.Label != *filter.Sentiment {
			return false
		}
	}
	if filter.Start != nil && f.ReceivedAt.Before(*filter.Start) {
		return false
	}
	if filter.End != nil && f.ReceivedAt.After(*filter.End) {
		return false
	}
	return true
}

var _ repositories.FeedbackRepository = (*FeedbackRepository)(nil)
