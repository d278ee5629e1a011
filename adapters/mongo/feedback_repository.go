package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vofas/vofas-backend/domain"
	"github.com/vofas/vofas-backend/domain/entities"
	"github.com/vofas/vofas-backend/domain/repositories"
)

type FeedbackRepository struct {
	collection *mongo.Collection
}

// NewFeedbackRepository creates a new MongoDB feedback repository.
func NewFeedbackRepository(db *mongo.Database) repositories.FeedbackRepository {
	return &FeedbackRepository{
		collection: db.Collection("feedback"),
	}
}

// Create implements repositories.FeedbackRepository
func (r *FeedbackRepository) Create(ctx context.Context, feedback *entities.Feedback) error {
	if feedback == nil {
		return errors.New("feedback cannot be nil")
	}
	if feedback.ID == "" {
		return errors.New("feedback id cannot be empty")
	}

	if _, err := r.collection.InsertOne(ctx, feedback); err != nil {
		return fmt.Errorf("failed to create feedback: %w", err)
	}
	return nil
}

// GetByID implements repositories.FeedbackRepository
func (r *FeedbackRepository) GetByID(ctx context.Context, id string) (*entities.Feedback, error) {
	if id == "" {
		return nil, errors.New("feedback id cannot be empty")
	}

	var feedback entities.Feedback
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&feedback)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &domain.NotFoundError{Resource: "feedback", Field: "id", Value: id}
		}
		return nil, fmt.Errorf("failed to get feedback %s: %w", id, err)
	}

	return &feedback, nil
}

// Update implements repositories.FeedbackRepository. Updating a missing row
// is a no-op, the pipeline is the only writer and tolerates the race.
func (r *FeedbackRepository) Update(ctx context.Context, feedback *entities.Feedback) error {
	if feedback == nil {
		return errors.New("feedback cannot be nil")
	}
	if feedback.ID == "" {
		return errors.New("feedback id cannot be empty")
	}

	update := bson.M{
		"$set": bson.M{
			"state":            feedback.State,
			"file_path":        feedback.FilePath,
			"content_hash":     feedback.ContentHash,
			"duration_seconds": feedback.DurationSeconds,
			"transcription":    feedback.Transcription,
			"sentiment":        feedback.Sentiment,
			"kiosk_id":         feedback.KioskID,
			"validation_token": feedback.Token,
		},
	}

	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": feedback.ID}, update); err != nil {
		return fmt.Errorf("failed to update feedback %s: %w", feedback.ID, err)
	}
	return nil
}

// Find implements repositories.FeedbackRepository
func (r *FeedbackRepository) Find(ctx context.Context, filter repositories.FeedbackFilter, page repositories.PageRequest) (*repositories.Page, error) {
	query := bson.M{}
	if filter.State != nil {
		query["state"] = *filter.State
	}
	if filter.Sentiment != nil {
		query["sentiment.label"] = *filter.Sentiment
	}
	if filter.Start != nil || filter.End != nil {
		window := bson.M{}
		if filter.Start != nil {
			window["$gte"] = *filter.Start
		}
		if filter.End != nil {
			window["$lte"] = *filter.End
		}
		query["received_at"] = window
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count feedback: %w", err)
	}

	sortField := "_id"
	if page.SortBy == repositories.SortByReceivedAt {
		sortField = "received_at"
	}
	direction := -1
	if page.Ascending {
		direction = 1
	}

	opts := options.Find().
		SetSort(bson.D{{Key: sortField, Value: direction}}).
		SetSkip(int64(page.Number * page.Size)).
		SetLimit(int64(page.Size))

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer cursor.Close(ctx)

	items := make([]*entities.Feedback, 0, page.Size)
	for cursor.Next(ctx) {
		var feedback entities.Feedback
		if err := cursor.Decode(&feedback); err != nil {
			return nil, fmt.Errorf("failed to decode feedback: %w", err)
		}
		items = append(items, &feedback)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate feedback cursor: %w", err)
	}

	return &repositories.Page{
		Items:      items,
		Number:     page.Number,
		Size:       page.Size,
		TotalItems: total,
	}, nil
}
