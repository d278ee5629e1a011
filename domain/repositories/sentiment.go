package repositories

import (
	"context"

	"github.com/vofas/vofas-backend/domain/entities"
)

// SentimentClassifier abstracts the sentiment-analysis provider. The pipeline
// treats it as optional: when no classifier is configured, feedback stops
// advancing at TRANSCRIBED.
type SentimentClassifier interface {
	Classify(ctx context.Context, text string) (entities.Sentiment, error)
}
