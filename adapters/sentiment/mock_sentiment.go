package sentiment

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/vofas/vofas-backend/domain/entities"
	"github.com/vofas/vofas-backend/domain/repositories"
)

// MockClassifier is a keyword-based classifier for development and tests.
type MockClassifier struct {
	logger *zap.Logger

	// Label overrides the keyword heuristic when set.
	Label entities.Sentiment
	// Err makes every call fail when set.
	Err error
}

// NewMockClassifier creates a new mock sentiment classifier.
func NewMockClassifier(logger *zap.Logger) *MockClassifier {
	return &MockClassifier{logger: logger}
}

// Classify implements repositories.SentimentClassifier.
func (m *MockClassifier) Classify(ctx context.Context, text string) (entities.Sentiment, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.Err != nil {
		return "", m.Err
	}
	if m.Label != "" {
		return m.Label, nil
	}

	lower := strings.ToLower(text)
	label := entities.SentimentNeutral
	switch {
	case strings.Contains(lower, "friendly") || strings.Contains(lower, "great") || strings.Contains(lower, "pleasant"):
		label = entities.SentimentPositive
	case strings.Contains(lower, "bad") || strings.Contains(lower, "slow") || strings.Contains(lower, "rude"):
		label = entities.SentimentNegative
	}

	m.logger.Info("Mock sentiment classified", zap.String("label", string(label)))
	return label, nil
}

var _ repositories.SentimentClassifier = (*MockClassifier)(nil)
