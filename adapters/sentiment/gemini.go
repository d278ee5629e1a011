package sentiment

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/vofas/vofas-backend/domain/entities"
	"github.com/vofas/vofas-backend/domain/repositories"
)

const classifyPrompt = "Classify the sentiment of the following customer feedback. " +
	"Answer with exactly one word: POSITIVE, NEUTRAL or NEGATIVE.\n\nFeedback: "

// GeminiClassifier implements SentimentClassifier using Google's Gemini API.
type GeminiClassifier struct {
	client *genai.Client
	logger *zap.Logger
	model  string
}

// NewGeminiClassifier creates a Gemini-backed sentiment classifier.
func NewGeminiClassifier(logger *zap.Logger) (*GeminiClassifier, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClassifier{
		client: client,
		logger: logger,
		model:  "gemini-2.0-flash",
	}, nil
}

// Classify maps a transcript to one of the three sentiment labels.
func (g *GeminiClassifier) Classify(ctx context.Context, text string) (entities.Sentiment, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(classifyPrompt+text, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(0)),
		MaxOutputTokens: 8,
	}

	response, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("failed to generate sentiment classification: %w", err)
	}
	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no classification generated")
	}

	var answer string
	for _, part := range response.Candidates[0].Content.Parts {
		answer += part.Text
	}

	label, ok := entities.ParseSentiment(strings.ToUpper(strings.TrimSpace(answer)))
	if !ok {
		return "", fmt.Errorf("unexpected classification %q", answer)
	}

	g.logger.Info("Sentiment classified",
		zap.String("label", string(label)),
		zap.Int("transcriptLength", len(text)))

	return label, nil
}

var _ repositories.SentimentClassifier = (*GeminiClassifier)(nil)
