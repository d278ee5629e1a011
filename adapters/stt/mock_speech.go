package stt

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vofas/vofas-backend/domain/repositories"
)

// MockTranscriber is a placeholder transcriber for development and tests.
type MockTranscriber struct {
	logger *zap.Logger

	// Transcript overrides the size-based canned response when set.
	Transcript string
	// Err makes every call fail when set.
	Err error
}

// NewMockTranscriber creates a new mock speech-to-text service.
func NewMockTranscriber(logger *zap.Logger) *MockTranscriber {
	return &MockTranscriber{logger: logger}
}

// Transcribe implements repositories.Transcriber.
func (m *MockTranscriber) Transcribe(ctx context.Context, audio []byte, config repositories.AudioConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.Err != nil {
		return "", m.Err
	}

	m.logger.Info("Processing mock speech-to-text",
		zap.Int("audioSize", len(audio)),
		zap.Int("sampleRate", config.SampleRate),
		zap.String("encoding", config.Encoding))

	if len(audio) == 0 {
		return "", fmt.Errorf("no audio data received")
	}
	if m.Transcript != "" {
		return m.Transcript, nil
	}

	// Canned responses keyed on clip size.
	switch {
	case len(audio) > 10000:
		return "The staff were friendly and the checkout was quick, overall a pleasant visit.", nil
	case len(audio) > 1000:
		return "Everything worked fine today.", nil
	default:
		return "Okay.", nil
	}
}

// SupportsEncoding accepts everything, the mock never decodes the audio.
func (m *MockTranscriber) SupportsEncoding(encoding string) bool {
	return true
}

var _ repositories.Transcriber = (*MockTranscriber)(nil)
