package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/vofas/vofas-backend/domain"
	"github.com/vofas/vofas-backend/domain/entities"
	"github.com/vofas/vofas-backend/domain/repositories"
	"github.com/vofas/vofas-backend/internal/hash"
)

// process walks one feedback record through its remaining stages, in order.
// A stage failure parks the record at its last reached state and stops the
// walk; nothing is rolled back and the worker moves on to the next task.
func (p *Pipeline) process(t task) {
	ctx := context.Background()

	feedback, err := p.feedback.GetByID(ctx, t.feedbackID)
	if err != nil {
		// Row missing under single-writer discipline: a no-op, not a crash.
		p.logger.Warn("Feedback row not found for processing",
			zap.String("feedbackID", t.feedbackID),
			zap.Error(err))
		return
	}

	if feedback.FilePath == "" {
		if err := p.runStore(ctx, feedback, t); err != nil {
			p.logger.Error("Store stage failed",
				zap.String("feedbackID", feedback.ID),
				zap.String("state", string(feedback.State)),
				zap.Error(err))
			return
		}
	}

	if feedback.Transcription == nil {
		if err := p.runTranscribe(ctx, feedback); err != nil {
			p.logger.Error("Transcription stage failed",
				zap.String("feedbackID", feedback.ID),
				zap.String("state", string(feedback.State)),
				zap.Error(err))
			return
		}
	}

	if err := p.runSentiment(ctx, feedback); err != nil {
		p.logger.Error("Sentiment stage failed",
			zap.String("feedbackID", feedback.ID),
			zap.String("state", string(feedback.State)),
			zap.Error(err))
	}
}

// runStore persists the uploaded bytes, hashes them and probes the playback
// duration. An underivable duration is tolerated, a filesystem failure parks
// the record at RECEIVED.
func (p *Pipeline) runStore(ctx context.Context, feedback *entities.Feedback, t task) error {
	path, err := p.media.Save(t.data, t.filename, feedback.ID)
	if err != nil {
		return err
	}

	feedback.FilePath = path
	feedback.ContentHash = hash.SumBytes(t.data)

	if duration, ok := p.media.ProbeDuration(path, t.contentType); ok {
		feedback.DurationSeconds = int64(duration.Seconds())
	} else {
		p.logger.Info("Feedback duration not derivable",
			zap.String("feedbackID", feedback.ID),
			zap.String("path", path))
	}

	if err := p.feedback.Update(ctx, feedback); err != nil {
		return fmt.Errorf("persisting stored media metadata: %w", err)
	}

	p.logger.Info("Feedback media stored",
		zap.String("feedbackID", feedback.ID),
		zap.String("path", path),
		zap.String("contentHash", feedback.ContentHash),
		zap.Int64("durationSeconds", feedback.DurationSeconds))

	return nil
}

// runTranscribe drives the record through WAITING_FOR_TRANSCRIPTION to
// TRANSCRIBED. On any failure the record stays parked at
// WAITING_FOR_TRANSCRIPTION with no sub-entity attached.
func (p *Pipeline) runTranscribe(ctx context.Context, feedback *entities.Feedback) error {
	if err := feedback.AdvanceTo(entities.FeedbackStateWaitingTranscription); err != nil {
		return err
	}
	if err := p.feedback.Update(ctx, feedback); err != nil {
		return fmt.Errorf("persisting transcription-pending state: %w", err)
	}

	audio, err := os.ReadFile(feedback.FilePath)
	if err != nil {
		return &domain.TranscriptionError{FeedbackID: feedback.ID, Err: fmt.Errorf("reading stored media: %w", err)}
	}

	format := formatForPath(feedback.FilePath)
	callCtx, cancel := context.WithTimeout(ctx, p.config.TranscribeTimeout)
	defer cancel()

	requestedAt := time.Now()
	text, err := p.transcriber.Transcribe(callCtx, audio, repositories.AudioConfig{
		Encoding: format.Encoding,
		Language: p.config.Language,
	})
	if err != nil {
		return &domain.TranscriptionError{FeedbackID: feedback.ID, Err: err}
	}

	transcription := entities.Transcription{
		Text:        text,
		TextHash:    hash.SumString(text),
		RequestedAt: requestedAt,
		ReceivedAt:  time.Now(),
	}
	if err := feedback.AttachTranscription(transcription); err != nil {
		return err
	}
	if err := p.feedback.Update(ctx, feedback); err != nil {
		return fmt.Errorf("persisting transcription: %w", err)
	}

	p.logger.Info("Feedback transcribed",
		zap.String("feedbackID", feedback.ID),
		zap.Int("transcriptLength", len(text)))

	return nil
}

// runSentiment drives the record through WAITING_FOR_SENTIMENT_ANALYSIS to
// COMPLETED and publishes it to the live stream. Without a configured
// classifier the record simply stays at TRANSCRIBED.
func (p *Pipeline) runSentiment(ctx context.Context, feedback *entities.Feedback) error {
	if p.classifier == nil {
		return nil
	}
	if feedback.Transcription == nil {
		return domain.ErrNoTranscript
	}

	if err := feedback.AdvanceTo(entities.FeedbackStateWaitingSentiment); err != nil {
		return err
	}
	if err := p.feedback.Update(ctx, feedback); err != nil {
		return fmt.Errorf("persisting sentiment-pending state: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.config.SentimentTimeout)
	defer cancel()

	requestedAt := time.Now()
	label, err := p.classifier.Classify(callCtx, feedback.Transcription.Text)
	if err != nil {
		return fmt.Errorf("classifying feedback %s: %w", feedback.ID, err)
	}

	result := entities.SentimentResult{
		Label:       label,
		RequestedAt: requestedAt,
		ReceivedAt:  time.Now(),
	}
	if err := feedback.AttachSentiment(result); err != nil {
		return err
	}
	if err := p.feedback.Update(ctx, feedback); err != nil {
		return fmt.Errorf("persisting sentiment result: %w", err)
	}

	p.logger.Info("Feedback completed",
		zap.String("feedbackID", feedback.ID),
		zap.String("sentiment", string(label)))

	p.broker.Publish(feedback)
	return nil
}
