package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FeedbackState is the lifecycle state of a feedback submission.
// States only ever advance in pipeline order, they never regress.
type FeedbackState string

const (
	FeedbackStateReceived             FeedbackState = "RECEIVED"
	FeedbackStateWaitingTranscription FeedbackState = "WAITING_FOR_TRANSCRIPTION"
	FeedbackStateTranscribed          FeedbackState = "TRANSCRIBED"
	FeedbackStateWaitingSentiment     FeedbackState = "WAITING_FOR_SENTIMENT_ANALYSIS"
	FeedbackStateCompleted            FeedbackState = "COMPLETED"
)

// stateOrder maps each state to its position in the pipeline.
var stateOrder = map[FeedbackState]int{
	FeedbackStateReceived:             0,
	FeedbackStateWaitingTranscription: 1,
	FeedbackStateTranscribed:          2,
	FeedbackStateWaitingSentiment:     3,
	FeedbackStateCompleted:            4,
}

// ParseFeedbackState converts an external string into a FeedbackState.
func ParseFeedbackState(s string) (FeedbackState, bool) {
	state := FeedbackState(s)
	_, ok := stateOrder[state]
	return state, ok
}

// Sentiment is the classification assigned by sentiment analysis.
type Sentiment string

const (
	SentimentPositive Sentiment = "POSITIVE"
	SentimentNeutral  Sentiment = "NEUTRAL"
	SentimentNegative Sentiment = "NEGATIVE"
)

// ParseSentiment converts an external string into a Sentiment.
func ParseSentiment(s string) (Sentiment, bool) {
	switch Sentiment(s) {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return Sentiment(s), true
	}
	return "", false
}

// Transcription is the speech-to-text result attached to a feedback.
// Once attached it is never edited, a failed stage is re-run whole.
type Transcription struct {
	Text        string    `json:"text" bson:"text"`
	TextHash    string    `json:"text_hash" bson:"text_hash"`
	RequestedAt time.Time `json:"requested_at" bson:"requested_at"`
	ReceivedAt  time.Time `json:"received_at" bson:"received_at"`
}

// SentimentResult is the sentiment-analysis outcome attached to a feedback.
type SentimentResult struct {
	Label       Sentiment `json:"label" bson:"label"`
	RequestedAt time.Time `json:"requested_at" bson:"requested_at"`
	ReceivedAt  time.Time `json:"received_at" bson:"received_at"`
}

// Feedback is one user's audio submission and its derived artifacts.
// The pipeline orchestrator is the only mutator of a feedback while it is
// being processed; readers must tolerate partially populated optional fields.
type Feedback struct {
	ID          string           `json:"id" bson:"_id"`
	ReceivedAt  time.Time        `json:"received_at" bson:"received_at"`
	State       FeedbackState    `json:"state" bson:"state"`
	FilePath    string           `json:"file_path,omitempty" bson:"file_path,omitempty"`
	ContentHash string           `json:"content_hash,omitempty" bson:"content_hash,omitempty"`
	// DurationSeconds is zero when the container carried no timing metadata.
	DurationSeconds int64            `json:"duration_seconds,omitempty" bson:"duration_seconds,omitempty"`
	Transcription   *Transcription   `json:"transcription,omitempty" bson:"transcription,omitempty"`
	Sentiment       *SentimentResult `json:"sentiment,omitempty" bson:"sentiment,omitempty"`
	KioskID         string           `json:"kiosk_id,omitempty" bson:"kiosk_id,omitempty"`
	Token           string           `json:"validation_token,omitempty" bson:"validation_token,omitempty"`
}

// NewFeedback creates a feedback record in its initial state.
func NewFeedback(kioskID, token string) *Feedback {
	return &Feedback{
		ID:         uuid.NewString(),
		ReceivedAt: time.Now(),
		State:      FeedbackStateReceived,
		KioskID:    kioskID,
		Token:      token,
	}
}

// AdvanceTo moves the feedback forward in the pipeline. Moving backwards or
// to an unknown state is an error, re-asserting the current state is allowed.
func (f *Feedback) AdvanceTo(next FeedbackState) error {
	to, ok := stateOrder[next]
	if !ok {
		return fmt.Errorf("unknown feedback state %q", next)
	}
	from, ok := stateOrder[f.State]
	if !ok {
		return fmt.Errorf("feedback %s has unknown state %q", f.ID, f.State)
	}
	if to < from {
		return fmt.Errorf("feedback %s cannot regress from %s to %s", f.ID, f.State, next)
	}
	f.State = next
	return nil
}

// AttachTranscription records an immutable transcription result and advances
// the state to TRANSCRIBED.
func (f *Feedback) AttachTranscription(t Transcription) error {
	if f.Transcription != nil {
		return fmt.Errorf("feedback %s already carries a transcription", f.ID)
	}
	if err := f.AdvanceTo(FeedbackStateTranscribed); err != nil {
		return err
	}
	f.Transcription = &t
	return nil
}

// AttachSentiment records the sentiment result and advances the state
// to COMPLETED.
func (f *Feedback) AttachSentiment(s SentimentResult) error {
	if f.Sentiment != nil {
		return fmt.Errorf("feedback %s already carries a sentiment result", f.ID)
	}
	if err := f.AdvanceTo(FeedbackStateCompleted); err != nil {
		return err
	}
	f.Sentiment = &s
	return nil
}

// Completed reports whether the feedback reached its terminal state.
func (f *Feedback) Completed() bool {
	return f.State == FeedbackStateCompleted
}
