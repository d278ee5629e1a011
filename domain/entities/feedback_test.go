package entities

import (
	"testing"
	"time"
)

func TestNewFeedbackInitialState(t *testing.T) {
	feedback := NewFeedback("kiosk-1", "token-1")

	if feedback.ID == "" {
		t.Error("Expected a generated id")
	}
	if feedback.State != FeedbackStateReceived {
		t.Errorf("Expected initial state RECEIVED, got %s", feedback.State)
	}
	if feedback.ReceivedAt.IsZero() {
		t.Error("Expected receivedAt to be set")
	}
	if feedback.Transcription != nil || feedback.Sentiment != nil {
		t.Error("Expected no sub-entities on a fresh feedback")
	}
}

func TestAdvanceToForwardOnly(t *testing.T) {
	feedback := NewFeedback("kiosk-1", "token-1")

	order := []FeedbackState{
		FeedbackStateWaitingTranscription,
		FeedbackStateTranscribed,
		FeedbackStateWaitingSentiment,
		FeedbackStateCompleted,
	}
	for _, state := range order {
		if err := feedback.AdvanceTo(state); err != nil {
			t.Fatalf("AdvanceTo(%s) returned error: %v", state, err)
		}
		if feedback.State != state {
			t.Fatalf("Expected state %s, got %s", state, feedback.State)
		}
	}
}

func TestAdvanceToRegressRejected(t *testing.T) {
	feedback := NewFeedback("kiosk-1", "token-1")
	if err := feedback.AdvanceTo(FeedbackStateTranscribed); err != nil {
		t.Fatalf("AdvanceTo returned error: %v", err)
	}

	if err := feedback.AdvanceTo(FeedbackStateReceived); err == nil {
		t.Error("Expected regression to RECEIVED to be rejected")
	}
	if feedback.State != FeedbackStateTranscribed {
		t.Errorf("Expected state unchanged after rejected move, got %s", feedback.State)
	}
}

func TestAdvanceToSameStateAllowed(t *testing.T) {
	feedback := NewFeedback("kiosk-1", "token-1")
	if err := feedback.AdvanceTo(FeedbackStateWaitingTranscription); err != nil {
		t.Fatalf("AdvanceTo returned error: %v", err)
	}
	if err := feedback.AdvanceTo(FeedbackStateWaitingTranscription); err != nil {
		t.Errorf("Expected re-asserting the current state to succeed, got %v", err)
	}
}

func TestAdvanceToUnknownState(t *testing.T) {
	feedback := NewFeedback("kiosk-1", "token-1")
	if err := feedback.AdvanceTo("PENDING"); err == nil {
		t.Error("Expected unknown state to be rejected")
	}
}

func TestAttachTranscription(t *testing.T) {
	feedback := NewFeedback("kiosk-1", "token-1")
	transcription := Transcription{
		Text:        "the service was great",
		TextHash:    "abc",
		RequestedAt: time.Now(),
		ReceivedAt:  time.Now(),
	}

	if err := feedback.AttachTranscription(transcription); err != nil {
		t.Fatalf("AttachTranscription returned error: %v", err)
	}
	if feedback.State != FeedbackStateTranscribed {
		t.Errorf("Expected state TRANSCRIBED, got %s", feedback.State)
	}
	if feedback.Transcription == nil || feedback.Transcription.Text != "the service was great" {
		t.Error("Expected transcription to be attached")
	}

	if err := feedback.AttachTranscription(transcription); err == nil {
		t.Error("Expected second attach to be rejected")
	}
}

func TestAttachSentiment(t *testing.T) {
	feedback := NewFeedback("kiosk-1", "token-1")
	if err := feedback.AttachTranscription(Transcription{Text: "ok"}); err != nil {
		t.Fatalf("AttachTranscription returned error: %v", err)
	}

	result := SentimentResult{Label: SentimentNeutral, RequestedAt: time.Now(), ReceivedAt: time.Now()}
	if err := feedback.AttachSentiment(result); err != nil {
		t.Fatalf("AttachSentiment returned error: %v", err)
	}
	if !feedback.Completed() {
		t.Errorf("Expected COMPLETED, got %s", feedback.State)
	}
	if feedback.Sentiment == nil || feedback.Sentiment.Label != SentimentNeutral {
		t.Error("Expected sentiment to be attached")
	}

	if err := feedback.AttachSentiment(result); err == nil {
		t.Error("Expected second attach to be rejected")
	}
}

func TestParseFeedbackState(t *testing.T) {
	if state, ok := ParseFeedbackState("TRANSCRIBED"); !ok || state != FeedbackStateTranscribed {
		t.Errorf("Expected TRANSCRIBED to parse, got %s %v", state, ok)
	}
	if _, ok := ParseFeedbackState("transcribed"); ok {
		t.Error("Expected lowercase state to be rejected")
	}
	if _, ok := ParseFeedbackState(""); ok {
		t.Error("Expected empty state to be rejected")
	}
}

func TestParseSentiment(t *testing.T) {
	if label, ok := ParseSentiment("NEGATIVE"); !ok || label != SentimentNegative {
		t.Errorf("Expected NEGATIVE to parse, got %s %v", label, ok)
	}
	if _, ok := ParseSentiment("MIXED"); ok {
		t.Error("Expected unknown label to be rejected")
	}
}

func TestValidationTokenLifecycle(t *testing.T) {
	token := NewValidationToken("kiosk-1", time.Hour)

	if token.State != TokenStateValid {
		t.Errorf("Expected minted token to be VALID, got %s", token.State)
	}
	if err := token.Validate(); err != nil {
		t.Errorf("Expected minted token to validate, got %v", err)
	}
	if token.Overdue(time.Now()) {
		t.Error("Expected fresh token not to be overdue")
	}
	if !token.Overdue(time.Now().Add(2 * time.Hour)) {
		t.Error("Expected token past its TTL to be overdue")
	}

	token.State = TokenStateUsed
	if token.Overdue(time.Now().Add(2 * time.Hour)) {
		t.Error("Expected a USED token never to count as overdue")
	}
}
