package api

import (
	"time"

	"github.com/vofas/vofas-backend/domain/entities"
)

// KioskAuthRequest represents the request payload for kiosk authentication
type KioskAuthRequest struct {
	KioskID   string `json:"kiosk_id" validate:"required"`
	SecretKey string `json:"secret_key" validate:"required"`
}

// KioskAuthResponse represents the response payload for kiosk authentication
type KioskAuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	KioskID   string    `json:"kiosk_id"`
}

// MintTokenRequest asks for a fresh validation token. TTL is optional.
type MintTokenRequest struct {
	TTLSeconds int64 `json:"ttl_seconds,omitempty"`
}

// MintTokenResponse carries a newly minted validation token.
type MintTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IngestResponse acknowledges an accepted feedback upload.
type IngestResponse struct {
	FeedbackID string `json:"feedback_id"`
	State      string `json:"state"`
}

// TranscriptionResponse is the transcription part of a feedback response.
type TranscriptionResponse struct {
	Text        string    `json:"text"`
	TextHash    string    `json:"text_hash"`
	RequestedAt time.Time `json:"requested_at"`
	ReceivedAt  time.Time `json:"received_at"`
}

// SentimentResponse is the sentiment part of a feedback response.
type SentimentResponse struct {
	Label       string    `json:"label"`
	RequestedAt time.Time `json:"requested_at"`
	ReceivedAt  time.Time `json:"received_at"`
}

// FeedbackResponse is the external shape of one feedback record. Storage
// internals like the on-disk path never leave the service.
type FeedbackResponse struct {
	ID              string                 `json:"id"`
	ReceivedAt      time.Time              `json:"received_at"`
	State           string                 `json:"state"`
	ContentHash     string                 `json:"content_hash,omitempty"`
	DurationSeconds int64                  `json:"duration_seconds,omitempty"`
	Transcription   *TranscriptionResponse `json:"transcription,omitempty"`
	Sentiment       *SentimentResponse     `json:"sentiment,omitempty"`
	KioskID         string                 `json:"kiosk_id,omitempty"`
}

// PageResponse is one page of feedback records.
type PageResponse struct {
	Items      []FeedbackResponse `json:"items"`
	PageNumber int                `json:"page_number"`
	PageSize   int                `json:"page_size"`
	TotalItems int64              `json:"total_items"`
	TotalPages int64              `json:"total_pages"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Path      string    `json:"path"`
	Status    int       `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func toFeedbackResponse(f *entities.Feedback) FeedbackResponse {
	resp := FeedbackResponse{
		ID:              f.ID,
		ReceivedAt:      f.ReceivedAt,
		State:           string(f.State),
		ContentHash:     f.ContentHash,
		DurationSeconds: f.DurationSeconds,
		KioskID:         f.KioskID,
	}
	if f.Transcription != nil {
		resp.Transcription = &TranscriptionResponse{
			Text:        f.Transcription.Text,
			TextHash:    f.Transcription.TextHash,
			RequestedAt: f.Transcription.RequestedAt,
			ReceivedAt:  f.Transcription.ReceivedAt,
		}
	}
	if f.Sentiment != nil {
		resp.Sentiment = &SentimentResponse{
			Label:       string(f.Sentiment.Label),
			RequestedAt: f.Sentiment.RequestedAt,
			ReceivedAt:  f.Sentiment.ReceivedAt,
		}
	}
	return resp
}
