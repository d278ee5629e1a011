package domain

import (
	"errors"
	"fmt"
)

// TokenFailure tells apart the ways a validation token can be refused.
type TokenFailure int

const (
	TokenNotFound TokenFailure = iota
	TokenAlreadyUsed
	TokenExpired
)

func (f TokenFailure) String() string {
	switch f {
	case TokenNotFound:
		return "not found"
	case TokenAlreadyUsed:
		return "already used"
	case TokenExpired:
		return "expired"
	}
	return "invalid"
}

// TokenError is returned when a validation token cannot be redeemed.
// No feedback record exists when this error is surfaced.
type TokenError struct {
	Token   string
	Failure TokenFailure
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("validation token %s is %s", e.Token, e.Failure)
}

// UnsupportedMediaTypeError rejects an upload before any state is created.
type UnsupportedMediaTypeError struct {
	ContentType string
	Filename    string
}

func (e *UnsupportedMediaTypeError) Error() string {
	return fmt.Sprintf("unsupported media type %q for file %q, only mp3 and wav audio is accepted", e.ContentType, e.Filename)
}

// StorageError wraps a filesystem failure while persisting feedback media.
// The feedback stays parked at its last reached state.
type StorageError struct {
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storing feedback media at %s: %v", e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// TranscriptionError wraps a speech-to-text failure. The feedback stays
// parked at WAITING_FOR_TRANSCRIPTION and can be re-driven by the caller.
type TranscriptionError struct {
	FeedbackID string
	Err        error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcribing feedback %s: %v", e.FeedbackID, e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// InvalidFilterOptionError rejects a feedback query as a whole. It names
// the offending field and the value that was supplied.
type InvalidFilterOptionError struct {
	Field string
	Value string
}

func (e *InvalidFilterOptionError) Error() string {
	return fmt.Sprintf("invalid filter option: field %q does not accept value %q", e.Field, e.Value)
}

// NotFoundError is returned on a fetch-by-id miss.
type NotFoundError struct {
	Resource string
	Field    string
	Value    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with %s %q not found", e.Resource, e.Field, e.Value)
}

// ErrNoTranscript is returned when a sentiment stage is requested for a
// feedback that has no transcription attached yet.
var ErrNoTranscript = errors.New("feedback has no transcript to classify")
