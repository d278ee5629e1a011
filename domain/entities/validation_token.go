package entities

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TokenState is the lifecycle state of a validation token.
type TokenState string

const (
	TokenStateValid   TokenState = "VALID"
	TokenStateUsed    TokenState = "USED"
	TokenStateExpired TokenState = "EXPIRED"
)

// ValidationToken is a single-use capability minted by a kiosk. Redeeming it
// authorizes exactly one feedback upload; the token flips to USED atomically
// with being linked to that feedback.
type ValidationToken struct {
	Value      string     `json:"value" bson:"_id"`
	KioskID    string     `json:"kiosk_id" bson:"kiosk_id"`
	State      TokenState `json:"state" bson:"state"`
	CreatedAt  time.Time  `json:"created_at" bson:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at" bson:"expires_at"`
	UsedAt     *time.Time `json:"used_at,omitempty" bson:"used_at,omitempty"`
	FeedbackID string     `json:"feedback_id,omitempty" bson:"feedback_id,omitempty"`
}

// NewValidationToken mints a VALID token owned by the given kiosk.
func NewValidationToken(kioskID string, ttl time.Duration) *ValidationToken {
	now := time.Now()
	return &ValidationToken{
		Value:     uuid.NewString(),
		KioskID:   kioskID,
		State:     TokenStateValid,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// Overdue reports whether a still-VALID token has outlived its TTL.
func (t *ValidationToken) Overdue(now time.Time) bool {
	return t.State == TokenStateValid && now.After(t.ExpiresAt)
}

// Validate checks structural invariants before persisting.
func (t *ValidationToken) Validate() error {
	if t.Value == "" {
		return errors.New("token value is required")
	}
	if t.KioskID == "" {
		return errors.New("kiosk id is required")
	}
	if t.State != TokenStateValid && t.State != TokenStateUsed && t.State != TokenStateExpired {
		return errors.New("invalid token state")
	}
	return nil
}
