package repositories

import (
	"context"
	"time"

	"github.com/vofas/vofas-backend/domain/entities"
)

// TokenRepository manages validation tokens. Redeem is the gate the feedback
// pipeline depends on and must be atomic: when several uploads present the
// same token concurrently, exactly one redemption succeeds.
type TokenRepository interface {
	// Mint stores a fresh VALID token for the kiosk and returns it.
	Mint(ctx context.Context, kioskID string, ttl time.Duration) (*entities.ValidationToken, error)

	// Redeem flips a VALID, unexpired token to USED and links it to the
	// given feedback id in one atomic step. It returns the owning kiosk id.
	// Failures are reported as *domain.TokenError.
	Redeem(ctx context.Context, value, feedbackID string) (string, error)

	GetByValue(ctx context.Context, value string) (*entities.ValidationToken, error)

	// ExpireOverdue sweeps VALID tokens whose TTL has passed into EXPIRED
	// and returns how many were flipped.
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}
