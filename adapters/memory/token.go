package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vofas/vofas-backend/domain"
	"github.com/vofas/vofas-backend/domain/entities"
	"github.com/vofas/vofas-backend/domain/repositories"
)

// TokenRepository is an in-memory implementation of the validation token
// store. Redemption is serialized through the repository mutex, so only one
// concurrent redeemer can win a token.
type TokenRepository struct {
	mu     sync.Mutex
	tokens map[string]*entities.ValidationToken
}

// NewTokenRepository creates an empty in-memory token repository.
func NewTokenRepository() *TokenRepository {
	return &TokenRepository{
		tokens: make(map[string]*entities.ValidationToken),
	}
}

// Mint implements repositories.TokenRepository.
func (r *TokenRepository) Mint(ctx context.Context, kioskID string, ttl time.Duration) (*entities.ValidationToken, error) {
	if kioskID == "" {
		return nil, errors.New("kiosk id cannot be empty")
	}

	token := entities.NewValidationToken(kioskID, ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *token
	r.tokens[token.Value] = &copied
	return token, nil
}

// Redeem implements repositories.TokenRepository. The whole check-and-flip
// happens under one lock.
func (r *TokenRepository) Redeem(ctx context.Context, value, feedbackID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, exists := r.tokens[value]
	if !exists {
		return "", &domain.TokenError{Token: value, Failure: domain.TokenNotFound}
	}

	now := time.Now()
	switch {
	case token.State == entities.TokenStateUsed:
		return "", &domain.TokenError{Token: value, Failure: domain.TokenAlreadyUsed}
	case token.State == entities.TokenStateExpired || token.Overdue(now):
		token.State = entities.TokenStateExpired
		return "", &domain.TokenError{Token: value, Failure: domain.TokenExpired}
	}

	token.State = entities.TokenStateUsed
	token.UsedAt = &now
	token.FeedbackID = feedbackID
	return token.KioskID, nil
}

// GetByValue implements repositories.TokenRepository.
func (r *TokenRepository) GetByValue(ctx context.Context, value string) (*entities.ValidationToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, exists := r.tokens[value]
	if !exists {
		return nil, &domain.NotFoundError{Resource: "validation token", Field: "value", Value: value}
	}

	copied := *token
	return &copied, nil
}

// ExpireOverdue implements repositories.TokenRepository.
func (r *TokenRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var flipped int64
	for _, token := range r.tokens {
		if token.Overdue(now) {
			token.State = entities.TokenStateExpired
			flipped++
		}
	}
	return flipped, nil
}

var _ repositories.TokenRepository = (*TokenRepository)(nil)
