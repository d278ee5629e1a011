package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vofas/vofas-backend/domain"
	"github.com/vofas/vofas-backend/domain/entities"
	"github.com/vofas/vofas-backend/domain/repositories"
)

type TokenRepository struct {
	collection *mongo.Collection
}

// NewTokenRepository creates a new MongoDB validation token repository.
func NewTokenRepository(db *mongo.Database) repositories.TokenRepository {
	return &TokenRepository{
		collection: db.Collection("validation_tokens"),
	}
}

// Mint implements repositories.TokenRepository
func (r *TokenRepository) Mint(ctx context.Context, kioskID string, ttl time.Duration) (*entities.ValidationToken, error) {
	token := entities.NewValidationToken(kioskID, ttl)
	if err := token.Validate(); err != nil {
		return nil, err
	}

	if _, err := r.collection.InsertOne(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to mint validation token: %w", err)
	}
	return token, nil
}

// Redeem implements repositories.TokenRepository. A single FindOneAndUpdate
// flips the token VALID -> USED and links the feedback id, so concurrent
// redemption attempts cannot both match the VALID document.
func (r *TokenRepository) Redeem(ctx context.Context, value, feedbackID string) (string, error) {
	now := time.Now()
	filter := bson.M{
		"_id":        value,
		"state":      entities.TokenStateValid,
		"expires_at": bson.M{"$gt": now},
	}
	update := bson.M{
		"$set": bson.M{
			"state":       entities.TokenStateUsed,
			"used_at":     now,
			"feedback_id": feedbackID,
		},
	}

	var token entities.ValidationToken
	err := r.collection.FindOneAndUpdate(ctx, filter, update).Decode(&token)
	if err == nil {
		return token.KioskID, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return "", fmt.Errorf("failed to redeem validation token: %w", err)
	}

	// The atomic flip did not match; classify why for the caller.
	existing, lookupErr := r.GetByValue(ctx, value)
	if lookupErr != nil {
		var notFound *domain.NotFoundError
		if errors.As(lookupErr, &notFound) {
			return "", &domain.TokenError{Token: value, Failure: domain.TokenNotFound}
		}
		return "", lookupErr
	}
	if existing.State == entities.TokenStateUsed {
		return "", &domain.TokenError{Token: value, Failure: domain.TokenAlreadyUsed}
	}
	return "", &domain.TokenError{Token: value, Failure: domain.TokenExpired}
}

// GetByValue implements repositories.TokenRepository
func (r *TokenRepository) GetByValue(ctx context.Context, value string) (*entities.ValidationToken, error) {
	if value == "" {
		return nil, errors.New("token value cannot be empty")
	}

	var token entities.ValidationToken
	err := r.collection.FindOne(ctx, bson.M{"_id": value}).Decode(&token)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &domain.NotFoundError{Resource: "validation token", Field: "value", Value: value}
		}
		return nil, fmt.Errorf("failed to get validation token: %w", err)
	}

	return &token, nil
}

// ExpireOverdue implements repositories.TokenRepository
func (r *TokenRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	filter := bson.M{
		"state":      entities.TokenStateValid,
		"expires_at": bson.M{"$lte": now},
	}
	update := bson.M{"$set": bson.M{"state": entities.TokenStateExpired}}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to expire overdue tokens: %w", err)
	}
	return result.ModifiedCount, nil
}
