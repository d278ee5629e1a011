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

type KioskRepository struct {
	collection *mongo.Collection
}

// kioskDocument carries the kiosk entity plus the credential used for
// token-minting authentication, which is never exposed on the entity.
type kioskDocument struct {
	entities.Kiosk `bson:",inline"`
	Secret         string `bson:"secret"`
}

// NewKioskRepository creates a new MongoDB kiosk repository.
func NewKioskRepository(db *mongo.Database) *KioskRepository {
	return &KioskRepository{
		collection: db.Collection("kiosks"),
	}
}

// Create implements repositories.KioskRepository
func (r *KioskRepository) Create(ctx context.Context, kiosk *entities.Kiosk) error {
	if kiosk == nil {
		return errors.New("kiosk cannot be nil")
	}
	if err := kiosk.Validate(); err != nil {
		return err
	}
	if kiosk.CreatedAt.IsZero() {
		kiosk.CreatedAt = time.Now()
	}

	if _, err := r.collection.InsertOne(ctx, kioskDocument{Kiosk: *kiosk}); err != nil {
		return fmt.Errorf("failed to create kiosk: %w", err)
	}
	return nil
}

// GetByID implements repositories.KioskRepository
func (r *KioskRepository) GetByID(ctx context.Context, id string) (*entities.Kiosk, error) {
	if id == "" {
		return nil, errors.New("kiosk id cannot be empty")
	}

	var doc kioskDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &domain.NotFoundError{Resource: "kiosk", Field: "id", Value: id}
		}
		return nil, fmt.Errorf("failed to get kiosk %s: %w", id, err)
	}

	return &doc.Kiosk, nil
}

// Authenticate implements repositories.KioskRepository
func (r *KioskRepository) Authenticate(ctx context.Context, id, secret string) (*entities.Kiosk, error) {
	var doc kioskDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errors.New("invalid kiosk credentials")
		}
		return nil, fmt.Errorf("failed to authenticate kiosk %s: %w", id, err)
	}
	if doc.Secret == "" || doc.Secret != secret {
		return nil, errors.New("invalid kiosk credentials")
	}

	return &doc.Kiosk, nil
}

// SetSecret stores the credential a kiosk authenticates with.
func (r *KioskRepository) SetSecret(ctx context.Context, id, secret string) error {
	if id == "" {
		return errors.New("kiosk id cannot be empty")
	}
	if secret == "" {
		return errors.New("secret cannot be empty")
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"secret": secret}})
	if err != nil {
		return fmt.Errorf("failed to set kiosk secret: %w", err)
	}
	if result.MatchedCount == 0 {
		return &domain.NotFoundError{Resource: "kiosk", Field: "id", Value: id}
	}
	return nil
}

var _ repositories.KioskRepository = (*KioskRepository)(nil)
