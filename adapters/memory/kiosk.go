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

// KioskRepository is an in-memory implementation of the kiosk store.
type KioskRepository struct {
	mu      sync.RWMutex
	kiosks  map[string]*entities.Kiosk
	secrets map[string]string
}

// NewKioskRepository creates an empty in-memory kiosk repository.
func NewKioskRepository() *KioskRepository {
	return &KioskRepository{
		kiosks:  make(map[string]*entities.Kiosk),
		secrets: make(map[string]string),
	}
}

// Create implements repositories.KioskRepository.
func (r *KioskRepository) Create(ctx context.Context, kiosk *entities.Kiosk) error {
	if kiosk == nil {
		return errors.New("kiosk cannot be nil")
	}
	if err := kiosk.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.kiosks[kiosk.ID]; exists {
		return errors.New("kiosk with this id already exists")
	}

	if kiosk.CreatedAt.IsZero() {
		kiosk.CreatedAt = time.Now()
	}
	copied := *kiosk
	r.kiosks[kiosk.ID] = &copied
	return nil
}

// GetByID implements repositories.KioskRepository.
func (r *KioskRepository) GetByID(ctx context.Context, id string) (*entities.Kiosk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kiosk, exists := r.kiosks[id]
	if !exists {
		return nil, &domain.NotFoundError{Resource: "kiosk", Field: "id", Value: id}
	}

	copied := *kiosk
	return &copied, nil
}

// Authenticate implements repositories.KioskRepository.
func (r *KioskRepository) Authenticate(ctx context.Context, id, secret string) (*entities.Kiosk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, exists := r.secrets[id]
	if !exists || stored != secret {
		return nil, errors.New("invalid kiosk credentials")
	}

	kiosk, exists := r.kiosks[id]
	if !exists {
		return nil, &domain.NotFoundError{Resource: "kiosk", Field: "id", Value: id}
	}

	copied := *kiosk
	return &copied, nil
}

// RegisterSecret sets the credential a kiosk authenticates with.
func (r *KioskRepository) RegisterSecret(id, secret string) error {
	if id == "" {
		return errors.New("kiosk id cannot be empty")
	}
	if secret == "" {
		return errors.New("secret cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.secrets[id] = secret
	return nil
}

var _ repositories.KioskRepository = (*KioskRepository)(nil)
