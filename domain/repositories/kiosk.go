package repositories

import (
	"context"

	"github.com/vofas/vofas-backend/domain/entities"
)

// KioskRepository defines data access for kiosks.
type KioskRepository interface {
	Create(ctx context.Context, kiosk *entities.Kiosk) error
	GetByID(ctx context.Context, id string) (*entities.Kiosk, error)
	// Authenticate validates kiosk credentials for token-minting access.
	Authenticate(ctx context.Context, id, secret string) (*entities.Kiosk, error)
}
