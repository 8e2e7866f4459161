package repositories

import (
	"context"
	"encoding/json"

	"storefront/internal/models"
)

// IdentityRepository defines the interface for signer identity access.
type IdentityRepository interface {
	Register(ctx context.Context, pubKey string, externalRef json.RawMessage) (*models.Identity, error)
	GetByUUID(ctx context.Context, uuid string) (*models.Identity, error)
	GetByPubKey(ctx context.Context, pubKey string) (*models.Identity, error)
	Save(ctx context.Context, identity *models.Identity) error
}
