package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront/internal/errs"
	"storefront/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	userKeyPrefix   = "user:"
	pubKeyKeyPrefix = "pubKey:"
)

// IdentityRegistry is a KeyValueStore implementation of IdentityRepository.
// Identities live under user:{uuid}; pubKey:{pubKey} maps a key back to its uuid.
type IdentityRegistry struct {
	store  KeyValueStore
	logger *zap.Logger
	now    func() time.Time
}

// NewIdentityRegistry creates a new IdentityRegistry.
func NewIdentityRegistry(store KeyValueStore, logger *zap.Logger) *IdentityRegistry {
	return &IdentityRegistry{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Register creates an identity for pubKey with a fresh UUID.
func (r *IdentityRegistry) Register(ctx context.Context, pubKey string, externalRef json.RawMessage) (*models.Identity, error) {
	if pubKey == "" {
		return nil, fmt.Errorf("pubKey is required: %w", errs.ErrValidation)
	}
	if _, err := r.store.Get(ctx, pubKeyKeyPrefix+pubKey); err == nil {
		return nil, fmt.Errorf("pubKey %s already registered: %w", pubKey, errs.ErrDuplicateKey)
	} else if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}

	identity := &models.Identity{
		UUID:        uuid.NewString(),
		PubKey:      pubKey,
		ExternalRef: externalRef,
		CreatedAt:   r.now().UTC(),
	}
	if err := r.Save(ctx, identity); err != nil {
		return nil, err
	}

	// The conditional set settles races between two registrations of the same key.
	claimed, err := r.store.SetIfAbsent(ctx, pubKeyKeyPrefix+pubKey, identity.UUID)
	if err != nil {
		r.logger.Error("pubKey index write failed after identity write",
			zap.String("uuid", identity.UUID), zap.Error(err))
		return nil, fmt.Errorf("pubKey index for %s: %w: %w", identity.UUID, errs.ErrPartialWrite, err)
	}
	if !claimed {
		if delErr := r.store.Delete(ctx, userKeyPrefix+identity.UUID); delErr != nil {
			r.logger.Warn("failed to remove identity that lost a registration race",
				zap.String("uuid", identity.UUID), zap.Error(delErr))
		}
		return nil, fmt.Errorf("pubKey %s already registered: %w", pubKey, errs.ErrDuplicateKey)
	}
	return identity, nil
}

// GetByUUID retrieves an identity by its UUID.
func (r *IdentityRegistry) GetByUUID(ctx context.Context, id string) (*models.Identity, error) {
	raw, err := r.store.Get(ctx, userKeyPrefix+id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("identity %s: %w", id, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get identity %s: %w", id, err)
	}

	var identity models.Identity
	if err := json.Unmarshal([]byte(raw), &identity); err != nil {
		return nil, fmt.Errorf("failed to decode identity %s: %w", id, err)
	}
	return &identity, nil
}

// GetByPubKey resolves pubKey to a UUID and then loads the identity.
func (r *IdentityRegistry) GetByPubKey(ctx context.Context, pubKey string) (*models.Identity, error) {
	id, err := r.store.Get(ctx, pubKeyKeyPrefix+pubKey)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("identity for pubKey %s: %w", pubKey, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get identity for pubKey %s: %w", pubKey, err)
	}

	identity, err := r.GetByUUID(ctx, id)
	if errors.Is(err, errs.ErrNotFound) {
		r.logger.Error("pubKey index points at a missing identity",
			zap.String("pubKey", pubKey), zap.String("uuid", id))
	}
	return identity, err
}

// Save overwrites the identity record. The pubKey index is not touched.
func (r *IdentityRegistry) Save(ctx context.Context, identity *models.Identity) error {
	if identity == nil || identity.UUID == "" {
		return fmt.Errorf("identity uuid is required: %w", errs.ErrValidation)
	}
	raw, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("failed to encode identity %s: %w", identity.UUID, err)
	}
	if err := r.store.Set(ctx, userKeyPrefix+identity.UUID, string(raw)); err != nil {
		return fmt.Errorf("failed to save identity %s: %w", identity.UUID, err)
	}
	return nil
}
