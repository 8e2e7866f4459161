package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"storefront/internal/errs"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/pkg/signing"
	"storefront/pkg/upstream"

	"go.uber.org/zap"
)

// IdentityService handles registration and lookup of signer identities.
type IdentityService struct {
	identities repositories.IdentityRepository
	auth       *RequestAuthenticator
	splitter   Splitter
	logger     *zap.Logger
}

// NewIdentityService creates a new IdentityService. splitter may be nil, in which case
// identities are registered without a splitting-service account.
func NewIdentityService(identities repositories.IdentityRepository, auth *RequestAuthenticator, splitter Splitter, logger *zap.Logger) *IdentityService {
	return &IdentityService{
		identities: identities,
		auth:       auth,
		splitter:   splitter,
		logger:     logger,
	}
}

// Register verifies that the caller controls pubKey and creates its identity.
func (s *IdentityService) Register(ctx context.Context, timestamp, pubKey, signature string) (*models.Identity, error) {
	if !signing.ValidPubKey(pubKey) {
		return nil, fmt.Errorf("pubKey is not a compressed secp256k1 key: %w", errs.ErrValidation)
	}
	if err := s.auth.AuthenticateKey(ctx, pubKey, timestamp, signature, RegisterMessage(timestamp, pubKey)); err != nil {
		return nil, err
	}

	// Checked before the splitting service is called so a duplicate never creates an
	// orphan account there. Register still guards the race.
	if _, err := s.identities.GetByPubKey(ctx, pubKey); err == nil {
		return nil, fmt.Errorf("pubKey already registered: %w", errs.ErrDuplicateKey)
	} else if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}

	var externalRef json.RawMessage
	if s.splitter != nil {
		ref, err := s.splitter.CreateUser(ctx, upstream.Registration{Timestamp: timestamp, PubKey: pubKey, Signature: signature})
		if err != nil {
			return nil, fmt.Errorf("failed to create splitting account: %w", err)
		}
		externalRef = ref
	}

	identity, err := s.identities.Register(ctx, pubKey, externalRef)
	if err != nil {
		return nil, err
	}
	s.logger.Info("identity registered", zap.String("uuid", identity.UUID))
	return identity, nil
}

// Get returns the identity of uuid to its own signer.
func (s *IdentityService) Get(ctx context.Context, uuid, timestamp, signature string) (*models.Identity, error) {
	return s.auth.Authenticate(ctx, uuid, timestamp, signature, GetIdentityMessage(timestamp, uuid))
}

// AttachProcessor links a payment processor account to the identity's splitting account
// and stores the updated account reference.
func (s *IdentityService) AttachProcessor(ctx context.Context, uuid, processor, timestamp, signature string, body json.RawMessage) (json.RawMessage, error) {
	identity, err := s.auth.Authenticate(ctx, uuid, timestamp, signature, AttachProcessorMessage(timestamp, uuid, processor))
	if err != nil {
		return nil, err
	}
	if s.splitter == nil {
		return nil, fmt.Errorf("splitting service is not configured: %w", errs.ErrUpstream)
	}

	var ref struct {
		UUID string `json:"uuid"`
	}
	if len(identity.ExternalRef) == 0 || json.Unmarshal(identity.ExternalRef, &ref) != nil || ref.UUID == "" {
		return nil, fmt.Errorf("identity %s has no splitting account: %w", uuid, errs.ErrNotFound)
	}

	updated, err := s.splitter.AttachProcessor(ctx, ref.UUID, processor, body)
	if err != nil {
		return nil, fmt.Errorf("failed to attach processor %s: %w", processor, err)
	}

	identity.ExternalRef = updated
	if err := s.identities.Save(ctx, identity); err != nil {
		return nil, err
	}
	return updated, nil
}
