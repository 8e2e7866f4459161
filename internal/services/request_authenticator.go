package services

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/errs"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/pkg/signing"

	"go.uber.org/zap"
)

// AuthStage names a step of request authentication.
type AuthStage string

const (
	StageMessageReconstructed AuthStage = "MessageReconstructed"
	StageTimestampChecked     AuthStage = "TimestampChecked"
	StageIdentityResolved     AuthStage = "IdentityResolved"
	StageSignatureVerified    AuthStage = "SignatureVerified"
	StageAuthorized           AuthStage = "Authorized"
)

// AuthError is returned for every rejected request. Its message is always "auth error"
// so callers cannot tell which stage failed; Stage and Reason are for logs only.
type AuthError struct {
	Stage  AuthStage
	Reason string
}

func (e *AuthError) Error() string {
	return errs.ErrAuth.Error()
}

// Is makes errors.Is(err, errs.ErrAuth) hold.
func (e *AuthError) Is(target error) bool {
	return target == errs.ErrAuth
}

func newAuthError(stage AuthStage, format string, args ...interface{}) *AuthError {
	return &AuthError{Stage: stage, Reason: fmt.Sprintf(format, args...)}
}

// RequestAuthenticator verifies signed requests. A request passes through
// MessageReconstructed, TimestampChecked, IdentityResolved and SignatureVerified in
// order and stops at the first failing stage.
type RequestAuthenticator struct {
	identities repositories.IdentityRepository
	verifier   signing.Verifier
	guard      *ReplayGuard
	logger     *zap.Logger
}

// NewRequestAuthenticator creates a new RequestAuthenticator.
func NewRequestAuthenticator(identities repositories.IdentityRepository, verifier signing.Verifier, guard *ReplayGuard, logger *zap.Logger) *RequestAuthenticator {
	return &RequestAuthenticator{
		identities: identities,
		verifier:   verifier,
		guard:      guard,
		logger:     logger,
	}
}

// AuthenticateKey verifies a request signed by a key that is supplied rather than
// looked up, as in registration.
func (a *RequestAuthenticator) AuthenticateKey(ctx context.Context, pubKey, timestamp, signature, message string) error {
	if err := a.precheck(timestamp, signature, message); err != nil {
		return a.reject(err, "", pubKey)
	}
	if !a.verifier.Verify(signature, message, pubKey) {
		return a.reject(newAuthError(StageSignatureVerified, "signature does not match"), "", pubKey)
	}
	return nil
}

// Authenticate verifies a request signed by the registered key of uuid and returns
// that identity.
func (a *RequestAuthenticator) Authenticate(ctx context.Context, uuid, timestamp, signature, message string) (*models.Identity, error) {
	if err := a.precheck(timestamp, signature, message); err != nil {
		return nil, a.reject(err, uuid, "")
	}

	identity, err := a.identities.GetByUUID(ctx, uuid)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, a.reject(newAuthError(StageIdentityResolved, "unknown identity"), uuid, "")
		}
		return nil, fmt.Errorf("failed to resolve signer: %w", err)
	}

	if !a.verifier.Verify(signature, message, identity.PubKey) {
		return nil, a.reject(newAuthError(StageSignatureVerified, "signature does not match"), uuid, identity.PubKey)
	}
	return identity, nil
}

func (a *RequestAuthenticator) precheck(timestamp, signature, message string) *AuthError {
	if signature == "" || message == "" {
		return newAuthError(StageMessageReconstructed, "signature or message is empty")
	}
	if _, err := a.guard.Check(timestamp); err != nil {
		return newAuthError(StageTimestampChecked, "%v", err)
	}
	return nil
}

func (a *RequestAuthenticator) reject(err *AuthError, uuid, pubKey string) error {
	a.logger.Debug("request rejected",
		zap.String("stage", string(err.Stage)),
		zap.String("reason", err.Reason),
		zap.String("uuid", uuid),
		zap.String("pubKey", pubKey))
	return err
}
