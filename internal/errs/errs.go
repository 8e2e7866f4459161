// Package errs contains the sentinel errors shared by repositories, services and handlers.
// Lower layers wrap them with context; the HTTP layer maps them with errors.Is.
package errs

import "errors"

var (
	// ErrAuth indicates a missing or bad signature, a stale timestamp or an unknown signer.
	ErrAuth = errors.New("auth error")

	// ErrNotFound indicates the identity, product or order does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey indicates a public key that is already registered.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrPartialWrite indicates the primary record was written but an index write failed.
	// Product upserts are idempotent and can be retried as a whole.
	ErrPartialWrite = errors.New("partial write failure")

	// ErrUpstream indicates an external collaborator failed or timed out.
	ErrUpstream = errors.New("upstream error")

	// ErrValidation indicates missing or malformed request fields.
	ErrValidation = errors.New("validation error")
)
