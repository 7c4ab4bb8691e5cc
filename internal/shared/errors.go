package shared

import "errors"

var (
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrIdempotencyConflict indicates a duplicate idempotency key.
	ErrIdempotencyConflict = errors.New("idempotent request already processed")
)
