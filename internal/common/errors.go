// Package common defines shared constants and sentinel errors used across
// the agent core and the reference backend. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Local Store initialization errors. Fatal: the caller must not keep
	// using a store handle after receiving one of these.
	ErrStoreUnavailable = errors.New("local store unavailable")

	// Sync-level errors.
	ErrUnavailable     = errors.New("server unavailable")
	ErrVersionConflict = errors.New("version conflict")
	ErrRetryExhausted  = errors.New("retry limit reached")

	// Mutation Recorder boundary errors.
	ErrValidation    = errors.New("validation error")
	ErrMissingCase   = errors.New("referenced case does not exist")
	ErrImmutable     = errors.New("form submission is immutable")
	ErrAlreadyExists = errors.New("already exists")

	// Auth/session errors.
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
