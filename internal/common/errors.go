// Package common defines shared constants and sentinel errors used across
// client and server layers of FileDrop. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Input errors (caller mistake, no side effect performed).
	ErrorNoFile = errors.New("no file supplied")

	// Repository/object errors.
	ErrorNotFound = errors.New("not found")

	// Crypto errors. ErrorAuthentication covers AEAD open failures:
	// a corrupt or tampered blob, or the wrong key. It must stay
	// distinguishable from storage transport failures so the client can
	// report "this link's key is invalid" instead of "download failed".
	ErrorAuthentication  = errors.New("corrupt or tampered data")
	ErrorInvalidKeyToken = errors.New("invalid key token")

	// Auth errors (invalid or malformed identity token).
	ErrInvalidToken = errors.New("invalid token")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
)
