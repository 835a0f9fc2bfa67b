package domain

import "errors"

var (
	// ErrInvalidRequest marks chat requests missing a required field. No
	// side effects occur before this is returned.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUnknownProvider marks provider ids absent from the catalog.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrMissingCredential marks providers whose API key is not configured.
	ErrMissingCredential = errors.New("provider credential not configured")

	// ErrSessionNotFound distinguishes a missing session from one with an
	// empty history.
	ErrSessionNotFound = errors.New("session not found")
)
