package usecase

import "errors"

// Sentinel errors the HTTP layer maps onto envelope statuses. Services
// wrap these with %w and attach the operation detail.
var (
	// ErrInvalidInput rejects a request before it reaches the club backend.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound covers unknown players, off-calendar dates and missing matches.
	ErrNotFound = errors.New("resource not found")
	// ErrUnauthorized guards the internal job routes.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrDependencyUnavailable reports that the club backend could not serve
	// the request and no snapshot was available to fall back on.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
