package domain

import "errors"

var (
	// ErrInvalidPin: the user must re-confirm the PIN with whoever issued it.
	ErrInvalidPin         = errors.New("invalid trip pin")
	ErrTripAlreadyActive  = errors.New("trip is already active for another driver")
	ErrTripNotFound       = errors.New("no active trip for pin")
	ErrMissingFields      = errors.New("missing required fields")
	ErrInvalidCoordinates = errors.New("coordinates out of range")
	ErrDriverNotFound     = errors.New("driver not found")
	ErrStoreUnavailable   = errors.New("store unavailable")
)
