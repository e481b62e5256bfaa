package models

import "errors"

// Domain error taxonomy. API handlers translate these into HTTP status
// codes; pipeline code treats ErrAlreadyExists as a no-op.
var (
	ErrInvalidConfig      = errors.New("invalid subscription config")
	ErrChannelNotAllowed  = errors.New("channel not allowed for plan")
	ErrForbidden          = errors.New("forbidden")
	ErrQuotaExceeded      = errors.New("quota exceeded")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrChannelUnavailable = errors.New("channel unavailable")
)
