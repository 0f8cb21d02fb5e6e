package models

import "errors"

// Command-boundary error taxonomy. Handlers match these with errors.Is
// and map them to HTTP status codes; services wrap them with context.
var (
	ErrNotFound         = errors.New("not found")
	ErrSlotUnavailable  = errors.New("slot unavailable")
	ErrQuotaExceeded    = errors.New("quota exceeded")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidState     = errors.New("invalid state")
	ErrMissingReason    = errors.New("missing reason")
	ErrDuplicateRequest = errors.New("duplicate request")
	ErrValidation       = errors.New("validation failed")
	ErrAlreadyStarted   = errors.New("booking already started")
)
