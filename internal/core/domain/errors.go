package domain

import "errors"

// Failure taxonomy shared by services, storage adapters, and handlers.
// Conflict and Unavailable are retryable by the caller; the rest require a
// changed request.
var (
	ErrValidation        = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrConflict          = errors.New("concurrent write conflict")
	ErrUnavailable       = errors.New("store unavailable")
)
