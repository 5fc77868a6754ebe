package apperror

import (
	"errors"
	"fmt"
)

// Sentinel errors for the four failure categories the board can produce.
// Handlers check these with errors.Is and map them to HTTP status codes:
// validation → 400, not found → 404, forbidden → 403, storage → 500.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrForbidden  = errors.New("forbidden")
	ErrStorage    = errors.New("storage failure")
)

type AppError struct {
	Err     error  // sentinel category (one of the vars above)
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Storage wraps a snapshot read/write failure. The triggering operation is
// considered not-committed; the wrapped cause stays reachable via errors.Is
// and errors.Unwrap for logging at the boundary.
func Storage(op string, cause error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %s: %v", ErrStorage, op, cause),
		Message: fmt.Sprintf("storing data failed during %s", op),
	}
}
