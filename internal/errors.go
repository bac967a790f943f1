package internal

import "errors"

// Sentinel errors for the storage and service layers. Wrap with %w so callers
// can keep the failure kinds apart with errors.Is.
var (
	ErrNotFound    = errors.New("not found")
	ErrValidation  = errors.New("validation failed")
	ErrConflict    = errors.New("conflict")
	ErrConsistency = errors.New("aggregate consistency violation")
	ErrUnavailable = errors.New("storage unavailable")
)

type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func NewAppError(code int, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

func (e *AppError) Error() string {
	return e.Message
}
