// Package apperror defines the error taxonomy shared by every layer.
//
// Services return *AppError values wrapping one of the sentinels below.
// The HTTP layer maps the sentinel to a status code with errors.Is, so the
// service layer never needs to know about HTTP:
//
//	ErrValidation   → 400
//	ErrUnauthorized → 401
//	ErrForbidden    → 403
//	ErrNotFound     → 404
//	ErrConflict     → 409
//	ErrNotAvailable → 500 (upstream provider failure, generic message)
//
// Anything that is not an *AppError is treated as an internal error.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotAvailable = errors.New("not available")
)

type AppError struct {
	Err     error  // sentinel, possibly joined with a cause
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(message string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: message,
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// Unauthorized returns an AppError for bad credentials or a bad token.
// HTTP handlers map this to 401 Unauthorized.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Forbidden is for an authenticated caller acting outside its role,
// e.g. a plain member promoting someone.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// NotAvailable marks an upstream failure (timeout, network, 5xx).
// The cause stays reachable through errors.Is / errors.As so it can be
// logged, but the message is what the client sees.
func NotAvailable(message string, cause error) *AppError {
	err := ErrNotAvailable
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrNotAvailable, cause)
	}
	return &AppError{
		Err:     err,
		Message: message,
	}
}
