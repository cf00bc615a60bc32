// Package apperror defines the error taxonomy shared by the service and
// handler layers.
//
// Services return these errors; handlers translate them into HTTP status
// codes in one place (handler.writeError). A service never knows about HTTP.
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrUnreachable  = errors.New("unreachable")
)

type AppError struct {
	Err     error    // sentinel the error belongs to
	Message string   // Human-readable error message
	Field   string   // Optional: field causing the error
	Details []string // Optional: every problem found, for batched validation
	Cause   error    // Optional: underlying failure, never shown to clients
}

func (e *AppError) Error() string {
	return e.Message
}

// Unwrap exposes both the sentinel and the cause so errors.Is matches either.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
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

// ValidationList bundles several validation messages into one error so the
// caller can show every problem at once. It returns nil for an empty list.
func ValidationList(messages []string) *AppError {
	if len(messages) == 0 {
		return nil
	}
	return &AppError{
		Err:     ErrValidation,
		Message: strings.Join(messages, " "),
		Details: messages,
	}
}

// Conflict reports a uniqueness violation. The message is shown verbatim.
func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// Unauthorized returns an AppError for bad credentials or a bad session.
// Keep the message generic: it must not reveal which check failed.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
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

// Unreachable reports that no upstream origin answered. cause usually is an
// errors.Join of every attempt.
func Unreachable(message string, cause error) *AppError {
	return &AppError{
		Err:     ErrUnreachable,
		Message: message,
		Cause:   cause,
	}
}
