package service

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is against any error returned by a
// Service.
var (
	// ErrUnauthorized means the credential is missing, expired or rejected.
	// Callers must send the user through sign-in again rather than retry.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound means the entity does not exist (or no longer exists).
	ErrNotFound = errors.New("not found")

	// ErrValidation means the input was rejected.
	ErrValidation = errors.New("validation failed")

	// ErrMalformed means the response did not have the expected shape.
	ErrMalformed = errors.New("malformed response")

	// ErrService covers every other non-2xx status and transport failure.
	ErrService = errors.New("service error")
)

// ErrMissingToken is returned when an operation is called without a bearer
// token. It is a caller bug, not a backend failure.
var ErrMissingToken = errors.New("bearer token required")

// Error is a typed failure from a Service operation.
type Error struct {
	// Kind is one of ErrUnauthorized, ErrNotFound, ErrValidation,
	// ErrMalformed, ErrService.
	Kind error

	// Op is the operation that failed, e.g. "GetTask".
	Op string

	// Status is the HTTP status code, 0 when no response was received.
	Status int

	// Message is a human-readable detail, usually from the response body.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

// Is reports whether target is this error's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or nil when err is not a typed failure.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return nil
}

// MessageOf returns the detail message of a typed failure, or err.Error().
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}
