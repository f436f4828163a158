// Package apperr defines the error taxonomy shared by services and HTTP handlers.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("forbidden")
	ErrValidation    = errors.New("validation failed")
	ErrConfiguration = errors.New("configuration error")
	ErrUpstream      = errors.New("upstream error")
)

// Error carries a kind sentinel plus a message that is safe to show to clients.
// Cause is kept for logs only.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap lets errors.Is match both the kind and the cause.
func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

func newf(kind error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) error {
	return newf(ErrNotFound, format, args...)
}

func Forbidden(format string, args ...interface{}) error {
	return newf(ErrForbidden, format, args...)
}

func Validation(format string, args ...interface{}) error {
	return newf(ErrValidation, format, args...)
}

func Configuration(format string, args ...interface{}) error {
	return newf(ErrConfiguration, format, args...)
}

// Upstream wraps a failed upstream call. The cause never reaches clients.
func Upstream(cause error, format string, args ...interface{}) error {
	e := newf(ErrUpstream, format, args...)
	e.Cause = cause
	return e
}

// Wrap attaches cause to a new error of kind whose message stays client-safe
func Wrap(kind, cause error, format string, args ...interface{}) error {
	e := newf(kind, format, args...)
	e.Cause = cause
	return e
}

// PublicMessage returns the client-facing message of err, or fallback when err
// carries none.
func PublicMessage(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}
