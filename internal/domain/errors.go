package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies failures crossing the domain boundary.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindNotFound      ErrorKind = "not_found"
	KindAlreadyExists ErrorKind = "already_exists"
	KindInternal      ErrorKind = "internal"
)

// Error is the typed failure returned by the aggregate and the application services.
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Op != "" && e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Message != "":
		return e.Message
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(kind ErrorKind, op, message string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Validation reports malformed or missing input.
func Validation(op, message string) error {
	return newError(KindValidation, op, message, nil)
}

// NotFound reports a missing or soft-deleted record.
func NotFound(op, message string) error {
	return newError(KindNotFound, op, message, nil)
}

// AlreadyExists reports a uniqueness violation. cause may be nil.
func AlreadyExists(op, message string, cause error) error {
	return newError(KindAlreadyExists, op, message, cause)
}

// Internal wraps an unexpected storage or runtime failure.
func Internal(op string, cause error) error {
	msg := "internal error"
	if cause != nil {
		msg = cause.Error()
	}
	return newError(KindInternal, op, msg, cause)
}

// KindOf returns the kind carried by err, or KindInternal for untyped errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var de *Error
	if !errors.As(err, &de) {
		return false
	}
	return de.Kind == kind
}
