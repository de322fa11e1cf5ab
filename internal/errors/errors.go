// Package errors defines the failure kinds surfaced by vpc-visualizer.
//
// Every failure that leaves the graph pipeline carries a Kind so callers can
// classify it without string matching:
//
//	err := errors.New(errors.KindValidation, "security group %s: %s", id, msg)
//	if errors.Is(err, errors.KindValidation) {
//	    // reject the batch
//	}
package errors

import (
	"errors"
	"fmt"
)

// Kind is a machine-readable failure category.
type Kind string

const (
	KindValidation           Kind = "VALIDATION_ERROR"
	KindDecode               Kind = "DECODE_ERROR"
	KindUnsupportedDirection Kind = "UNSUPPORTED_DIRECTION"
	KindFetch                Kind = "FETCH_ERROR"
	KindUnauthorized         Kind = "UNAUTHORIZED"
	KindMethodNotAllowed     Kind = "METHOD_NOT_ALLOWED"
	KindInternal             Kind = "INTERNAL_ERROR"
)

// Error is a classified failure with an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates an Error around cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether any error in err's chain is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there
// is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// UserMessage returns the message without the kind prefix. Causes are kept
// out of the message since they may carry internal detail.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
