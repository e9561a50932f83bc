// Package apperr defines the error taxonomy shared by services and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a business-rule failure.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindNotFound       Kind = "not_found"
	KindAuthorization  Kind = "authorization"
	KindAuthentication Kind = "authentication"
	KindConflict       Kind = "conflict"
	KindInternal       Kind = "internal"
)

// Error is a structured failure carrying a kind and a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same kind and message, so package-level
// sentinels work with errors.Is even after WithDetails copies them.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// WithDetails returns a copy of e carrying extra structured details.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(format string, args ...interface{}) *Error {
	return Newf(KindValidation, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return Newf(KindNotFound, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return Newf(KindConflict, format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return Newf(KindAuthorization, format, args...)
}

func Unauthenticated(format string, args ...interface{}) *Error {
	return Newf(KindAuthentication, format, args...)
}

// KindOf reports the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
