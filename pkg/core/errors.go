package core

import (
	"errors"
	"fmt"
)

// ErrorKind discriminates the domain error taxonomy.
type ErrorKind string

const (
	// KindValidation marks a malformed patch, a missing required include,
	// or a setup-time misconfiguration.
	KindValidation ErrorKind = "validation"
	// KindPersistence marks an underlying store failure, propagated
	// untouched and never retried.
	KindPersistence ErrorKind = "persistence"
	// KindRollback marks the two rollback rejections: targeting the
	// latest patch, or targeting a patch that does not exist.
	KindRollback ErrorKind = "rollback"
)

// ErrNotFound is returned by stores when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Error is the tagged domain error: a kind discriminator, a message, and
// optional context.
type Error struct {
	Kind    ErrorKind
	Message string
	Context Fields
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped store error, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewValidationError returns a validation-kind error.
func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// NewPersistenceError wraps an underlying store failure.
func NewPersistenceError(message string, err error) *Error {
	return &Error{Kind: KindPersistence, Message: message, Err: err}
}

// NewRollbackError returns a rollback rejection with optional context.
func NewRollbackError(message string, context Fields) *Error {
	return &Error{Kind: KindRollback, Message: message, Context: context}
}

// KindOf returns the kind of err if it is (or wraps) a domain Error, or
// the empty string otherwise.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsRollbackError reports whether err is a rollback rejection.
func IsRollbackError(err error) bool {
	return KindOf(err) == KindRollback
}

// IsValidationError reports whether err is a validation failure.
func IsValidationError(err error) bool {
	return KindOf(err) == KindValidation
}
