// Package apperr tags errors with the failure kinds callers branch on.
// Handlers decide between dropping a signal, aborting a step, and rolling
// back a transaction by errors.Is against these sentinels.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInsufficientUnits = errors.New("insufficient units")
	ErrConflict          = errors.New("version conflict")
	ErrBrokerage         = errors.New("brokerage failure")
	ErrPersistence       = errors.New("persistence failure")
)

type taggedError struct {
	kind  error
	cause error
	msg   string
}

func (e *taggedError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind.Error(), e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.kind.Error(), e.msg)
}

func (e *taggedError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.kind, e.cause}
	}
	return []error{e.kind}
}

// New builds an error of the given kind.
func New(kind error, format string, args ...any) error {
	return &taggedError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Because builds an error of the given kind around an underlying cause.
// Both the kind and the cause remain matchable with errors.Is.
func Because(kind error, cause error, format string, args ...any) error {
	return &taggedError{kind: kind, cause: cause, msg: fmt.Sprintf(format, args...)}
}
