// Package apperr classifies failures so that every layer (store, HTTP API,
// client, phase controller) can decide whether an operation may be retried.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the category of a failure.
type Kind int

const (
	// Unknown is used for errors that were never classified.
	Unknown Kind = iota
	// NotFound means a session, hand or player does not exist.
	NotFound
	// Validation means the input was rejected; the caller may correct it.
	Validation
	// PreconditionFailed means the aggregate is in a state where the operation is not allowed.
	PreconditionFailed
	// Conflict means a concurrent writer changed the aggregate first.
	Conflict
	// TransientIO means a network, storage or generator failure; retry is safe.
	TransientIO
)

// String returns the wire code for the kind
func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Validation:
		return "validation"
	case PreconditionFailed:
		return "precondition_failed"
	case Conflict:
		return "conflict"
	case TransientIO:
		return "transient"
	default:
		return "unknown"
	}
}

// ParseKind maps a wire code back to a Kind.
func ParseKind(code string) Kind {
	switch code {
	case "not_found":
		return NotFound
	case "validation":
		return Validation
	case "precondition_failed":
		return PreconditionFailed
	case "conflict":
		return Conflict
	case "transient":
		return TransientIO
	default:
		return Unknown
	}
}

// Retryable reports whether the same request can be sent again unchanged.
func (k Kind) Retryable() bool {
	return k == TransientIO || k == Conflict
}

// Error is a classified error.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so errors.Is(err, apperr.ErrNotFound) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Op == "" && t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound     = &Error{Kind: NotFound}
	ErrValidation   = &Error{Kind: Validation}
	ErrPrecondition = &Error{Kind: PreconditionFailed}
	ErrConflict     = &Error{Kind: Conflict}
	ErrTransient    = &Error{Kind: TransientIO}
)

func newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// NotFoundf returns a NotFound error.
func NotFoundf(op, format string, args ...any) error {
	return newf(NotFound, op, format, args...)
}

// Invalidf returns a Validation error.
func Invalidf(op, format string, args ...any) error {
	return newf(Validation, op, format, args...)
}

// Preconditionf returns a PreconditionFailed error.
func Preconditionf(op, format string, args ...any) error {
	return newf(PreconditionFailed, op, format, args...)
}

// Conflictf returns a Conflict error.
func Conflictf(op, format string, args ...any) error {
	return newf(Conflict, op, format, args...)
}

// Transient wraps err as a TransientIO error.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: TransientIO, Op: op, Err: err}
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return Unknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}
