// Package apperr defines the domain error taxonomy shared by services and
// the HTTP boundary.  Services return *Error values; only the handler layer
// turns them into status codes and JSON bodies.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error independently of the transport.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindInternal     Kind = "internal"
)

// Error is a domain error carrying the HTTP status it maps to.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, status int, msg string) *Error {
	return &Error{Kind: kind, Status: status, Message: msg}
}

func Validation(msg string) *Error { return newError(KindValidation, http.StatusBadRequest, msg) }

func NotFound(msg string) *Error { return newError(KindNotFound, http.StatusNotFound, msg) }

// Conflict covers overlapping leaves and duplicate unique fields; both are
// reported as 400.
func Conflict(msg string) *Error { return newError(KindConflict, http.StatusBadRequest, msg) }

func Unauthorized(msg string) *Error { return newError(KindUnauthorized, http.StatusUnauthorized, msg) }

func Forbidden(msg string) *Error { return newError(KindForbidden, http.StatusForbidden, msg) }

// Internal wraps an unexpected failure behind the default message.
func Internal(err error) *Error {
	e := newError(KindInternal, http.StatusInternalServerError, MsgDefault)
	e.Err = err
	return e
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, k Kind) bool {
	ae, ok := As(err)
	return ok && ae.Kind == k
}
