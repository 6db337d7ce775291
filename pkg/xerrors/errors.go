// Package xerrors provides the typed error taxonomy shared by every
// exchange component. Handlers never hand a raw error across a package
// boundary; they wrap it into a *Error carrying the Kind the external
// interface needs to pick a status code.
package xerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies one row of the external error taxonomy.
type Kind string

const (
	BadRequest             Kind = "BAD_REQUEST"
	Unauthorized           Kind = "UNAUTHORIZED"
	InsufficientCollateral Kind = "INSUFFICIENT_COLLATERAL"
	Forbidden              Kind = "FORBIDDEN"
	NotFound               Kind = "NOT_FOUND"
	Conflict               Kind = "CONFLICT"
	PreconditionFailed     Kind = "PRECONDITION_FAILED"
	TooEarly               Kind = "TOO_EARLY"
	UnavailableForLegal    Kind = "UNAVAILABLE_FOR_LEGAL_REASONS"
	Internal               Kind = "INTERNAL"
)

var statusByKind = map[Kind]int{
	BadRequest:             http.StatusBadRequest,
	Unauthorized:           http.StatusUnauthorized,
	InsufficientCollateral: http.StatusPaymentRequired,
	Forbidden:              http.StatusForbidden,
	NotFound:               http.StatusNotFound,
	Conflict:               http.StatusConflict,
	PreconditionFailed:     http.StatusPreconditionFailed,
	TooEarly:               http.StatusTooEarly,
	UnavailableForLegal:    http.StatusUnavailableForLegalReasons,
	Internal:               http.StatusInternalServerError,
}

// Error is the exchange's error type. It always carries a Kind so the
// dispatcher can translate it to a status code without string matching.
type Error struct {
	Kind    Kind
	Message string
	Details string
	Cause   error
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// StatusCode returns the HTTP status code mapped to e's Kind.
func (e *Error) StatusCode() int {
	if code, ok := statusByKind[e.Kind]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// New builds a *Error with no underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds a *Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithDetails attaches a details string and returns e for chaining.
func (e *Error) WithDetails(details string) *Error {
	e.Details = details
	return e
}

// Wrap builds a *Error that preserves cause for errors.Is/As chains.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind of err, defaulting to Internal when err is not
// a *Error (or is nil, in which case ok is false).
func KindOf(err error) (kind Kind, ok bool) {
	if err == nil {
		return "", false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return Internal, false
}
