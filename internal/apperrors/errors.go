// Package apperrors defines the recoverable error taxonomy shared by the
// conversation flows. Every error carries a client-safe message separately
// from the underlying cause, which is only ever logged.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies how a flow recovers from an error.
type Kind string

const (
	// KindValidation is a local input format problem; re-prompt the same step.
	KindValidation Kind = "validation"
	// KindNotFound means a lookup key matched nothing; ask for another key.
	KindNotFound Kind = "not_found"
	// KindConstraint means a previously valid selection is no longer valid.
	KindConstraint Kind = "constraint"
	// KindTransport covers network failures and non-2xx responses.
	KindTransport Kind = "transport"
)

// Error is a classified, recoverable flow error.
type Error struct {
	Kind          Kind
	Op            string
	ClientMessage string
	StatusCode    int
	Err           error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.ClientMessage)
}

func (e *Error) Unwrap() error { return e.Err }

// Validation builds a validation error.
func Validation(op, clientMessage string) *Error {
	return &Error{Kind: KindValidation, Op: op, ClientMessage: clientMessage}
}

// NotFound builds a not-found error.
func NotFound(op, clientMessage string) *Error {
	return &Error{Kind: KindNotFound, Op: op, ClientMessage: clientMessage, StatusCode: http.StatusNotFound}
}

// Constraint builds a constraint error.
func Constraint(op, clientMessage string) *Error {
	return &Error{Kind: KindConstraint, Op: op, ClientMessage: clientMessage}
}

// Transport wraps a network or status failure. status is 0 for network errors.
func Transport(op string, status int, err error) *Error {
	return &Error{
		Kind:          KindTransport,
		Op:            op,
		ClientMessage: "Something went wrong. Please try again.",
		StatusCode:    status,
		Err:           err,
	}
}

// FromStatus classifies a non-2xx response by status: 404 is NotFound, 409
// is Constraint, any other 4xx is Validation and the rest are Transport. The
// client message is left empty so callers choose their own text.
func FromStatus(op string, status int, err error) *Error {
	switch {
	case status == http.StatusNotFound:
		e := NotFound(op, "")
		e.Err = err
		return e
	case status == http.StatusConflict:
		e := Constraint(op, "")
		e.StatusCode, e.Err = status, err
		return e
	case status >= 400 && status < 500:
		e := Validation(op, "")
		e.StatusCode, e.Err = status, err
		return e
	default:
		return Transport(op, status, err)
	}
}

// KindOf reports the kind of err, or "" when err is not classified.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsConflict reports a constraint failure such as a slot taken by a
// competing booking.
func IsConflict(err error) bool {
	return Is(err, KindConstraint)
}

// ClientMessage returns the user-facing text for err, or fallback.
func ClientMessage(err error, fallback string) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.ClientMessage != "" {
		return appErr.ClientMessage
	}
	return fallback
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return 0
}
