// Package apperr provides the structured error taxonomy shared by the
// service and handler layers. Store backends translate driver errors into
// these kinds so handlers never branch on driver sentinels.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for envelope and status mapping.
type Kind uint8

const (
	// KindInternal is for unclassified storage/infra failures.
	KindInternal Kind = iota

	// KindValidation is for missing or malformed input.
	KindValidation

	// KindUnauthenticated is for requests without a valid session.
	KindUnauthenticated

	// KindForbidden is for authenticated callers with the wrong role.
	KindForbidden

	// KindNotFound is for unknown identifiers.
	KindNotFound

	// KindCapacityExceeded is for registration attempts against a full event.
	KindCapacityExceeded

	// KindDuplicateRegistration is for a second registration with the same
	// email on the same event.
	KindDuplicateRegistration
)

// HTTPStatus maps a kind to its HTTP status code. Capacity and duplicate
// failures are business-rule rejections, not server errors.
func HTTPStatus(k Kind) int {
	switch k {
	case KindValidation, KindCapacityExceeded, KindDuplicateRegistration:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a kind, a short user-facing message and an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an error of the given kind.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf builds an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to a cause.
func Wrap(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the kind from err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Message extracts the short user-facing message from err. Unclassified
// errors get a generic message so internal detail never leaks to clients.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Msg
	}
	return "server error"
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}
