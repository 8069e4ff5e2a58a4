// Package apperror defines the error taxonomy shared by the Medilog
// services and the mapping from error kinds to HTTP status codes.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport mapping and caller branching.
type Kind int

const (
	// KindInternal is the default for unclassified failures.
	KindInternal Kind = iota
	// KindNotFound means a referenced doctor, patient, or record does not exist.
	KindNotFound
	// KindUnauthorized means a credential or current-password check failed.
	KindUnauthorized
	// KindBadRequest means the input was malformed or missing required fields.
	KindBadRequest
	// KindCapacityExhausted means an identifier space ran out after bounded retries.
	KindCapacityExhausted
	// KindUpstreamDegraded means an external collaborator failed or timed out.
	// It is always swallowed into a fallback by the assistant service and
	// never aborts a record or workflow operation.
	KindUpstreamDegraded
)

// Error carries a kind, a caller-facing message, and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match two apperrors by kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// New returns an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap annotates a cause with a kind and message.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NotFound(message string) *Error          { return New(KindNotFound, message) }
func Unauthorized(message string) *Error      { return New(KindUnauthorized, message) }
func BadRequest(message string) *Error        { return New(KindBadRequest, message) }
func CapacityExhausted(message string) *Error { return New(KindCapacityExhausted, message) }
func UpstreamDegraded(message string) *Error  { return New(KindUpstreamDegraded, message) }

// KindOf extracts the kind from err, or KindInternal if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsNotFound(err error) bool          { return KindOf(err) == KindNotFound }
func IsUnauthorized(err error) bool      { return KindOf(err) == KindUnauthorized }
func IsBadRequest(err error) bool        { return KindOf(err) == KindBadRequest }
func IsCapacityExhausted(err error) bool { return KindOf(err) == KindCapacityExhausted }
func IsUpstreamDegraded(err error) bool  { return KindOf(err) == KindUpstreamDegraded }

// HTTPStatus maps an error to the status code the API surface returns.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindBadRequest:
		return http.StatusBadRequest
	case KindCapacityExhausted:
		return http.StatusServiceUnavailable
	case KindUpstreamDegraded:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the caller-facing message for err. Unclassified errors
// collapse to a generic message so internals never leak to clients.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}
