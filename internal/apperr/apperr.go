// Package apperr defines the error taxonomy shared by the chat services and the
// HTTP/WebSocket boundaries. Domain code returns *Error values with a machine
// readable status; the boundary translates them into response payloads and never
// leaks wrapped internals to clients.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Status classifies a failure for clients.
type Status string

const (
	Unauthenticated Status = "UNAUTHENTICATED"
	Forbidden       Status = "FORBIDDEN"
	NotFound        Status = "NOT_FOUND"
	InvalidInput    Status = "INVALID_INPUT"
	Conflict        Status = "CONFLICT"
	Internal        Status = "INTERNAL"
)

// Error carries a status plus a human readable message safe to show clients.
type Error struct {
	Status  Status
	Message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Status, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

// New builds a client-facing error with the given status.
func New(status Status, message string) *Error {
	return &Error{Status: status, Message: message}
}

// Newf is New with formatting.
func Newf(status Status, format string, args ...any) *Error {
	return &Error{Status: status, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches an underlying cause. The cause is kept for logs only; clients
// see status and message.
func Wrap(err error, status Status, message string) *Error {
	return &Error{Status: status, Message: message, err: err}
}

// StatusOf extracts the status from err, defaulting to Internal for anything
// that is not an *Error.
func StatusOf(err error) Status {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return Internal
}

// MessageOf returns the client-safe message for err. Unexpected errors map to a
// generic message.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// HTTPStatus maps a status to its HTTP response code.
func HTTPStatus(s Status) int {
	switch s {
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case InvalidInput:
		return http.StatusBadRequest
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
