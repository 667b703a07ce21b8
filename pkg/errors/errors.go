package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed console error with HTTP awareness. The status
// carries the upstream HTTP status when the error originated on the wire.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrUnauthenticated = New("UNAUTHENTICATED", http.StatusUnauthorized, "session expired, sign in again")
	ErrNotFound        = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrValidation      = New("VALIDATION_ERROR", http.StatusUnprocessableEntity, "validation failed")
	ErrRejected        = New("REJECTED", http.StatusOK, "request rejected by the platform")
	ErrTransport       = New("TRANSPORT_ERROR", http.StatusBadGateway, "unexpected platform response")
	ErrNetwork         = New("NETWORK_ERROR", 0, "platform unreachable")
	ErrAborted         = New("ABORTED", 0, "operation cancelled by operator")
	ErrIllegalState    = New("ILLEGAL_STATE", http.StatusConflict, "action not allowed in current state")
	ErrBusy            = New("BUSY", http.StatusConflict, "another operation is in flight")
	ErrInternal        = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal error")
	ErrCacheMiss       = New("CACHE_MISS", 0, "cache miss")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
