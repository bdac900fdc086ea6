// Package apperror carries the domain error taxonomy: every expected failure
// maps to an HTTP status and a client-safe message, and everything else is
// treated as internal and kept opaque.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Error struct {
	Code    int
	Message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.err }

func New(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap keeps the underlying cause for logs while exposing only message to
// clients.
func Wrap(code int, message string, err error) *Error {
	return &Error{Code: code, Message: message, err: err}
}

func BadRequest(message string) *Error   { return New(http.StatusBadRequest, message) }
func Unauthorized(message string) *Error { return New(http.StatusUnauthorized, message) }
func Forbidden(message string) *Error    { return New(http.StatusForbidden, message) }
func NotFound(message string) *Error     { return New(http.StatusNotFound, message) }
func Conflict(message string) *Error     { return New(http.StatusConflict, message) }

func Internal(err error) *Error {
	return Wrap(http.StatusInternalServerError, "Something went wrong", err)
}

// From classifies err. A nil error yields nil; an *Error passes through;
// anything else becomes an internal error so unexpected failures never leak
// details to clients.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}
