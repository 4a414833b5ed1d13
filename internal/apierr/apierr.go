// Package apierr is the error taxonomy handlers return to the HTTP boundary.
// Each Error carries the status it maps to and a stable machine-readable
// kind; the echo error handler renders it as {"error", "code", "fields"}.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	KindValidation      = "validation_error"
	KindUnauthenticated = "unauthenticated"
	KindInvalidToken    = "invalid_token"
	KindTokenExpired    = "token_expired"
	KindNotFound        = "not_found"
	KindConflict        = "conflict"
	KindTooLarge        = "payload_too_large"
	KindProvider        = "provider_error"
	KindInternal        = "internal_error"
)

type Error struct {
	Status  int
	Kind    string
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Kind
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, kind, message string, err error) *Error {
	return &Error{Status: status, Kind: kind, Message: message, Err: err}
}

// Validation reports malformed or disallowed input. fields may be nil.
func Validation(message string, fields map[string]string) *Error {
	return &Error{Status: http.StatusBadRequest, Kind: KindValidation, Message: message, Fields: fields}
}

func Unauthenticated(message string) *Error {
	return New(http.StatusUnauthorized, KindUnauthenticated, message, nil)
}

func InvalidToken(err error) *Error {
	return New(http.StatusUnauthorized, KindInvalidToken, "invalid token", err)
}

func TokenExpired(err error) *Error {
	return New(http.StatusUnauthorized, KindTokenExpired, "token expired", err)
}

// NotFound intentionally does not say whether the resource is missing or
// owned by someone else.
func NotFound(message string) *Error {
	return New(http.StatusNotFound, KindNotFound, message, nil)
}

func Conflict(message string) *Error {
	return New(http.StatusBadRequest, KindConflict, message, nil)
}

func TooLarge(message string) *Error {
	return New(http.StatusRequestEntityTooLarge, KindTooLarge, message, nil)
}

// Provider wraps a translation/TTS/scoring failure. The message shown to the
// client stays generic; err is only logged.
func Provider(message string, err error) *Error {
	return New(http.StatusInternalServerError, KindProvider, message, err)
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, KindInternal, "internal server error", err)
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
