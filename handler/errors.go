package handler

import (
	"errors"
	"net/http"
)

var (
	// ErrNilResponse indicates a handler returned nil instead of a Response.
	ErrNilResponse = errors.New("handler returned nil response")
)

// HTTPError is an error carrying an HTTP status and a stable key.
type HTTPError struct {
	Code  int
	Key   string
	cause error
}

func (e HTTPError) Error() string {
	if e.cause != nil {
		return e.Key + ": " + e.cause.Error()
	}
	return e.Key
}

func (e HTTPError) Unwrap() error {
	return e.cause
}

// Is matches on status and key so wrapped copies compare equal to the
// package values.
func (e HTTPError) Is(target error) bool {
	t, ok := target.(HTTPError)
	return ok && t.Code == e.Code && t.Key == e.Key
}

// Wrap returns a copy of e carrying cause.
func (e HTTPError) Wrap(cause error) HTTPError {
	e.cause = cause
	return e
}

func NewHTTPError(code int, key string) HTTPError {
	return HTTPError{Code: code, Key: key}
}

var (
	ErrBadRequest          = HTTPError{Code: http.StatusBadRequest, Key: "bad_request"}
	ErrUnauthorized        = HTTPError{Code: http.StatusUnauthorized, Key: "unauthorized"}
	ErrForbidden           = HTTPError{Code: http.StatusForbidden, Key: "forbidden"}
	ErrNotFound            = HTTPError{Code: http.StatusNotFound, Key: "not_found"}
	ErrConflict            = HTTPError{Code: http.StatusConflict, Key: "conflict"}
	ErrUnprocessableEntity = HTTPError{Code: http.StatusUnprocessableEntity, Key: "unprocessable_entity"}
	ErrTooManyRequests     = HTTPError{Code: http.StatusTooManyRequests, Key: "too_many_requests"}

	ErrInternalServerError = HTTPError{Code: http.StatusInternalServerError, Key: "internal_server_error"}
	ErrNotImplemented      = HTTPError{Code: http.StatusNotImplemented, Key: "not_implemented"}
	ErrServiceUnavailable  = HTTPError{Code: http.StatusServiceUnavailable, Key: "service_unavailable"}
)
