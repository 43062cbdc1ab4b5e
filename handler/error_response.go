package handler

import "net/http"

type errorResponse struct {
	err error
}

// Render returns the error so Wrap hands it to the configured ErrorHandler.
func (e errorResponse) Render(http.ResponseWriter, *http.Request) error {
	return e.err
}

// Error defers err to the ErrorHandler, which logs and renders it.
func Error(err error) Response {
	return errorResponse{err: err}
}
