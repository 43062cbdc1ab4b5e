package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/componenthub/hubauth/pkg/logger"
	"github.com/componenthub/hubauth/pkg/requestid"
)

// statusOf classifies err the same way JSONError renders it.
func statusOf(err error) int {
	var valErr ValidationError
	if errors.As(err, &valErr) {
		return http.StatusUnprocessableEntity
	}
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code
	}
	return http.StatusInternalServerError
}

// NewErrorHandler logs err at warn level for client errors and error level
// otherwise, then renders it with JSONError.
func NewErrorHandler(log *slog.Logger) ErrorHandler[Context] {
	if log == nil {
		log = logger.Discard()
	}
	return func(ctx Context, err error) {
		r := ctx.Request()
		status := statusOf(err)
		level := slog.LevelError
		if status < http.StatusInternalServerError {
			level = slog.LevelWarn
		}

		log.LogAttrs(r.Context(), level, "request error",
			logger.RequestID(requestid.FromContext(r.Context())),
			logger.Error(err),
			slog.Int("status_code", status),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Component("handler"),
		)

		if renderErr := JSONError(err).Render(ctx.ResponseWriter(), r); renderErr != nil {
			log.ErrorContext(r.Context(), "failed to render error response",
				logger.Error(renderErr),
				logger.Component("handler"),
			)
		}
	}
}
