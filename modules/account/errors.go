package account

import (
	"errors"
	"net/http"
	"strings"

	"github.com/componenthub/hubauth/handler"
	"github.com/componenthub/hubauth/pkg/authform"
	"github.com/componenthub/hubauth/pkg/identity"
	"github.com/componenthub/hubauth/pkg/session"
)

// ErrNoBrowserSession means the request skipped session.Registry.Middleware.
var ErrNoBrowserSession = errors.New("account: request has no browser session")

// statusForCode maps provider and resolver result codes to HTTP statuses.
func statusForCode(code string) int {
	switch code {
	case string(identity.CodeUserNotFound), string(identity.CodeWrongPassword):
		return http.StatusUnauthorized
	case string(identity.CodeEmailAlreadyInUse):
		return http.StatusConflict
	case string(identity.CodeTooManyRequests):
		return http.StatusTooManyRequests
	case string(identity.CodeWeakPassword), string(identity.CodeInvalidEmail), session.CodeInvalidArgument:
		return http.StatusUnprocessableEntity
	case string(identity.CodePopupClosed), string(identity.CodeCancelledPopup):
		return http.StatusBadRequest
	case string(identity.CodeNotSupported):
		return http.StatusNotImplemented
	case session.CodePermissionDenied:
		return http.StatusForbidden
	case session.CodeNotFound:
		return http.StatusNotFound
	case session.CodeUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// failure renders a failed form or action with its user-facing message.
func failure(code, message string, fields map[string]string) handler.Response {
	detail := &handler.ErrorDetail{Code: code, Message: message}
	if len(fields) > 0 {
		detail.Details = make(map[string][]string, len(fields))
		for field, msg := range fields {
			detail.Details[field] = []string{msg}
		}
	}
	status := statusForCode(code)
	if code == "" {
		status = http.StatusUnprocessableEntity
		detail.Code = "validation_error"
	}
	return handler.JSONError(detail, handler.WithJSONStatus(status))
}

// outcomeFailure renders a failed authform.Outcome.
func outcomeFailure(out authform.Outcome) handler.Response {
	if out.Invalid() {
		return failure("", "Validation failed", out.Errors)
	}
	return failure(out.Code, out.FormError(), nil)
}

// resultFailure renders a failed resolver action, using the form message
// table for provider codes.
func resultFailure(res session.Result) handler.Response {
	msg := res.Error
	if strings.HasPrefix(res.Code, "auth/") {
		msg = authform.Message(identity.Code(res.Code))
	}
	return failure(res.Code, msg, nil)
}
