package logger

import (
	"log/slog"
	"strconv"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error records a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// SubjectID records the identity provider subject under "subject_id".
// An empty id yields an empty Attr.
func SubjectID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("subject_id", id)
}

// BrowserSession records the browser session id under "browser_session".
func BrowserSession(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("browser_session", id)
}

// Email records an email address under "email".
func Email(email string) slog.Attr {
	return slog.String("email", email)
}

// Provider records the sign-in provider under "provider".
func Provider(provider string) slog.Attr {
	return slog.String("provider", provider)
}

// Role records a role name under "role". Accepts any fmt.Stringer-like value.
func Role(role any) slog.Attr {
	if role == nil {
		return slog.Attr{}
	}
	return slog.Any("role", role)
}

// ErrorCode records a provider error code under "error_code".
func ErrorCode(code string) slog.Attr {
	if code == "" {
		return slog.Attr{}
	}
	return slog.String("error_code", code)
}

// RequestID records the request identifier under "request_id".
func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

// Seq records an auth state event sequence number.
func Seq(seq uint64) slog.Attr {
	return slog.Uint64("seq", seq)
}

// Duration records a duration under the key "duration".
func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event records the event name under the key "event".
func Event(name string) slog.Attr {
	return slog.String("event", name)
}
