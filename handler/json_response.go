package handler

import (
	"encoding/json"
	"errors"
	"maps"
	"net/http"

	"github.com/componenthub/hubauth/pkg/requestid"
)

// JSONResponse is the envelope of every JSON body.
type JSONResponse struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *ErrorDetail   `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code      string              `json:"code,omitempty"`
	Message   string              `json:"message,omitempty"`
	Details   map[string][]string `json:"details,omitempty"`
	RequestID string              `json:"request_id,omitempty"`
}

type jsonResponse struct {
	status int
	body   JSONResponse
}

// Render stamps error bodies with the request id so clients can report it.
func (j jsonResponse) Render(w http.ResponseWriter, r *http.Request) error {
	if j.body.Error != nil && j.body.Error.RequestID == "" {
		detail := *j.body.Error
		detail.RequestID = requestid.FromContext(r.Context())
		j.body.Error = &detail
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(j.status)
	return json.NewEncoder(w).Encode(j.body)
}

type JSONOption func(*jsonResponse)

func WithJSONStatus(status int) JSONOption {
	return func(r *jsonResponse) { r.status = status }
}

func WithJSONMeta(meta map[string]any) JSONOption {
	return func(r *jsonResponse) { r.body.Meta = meta }
}

// JSON renders v as the data of the envelope. Errors and *ErrorDetail
// render as error bodies.
func JSON(v any, opts ...JSONOption) Response {
	r := &jsonResponse{status: http.StatusOK}

	switch val := v.(type) {
	case JSONResponse:
		r.body = val
	case *ErrorDetail:
		r.body.Error = val
		r.status = http.StatusInternalServerError
	case error:
		r.body.Error = errorToDetail(val, &r.status)
	default:
		r.body.Data = v
	}

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// JSONError renders err as an error body with the status derived from it.
func JSONError(err any, opts ...JSONOption) Response {
	r := &jsonResponse{status: http.StatusInternalServerError}

	switch e := err.(type) {
	case *ErrorDetail:
		r.body.Error = e
	case error:
		r.body.Error = errorToDetail(e, &r.status)
	}

	for _, opt := range opts {
		opt(r)
	}
	return r
}

func errorToDetail(err error, status *int) *ErrorDetail {
	if *status == http.StatusOK {
		*status = http.StatusInternalServerError
	}

	var valErr ValidationError
	if errors.As(err, &valErr) {
		*status = http.StatusUnprocessableEntity
		detail := &ErrorDetail{Code: "validation_error", Message: valErr.Error()}
		if len(valErr) > 0 {
			detail.Details = make(map[string][]string, len(valErr))
			maps.Copy(detail.Details, valErr)
		}
		return detail
	}

	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		*status = httpErr.Code
		return &ErrorDetail{Code: httpErr.Key, Message: http.StatusText(httpErr.Code)}
	}

	return &ErrorDetail{Code: "internal_error", Message: http.StatusText(http.StatusInternalServerError)}
}
