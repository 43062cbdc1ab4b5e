package handler

import (
	"context"
	"net/http"

	"github.com/componenthub/hubauth/pkg/requestid"
)

// Context is the request context handed to a HandlerFunc.
type Context interface {
	context.Context
	Request() *http.Request
	ResponseWriter() http.ResponseWriter
	// RequestID is the id assigned by requestid.Middleware, or "".
	RequestID() string
}

// NewContext captures r's context; values added to r later are not seen.
func NewContext(w http.ResponseWriter, r *http.Request) Context {
	return &httpContext{Context: r.Context(), w: w, r: r}
}

type httpContext struct {
	context.Context
	w http.ResponseWriter
	r *http.Request
}

func (c *httpContext) Request() *http.Request              { return c.r }
func (c *httpContext) ResponseWriter() http.ResponseWriter { return c.w }
func (c *httpContext) RequestID() string                   { return requestid.FromContext(c.Context) }
