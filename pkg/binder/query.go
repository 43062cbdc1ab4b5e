package binder

import "net/http"

// Query creates a query string binder. Fields are matched by their
// `query:"name"` tag; `query:"-"` skips a field. Slices take every value of
// a repeated parameter.
//
//	type CallbackRequest struct {
//		Provider string `path:"provider"`
//		State    string `query:"state"`
//		Code     string `query:"code"`
//		Error    string `query:"error"`
//	}
func Query() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		values := r.URL.Query()
		return bindTagged(v, "query", func(name string) []string {
			return values[name]
		}, ErrInvalidQuery)
	}
}
