// Package handler provides typed HTTP handlers that bind a request struct
// and return a Response.
//
//	type LoginRequest struct {
//		Email    string `json:"email"`
//		Password string `json:"password"`
//	}
//
//	func login(ctx handler.Context, req LoginRequest) handler.Response {
//		...
//		return handler.JSON(session)
//	}
//
//	r.Post("/auth/login", handler.Wrap(login,
//		handler.WithBinders[handler.Context, LoginRequest](binder.JSON()),
//		handler.WithErrorHandler[handler.Context, LoginRequest](handler.NewErrorHandler(log)),
//	))
//
// Responses render as JSON envelopes ({"data": ..., "error": ...}), empty
// bodies or redirects. Errors returned from binders or renderers go to the
// configured ErrorHandler; HTTPError and ValidationError map to their status
// codes.
package handler
