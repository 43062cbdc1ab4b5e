package binder

import (
	"fmt"
	"net/http"
)

// Path creates a path parameter binder using extractor, typically
// chi.URLParam. Fields are matched by their `path:"name"` tag; `path:"-"`
// skips a field.
//
//	type RoleRequest struct {
//		SubjectID string `path:"id"`
//		Role      string `json:"role"`
//	}
//
//	r.Put("/admin/users/{id}/role", handler.Wrap(setRole,
//		handler.WithBinders[handler.Context, RoleRequest](binder.Path(chi.URLParam), binder.JSON()),
//	))
func Path(extractor func(r *http.Request, name string) string) func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		if extractor == nil {
			return fmt.Errorf("%w: extractor function is nil", ErrInvalidPath)
		}
		return bindTagged(v, "path", func(name string) []string {
			if value := extractor(r, name); value != "" {
				return []string{value}
			}
			return nil
		}, ErrInvalidPath)
	}
}
