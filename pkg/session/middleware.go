package session

import (
	"net/http"

	"github.com/componenthub/hubauth/pkg/logger"
)

// Middleware attaches the browser's Resolver and its current Session to the
// request context.
func (g *Registry) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, resolver, err := g.ensure(w, r)
		if err != nil {
			g.logger.ErrorContext(r.Context(), "failed to resolve browser session",
				logger.Error(err),
				logger.Component("session"),
			)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		ctx := WithBrowserSession(r.Context(), id)
		ctx = WithResolver(ctx, resolver)
		ctx = WithSession(ctx, resolver.Session())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
