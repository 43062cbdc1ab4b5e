package session

import "context"

type (
	sessionContextKey  struct{}
	resolverContextKey struct{}
	browserContextKey  struct{}
)

// WithSession adds a session snapshot to the context.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// FromContext returns the session snapshot; nil when signed out.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionContextKey{}).(*Session)
	return s
}

func WithResolver(ctx context.Context, r *Resolver) context.Context {
	return context.WithValue(ctx, resolverContextKey{}, r)
}

func ResolverFromContext(ctx context.Context) (*Resolver, bool) {
	r, ok := ctx.Value(resolverContextKey{}).(*Resolver)
	return r, ok
}

// WithBrowserSession records the browser session id serving the request,
// including one issued on this response.
func WithBrowserSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, browserContextKey{}, id)
}

func BrowserSessionFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(browserContextKey{}).(string)
	return id, ok && id != ""
}
