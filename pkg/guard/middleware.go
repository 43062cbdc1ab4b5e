package guard

import (
	"log/slog"
	"net/http"

	"github.com/componenthub/hubauth/handler"
	"github.com/componenthub/hubauth/pkg/logger"
	"github.com/componenthub/hubauth/pkg/roles"
	"github.com/componenthub/hubauth/pkg/session"
)

// View is the JSON body of a guard response that did not reach the
// protected handler.
type View struct {
	State    string `json:"state"`
	Message  string `json:"message"`
	Redirect string `json:"redirect,omitempty"`
	Role     string `json:"role,omitempty"`
	Required string `json:"required_role,omitempty"`
}

// Observer is told about every decision Require makes.
type Observer func(r *http.Request, d Decision)

type options struct {
	logger   *slog.Logger
	observer Observer
}

type Option func(*options)

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithObserver(fn Observer) Option {
	return func(o *options) { o.observer = fn }
}

// Require guards next with Decide. The request's Resolver is taken from
// the context (session.Registry.Middleware); a request without one is
// treated as signed out. Loading renders 202, unauthenticated 401 and
// forbidden 403, each as a JSON View. Authorized requests reach next once,
// with the current session in the context.
func Require(required roles.Role, opts ...Option) func(http.Handler) http.Handler {
	o := options{logger: logger.Discard()}
	for _, opt := range opts {
		opt(&o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var (
				sess    = session.FromContext(r.Context())
				loading bool
			)
			if resolver, ok := session.ResolverFromContext(r.Context()); ok {
				sess = resolver.Session()
				loading = resolver.Loading()
			}

			d := Decide(sess, loading, required)
			if o.observer != nil {
				o.observer(r, d)
			}

			if d.Allowed() {
				next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), sess)))
				return
			}

			o.logger.DebugContext(r.Context(), "route guard denied request",
				slog.String("state", d.State.String()),
				slog.String("path", r.URL.Path),
				logger.Role(d.Required),
				logger.Component("guard"),
			)
			if err := render(d).Render(w, r); err != nil {
				o.logger.ErrorContext(r.Context(), "failed to render guard view",
					logger.Error(err),
					logger.Component("guard"),
				)
			}
		})
	}
}

func render(d Decision) handler.Response {
	v := View{State: d.State.String(), Redirect: d.Outcome().Target}
	status := http.StatusAccepted

	switch d.State {
	case Loading:
		v.Message = "Checking authentication..."
	case DeniedUnauthenticated:
		v.Message = "You need to be logged in to access this page."
		status = http.StatusUnauthorized
	case DeniedForbidden:
		v.Message = "You don't have the required permissions to access this page."
		v.Role = d.Actual.String()
		v.Required = d.Required.String()
		status = http.StatusForbidden
	}
	return handler.JSON(v, handler.WithJSONStatus(status))
}
