package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/componenthub/hubauth/pkg/clientip"
	"github.com/componenthub/hubauth/pkg/requestid"
)

// Mountable is a service exposing its routes as a sub-router.
type Mountable interface {
	Handle() http.Handler
}

// Middleware is the standard net/http middleware shape.
type Middleware = func(http.Handler) http.Handler

// RouterOptions selects what Router mounts. Nil services are skipped.
type RouterOptions struct {
	// Sessions attaches the browser's resolver to the request, normally
	// session.Registry.Middleware. Required by every service below.
	Sessions Middleware
	// Instrument wraps every request, e.g. metrics.Metrics.Instrument.
	Instrument Middleware
	// Throttle limits /auth requests per client.
	Throttle Middleware

	Auth      Mountable
	Dashboard Mountable
	Admin     Mountable

	Liveness  http.Handler
	Readiness http.Handler
	Metrics   http.Handler
}

// Router builds the application router:
//
//	/auth/*      sign-in, sign-up, OAuth, sign-out and session state
//	/dashboard   any signed-in user
//	/admin/*     administrators
//	/healthz /readyz /metrics
func Router(opts RouterOptions) chi.Router {
	r := chi.NewRouter()
	r.Use(clientip.Middleware, requestid.Middleware, chimiddleware.Recoverer)
	if opts.Instrument != nil {
		r.Use(opts.Instrument)
	}

	if opts.Liveness != nil {
		r.Method(http.MethodGet, "/healthz", opts.Liveness)
	}
	if opts.Readiness != nil {
		r.Method(http.MethodGet, "/readyz", opts.Readiness)
	}
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Group(func(r chi.Router) {
		if opts.Sessions != nil {
			r.Use(opts.Sessions)
		}
		if opts.Auth != nil {
			r.Route("/auth", func(auth chi.Router) {
				if opts.Throttle != nil {
					auth.Use(opts.Throttle)
				}
				auth.Mount("/", opts.Auth.Handle())
			})
		}
		if opts.Dashboard != nil {
			r.Mount("/dashboard", opts.Dashboard.Handle())
		}
		if opts.Admin != nil {
			r.Mount("/admin", opts.Admin.Handle())
		}
	})

	return r
}
