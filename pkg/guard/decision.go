package guard

import (
	"github.com/componenthub/hubauth/pkg/roles"
	"github.com/componenthub/hubauth/pkg/session"
)

// State of a guard decision.
type State uint8

const (
	Loading State = iota
	DeniedUnauthenticated
	DeniedForbidden
	Authorized
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case DeniedUnauthenticated:
		return "unauthenticated"
	case DeniedForbidden:
		return "forbidden"
	case Authorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// Decision is the result of Decide. Actual and Required are set for
// forbidden decisions.
type Decision struct {
	State    State
	Actual   roles.Role
	Required roles.Role
}

// Decide evaluates a protected route. An empty required role admits any
// signed-in subject.
func Decide(s *session.Session, loading bool, required roles.Role) Decision {
	switch {
	case loading:
		return Decision{State: Loading}
	case !s.IsAuthenticated():
		return Decision{State: DeniedUnauthenticated}
	case required != "" && !s.HasRole(required):
		return Decision{State: DeniedForbidden, Actual: s.Role, Required: required}
	default:
		return Decision{State: Authorized}
	}
}

// Allowed reports whether the protected content may render.
func (d Decision) Allowed() bool {
	return d.State == Authorized
}

// Navigation targets of denied decisions.
const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

// Outcome is where the client should be after a decision: stay on the
// current route or go to Target.
type Outcome struct {
	Target string
}

// Stay reports whether no navigation is needed.
func (o Outcome) Stay() bool {
	return o.Target == ""
}

// RedirectTo returns an outcome navigating to target.
func RedirectTo(target string) Outcome {
	return Outcome{Target: target}
}

// Outcome maps the decision to navigation. Loading and authorized
// decisions stay.
func (d Decision) Outcome() Outcome {
	switch d.State {
	case DeniedUnauthenticated:
		return RedirectTo(LoginPath)
	case DeniedForbidden:
		return RedirectTo(DashboardPath)
	default:
		return Outcome{}
	}
}
