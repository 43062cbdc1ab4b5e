// Package guard decides whether a request may see protected content.
//
// Decide is a pure function of the resolver outputs (session, loading flag)
// and the required role. It yields one of four states:
//
//   - Loading: identity state is not known yet; show a neutral wait view.
//   - DeniedUnauthenticated: nobody is signed in.
//   - DeniedForbidden: signed in without the required role.
//   - Authorized: render the protected content.
//
// Decision.Outcome turns a decision into navigation: stay, or redirect to
// the login page or the dashboard. Require wraps an http.Handler with the
// same decision for chi routes.
package guard
