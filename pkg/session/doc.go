// Package session turns identity events into the application session.
//
// A Resolver follows one identity Gateway. For every sign-in event it reads
// or creates the subject's profile record, picks the role and publishes a
// Session; for every sign-out event it clears it. Events carry a sequence
// number and a resolution is committed only if its event is still the newest
// one seen, so a slow profile lookup can never resurrect a signed-out
// session.
//
// Resolver actions (SignInWithEmail, SignUpWithEmail, SignInWithOAuth,
// SignOut, UpdateUserRole) never panic or return errors; they report a
// Result carrying the provider error code.
//
// Registry keeps one Resolver per browser session and Middleware attaches
// the request's Resolver and Session to its context.
package session
