package identity

import (
	"context"
	"strings"
)

// Provider identifies how a subject authenticated.
type Provider string

const (
	ProviderPassword Provider = "password"
	ProviderGoogle   Provider = "google"
	ProviderFacebook Provider = "facebook"
	ProviderLinkedIn Provider = "linkedin"
)

// ParseProvider normalizes a provider name taken from a URL or form.
func ParseProvider(s string) Provider {
	return Provider(strings.ToLower(strings.TrimSpace(s)))
}

// Supports reports whether hubauth implements sign-in through p at all.
// LinkedIn is known but not implemented.
func Supports(p Provider) bool {
	switch p {
	case ProviderPassword, ProviderGoogle, ProviderFacebook:
		return true
	}
	return false
}

func (p Provider) String() string {
	return string(p)
}

// Subject is the provider-side identity of a signed-in user.
type Subject struct {
	ID            string   `json:"id"`
	Email         string   `json:"email"`
	DisplayName   string   `json:"display_name,omitempty"`
	AvatarURL     string   `json:"avatar_url,omitempty"`
	Provider      Provider `json:"provider"`
	EmailVerified bool     `json:"email_verified"`
}

// Event is a sign-in state change. A nil Subject means signed out.
// Seq strictly increases for one Gateway.
type Event struct {
	Seq     uint64
	Subject *Subject
}

// SignedIn reports whether the event carries a subject.
func (e Event) SignedIn() bool {
	return e.Subject != nil
}

// Callback is what the provider sent back to the OAuth redirect URL.
type Callback struct {
	State string
	Code  string
	Error string // e.g. access_denied
}

// Gateway is the identity provider contract.
type Gateway interface {
	SignUp(ctx context.Context, email, password, displayName string) (*Subject, error)
	SignIn(ctx context.Context, email, password string) (*Subject, error)
	SignInWithOAuth(ctx context.Context, provider Provider, cb Callback) (*Subject, error)
	SignOut(ctx context.Context) error

	// OnChange delivers the current state immediately, then every change.
	// The returned func unsubscribes.
	OnChange(fn func(Event)) (unsubscribe func())
}

// OAuthStarter is implemented by gateways that can begin an OAuth popup flow.
type OAuthStarter interface {
	OAuthURL(ctx context.Context, provider Provider) (string, error)
}
