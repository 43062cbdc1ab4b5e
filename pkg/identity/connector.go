package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"
)

// ProviderProfile is the normalized profile an OAuth provider returns.
type ProviderProfile struct {
	ProviderUserID string
	Email          string
	EmailVerified  bool
	Name           string
	AvatarURL      string
}

// Connector talks to one OAuth provider.
type Connector interface {
	ProviderID() Provider
	AuthURL(state string) string
	ResolveProfile(ctx context.Context, code string) (ProviderProfile, error)
}

// OAuthConfig is the client registration of one provider.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// Configured reports whether credentials are present.
func (c OAuthConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// GoogleConfig is loaded from GOOGLE_OAUTH_* variables.
type GoogleConfig struct {
	ClientID     string   `env:"GOOGLE_OAUTH_CLIENT_ID"`
	ClientSecret string   `env:"GOOGLE_OAUTH_CLIENT_SECRET"`
	RedirectURL  string   `env:"GOOGLE_OAUTH_REDIRECT_URL" envDefault:"http://localhost:8080/auth/oauth/google/callback"`
	Scopes       []string `env:"GOOGLE_OAUTH_SCOPES" envSeparator:"," envDefault:"openid,email,profile"`
}

func (c GoogleConfig) OAuth() OAuthConfig {
	return OAuthConfig{ClientID: c.ClientID, ClientSecret: c.ClientSecret, RedirectURL: c.RedirectURL, Scopes: c.Scopes}
}

// FacebookConfig is loaded from FACEBOOK_OAUTH_* variables.
type FacebookConfig struct {
	ClientID     string   `env:"FACEBOOK_OAUTH_CLIENT_ID"`
	ClientSecret string   `env:"FACEBOOK_OAUTH_CLIENT_SECRET"`
	RedirectURL  string   `env:"FACEBOOK_OAUTH_REDIRECT_URL" envDefault:"http://localhost:8080/auth/oauth/facebook/callback"`
	Scopes       []string `env:"FACEBOOK_OAUTH_SCOPES" envSeparator:"," envDefault:"email,public_profile"`
}

func (c FacebookConfig) OAuth() OAuthConfig {
	return OAuthConfig{ClientID: c.ClientID, ClientSecret: c.ClientSecret, RedirectURL: c.RedirectURL, Scopes: c.Scopes}
}

// ConnectorOption tweaks a connector, mostly for tests.
type ConnectorOption func(*oauthConnector)

func WithHTTPClient(c *http.Client) ConnectorOption {
	return func(o *oauthConnector) { o.httpClient = c }
}

func WithEndpoint(e oauth2.Endpoint) ConnectorOption {
	return func(o *oauthConnector) { o.conf.Endpoint = e }
}

func WithProfileURL(u string) ConnectorOption {
	return func(o *oauthConnector) { o.profileURL = u }
}

type oauthConnector struct {
	provider   Provider
	conf       *oauth2.Config
	httpClient *http.Client
	profileURL string
	decode     func(*http.Response) (ProviderProfile, error)
}

func newConnector(p Provider, cfg OAuthConfig, endpoint oauth2.Endpoint, profileURL string,
	decode func(*http.Response) (ProviderProfile, error), opts []ConnectorOption,
) *oauthConnector {
	c := &oauthConnector{
		provider: p,
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     endpoint,
		},
		httpClient: &http.Client{Timeout: 10 * time.Second},
		profileURL: profileURL,
		decode:     decode,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewGoogleConnector signs in with Google accounts.
func NewGoogleConnector(cfg OAuthConfig, opts ...ConnectorOption) Connector {
	return newConnector(ProviderGoogle, cfg, google.Endpoint,
		"https://www.googleapis.com/oauth2/v2/userinfo", decodeGoogle, opts)
}

// NewFacebookConnector signs in with Facebook accounts.
func NewFacebookConnector(cfg OAuthConfig, opts ...ConnectorOption) Connector {
	return newConnector(ProviderFacebook, cfg, facebook.Endpoint,
		"https://graph.facebook.com/me?fields=id,name,email,picture.type(large)", decodeFacebook, opts)
}

func (c *oauthConnector) ProviderID() Provider {
	return c.provider
}

func (c *oauthConnector) AuthURL(state string) string {
	return c.conf.AuthCodeURL(state)
}

func (c *oauthConnector) ResolveProfile(ctx context.Context, code string) (ProviderProfile, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.conf.Exchange(ctx, code)
	if err != nil {
		return ProviderProfile{}, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.profileURL, nil)
	if err != nil {
		return ProviderProfile{}, err
	}
	tok.SetAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ProviderProfile{}, fmt.Errorf("fetch %s profile: %w", c.provider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return ProviderProfile{}, fmt.Errorf("%s profile endpoint returned status %d", c.provider, resp.StatusCode)
	}

	p, err := c.decode(resp)
	if err != nil {
		return ProviderProfile{}, fmt.Errorf("decode %s profile: %w", c.provider, err)
	}
	if p.Email == "" {
		return ProviderProfile{}, ErrNoEmail
	}
	return p, nil
}

func decodeGoogle(resp *http.Response) (ProviderProfile, error) {
	var u struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return ProviderProfile{}, err
	}
	return ProviderProfile{
		ProviderUserID: u.ID,
		Email:          u.Email,
		EmailVerified:  u.VerifiedEmail,
		Name:           u.Name,
		AvatarURL:      u.Picture,
	}, nil
}

func decodeFacebook(resp *http.Response) (ProviderProfile, error) {
	var u struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Picture struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return ProviderProfile{}, err
	}
	// Facebook only returns confirmed addresses.
	return ProviderProfile{
		ProviderUserID: u.ID,
		Email:          u.Email,
		EmailVerified:  u.Email != "",
		Name:           u.Name,
		AvatarURL:      u.Picture.Data.URL,
	}, nil
}

var _ Connector = (*oauthConnector)(nil)
