package session

import (
	"net/http"
	"time"

	"github.com/componenthub/hubauth/pkg/cookie"
)

// CookieTransport keeps the browser session id in a signed cookie.
type CookieTransport struct {
	cookies *cookie.Manager
	name    string
	secure  bool
}

func NewCookieTransport(cookies *cookie.Manager, name string, secure bool) *CookieTransport {
	return &CookieTransport{cookies: cookies, name: name, secure: secure}
}

func (t *CookieTransport) GetToken(r *http.Request) (string, error) {
	token, err := t.cookies.GetSigned(r, t.name)
	if err != nil || token == "" {
		return "", ErrNoSessionID
	}
	return token, nil
}

func (t *CookieTransport) SetToken(w http.ResponseWriter, token string, ttl time.Duration) error {
	t.cookies.SetSigned(w, t.name, token,
		cookie.WithMaxAge(int(ttl.Seconds())),
		cookie.WithPath("/"),
		cookie.WithHTTPOnly(true),
		cookie.WithSameSite(http.SameSiteLaxMode),
		cookie.WithSecure(t.secure),
	)
	return nil
}

func (t *CookieTransport) ClearToken(w http.ResponseWriter) error {
	t.cookies.Delete(w, t.name)
	return nil
}

var _ Transport = (*CookieTransport)(nil)
