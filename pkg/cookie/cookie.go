package cookie

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"
)

const minSecretLength = 32

// Manager reads and writes plain, signed and encrypted cookies. The first
// secret signs and encrypts; all secrets are tried when reading so a
// rotated-out secret keeps working until its cookies expire.
type Manager struct {
	secrets  []string
	defaults Options
}

// New returns a Manager. Empty secrets are ignored; at least one secret of
// 32 or more characters is required.
func New(secrets []string, opts ...Option) (*Manager, error) {
	secrets = slices.DeleteFunc(slices.Clone(secrets), func(s string) bool { return s == "" })
	if len(secrets) == 0 {
		return nil, ErrNoSecret
	}
	for i, s := range secrets {
		if len(s) < minSecretLength {
			return nil, fmt.Errorf("%w: secret %d has %d chars, need at least %d", ErrSecretTooShort, i, len(s), minSecretLength)
		}
	}

	defaults := applyOptions(Options{
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}, opts)

	return &Manager{secrets: secrets, defaults: defaults}, nil
}

func (m *Manager) Set(w http.ResponseWriter, name, value string, opts ...Option) {
	o := applyOptions(m.defaults, opts)
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     o.Path,
		Domain:   o.Domain,
		MaxAge:   o.MaxAge,
		Secure:   o.Secure,
		HttpOnly: o.HttpOnly,
		SameSite: o.SameSite,
	})
}

func (m *Manager) Get(r *http.Request, name string) (string, error) {
	c, err := r.Cookie(name)
	if errors.Is(err, http.ErrNoCookie) {
		return "", ErrCookieNotFound
	}
	if err != nil {
		return "", err
	}
	return c.Value, nil
}

// Delete expires name using the manager defaults for path and domain.
func (m *Manager) Delete(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Path:     m.defaults.Path,
		Domain:   m.defaults.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: m.defaults.HttpOnly,
		SameSite: m.defaults.SameSite,
		Secure:   m.defaults.Secure,
	})
}

// SetSigned stores value in the clear with an HMAC-SHA256 tag.
func (m *Manager) SetSigned(w http.ResponseWriter, name, value string, opts ...Option) {
	m.Set(w, name, sign(m.secrets[0], value), opts...)
}

// GetSigned returns ErrInvalidSignature when no secret verifies the tag.
func (m *Manager) GetSigned(r *http.Request, name string) (string, error) {
	raw, err := m.Get(r, name)
	if err != nil {
		return "", err
	}
	return verify(m.secrets, raw)
}

// SetEncrypted stores value sealed with AES-256-GCM.
func (m *Manager) SetEncrypted(w http.ResponseWriter, name, value string, opts ...Option) error {
	sealed, err := seal(m.secrets[0], value)
	if err != nil {
		return err
	}
	m.Set(w, name, sealed, opts...)
	return nil
}

func (m *Manager) GetEncrypted(r *http.Request, name string) (string, error) {
	raw, err := m.Get(r, name)
	if err != nil {
		return "", err
	}
	return open(m.secrets, raw)
}
