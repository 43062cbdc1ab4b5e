package cookie_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/componenthub/hubauth/pkg/cookie"
)

const (
	secret    = "a-very-long-secret-key-for-testing-purposes"
	oldSecret = "an-older-secret-key-that-was-rotated-out"
)

// roundTrip copies the cookies written to rec onto a fresh request.
func roundTrip(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("no secrets", func(t *testing.T) {
		t.Parallel()
		_, err := cookie.New(nil)
		assert.ErrorIs(t, err, cookie.ErrNoSecret)
		_, err = cookie.New([]string{"", ""})
		assert.ErrorIs(t, err, cookie.ErrNoSecret)
	})

	t.Run("short secret", func(t *testing.T) {
		t.Parallel()
		_, err := cookie.New([]string{"short"})
		assert.ErrorIs(t, err, cookie.ErrSecretTooShort)
	})
}

func TestManager_Defaults(t *testing.T) {
	t.Parallel()

	m, err := cookie.New([]string{secret}, cookie.WithSecure(true))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	m.Set(rec, "plain", "value", cookie.WithMaxAge(60))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, "value", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, 60, c.MaxAge)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
}

func TestManager_Get_Missing(t *testing.T) {
	t.Parallel()

	m, err := cookie.New([]string{secret})
	require.NoError(t, err)

	_, err = m.Get(httptest.NewRequest(http.MethodGet, "/", nil), "absent")
	assert.ErrorIs(t, err, cookie.ErrCookieNotFound)
}

func TestManager_Signed(t *testing.T) {
	t.Parallel()

	m, err := cookie.New([]string{secret})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	m.SetSigned(rec, "sid", "session-123")

	got, err := m.GetSigned(roundTrip(rec), "sid")
	require.NoError(t, err)
	assert.Equal(t, "session-123", got)

	t.Run("tampered value", func(t *testing.T) {
		t.Parallel()
		raw := rec.Result().Cookies()[0].Value
		encoded, tag, _ := strings.Cut(raw, "|")
		assert.NotEmpty(t, encoded)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "sid", Value: "c2Vzc2lvbi05OTk=|" + tag})
		_, err := m.GetSigned(req, "sid")
		assert.ErrorIs(t, err, cookie.ErrInvalidSignature)
	})

	t.Run("malformed", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "sid", Value: "no-separator"})
		_, err := m.GetSigned(req, "sid")
		assert.ErrorIs(t, err, cookie.ErrInvalidFormat)
	})
}

func TestManager_Rotation(t *testing.T) {
	t.Parallel()

	old, err := cookie.New([]string{oldSecret})
	require.NoError(t, err)
	rotated, err := cookie.New([]string{secret, oldSecret})
	require.NoError(t, err)
	fresh, err := cookie.New([]string{secret})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	old.SetSigned(rec, "sid", "s1")
	require.NoError(t, old.SetEncrypted(rec, "enc", "e1"))
	req := roundTrip(rec)

	got, err := rotated.GetSigned(req, "sid")
	require.NoError(t, err)
	assert.Equal(t, "s1", got)

	got, err = rotated.GetEncrypted(req, "enc")
	require.NoError(t, err)
	assert.Equal(t, "e1", got)

	_, err = fresh.GetSigned(req, "sid")
	assert.ErrorIs(t, err, cookie.ErrInvalidSignature)
	_, err = fresh.GetEncrypted(req, "enc")
	assert.ErrorIs(t, err, cookie.ErrDecryptionFailed)
}

func TestManager_Encrypted(t *testing.T) {
	t.Parallel()

	m, err := cookie.New([]string{secret})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, m.SetEncrypted(rec, "enc", "hidden"))
	raw := rec.Result().Cookies()[0].Value
	assert.NotContains(t, raw, "hidden")

	got, err := m.GetEncrypted(roundTrip(rec), "enc")
	require.NoError(t, err)
	assert.Equal(t, "hidden", got)

	// Nonces differ between writes.
	rec2 := httptest.NewRecorder()
	require.NoError(t, m.SetEncrypted(rec2, "enc", "hidden"))
	assert.NotEqual(t, raw, rec2.Result().Cookies()[0].Value)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "enc", Value: "!!"})
	_, err = m.GetEncrypted(req, "enc")
	assert.ErrorIs(t, err, cookie.ErrInvalidFormat)
}

func TestManager_Flash(t *testing.T) {
	t.Parallel()

	m, err := cookie.New([]string{secret})
	require.NoError(t, err)

	type notice struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}

	rec := httptest.NewRecorder()
	require.NoError(t, m.SetFlash(rec, "auth", notice{Code: "auth/popup-closed-by-user", Message: "closed"}))

	read := httptest.NewRecorder()
	var got notice
	require.NoError(t, m.GetFlash(read, roundTrip(rec), "auth", &got))
	assert.Equal(t, "auth/popup-closed-by-user", got.Code)

	deleted := read.Result().Cookies()
	require.Len(t, deleted, 1)
	assert.Equal(t, -1, deleted[0].MaxAge)
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	m, err := cookie.NewFromConfig(cookie.Config{
		Secrets:  " " + secret + " , " + oldSecret,
		Path:     "/app",
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	m.Set(rec, "x", "y")
	c := rec.Result().Cookies()[0]
	assert.Equal(t, "/app", c.Path)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)

	_, err = cookie.NewFromConfig(cookie.Config{})
	assert.ErrorIs(t, err, cookie.ErrNoSecret)
}
