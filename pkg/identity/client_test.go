package identity_test

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/componenthub/hubauth/pkg/identity"
	"github.com/componenthub/hubauth/pkg/ratelimiter"
)

type fakeConnector struct {
	provider identity.Provider
	profile  identity.ProviderProfile
	err      error
}

func (f *fakeConnector) ProviderID() identity.Provider { return f.provider }

func (f *fakeConnector) AuthURL(state string) string {
	return "https://provider.test/auth?state=" + url.QueryEscape(state)
}

func (f *fakeConnector) ResolveProfile(context.Context, string) (identity.ProviderProfile, error) {
	return f.profile, f.err
}

type recorder struct {
	mu     sync.Mutex
	events []identity.Event
}

func (r *recorder) record(ev identity.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) all() []identity.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]identity.Event(nil), r.events...)
}

func newClient(t *testing.T, opts ...identity.Option) (*identity.Client, *identity.MemoryAccountStore) {
	t.Helper()
	accounts := identity.NewMemoryAccountStore()
	opts = append([]identity.Option{identity.WithBcryptCost(bcrypt.MinCost)}, opts...)
	return identity.NewClient(accounts, opts...), accounts
}

func stateFrom(t *testing.T, authURL string) string {
	t.Helper()
	u, err := url.Parse(authURL)
	require.NoError(t, err)
	return u.Query().Get("state")
}

func TestClient_SignUp(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("creates account and signs in", func(t *testing.T) {
		t.Parallel()
		c, accounts := newClient(t)
		s, err := c.SignUp(ctx, " Ann@Example.com ", "secret1", "Ann")
		require.NoError(t, err)
		assert.Equal(t, "ann@example.com", s.Email)
		assert.Equal(t, "Ann", s.DisplayName)
		assert.Equal(t, identity.ProviderPassword, s.Provider)
		assert.Equal(t, s.ID, c.Current().ID)

		acc, err := accounts.ByEmail(ctx, "ann@example.com")
		require.NoError(t, err)
		assert.True(t, acc.HasPassword())
	})

	tests := []struct {
		name     string
		email    string
		password string
		code     identity.Code
	}{
		{"invalid email", "bad", "secret1", identity.CodeInvalidEmail},
		{"weak password", "bo@example.com", "12345", identity.CodeWeakPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, _ := newClient(t)
			_, err := c.SignUp(ctx, tt.email, tt.password, "x")
			assert.Equal(t, tt.code, identity.CodeOf(err))
			assert.Nil(t, c.Current())
		})
	}

	t.Run("duplicate email", func(t *testing.T) {
		t.Parallel()
		c, _ := newClient(t)
		_, err := c.SignUp(ctx, "cy@example.com", "secret1", "Cy")
		require.NoError(t, err)
		_, err = c.SignUp(ctx, "CY@example.com", "secret2", "Cy")
		assert.Equal(t, identity.CodeEmailAlreadyInUse, identity.CodeOf(err))
	})
}

func TestClient_SignIn(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c, _ := newClient(t)
	_, err := c.SignUp(ctx, "ann@example.com", "secret1", "Ann")
	require.NoError(t, err)
	require.NoError(t, c.SignOut(ctx))

	_, err = c.SignIn(ctx, "nobody@example.com", "secret1")
	assert.Equal(t, identity.CodeUserNotFound, identity.CodeOf(err))

	_, err = c.SignIn(ctx, "ann@example.com", "wrong")
	assert.Equal(t, identity.CodeWrongPassword, identity.CodeOf(err))

	_, err = c.SignIn(ctx, "not-an-email", "secret1")
	assert.Equal(t, identity.CodeInvalidEmail, identity.CodeOf(err))

	s, err := c.SignIn(ctx, "ANN@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", s.Email)
}

func TestClient_SignInThrottle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0))
	t.Cleanup(store.Close)
	bucket, err := ratelimiter.NewBucket(store, ratelimiter.Config{Capacity: 3, RefillRate: 3, RefillInterval: time.Hour})
	require.NoError(t, err)

	c, _ := newClient(t, identity.WithThrottle(bucket))
	_, err = c.SignUp(ctx, "ann@example.com", "secret1", "Ann")
	require.NoError(t, err)

	for range 3 {
		_, err := c.SignIn(ctx, "ann@example.com", "nope")
		assert.Equal(t, identity.CodeWrongPassword, identity.CodeOf(err))
	}

	_, err = c.SignIn(ctx, "ann@example.com", "secret1")
	assert.Equal(t, identity.CodeTooManyRequests, identity.CodeOf(err))

	// Other addresses are unaffected.
	_, err = c.SignIn(ctx, "bo@example.com", "nope")
	assert.Equal(t, identity.CodeUserNotFound, identity.CodeOf(err))
}

func TestClient_Events(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, _ := newClient(t)

	rec := &recorder{}
	unsubscribe := c.OnChange(rec.record)

	_, err := c.SignUp(ctx, "ann@example.com", "secret1", "Ann")
	require.NoError(t, err)
	require.NoError(t, c.SignOut(ctx))
	// Signing out twice does not emit.
	require.NoError(t, c.SignOut(ctx))

	unsubscribe()
	_, err = c.SignIn(ctx, "ann@example.com", "secret1")
	require.NoError(t, err)

	events := rec.all()
	require.Len(t, events, 3)
	assert.False(t, events[0].SignedIn(), "startup event reports signed out")
	assert.True(t, events[1].SignedIn())
	assert.Equal(t, "ann@example.com", events[1].Subject.Email)
	assert.False(t, events[2].SignedIn())
	assert.Less(t, events[0].Seq, events[1].Seq)
	assert.Less(t, events[1].Seq, events[2].Seq)
	assert.Positive(t, events[0].Seq)
}

func TestClient_RestoresPersistedSignIn(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	accounts := identity.NewMemoryAccountStore()
	persistence := identity.NewMemoryPersistence()
	factory := identity.NewFactory(accounts,
		identity.WithBcryptCost(bcrypt.MinCost),
		identity.WithPersistence(persistence),
	)

	first := factory.NewClient("browser-1")
	s, err := first.SignUp(ctx, "ann@example.com", "secret1", "Ann")
	require.NoError(t, err)

	restored := factory.NewClient("browser-1")
	require.NoError(t, restored.Start(ctx))
	require.NotNil(t, restored.Current())
	assert.Equal(t, s.ID, restored.Current().ID)

	other := factory.NewClient("browser-2")
	require.NoError(t, other.Start(ctx))
	assert.Nil(t, other.Current())

	require.NoError(t, restored.SignOut(ctx))
	again := factory.NewClient("browser-1")
	require.NoError(t, again.Start(ctx))
	assert.Nil(t, again.Current())
}

func TestClient_OAuth(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	google := &fakeConnector{
		provider: identity.ProviderGoogle,
		profile: identity.ProviderProfile{
			ProviderUserID: "g-1",
			Email:          "ann@example.com",
			EmailVerified:  true,
			Name:           "Ann G",
			AvatarURL:      "https://img.test/ann.png",
		},
	}

	t.Run("linkedin is not supported", func(t *testing.T) {
		t.Parallel()
		c, _ := newClient(t, identity.WithConnector(google))
		assert.False(t, c.Supports(identity.ProviderLinkedIn))
		_, err := c.OAuthURL(ctx, identity.ProviderLinkedIn)
		assert.Equal(t, identity.CodeNotSupported, identity.CodeOf(err))
		_, err = c.SignInWithOAuth(ctx, identity.ProviderLinkedIn, identity.Callback{State: "x", Code: "y"})
		assert.Equal(t, identity.CodeNotSupported, identity.CodeOf(err))
	})

	t.Run("unconfigured provider", func(t *testing.T) {
		t.Parallel()
		c, _ := newClient(t)
		assert.False(t, c.Supports(identity.ProviderFacebook))
		_, err := c.OAuthURL(ctx, identity.ProviderFacebook)
		assert.Equal(t, identity.CodeNotSupported, identity.CodeOf(err))
	})

	t.Run("unknown state is a cancelled popup", func(t *testing.T) {
		t.Parallel()
		c, _ := newClient(t, identity.WithConnector(google))
		_, err := c.SignInWithOAuth(ctx, identity.ProviderGoogle, identity.Callback{State: "forged", Code: "abc"})
		assert.Equal(t, identity.CodeCancelledPopup, identity.CodeOf(err))
	})

	t.Run("denied consent is a closed popup", func(t *testing.T) {
		t.Parallel()
		c, _ := newClient(t, identity.WithConnector(google))
		u, err := c.OAuthURL(ctx, identity.ProviderGoogle)
		require.NoError(t, err)
		_, err = c.SignInWithOAuth(ctx, identity.ProviderGoogle, identity.Callback{State: stateFrom(t, u), Error: "access_denied"})
		assert.Equal(t, identity.CodePopupClosed, identity.CodeOf(err))
	})

	t.Run("state is single use", func(t *testing.T) {
		t.Parallel()
		c, _ := newClient(t, identity.WithConnector(google))
		u, err := c.OAuthURL(ctx, identity.ProviderGoogle)
		require.NoError(t, err)
		state := stateFrom(t, u)

		s, err := c.SignInWithOAuth(ctx, identity.ProviderGoogle, identity.Callback{State: state, Code: "abc"})
		require.NoError(t, err)
		assert.Equal(t, "Ann G", s.DisplayName)
		assert.Equal(t, identity.ProviderGoogle, s.Provider)
		assert.True(t, s.EmailVerified)

		_, err = c.SignInWithOAuth(ctx, identity.ProviderGoogle, identity.Callback{State: state, Code: "abc"})
		assert.Equal(t, identity.CodeCancelledPopup, identity.CodeOf(err))
	})

	t.Run("links existing password account", func(t *testing.T) {
		t.Parallel()
		c, _ := newClient(t, identity.WithConnector(google))
		pw, err := c.SignUp(ctx, "ann@example.com", "secret1", "Ann")
		require.NoError(t, err)
		require.NoError(t, c.SignOut(ctx))

		u, err := c.OAuthURL(ctx, identity.ProviderGoogle)
		require.NoError(t, err)
		s, err := c.SignInWithOAuth(ctx, identity.ProviderGoogle, identity.Callback{State: stateFrom(t, u), Code: "abc"})
		require.NoError(t, err)
		assert.Equal(t, pw.ID, s.ID)
	})

	t.Run("unverified email does not link", func(t *testing.T) {
		t.Parallel()
		unverified := &fakeConnector{
			provider: identity.ProviderGoogle,
			profile: identity.ProviderProfile{
				ProviderUserID: "g-attacker",
				Email:          "Victim@Example.com",
				EmailVerified:  false,
				Name:           "Not Victim",
			},
		}
		c, accounts := newClient(t, identity.WithConnector(unverified))
		victim, err := c.SignUp(ctx, "victim@example.com", "secret1", "Victim")
		require.NoError(t, err)
		require.NoError(t, c.SignOut(ctx))

		u, err := c.OAuthURL(ctx, identity.ProviderGoogle)
		require.NoError(t, err)
		s, err := c.SignInWithOAuth(ctx, identity.ProviderGoogle, identity.Callback{State: stateFrom(t, u), Code: "abc"})
		require.Error(t, err)
		assert.Nil(t, s)
		assert.Equal(t, identity.CodeEmailAlreadyInUse, identity.CodeOf(err))
		assert.ErrorIs(t, err, identity.ErrUnverifiedEmail)
		assert.Nil(t, c.Current())

		_, err = accounts.ByProvider(ctx, identity.ProviderGoogle, "g-attacker")
		assert.ErrorIs(t, err, identity.ErrAccountNotFound)
		acc, err := accounts.ByEmail(ctx, "victim@example.com")
		require.NoError(t, err)
		assert.Equal(t, victim.ID, acc.ID)
	})

	t.Run("unverified email creates a fresh account", func(t *testing.T) {
		t.Parallel()
		fresh := &fakeConnector{
			provider: identity.ProviderGoogle,
			profile: identity.ProviderProfile{
				ProviderUserID: "g-new",
				Email:          "new@example.com",
			},
		}
		c, _ := newClient(t, identity.WithConnector(fresh))
		u, err := c.OAuthURL(ctx, identity.ProviderGoogle)
		require.NoError(t, err)
		s, err := c.SignInWithOAuth(ctx, identity.ProviderGoogle, identity.Callback{State: stateFrom(t, u), Code: "abc"})
		require.NoError(t, err)
		assert.False(t, s.EmailVerified)
		assert.Equal(t, "new@example.com", s.Email)
	})

	t.Run("provider failure is internal", func(t *testing.T) {
		t.Parallel()
		broken := &fakeConnector{provider: identity.ProviderFacebook, err: errors.New("boom")}
		c, _ := newClient(t, identity.WithConnector(broken))
		u, err := c.OAuthURL(ctx, identity.ProviderFacebook)
		require.NoError(t, err)
		_, err = c.SignInWithOAuth(ctx, identity.ProviderFacebook, identity.Callback{State: stateFrom(t, u), Code: "abc"})
		assert.Equal(t, identity.CodeInternal, identity.CodeOf(err))
	})

	t.Run("state bound to another provider", func(t *testing.T) {
		t.Parallel()
		fb := &fakeConnector{provider: identity.ProviderFacebook, profile: google.profile}
		c, _ := newClient(t, identity.WithConnector(google), identity.WithConnector(fb))
		u, err := c.OAuthURL(ctx, identity.ProviderGoogle)
		require.NoError(t, err)
		_, err = c.SignInWithOAuth(ctx, identity.ProviderFacebook, identity.Callback{State: stateFrom(t, u), Code: "abc"})
		assert.Equal(t, identity.CodeCancelledPopup, identity.CodeOf(err))
	})
}

func TestCodeOf(t *testing.T) {
	t.Parallel()
	assert.Equal(t, identity.Code(""), identity.CodeOf(nil))
	assert.Equal(t, identity.CodeInternal, identity.CodeOf(errors.New("x")))

	wrapped := errors.Join(errors.New("ctx"), &identity.Error{Code: identity.CodeWrongPassword})
	assert.Equal(t, identity.CodeWrongPassword, identity.CodeOf(wrapped))
	assert.ErrorIs(t, wrapped, &identity.Error{Code: identity.CodeWrongPassword})
	assert.Equal(t, "auth/weak-password", (&identity.Error{Code: identity.CodeWeakPassword}).Error())
}

func TestSupports(t *testing.T) {
	t.Parallel()
	assert.True(t, identity.Supports(identity.ParseProvider(" Google ")))
	assert.True(t, identity.Supports(identity.ProviderFacebook))
	assert.False(t, identity.Supports(identity.ProviderLinkedIn))
	assert.False(t, identity.Supports("github"))
}
