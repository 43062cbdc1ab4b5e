package session_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/componenthub/hubauth/pkg/cookie"
	"github.com/componenthub/hubauth/pkg/identity"
	"github.com/componenthub/hubauth/pkg/profile"
	"github.com/componenthub/hubauth/pkg/roles"
	"github.com/componenthub/hubauth/pkg/session"
)

type registryFixture struct {
	store    *profile.MemoryStore
	builds   atomic.Int32
	mu       sync.Mutex
	gateways map[string]*fakeGateway
}

func newRegistryFixture() *registryFixture {
	return &registryFixture{store: profile.NewMemoryStore(), gateways: make(map[string]*fakeGateway)}
}

func (f *registryFixture) build(opts ...session.ResolverOption) session.BuildFunc {
	return func(ctx context.Context, id string) (*session.Resolver, error) {
		f.builds.Add(1)
		gw := newFakeGateway()
		f.mu.Lock()
		f.gateways[id] = gw
		f.mu.Unlock()
		r := session.NewResolver(gw, f.store, nil, opts...)
		r.Start(ctx)
		return r, nil
	}
}

func (f *registryFixture) gateway(id string) *fakeGateway {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gateways[id]
}

func noCleanup() session.Config {
	cfg := session.DefaultConfig()
	cfg.CleanupInterval = 0
	return cfg
}

func TestRegistry_GetSharesOneBuild(t *testing.T) {
	t.Parallel()
	f := newRegistryFixture()
	reg := session.NewRegistry(f.build(), session.WithConfig(noCleanup()))
	defer reg.Close()

	var wg sync.WaitGroup
	got := make([]*session.Resolver, 16)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := reg.Get(context.Background(), "browser-1")
			assert.NoError(t, err)
			got[i] = r
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), f.builds.Load())
	for _, r := range got {
		assert.Same(t, got[0], r)
	}
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_BuildErrorIsNotCached(t *testing.T) {
	t.Parallel()
	calls := 0
	reg := session.NewRegistry(func(context.Context, string) (*session.Resolver, error) {
		calls++
		return nil, errors.New("boom")
	}, session.WithConfig(noCleanup()))
	defer reg.Close()

	_, err := reg.Get(context.Background(), "b")
	require.Error(t, err)
	_, err = reg.Get(context.Background(), "b")
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_Sweep(t *testing.T) {
	t.Parallel()
	var (
		mu  sync.Mutex
		now = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}

	f := newRegistryFixture()
	cfg := noCleanup()
	cfg.IdleTimeout = 10 * time.Minute
	reg := session.NewRegistry(f.build(session.WithClock(clock)),
		session.WithConfig(cfg),
		session.WithRegistryClock(clock),
	)
	defer reg.Close()

	ctx := context.Background()
	_, err := reg.Get(ctx, "idle")
	require.NoError(t, err)
	advance(8 * time.Minute)
	_, err = reg.Get(ctx, "active")
	require.NoError(t, err)
	advance(5 * time.Minute)

	assert.Equal(t, 1, reg.Sweep())
	assert.Equal(t, 1, reg.Len())

	_, err = reg.Get(ctx, "idle")
	require.NoError(t, err)
	assert.Equal(t, int32(3), f.builds.Load())
}

func TestRegistry_ApplyRole(t *testing.T) {
	t.Parallel()
	f := newRegistryFixture()
	_, err := f.store.CreateIfAbsent(context.Background(), profile.Record{ID: "u", Role: roles.User})
	require.NoError(t, err)
	reg := session.NewRegistry(f.build(), session.WithConfig(noCleanup()))
	defer reg.Close()

	ctx := context.Background()
	laptop, err := reg.Get(ctx, "laptop")
	require.NoError(t, err)
	phone, err := reg.Get(ctx, "phone")
	require.NoError(t, err)
	other, err := reg.Get(ctx, "other")
	require.NoError(t, err)

	f.gateway("laptop").emit(subject("u", "u@example.com"))
	f.gateway("phone").emit(subject("u", "u@example.com"))
	f.gateway("other").emit(subject("v", "v@example.com"))

	assert.Equal(t, 2, reg.ApplyRole("u", roles.Admin))
	assert.True(t, laptop.IsAdmin())
	assert.True(t, phone.IsAdmin())
	assert.False(t, other.IsAdmin())
}

func TestRegistry_Closed(t *testing.T) {
	t.Parallel()
	f := newRegistryFixture()
	reg := session.NewRegistry(f.build(), session.WithConfig(noCleanup()))
	reg.Close()
	reg.Close()

	_, err := reg.Get(context.Background(), "b")
	assert.ErrorIs(t, err, session.ErrRegistryClosed)
}

func newCookieTransport(t *testing.T) *session.CookieTransport {
	t.Helper()
	cookies, err := cookie.New([]string{"a-very-long-secret-key-for-testing-purposes"})
	require.NoError(t, err)
	return session.NewCookieTransport(cookies, "hub_sid", false)
}

func TestRegistry_Middleware(t *testing.T) {
	t.Parallel()
	f := newRegistryFixture()
	ids := []string{"browser-a", "browser-b"}
	var next atomic.Int32
	reg := session.NewRegistry(f.build(),
		session.WithConfig(noCleanup()),
		session.WithTransport(newCookieTransport(t)),
		session.WithIDGenerator(func() string { return ids[next.Add(1)-1] }),
	)
	defer reg.Close()

	var seen *session.Session
	var resolver *session.Resolver
	h := reg.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = session.FromContext(r.Context())
		resolver, _ = session.ResolverFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	// First request issues a browser session id.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, resolver)
	assert.Nil(t, seen)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "hub_sid", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	f.gateway("browser-a").emit(subject("u", "u@example.com"))

	// Same cookie, same resolver, now signed in.
	first := resolver
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Same(t, first, resolver)
	require.NotNil(t, seen)
	assert.Equal(t, "u", seen.SubjectID)
	assert.Empty(t, rec.Result().Cookies())

	// Tampered cookie gets a fresh browser session.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "hub_sid", Value: "browser-a|forged"})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.NotSame(t, first, resolver)
	assert.Nil(t, seen)
	assert.Equal(t, 2, reg.Len())
}

func TestRegistry_MiddlewareWithoutTransport(t *testing.T) {
	t.Parallel()
	reg := session.NewRegistry(newRegistryFixture().build(), session.WithConfig(noCleanup()))
	defer reg.Close()

	called := false
	h := reg.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, called)
}

func TestFromFactory(t *testing.T) {
	t.Parallel()
	store := profile.NewMemoryStore()
	factory := identity.NewFactory(identity.NewMemoryAccountStore(),
		identity.WithBcryptCost(4),
	)
	reg := session.NewRegistry(
		session.FromFactory(factory, store, roles.NewPolicy(store, roles.NewMemoryLedger())),
		session.WithConfig(noCleanup()),
	)
	defer reg.Close()

	ctx := context.Background()
	r, err := reg.Get(ctx, "browser")
	require.NoError(t, err)
	assert.False(t, r.Loading())

	res := r.SignUpWithEmail(ctx, "first@example.com", "secret1", "First")
	require.True(t, res.Success, res.Error)
	assert.True(t, r.IsAdmin())
	assert.Equal(t, "First", r.Session().DisplayName)

	other, err := reg.Get(ctx, "other-browser")
	require.NoError(t, err)
	assert.False(t, other.IsAuthenticated(), "sign-in is per browser session")
}

func TestRegistry_RotateAndEnd(t *testing.T) {
	t.Parallel()
	store := profile.NewMemoryStore()
	persistence := identity.NewMemoryPersistence()
	factory := identity.NewFactory(identity.NewMemoryAccountStore(),
		identity.WithBcryptCost(4),
		identity.WithPersistence(persistence),
	)
	ids := []string{"pre-login", "post-login", "after-logout"}
	var next atomic.Int32
	reg := session.NewRegistry(
		session.FromFactory(factory, store, roles.NewPolicy(store, roles.NewMemoryLedger())),
		session.WithConfig(noCleanup()),
		session.WithTransport(newCookieTransport(t)),
		session.WithIDGenerator(func() string { return ids[next.Add(1)-1] }),
	)
	defer reg.Close()

	var seen *session.Session
	h := reg.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resolver, _ := session.ResolverFromContext(r.Context())
		switch r.URL.Path {
		case "/signup":
			res := resolver.SignUpWithEmail(r.Context(), "ann@example.com", "secret1", "Ann")
			require.True(t, res.Success, res.Error)
			_, err := reg.Rotate(w, r)
			require.NoError(t, err)
		case "/logout":
			require.True(t, resolver.SignOut(r.Context()).Success)
			require.NoError(t, reg.End(w, r))
		default:
			seen = session.FromContext(r.Context())
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	serve := func(path string, c *http.Cookie) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		if c != nil {
			req.AddCookie(c)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}
	lastCookie := func(rec *httptest.ResponseRecorder) *http.Cookie {
		cs := rec.Result().Cookies()
		require.NotEmpty(t, cs)
		return cs[len(cs)-1]
	}

	// The first request signs up without any cookie; the id issued on that
	// response is rotated before it is ever sent back.
	rec := serve("/signup", nil)
	preLogin := rec.Result().Cookies()[0]
	postLogin := lastCookie(rec)
	assert.NotEqual(t, preLogin.Value, postLogin.Value)

	serve("/", postLogin)
	require.NotNil(t, seen)
	assert.Equal(t, "ann@example.com", seen.Email)

	// The pre-login id no longer resolves to the signed-in resolver.
	serve("/", preLogin)
	assert.Nil(t, seen)

	ctx := context.Background()
	saved, err := persistence.Load(ctx, "post-login")
	require.NoError(t, err)
	require.NotNil(t, saved)
	saved, err = persistence.Load(ctx, "pre-login")
	require.NoError(t, err)
	assert.Nil(t, saved)

	// Sign-out drops the resolver and clears the cookie.
	rec = serve("/logout", postLogin)
	cleared := lastCookie(rec)
	assert.Equal(t, "hub_sid", cleared.Name)
	assert.LessOrEqual(t, cleared.MaxAge, 0)

	serve("/", postLogin)
	assert.Nil(t, seen)
}

func TestRegistry_RotateUnknown(t *testing.T) {
	t.Parallel()
	reg := session.NewRegistry(newRegistryFixture().build(),
		session.WithConfig(noCleanup()),
		session.WithTransport(newCookieTransport(t)),
	)
	defer reg.Close()

	_, err := reg.Rotate(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	assert.ErrorIs(t, err, session.ErrNoSessionID)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(session.WithBrowserSession(req.Context(), "nobody"))
	_, err = reg.Rotate(httptest.NewRecorder(), req)
	assert.ErrorIs(t, err, session.ErrUnknownSession)
}
