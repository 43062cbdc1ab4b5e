package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/componenthub/hubauth/pkg/identity"
	"github.com/componenthub/hubauth/pkg/logger"
	"github.com/componenthub/hubauth/pkg/profile"
	"github.com/componenthub/hubauth/pkg/roles"
)

// BuildFunc creates and starts the resolver of a browser session.
type BuildFunc func(ctx context.Context, browserSessionID string) (*Resolver, error)

// FromFactory builds resolvers over identity clients made by f.
func FromFactory(f *identity.Factory, store profile.Store, policy RolePolicy, opts ...ResolverOption) BuildFunc {
	return func(ctx context.Context, id string) (*Resolver, error) {
		client := f.NewClient(id)
		if err := client.Start(ctx); err != nil {
			return nil, fmt.Errorf("start identity client: %w", err)
		}
		r := NewResolver(client, store, policy, opts...)
		r.Start(ctx)
		return r, nil
	}
}

type entry struct {
	ready    chan struct{}
	resolver *Resolver
	err      error
}

// Registry keeps one Resolver per browser session id.
type Registry struct {
	build     BuildFunc
	transport Transport
	config    Config
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool
	done    chan struct{}
}

type RegistryOption func(*Registry)

func WithTransport(t Transport) RegistryOption {
	return func(g *Registry) { g.transport = t }
}

func WithConfig(cfg Config) RegistryOption {
	return func(g *Registry) { g.config = cfg }
}

func WithRegistryLogger(l *slog.Logger) RegistryOption {
	return func(g *Registry) { g.logger = l }
}

func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(g *Registry) { g.now = now }
}

func WithIDGenerator(fn func() string) RegistryOption {
	return func(g *Registry) { g.newID = fn }
}

// NewRegistry creates a registry and starts idle eviction when
// Config.CleanupInterval is positive.
func NewRegistry(build BuildFunc, opts ...RegistryOption) *Registry {
	g := &Registry{
		build:   build,
		config:  DefaultConfig(),
		logger:  logger.Discard(),
		now:     time.Now,
		newID:   uuid.NewString,
		entries: make(map[string]*entry),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.config.CleanupInterval > 0 {
		go g.cleanup()
	}
	return g
}

// Get returns the resolver of id, building it on first use. Concurrent
// callers for the same id share one build.
func (g *Registry) Get(ctx context.Context, id string) (*Resolver, error) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil, ErrRegistryClosed
	}
	e, ok := g.entries[id]
	if !ok {
		e = &entry{ready: make(chan struct{})}
		g.entries[id] = e
		g.mu.Unlock()

		e.resolver, e.err = g.build(ctx, id)
		if e.err != nil {
			g.mu.Lock()
			delete(g.entries, id)
			g.mu.Unlock()
		}
		close(e.ready)
	} else {
		g.mu.Unlock()
	}

	select {
	case <-e.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if e.err != nil {
		return nil, e.err
	}
	e.resolver.markUsed()
	return e.resolver, nil
}

// Ensure returns the resolver of the request's browser session, issuing a
// new session id when the request has none.
func (g *Registry) Ensure(w http.ResponseWriter, r *http.Request) (*Resolver, error) {
	_, resolver, err := g.ensure(w, r)
	return resolver, err
}

func (g *Registry) ensure(w http.ResponseWriter, r *http.Request) (string, *Resolver, error) {
	if g.transport == nil {
		return "", nil, ErrNoSessionID
	}
	id, err := g.transport.GetToken(r)
	if err != nil {
		id = g.newID()
		if err := g.transport.SetToken(w, id, g.config.CookieMaxAge); err != nil {
			return "", nil, fmt.Errorf("issue browser session: %w", err)
		}
	}
	resolver, err := g.Get(r.Context(), id)
	return id, resolver, err
}

// Rotate moves the request's resolver to a fresh browser session id and
// sends it to the client. The previous id stops resolving to the signed-in
// resolver. Call it after a successful sign-in or sign-up.
func (g *Registry) Rotate(w http.ResponseWriter, r *http.Request) (string, error) {
	if g.transport == nil {
		return "", ErrNoSessionID
	}
	oldID, err := g.requestID(r)
	if err != nil {
		return "", err
	}
	newID := g.newID()

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return "", ErrRegistryClosed
	}
	e, ok := g.entries[oldID]
	if !ok {
		g.mu.Unlock()
		return "", ErrUnknownSession
	}
	delete(g.entries, oldID)
	g.entries[newID] = e
	g.mu.Unlock()

	<-e.ready
	if e.resolver == nil {
		return "", ErrUnknownSession
	}
	if rk, ok := e.resolver.Gateway().(rekeyer); ok {
		if err := rk.Rekey(r.Context(), newID); err != nil {
			g.logger.ErrorContext(r.Context(), "failed to move persisted sign-in",
				logger.Error(err),
				logger.Component("session"),
			)
		}
	}
	if err := g.transport.SetToken(w, newID, g.config.CookieMaxAge); err != nil {
		return "", fmt.Errorf("issue rotated browser session: %w", err)
	}
	return newID, nil
}

// End drops the request's resolver and clears the browser session id. Call
// it after sign-out.
func (g *Registry) End(w http.ResponseWriter, r *http.Request) error {
	if g.transport == nil {
		return ErrNoSessionID
	}
	if id, err := g.requestID(r); err == nil {
		g.Forget(id)
	}
	return g.transport.ClearToken(w)
}

// requestID prefers the id recorded by Middleware, which also covers an id
// issued on the current response.
func (g *Registry) requestID(r *http.Request) (string, error) {
	if id, ok := BrowserSessionFromContext(r.Context()); ok {
		return id, nil
	}
	return g.transport.GetToken(r)
}

// rekeyer is implemented by gateways that persist sign-ins per browser
// session id, such as *identity.Client.
type rekeyer interface {
	Rekey(ctx context.Context, key string) error
}

// Forget drops the resolver of id.
func (g *Registry) Forget(id string) {
	g.mu.Lock()
	e, ok := g.entries[id]
	delete(g.entries, id)
	g.mu.Unlock()
	if ok {
		closeEntry(e)
	}
}

// ApplyRole pushes a role change to every live resolver signed in as
// subjectID and returns how many changed.
func (g *Registry) ApplyRole(subjectID string, role roles.Role) int {
	g.mu.Lock()
	resolvers := make([]*Resolver, 0, len(g.entries))
	for _, e := range g.entries {
		select {
		case <-e.ready:
			if e.resolver != nil {
				resolvers = append(resolvers, e.resolver)
			}
		default:
		}
	}
	g.mu.Unlock()

	n := 0
	for _, r := range resolvers {
		if r.ApplyRole(subjectID, role) {
			n++
		}
	}
	return n
}

// Len returns the number of live resolvers.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

// Sweep evicts resolvers idle for longer than Config.IdleTimeout and returns
// how many it removed.
func (g *Registry) Sweep() int {
	if g.config.IdleTimeout <= 0 {
		return 0
	}
	cutoff := g.now().Add(-g.config.IdleTimeout)

	var stale []*entry
	g.mu.Lock()
	for id, e := range g.entries {
		select {
		case <-e.ready:
		default:
			continue
		}
		if e.resolver != nil && e.resolver.idleSince().Before(cutoff) {
			stale = append(stale, e)
			delete(g.entries, id)
		}
	}
	g.mu.Unlock()

	for _, e := range stale {
		closeEntry(e)
	}
	return len(stale)
}

// Close stops eviction and closes every resolver.
func (g *Registry) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	close(g.done)
	entries := g.entries
	g.entries = make(map[string]*entry)
	g.mu.Unlock()

	for _, e := range entries {
		closeEntry(e)
	}
}

func (g *Registry) cleanup() {
	ticker := time.NewTicker(g.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := g.Sweep(); n > 0 {
				g.logger.Debug("evicted idle resolvers",
					slog.Int("count", n),
					logger.Component("session"),
				)
			}
		case <-g.done:
			return
		}
	}
}

func closeEntry(e *entry) {
	<-e.ready
	if e.resolver != nil {
		e.resolver.Close()
	}
}
