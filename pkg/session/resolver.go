package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/componenthub/hubauth/pkg/identity"
	"github.com/componenthub/hubauth/pkg/logger"
	"github.com/componenthub/hubauth/pkg/profile"
	"github.com/componenthub/hubauth/pkg/roles"
)

// RolePolicy decides the role of a subject without a profile record.
type RolePolicy interface {
	InitialRole(ctx context.Context, subjectID, email string) (roles.Role, roles.Reason)
}

// Resolver maintains the Session of one identity Gateway.
type Resolver struct {
	gateway       identity.Gateway
	store         profile.Store
	policy        RolePolicy
	logger        *slog.Logger
	now           func() time.Time
	lookupTimeout time.Duration

	mu          sync.RWMutex
	session     *Session
	loaded      bool
	latest      uint64
	baseCtx     context.Context
	unsubscribe func()
	lastUsed    time.Time
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

func WithLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = l }
}

func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) { r.now = now }
}

// WithLookupTimeout bounds the profile work done for one event.
func WithLookupTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) { r.lookupTimeout = d }
}

func NewResolver(gateway identity.Gateway, store profile.Store, policy RolePolicy, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		gateway:       gateway,
		store:         store,
		policy:        policy,
		logger:        logger.Discard(),
		now:           time.Now,
		lookupTimeout: 10 * time.Second,
		baseCtx:       context.Background(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.lastUsed = r.now()
	return r
}

// Start subscribes to the gateway. The gateway's startup event is handled
// before Start returns when the gateway delivers it synchronously.
func (r *Resolver) Start(ctx context.Context) {
	r.mu.Lock()
	if r.unsubscribe != nil {
		r.mu.Unlock()
		return
	}
	r.baseCtx = context.WithoutCancel(ctx)
	r.mu.Unlock()

	unsubscribe := r.gateway.OnChange(r.handle)

	r.mu.Lock()
	r.unsubscribe = unsubscribe
	r.mu.Unlock()
}

// Close unsubscribes from the gateway.
func (r *Resolver) Close() {
	r.mu.Lock()
	unsubscribe := r.unsubscribe
	r.unsubscribe = nil
	r.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// Session returns a copy of the current session or nil.
func (r *Resolver) Session() *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.session == nil {
		return nil
	}
	s := *r.session
	return &s
}

// Loading is true until the first identity event has been resolved.
func (r *Resolver) Loading() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return !r.loaded
}

func (r *Resolver) IsAuthenticated() bool {
	return r.Session().IsAuthenticated()
}

func (r *Resolver) HasRole(role roles.Role) bool {
	return r.Session().HasRole(role)
}

func (r *Resolver) IsAdmin() bool {
	return r.Session().IsAdmin()
}

// Gateway returns the identity gateway the resolver follows.
func (r *Resolver) Gateway() identity.Gateway {
	return r.gateway
}

func (r *Resolver) handle(ev identity.Event) {
	r.mu.Lock()
	if ev.Seq <= r.latest {
		r.mu.Unlock()
		r.logger.Debug("dropping stale identity event",
			logger.Seq(ev.Seq),
			logger.Component("session"),
		)
		return
	}
	r.latest = ev.Seq
	if ev.Subject == nil {
		r.session = nil
		r.loaded = true
		r.mu.Unlock()
		return
	}
	base := r.baseCtx
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(base, r.lookupTimeout)
	defer cancel()
	sess := r.resolve(ctx, ev.Subject)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.latest != ev.Seq || sess.SubjectID != ev.Subject.ID {
		r.logger.DebugContext(ctx, "discarding superseded profile resolution",
			logger.SubjectID(ev.Subject.ID),
			logger.Seq(ev.Seq),
			logger.Component("session"),
		)
		return
	}
	r.session = sess
	r.loaded = true
}

func (r *Resolver) resolve(ctx context.Context, sub *identity.Subject) *Session {
	now := r.now().UTC()

	rec, err := r.store.Get(ctx, sub.ID)
	switch {
	case errors.Is(err, profile.ErrNotFound):
		return r.firstContact(ctx, sub, now)
	case err != nil:
		r.logger.ErrorContext(ctx, "profile read failed, using minimal session",
			logger.SubjectID(sub.ID),
			logger.Error(err),
			logger.Component("session"),
		)
		return minimalSession(sub)
	}

	r.touch(ctx, sub.ID, now)
	rec.LastLogin = now
	return mergedSession(sub, rec)
}

// bootstrapLost reports a ledger claim that never reached a stored profile.
// The claim cannot be returned, so no later subject becomes the first admin.
func (r *Resolver) bootstrapLost(ctx context.Context, subjectID string, reason roles.Reason, cause string) {
	if reason != roles.ReasonBootstrap {
		return
	}
	r.logger.ErrorContext(ctx, "bootstrap admin claim lost",
		logger.SubjectID(subjectID),
		slog.String("cause", cause),
		logger.Component("session"),
	)
}

func (r *Resolver) firstContact(ctx context.Context, sub *identity.Subject, now time.Time) *Session {
	role, reason := roles.User, roles.ReasonDefault
	if r.policy != nil {
		role, reason = r.policy.InitialRole(ctx, sub.ID, sub.Email)
	}

	rec := profile.Record{
		ID:        sub.ID,
		Name:      firstNonEmpty(sub.DisplayName, DefaultDisplayName),
		Email:     sub.Email,
		Avatar:    sub.AvatarURL,
		Role:      role,
		CreatedAt: now,
		LastLogin: now,
	}
	created, err := r.store.CreateIfAbsent(ctx, rec)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to create profile, using minimal session",
			logger.SubjectID(sub.ID),
			logger.Role(role),
			logger.Error(err),
			logger.Component("session"),
		)
		r.bootstrapLost(ctx, sub.ID, reason, "profile create failed")
		return minimalSession(sub)
	}
	if created {
		r.logger.InfoContext(ctx, "profile created",
			logger.SubjectID(sub.ID),
			logger.Role(role),
			slog.String("reason", string(reason)),
			logger.Component("session"),
		)
		return mergedSession(sub, &rec)
	}

	// Another resolver created it first; its role decision stands.
	r.bootstrapLost(ctx, sub.ID, reason, "profile already existed")
	stored, err := r.store.Get(ctx, sub.ID)
	if err != nil {
		r.logger.ErrorContext(ctx, "profile read after concurrent create failed",
			logger.SubjectID(sub.ID),
			logger.Error(err),
			logger.Component("session"),
		)
		return minimalSession(sub)
	}
	r.touch(ctx, sub.ID, now)
	stored.LastLogin = now
	return mergedSession(sub, stored)
}

func (r *Resolver) touch(ctx context.Context, id string, now time.Time) {
	if err := r.store.Set(ctx, id, profile.Fields{LastLogin: &now}, true); err != nil {
		r.logger.WarnContext(ctx, "failed to update last login",
			logger.SubjectID(id),
			logger.Error(err),
			logger.Component("session"),
		)
	}
}

// markUsed records activity for idle eviction.
func (r *Resolver) markUsed() {
	r.mu.Lock()
	r.lastUsed = r.now()
	r.mu.Unlock()
}

func (r *Resolver) idleSince() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastUsed
}
