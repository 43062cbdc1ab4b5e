package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/componenthub/hubauth/pkg/logger"
	"github.com/componenthub/hubauth/pkg/ratelimiter"
	"github.com/componenthub/hubauth/pkg/validator"
)

// Client is the Gateway of a single browser session.
type Client struct {
	key         string
	accounts    AccountStore
	persistence Persistence
	states      StateStore
	connectors  map[Provider]Connector
	throttle    *ratelimiter.Bucket
	bcryptCost  int
	minPassword int
	stateTTL    time.Duration
	logger      *slog.Logger
	now         func() time.Time
	newID       func() string

	mu           sync.Mutex
	seq          uint64
	current      *Subject
	listeners    map[uint64]func(Event)
	nextListener uint64
}

// Option configures a Client.
type Option func(*Client)

// WithSessionKey sets the browser session the client persists sign-ins under.
func WithSessionKey(key string) Option {
	return func(c *Client) { c.key = key }
}

func WithPersistence(p Persistence) Option {
	return func(c *Client) { c.persistence = p }
}

func WithStateStore(s StateStore) Option {
	return func(c *Client) { c.states = s }
}

// WithConnector enables OAuth sign-in through c.
func WithConnector(conn Connector) Option {
	return func(c *Client) { c.connectors[conn.ProviderID()] = conn }
}

// WithThrottle limits failed password attempts per email. A bucket with
// capacity N blocks the (N+1)th attempt inside its refill interval.
func WithThrottle(b *ratelimiter.Bucket) Option {
	return func(c *Client) { c.throttle = b }
}

func WithBcryptCost(cost int) Option {
	return func(c *Client) { c.bcryptCost = cost }
}

func WithMinPasswordLength(n int) Option {
	return func(c *Client) { c.minPassword = n }
}

func WithStateTTL(ttl time.Duration) Option {
	return func(c *Client) { c.stateTTL = ttl }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func WithIDGenerator(fn func() string) Option {
	return func(c *Client) { c.newID = fn }
}

// NewClient creates a signed-out client. Call Start to restore a persisted
// sign-in.
func NewClient(accounts AccountStore, opts ...Option) *Client {
	c := &Client{
		accounts:    accounts,
		states:      NewMemoryStateStore(),
		connectors:  make(map[Provider]Connector),
		bcryptCost:  bcrypt.DefaultCost,
		minPassword: 6,
		stateTTL:    10 * time.Minute,
		logger:      logger.Discard(),
		now:         time.Now,
		newID:       uuid.NewString,
		seq:         1,
		listeners:   make(map[uint64]func(Event)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start restores the sign-in persisted for the session key, if any.
func (c *Client) Start(ctx context.Context) error {
	if c.persistence == nil || c.key == "" {
		return nil
	}
	saved, err := c.persistence.Load(ctx, c.key)
	if err != nil {
		return fmt.Errorf("load persisted sign-in: %w", err)
	}
	if saved == nil {
		return nil
	}

	acc, err := c.accounts.ByID(ctx, saved.SubjectID)
	if errors.Is(err, ErrAccountNotFound) {
		c.logger.WarnContext(ctx, "persisted sign-in points to missing account",
			logger.SubjectID(saved.SubjectID),
			logger.BrowserSession(c.key),
			logger.Component("identity"),
		)
		return c.persistence.Clear(ctx, c.key)
	}
	if err != nil {
		return fmt.Errorf("restore sign-in: %w", err)
	}

	c.commit(subjectFromAccount(acc, saved.Provider, saved.EmailVerified))
	return nil
}

// Rekey moves the persisted sign-in to key, so the previous key no longer
// restores it. Called when the browser session id is rotated.
func (c *Client) Rekey(ctx context.Context, key string) error {
	c.mu.Lock()
	old := c.key
	c.key = key
	var cur *Subject
	if c.current != nil {
		s := *c.current
		cur = &s
	}
	c.mu.Unlock()

	if c.persistence == nil || old == key {
		return nil
	}
	if cur != nil && key != "" {
		if err := c.persistence.Save(ctx, key, SignIn{
			SubjectID:     cur.ID,
			Provider:      cur.Provider,
			EmailVerified: cur.EmailVerified,
		}); err != nil {
			return fmt.Errorf("persist sign-in under new key: %w", err)
		}
	}
	if old != "" {
		if err := c.persistence.Clear(ctx, old); err != nil {
			return fmt.Errorf("clear previous key: %w", err)
		}
	}
	return nil
}

func (c *Client) sessionKey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key
}

// Current returns the signed-in subject or nil.
func (c *Client) Current() *Subject {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	s := *c.current
	return &s
}

// Supports reports whether the client can sign in through p right now.
func (c *Client) Supports(p Provider) bool {
	if !Supports(p) {
		return false
	}
	if p == ProviderPassword {
		return true
	}
	_, ok := c.connectors[p]
	return ok
}

func (c *Client) SignUp(ctx context.Context, email, password, displayName string) (*Subject, error) {
	email = NormalizeEmail(email)
	if err := checkEmail(email); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(password) < c.minPassword {
		return nil, newError(CodeWeakPassword, fmt.Errorf("password shorter than %d characters", c.minPassword))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), c.bcryptCost)
	if err != nil {
		return nil, newError(CodeInternal, fmt.Errorf("hash password: %w", err))
	}

	acc := &Account{
		ID:           c.newID(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
		CreatedAt:    c.now().UTC(),
	}
	if err := c.accounts.Create(ctx, acc); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, newError(CodeEmailAlreadyInUse, err)
		}
		return nil, newError(CodeInternal, err)
	}

	c.logger.InfoContext(ctx, "account created",
		logger.SubjectID(acc.ID),
		logger.Provider(ProviderPassword.String()),
		logger.Component("identity"),
	)
	return c.signedIn(ctx, subjectFromAccount(acc, ProviderPassword, false)), nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*Subject, error) {
	email = NormalizeEmail(email)
	if err := checkEmail(email); err != nil {
		return nil, err
	}

	throttleKey := "signin:" + email
	if c.throttle != nil {
		st, err := c.throttle.Status(ctx, throttleKey)
		switch {
		case err != nil:
			c.logger.ErrorContext(ctx, "sign-in throttle unavailable",
				logger.Error(err),
				logger.Component("identity"),
			)
		case st.Exhausted():
			return nil, newError(CodeTooManyRequests, fmt.Errorf("retry after %s", st.RetryAfter()))
		}
	}

	acc, err := c.accounts.ByEmail(ctx, email)
	if errors.Is(err, ErrAccountNotFound) {
		return nil, newError(CodeUserNotFound, err)
	}
	if err != nil {
		return nil, newError(CodeInternal, err)
	}

	if !acc.HasPassword() || bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(password)) != nil {
		if c.throttle != nil {
			if _, err := c.throttle.Allow(ctx, throttleKey); err != nil {
				c.logger.ErrorContext(ctx, "failed to record failed sign-in",
					logger.Error(err),
					logger.Component("identity"),
				)
			}
		}
		return nil, newError(CodeWrongPassword, nil)
	}

	if c.throttle != nil {
		_ = c.throttle.Reset(ctx, throttleKey)
	}
	return c.signedIn(ctx, subjectFromAccount(acc, ProviderPassword, false)), nil
}

// OAuthURL issues a one-time state and returns the provider's consent URL.
func (c *Client) OAuthURL(ctx context.Context, provider Provider) (string, error) {
	conn, err := c.connector(provider)
	if err != nil {
		return "", err
	}
	state, err := generateState()
	if err != nil {
		return "", newError(CodeInternal, fmt.Errorf("generate state: %w", err))
	}
	if err := c.states.Put(ctx, state, provider, c.stateTTL); err != nil {
		return "", newError(CodeInternal, fmt.Errorf("store state: %w", err))
	}
	return conn.AuthURL(state), nil
}

// SignInWithOAuth completes the popup flow started by OAuthURL.
func (c *Client) SignInWithOAuth(ctx context.Context, provider Provider, cb Callback) (*Subject, error) {
	conn, err := c.connector(provider)
	if err != nil {
		return nil, err
	}

	bound, err := c.states.Consume(ctx, cb.State)
	if errors.Is(err, ErrStateNotFound) {
		return nil, newError(CodeCancelledPopup, err)
	}
	if err != nil {
		return nil, newError(CodeInternal, fmt.Errorf("consume state: %w", err))
	}
	if bound != provider {
		return nil, newError(CodeCancelledPopup, fmt.Errorf("state issued for %s", bound))
	}
	if cb.Error != "" || cb.Code == "" {
		return nil, newError(CodePopupClosed, errors.New(cb.Error))
	}

	prof, err := conn.ResolveProfile(ctx, cb.Code)
	if err != nil {
		return nil, newError(CodeInternal, err)
	}

	acc, err := c.linkAccount(ctx, provider, prof)
	if err != nil {
		var idErr *Error
		if errors.As(err, &idErr) {
			return nil, err
		}
		return nil, newError(CodeInternal, err)
	}

	s := subjectFromAccount(acc, provider, prof.EmailVerified)
	if prof.Name != "" {
		s.DisplayName = prof.Name
	}
	if prof.AvatarURL != "" {
		s.AvatarURL = prof.AvatarURL
	}
	return c.signedIn(ctx, s), nil
}

func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	signedIn := c.current != nil
	c.mu.Unlock()
	if !signedIn {
		return nil
	}

	if key := c.sessionKey(); c.persistence != nil && key != "" {
		if err := c.persistence.Clear(ctx, key); err != nil {
			c.logger.ErrorContext(ctx, "failed to clear persisted sign-in",
				logger.BrowserSession(key),
				logger.Error(err),
				logger.Component("identity"),
			)
		}
	}
	c.commit(nil)
	return nil
}

func (c *Client) OnChange(fn func(Event)) func() {
	c.mu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	ev := c.eventLocked()
	c.mu.Unlock()

	fn(ev)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

func (c *Client) connector(provider Provider) (Connector, error) {
	if !Supports(provider) || provider == ProviderPassword {
		return nil, newError(CodeNotSupported, fmt.Errorf("sign-in with %q is not available", provider))
	}
	conn, ok := c.connectors[provider]
	if !ok {
		return nil, newError(CodeNotSupported, fmt.Errorf("%s is not configured", provider))
	}
	return conn, nil
}

func (c *Client) linkAccount(ctx context.Context, provider Provider, prof ProviderProfile) (*Account, error) {
	acc, err := c.accounts.ByProvider(ctx, provider, prof.ProviderUserID)
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, fmt.Errorf("lookup provider link: %w", err)
	}

	acc, err = c.accounts.ByEmail(ctx, prof.Email)
	if err == nil && !prof.EmailVerified {
		return nil, unverifiedLink(provider, prof.Email)
	}
	if errors.Is(err, ErrAccountNotFound) {
		acc = &Account{
			ID:          c.newID(),
			Email:       NormalizeEmail(prof.Email),
			DisplayName: prof.Name,
			AvatarURL:   prof.AvatarURL,
			CreatedAt:   c.now().UTC(),
		}
		err = c.accounts.Create(ctx, acc)
		if errors.Is(err, ErrEmailTaken) {
			if !prof.EmailVerified {
				return nil, unverifiedLink(provider, prof.Email)
			}
			acc, err = c.accounts.ByEmail(ctx, prof.Email)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("resolve account for %s: %w", provider, err)
	}

	if err := c.accounts.Link(ctx, acc.ID, provider, prof.ProviderUserID); err != nil {
		return nil, fmt.Errorf("link %s account: %w", provider, err)
	}
	return acc, nil
}

// unverifiedLink refuses to attach a provider identity to an existing
// account when the provider has not verified the shared email.
func unverifiedLink(provider Provider, email string) error {
	return newError(CodeEmailAlreadyInUse,
		fmt.Errorf("%w: %s email %s", ErrUnverifiedEmail, provider, NormalizeEmail(email)))
}

func (c *Client) signedIn(ctx context.Context, s *Subject) *Subject {
	if key := c.sessionKey(); c.persistence != nil && key != "" {
		if err := c.persistence.Save(ctx, key, SignIn{
			SubjectID:     s.ID,
			Provider:      s.Provider,
			EmailVerified: s.EmailVerified,
		}); err != nil {
			c.logger.ErrorContext(ctx, "failed to persist sign-in",
				logger.SubjectID(s.ID),
				logger.BrowserSession(key),
				logger.Error(err),
				logger.Component("identity"),
			)
		}
	}
	c.commit(s)
	out := *s
	return &out
}

// commit records the new state and notifies listeners outside the lock.
// Listeners may observe commits out of order and must compare Seq.
func (c *Client) commit(s *Subject) {
	c.mu.Lock()
	c.seq++
	c.current = s
	ev := c.eventLocked()
	fns := slices.Collect(maps.Values(c.listeners))
	c.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (c *Client) eventLocked() Event {
	ev := Event{Seq: c.seq}
	if c.current != nil {
		s := *c.current
		ev.Subject = &s
	}
	return ev
}

func checkEmail(email string) error {
	if err := validator.Apply(validator.EmailShape("email", email)); err != nil {
		return newError(CodeInvalidEmail, err)
	}
	return nil
}

func subjectFromAccount(acc *Account, p Provider, verified bool) *Subject {
	return &Subject{
		ID:            acc.ID,
		Email:         acc.Email,
		DisplayName:   acc.DisplayName,
		AvatarURL:     acc.AvatarURL,
		Provider:      p,
		EmailVerified: verified,
	}
}

var (
	_ Gateway      = (*Client)(nil)
	_ OAuthStarter = (*Client)(nil)
)
