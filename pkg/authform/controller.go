package authform

import (
	"context"
	"log/slog"
	"maps"
	"sync"

	"github.com/componenthub/hubauth/pkg/identity"
	"github.com/componenthub/hubauth/pkg/logger"
	"github.com/componenthub/hubauth/pkg/session"
)

// Actions is the part of session.Resolver the form drives.
type Actions interface {
	SignInWithEmail(ctx context.Context, email, password string) session.Result
	SignUpWithEmail(ctx context.Context, email, password, displayName string) session.Result
	SignInWithOAuth(ctx context.Context, provider identity.Provider, cb identity.Callback) session.Result
}

var _ Actions = (*session.Resolver)(nil)

// Outcome reports a submission. On success navigation is left to the
// caller, which follows the session becoming present.
type Outcome struct {
	Success bool              `json:"success"`
	Code    string            `json:"code,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// FormError returns the form-level error, if any.
func (o Outcome) FormError() string {
	return o.Errors[FieldSubmit]
}

// Invalid reports whether the submission stopped at validation.
func (o Outcome) Invalid() bool {
	return !o.Success && o.Code == "" && len(o.Errors) > 0
}

// Controller holds the state of one auth form.
type Controller struct {
	actions Actions
	logger  *slog.Logger

	mu         sync.Mutex
	mode       Mode
	form       Form
	errors     map[string]string
	submitting bool
}

type Option func(*Controller)

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithMode sets the initial mode.
func WithMode(m Mode) Option {
	return func(c *Controller) { c.mode = m }
}

// WithForm preloads the input values.
func WithForm(f Form) Option {
	return func(c *Controller) { c.form = f }
}

func New(actions Actions, opts ...Option) *Controller {
	c := &Controller{
		actions: actions,
		logger:  logger.Discard(),
		errors:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// SetMode switches between login and sign-up, clearing values and errors.
// It is ignored while a submission is in flight.
func (c *Controller) SetMode(m Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitting || c.mode == m {
		return
	}
	c.mode = m
	c.form = Form{}
	clear(c.errors)
}

func (c *Controller) Form() Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

// Edit sets one field and clears that field's error. Unknown fields are
// ignored.
func (c *Controller) Edit(field, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch field {
	case FieldEmail:
		c.form.Email = value
	case FieldPassword:
		c.form.Password = value
	case FieldName:
		c.form.Name = value
	default:
		return
	}
	delete(c.errors, field)
}

// Errors returns a copy of the current errors keyed by field.
func (c *Controller) Errors() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.errors)
}

func (c *Controller) Submitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitting
}

// Submit validates the form and, when valid, signs in or signs up through
// the resolver.
func (c *Controller) Submit(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return Outcome{}, ErrSubmitInProgress
	}
	mode, form := c.mode, c.form
	if verrs := form.Validate(mode); len(verrs) > 0 {
		c.errors = verrs.Map()
		out := Outcome{Errors: maps.Clone(c.errors)}
		c.mu.Unlock()
		return out, nil
	}
	c.begin()
	c.mu.Unlock()
	defer c.end()

	var res session.Result
	if mode == ModeSignup {
		res = c.actions.SignUpWithEmail(ctx, form.Email, form.Password, form.Name)
	} else {
		res = c.actions.SignInWithEmail(ctx, form.Email, form.Password)
	}
	return c.finish(ctx, mode.String(), res), nil
}

// OAuth completes a Google or Facebook sign-in with the same result shape
// as Submit. LinkedIn always fails with MsgLinkedInDisabled.
func (c *Controller) OAuth(ctx context.Context, provider identity.Provider, cb identity.Callback) (Outcome, error) {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return Outcome{}, ErrSubmitInProgress
	}
	c.begin()
	c.mu.Unlock()
	defer c.end()

	if provider == identity.ProviderLinkedIn {
		return c.fail(string(identity.CodeNotSupported), MsgLinkedInDisabled), nil
	}
	return c.finish(ctx, provider.String(), c.actions.SignInWithOAuth(ctx, provider, cb)), nil
}

// begin must be called with c.mu held.
func (c *Controller) begin() {
	c.submitting = true
	clear(c.errors)
}

func (c *Controller) end() {
	c.mu.Lock()
	c.submitting = false
	c.mu.Unlock()
}

func (c *Controller) finish(ctx context.Context, flow string, res session.Result) Outcome {
	if res.Success {
		return Outcome{Success: true}
	}
	c.logger.DebugContext(ctx, "auth form submission failed",
		slog.String("flow", flow),
		logger.ErrorCode(res.Code),
		logger.Component("authform"),
	)
	return c.fail(res.Code, Message(identity.Code(res.Code)))
}

func (c *Controller) fail(code, msg string) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = map[string]string{FieldSubmit: msg}
	return Outcome{Code: code, Errors: map[string]string{FieldSubmit: msg}}
}
