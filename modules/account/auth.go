package account

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/componenthub/hubauth/handler"
	"github.com/componenthub/hubauth/pkg/audit"
	"github.com/componenthub/hubauth/pkg/authform"
	"github.com/componenthub/hubauth/pkg/binder"
	"github.com/componenthub/hubauth/pkg/cookie"
	"github.com/componenthub/hubauth/pkg/guard"
	"github.com/componenthub/hubauth/pkg/identity"
	"github.com/componenthub/hubauth/pkg/logger"
	"github.com/componenthub/hubauth/pkg/session"
)

const flashKey = "auth"

// AuthObserver records the outcome of each auth attempt.
type AuthObserver interface {
	ObserveAuth(flow string, success bool, code string)
}

// SessionRotator issues a fresh browser session id after sign-in and ends
// it after sign-out; *session.Registry satisfies it.
type SessionRotator interface {
	Rotate(w http.ResponseWriter, r *http.Request) (string, error)
	End(w http.ResponseWriter, r *http.Request) error
}

type noopObserver struct{}

func (noopObserver) ObserveAuth(string, bool, string) {}

// AuthService serves the sign-in, sign-up, OAuth and sign-out flows of the
// current browser.
type AuthService struct {
	cookies      *cookie.Manager
	observer     AuthObserver
	auditor      Auditor
	rotator      SessionRotator
	logger       *slog.Logger
	errorHandler handler.ErrorHandler[handler.Context]
}

type AuthOption func(*AuthService)

func WithAuthObserver(o AuthObserver) AuthOption {
	return func(s *AuthService) {
		if o != nil {
			s.observer = o
		}
	}
}

func WithAuthAuditor(a Auditor) AuthOption {
	return func(s *AuthService) { s.auditor = a }
}

// WithSessionRotation rotates the browser session id on sign-in and clears
// it on sign-out.
func WithSessionRotation(r SessionRotator) AuthOption {
	return func(s *AuthService) { s.rotator = r }
}

func WithAuthLogger(l *slog.Logger) AuthOption {
	return func(s *AuthService) { s.logger = l }
}

// NewAuthService returns the auth routes. cookies carries OAuth callback
// errors back to the login page as a flash.
func NewAuthService(cookies *cookie.Manager, opts ...AuthOption) *AuthService {
	s := &AuthService{
		cookies:  cookies,
		observer: noopObserver{},
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.errorHandler = handler.NewErrorHandler(s.logger)
	return s
}

func (s *AuthService) Handle() http.Handler {
	r := chi.NewRouter()

	r.Post("/login", handler.Wrap(s.login,
		handler.WithBinders[handler.Context, CredentialsRequest](binder.JSON()),
		handler.WithErrorHandler[handler.Context, CredentialsRequest](s.errorHandler),
	))
	r.Post("/signup", handler.Wrap(s.signup,
		handler.WithBinders[handler.Context, CredentialsRequest](binder.JSON()),
		handler.WithErrorHandler[handler.Context, CredentialsRequest](s.errorHandler),
	))
	r.Get("/oauth/{provider}", handler.Wrap(s.oauthStart,
		handler.WithBinders[handler.Context, OAuthRequest](binder.Path(chi.URLParam)),
		handler.WithErrorHandler[handler.Context, OAuthRequest](s.errorHandler),
	))
	r.Get("/oauth/{provider}/callback", handler.Wrap(s.oauthCallback,
		handler.WithBinders[handler.Context, OAuthRequest](binder.Path(chi.URLParam), binder.Query()),
		handler.WithErrorHandler[handler.Context, OAuthRequest](s.errorHandler),
	))
	r.Post("/logout", handler.Wrap(s.logout,
		handler.WithErrorHandler[handler.Context, struct{}](s.errorHandler),
	))
	r.Get("/session", handler.Wrap(s.current,
		handler.WithErrorHandler[handler.Context, struct{}](s.errorHandler),
	))
	r.Get("/flash", handler.Wrap(s.flash,
		handler.WithErrorHandler[handler.Context, struct{}](s.errorHandler),
	))

	return r
}

// CredentialsRequest is the login and sign-up body. Name is only read on
// sign-up.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// OAuthRequest carries the provider path segment and, on the callback, the
// provider's query parameters.
type OAuthRequest struct {
	Provider string `path:"provider" json:"-"`
	State    string `query:"state" json:"-"`
	Code     string `query:"code" json:"-"`
	Error    string `query:"error" json:"-"`
}

// SessionView is the browser's auth state.
type SessionView struct {
	Loading       bool             `json:"loading"`
	Authenticated bool             `json:"authenticated"`
	Session       *session.Session `json:"session,omitempty"`
}

// Notice is the flash left for the login page by a failed OAuth callback.
type Notice struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *AuthService) login(ctx handler.Context, req CredentialsRequest) handler.Response {
	return s.submit(ctx, authform.ModeLogin, req)
}

func (s *AuthService) signup(ctx handler.Context, req CredentialsRequest) handler.Response {
	return s.submit(ctx, authform.ModeSignup, req)
}

func (s *AuthService) submit(ctx handler.Context, mode authform.Mode, req CredentialsRequest) handler.Response {
	resolver, ok := session.ResolverFromContext(ctx)
	if !ok {
		return handler.Error(handler.ErrInternalServerError.Wrap(ErrNoBrowserSession))
	}

	form := authform.New(resolver,
		authform.WithMode(mode),
		authform.WithForm(authform.Form{Email: req.Email, Password: req.Password, Name: req.Name}),
		authform.WithLogger(s.logger),
	)
	out, err := form.Submit(ctx)
	if errors.Is(err, authform.ErrSubmitInProgress) {
		return handler.Error(handler.ErrConflict.Wrap(err))
	}
	if err != nil {
		return handler.Error(err)
	}
	if out.Invalid() {
		return outcomeFailure(out)
	}

	s.observer.ObserveAuth(mode.String(), out.Success, out.Code)
	action := audit.ActionSignIn
	if mode == authform.ModeSignup {
		action = audit.ActionSignUp
	}
	record(ctx, s.auditor, s.logger, action, out.Success, out.Code,
		audit.WithUser(subjectOf(resolver)),
		audit.WithMetadata("provider", identity.ProviderPassword.String()),
	)
	if !out.Success {
		return outcomeFailure(out)
	}
	if err := s.rotate(ctx); err != nil {
		return handler.Error(err)
	}
	return handler.JSON(viewOf(resolver))
}

func (s *AuthService) oauthStart(ctx handler.Context, req OAuthRequest) handler.Response {
	resolver, ok := session.ResolverFromContext(ctx)
	if !ok {
		return handler.Error(handler.ErrInternalServerError.Wrap(ErrNoBrowserSession))
	}

	provider := identity.ParseProvider(req.Provider)
	if provider == identity.ProviderLinkedIn {
		s.observer.ObserveAuth(provider.String(), false, string(identity.CodeNotSupported))
		return failure(string(identity.CodeNotSupported), authform.MsgLinkedInDisabled, nil)
	}

	u, res := resolver.OAuthURL(ctx, provider)
	if !res.Success {
		s.observer.ObserveAuth(provider.String(), false, res.Code)
		return resultFailure(res)
	}
	return handler.RedirectWithCode(u, http.StatusFound)
}

// oauthCallback completes the flow in the browser that started it. Failures
// go back to the login page with a Notice flash instead of a JSON body,
// since the browser arrives here by navigation.
func (s *AuthService) oauthCallback(ctx handler.Context, req OAuthRequest) handler.Response {
	resolver, ok := session.ResolverFromContext(ctx)
	if !ok {
		return handler.Error(handler.ErrInternalServerError.Wrap(ErrNoBrowserSession))
	}

	provider := identity.ParseProvider(req.Provider)
	form := authform.New(resolver, authform.WithLogger(s.logger))
	out, err := form.OAuth(ctx, provider, identity.Callback{State: req.State, Code: req.Code, Error: req.Error})
	if err != nil {
		return handler.Error(err)
	}

	s.observer.ObserveAuth(provider.String(), out.Success, out.Code)
	record(ctx, s.auditor, s.logger, audit.ActionOAuth, out.Success, out.Code,
		audit.WithUser(subjectOf(resolver)),
		audit.WithMetadata("provider", provider.String()),
	)
	if out.Success {
		if err := s.rotate(ctx); err != nil {
			return handler.Error(err)
		}
		return handler.RedirectWithCode(guard.DashboardPath, http.StatusFound)
	}

	if err := s.cookies.SetFlash(ctx.ResponseWriter(), flashKey, Notice{Code: out.Code, Message: out.FormError()}); err != nil {
		s.logger.ErrorContext(ctx, "failed to set oauth flash",
			logger.Error(err),
			logger.Component("account"),
		)
	}
	return handler.RedirectWithCode(guard.LoginPath, http.StatusFound)
}

func (s *AuthService) logout(ctx handler.Context, _ struct{}) handler.Response {
	resolver, ok := session.ResolverFromContext(ctx)
	if !ok {
		return handler.Error(handler.ErrInternalServerError.Wrap(ErrNoBrowserSession))
	}
	subject := subjectOf(resolver)
	res := resolver.SignOut(ctx)
	record(ctx, s.auditor, s.logger, audit.ActionSignOut, res.Success, res.Code, audit.WithUser(subject))
	if !res.Success {
		return resultFailure(res)
	}
	view := viewOf(resolver)
	if s.rotator != nil {
		if err := s.rotator.End(ctx.ResponseWriter(), ctx.Request()); err != nil {
			s.logger.ErrorContext(ctx, "failed to end browser session",
				logger.Error(err),
				logger.Component("account"),
			)
		}
	}
	return handler.JSON(view)
}

func (s *AuthService) current(ctx handler.Context, _ struct{}) handler.Response {
	resolver, ok := session.ResolverFromContext(ctx)
	if !ok {
		return handler.Error(handler.ErrInternalServerError.Wrap(ErrNoBrowserSession))
	}
	return handler.JSON(viewOf(resolver))
}

// flash returns and clears the pending Notice, or 204 when there is none.
func (s *AuthService) flash(ctx handler.Context, _ struct{}) handler.Response {
	var n Notice
	err := s.cookies.GetFlash(ctx.ResponseWriter(), ctx.Request(), flashKey, &n)
	switch {
	case errors.Is(err, cookie.ErrCookieNotFound):
		return handler.Empty()
	case err != nil:
		s.logger.WarnContext(ctx, "discarding unreadable flash",
			logger.Error(err),
			logger.Component("account"),
		)
		return handler.Empty()
	}
	return handler.JSON(n)
}

// rotate moves the signed-in resolver to a new browser session id so an id
// known before sign-in cannot reach the account.
func (s *AuthService) rotate(ctx handler.Context) error {
	if s.rotator == nil {
		return nil
	}
	if _, err := s.rotator.Rotate(ctx.ResponseWriter(), ctx.Request()); err != nil {
		s.logger.ErrorContext(ctx, "failed to rotate browser session",
			logger.Error(err),
			logger.Component("account"),
		)
		return handler.ErrInternalServerError.Wrap(err)
	}
	return nil
}

func subjectOf(r *session.Resolver) string {
	if sess := r.Session(); sess != nil {
		return sess.SubjectID
	}
	return ""
}

func viewOf(r *session.Resolver) SessionView {
	sess := r.Session()
	return SessionView{
		Loading:       r.Loading(),
		Authenticated: sess.IsAuthenticated(),
		Session:       sess,
	}
}
