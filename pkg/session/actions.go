package session

import (
	"context"
	"errors"

	"github.com/componenthub/hubauth/pkg/identity"
	"github.com/componenthub/hubauth/pkg/logger"
	"github.com/componenthub/hubauth/pkg/profile"
	"github.com/componenthub/hubauth/pkg/roles"
)

func (r *Resolver) SignInWithEmail(ctx context.Context, email, password string) Result {
	r.markUsed()
	if _, err := r.gateway.SignIn(ctx, email, password); err != nil {
		return r.fail(ctx, "sign-in failed", identity.ProviderPassword, err)
	}
	return OK()
}

func (r *Resolver) SignUpWithEmail(ctx context.Context, email, password, displayName string) Result {
	r.markUsed()
	if _, err := r.gateway.SignUp(ctx, email, password, displayName); err != nil {
		return r.fail(ctx, "sign-up failed", identity.ProviderPassword, err)
	}
	return OK()
}

// OAuthURL starts an OAuth popup flow and returns the consent URL.
func (r *Resolver) OAuthURL(ctx context.Context, provider identity.Provider) (string, Result) {
	r.markUsed()
	starter, ok := r.gateway.(identity.OAuthStarter)
	if !ok {
		return "", failCode(string(identity.CodeNotSupported), "gateway cannot start oauth flows")
	}
	u, err := starter.OAuthURL(ctx, provider)
	if err != nil {
		return "", r.fail(ctx, "oauth start failed", provider, err)
	}
	return u, OK()
}

func (r *Resolver) SignInWithOAuth(ctx context.Context, provider identity.Provider, cb identity.Callback) Result {
	r.markUsed()
	if _, err := r.gateway.SignInWithOAuth(ctx, provider, cb); err != nil {
		return r.fail(ctx, "oauth sign-in failed", provider, err)
	}
	return OK()
}

func (r *Resolver) SignOut(ctx context.Context) Result {
	r.markUsed()
	if err := r.gateway.SignOut(ctx); err != nil {
		return r.fail(ctx, "sign-out failed", "", err)
	}
	return OK()
}

// UpdateUserRole sets the role of subjectID. Only administrators may call it.
// When the target is the current subject the in-memory session changes
// immediately.
func (r *Resolver) UpdateUserRole(ctx context.Context, subjectID string, role roles.Role) Result {
	r.markUsed()
	current := r.Session()
	if !current.IsAdmin() {
		return failCode(CodePermissionDenied, "only administrators can change roles")
	}
	if !role.Valid() {
		return failCode(CodeInvalidArgument, "unknown role "+role.String())
	}
	if subjectID == "" {
		return failCode(CodeInvalidArgument, "empty subject id")
	}

	if _, err := r.store.Get(ctx, subjectID); err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return failCode(CodeNotFound, "no profile for subject "+subjectID)
		}
		return r.storeFailure(ctx, subjectID, err)
	}

	now := r.now().UTC()
	if err := r.store.Set(ctx, subjectID, profile.Fields{Role: &role, UpdatedAt: &now}, true); err != nil {
		return r.storeFailure(ctx, subjectID, err)
	}

	r.ApplyRole(subjectID, role)

	r.logger.InfoContext(ctx, "role updated",
		logger.SubjectID(subjectID),
		logger.Role(role),
		logger.Group("by", logger.SubjectID(current.SubjectID)),
		logger.Component("session"),
	)
	return OK()
}

// ApplyRole changes the in-memory role when subjectID is the current
// subject and reports whether it did. The profile record is not touched.
func (r *Resolver) ApplyRole(subjectID string, role roles.Role) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil || r.session.SubjectID != subjectID {
		return false
	}
	s := *r.session
	s.Role = role
	r.session = &s
	return true
}

func (r *Resolver) fail(ctx context.Context, msg string, provider identity.Provider, err error) Result {
	res := Fail(err)
	r.logger.InfoContext(ctx, msg,
		logger.ErrorCode(res.Code),
		logger.Provider(provider.String()),
		logger.Error(err),
		logger.Component("session"),
	)
	return res
}

func (r *Resolver) storeFailure(ctx context.Context, subjectID string, err error) Result {
	r.logger.ErrorContext(ctx, "profile store failure",
		logger.SubjectID(subjectID),
		logger.Error(err),
		logger.Component("session"),
	)
	return failCode(CodeUnavailable, err.Error())
}
