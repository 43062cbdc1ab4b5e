package account

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/componenthub/hubauth/handler"
	"github.com/componenthub/hubauth/pkg/audit"
	"github.com/componenthub/hubauth/pkg/binder"
	"github.com/componenthub/hubauth/pkg/guard"
	"github.com/componenthub/hubauth/pkg/logger"
	"github.com/componenthub/hubauth/pkg/profile"
	"github.com/componenthub/hubauth/pkg/roles"
	"github.com/componenthub/hubauth/pkg/session"
)

// RoleApplier pushes a role change to every live session of the subject.
type RoleApplier interface {
	ApplyRole(subjectID string, role roles.Role) int
}

// AdminService serves the admin page and user role management. Every route
// requires the admin role.
type AdminService struct {
	store        profile.Store
	applier      RoleApplier
	auditor      Auditor
	guardOpts    []guard.Option
	logger       *slog.Logger
	errorHandler handler.ErrorHandler[handler.Context]
}

type AdminOption func(*AdminService)

func WithRoleApplier(a RoleApplier) AdminOption {
	return func(s *AdminService) { s.applier = a }
}

func WithAdminAuditor(a Auditor) AdminOption {
	return func(s *AdminService) { s.auditor = a }
}

func WithAdminGuard(opts ...guard.Option) AdminOption {
	return func(s *AdminService) { s.guardOpts = append(s.guardOpts, opts...) }
}

func WithAdminLogger(l *slog.Logger) AdminOption {
	return func(s *AdminService) { s.logger = l }
}

func NewAdminService(store profile.Store, opts ...AdminOption) *AdminService {
	s := &AdminService{store: store, logger: logger.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	s.errorHandler = handler.NewErrorHandler(s.logger)
	return s
}

func (s *AdminService) Handle() http.Handler {
	r := chi.NewRouter()
	r.Use(guard.Require(roles.Admin, s.guardOpts...))

	r.Get("/", handler.Wrap(s.page,
		handler.WithErrorHandler[handler.Context, struct{}](s.errorHandler),
	))
	r.Get("/users", handler.Wrap(s.users,
		handler.WithErrorHandler[handler.Context, struct{}](s.errorHandler),
	))
	r.Put("/users/{id}/role", handler.Wrap(s.setRole,
		handler.WithBinders[handler.Context, RoleRequest](binder.Path(chi.URLParam), binder.JSON()),
		handler.WithErrorHandler[handler.Context, RoleRequest](s.errorHandler),
	))
	return r
}

// RoleRequest changes the role of the subject in the path.
type RoleRequest struct {
	SubjectID string `path:"id" json:"-"`
	Role      string `json:"role"`
}

// RoleView confirms a role change.
type RoleView struct {
	SubjectID string     `json:"id"`
	Role      roles.Role `json:"role"`
	Sessions  int        `json:"sessions_updated"`
}

func (s *AdminService) page(ctx handler.Context, _ struct{}) handler.Response {
	total, err := s.store.Count(ctx)
	if err != nil {
		return handler.Error(handler.ErrServiceUnavailable.Wrap(err))
	}
	return handler.JSON(PageView{
		Page:    "admin",
		Session: session.FromContext(ctx),
		Meta:    map[string]any{"users": total},
	})
}

func (s *AdminService) users(ctx handler.Context, _ struct{}) handler.Response {
	records, err := s.store.List(ctx)
	if err != nil {
		return handler.Error(handler.ErrServiceUnavailable.Wrap(err))
	}
	return handler.JSON(records, handler.WithJSONMeta(map[string]any{"total": len(records)}))
}

func (s *AdminService) setRole(ctx handler.Context, req RoleRequest) handler.Response {
	resolver, ok := session.ResolverFromContext(ctx)
	if !ok {
		return handler.Error(handler.ErrInternalServerError.Wrap(ErrNoBrowserSession))
	}

	role, err := roles.Parse(req.Role)
	if err != nil {
		role = roles.Role(req.Role)
	}
	res := resolver.UpdateUserRole(ctx, req.SubjectID, role)
	record(ctx, s.auditor, s.logger, audit.ActionRoleChange, res.Success, res.Code,
		audit.WithResource("user", req.SubjectID),
		audit.WithMetadata("role", string(role)),
	)
	if !res.Success {
		return resultFailure(res)
	}

	view := RoleView{SubjectID: req.SubjectID, Role: role}
	if s.applier != nil {
		view.Sessions = s.applier.ApplyRole(req.SubjectID, role)
	}
	return handler.JSON(view)
}
