package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/componenthub/hubauth/handler"
	"github.com/componenthub/hubauth/pkg/guard"
	"github.com/componenthub/hubauth/pkg/session"
)

// PageView is the payload of a guarded page.
type PageView struct {
	Page    string           `json:"page"`
	Session *session.Session `json:"session"`
	Meta    map[string]any   `json:"meta,omitempty"`
}

// DashboardService serves the page every signed-in user may open.
type DashboardService struct {
	guardOpts []guard.Option
}

func NewDashboardService(opts ...guard.Option) *DashboardService {
	return &DashboardService{guardOpts: opts}
}

func (s *DashboardService) Handle() http.Handler {
	r := chi.NewRouter()
	r.Use(guard.Require("", s.guardOpts...))
	r.Get("/", handler.Wrap(s.dashboard))
	return r
}

func (s *DashboardService) dashboard(ctx handler.Context, _ struct{}) handler.Response {
	return handler.JSON(PageView{Page: "dashboard", Session: session.FromContext(ctx)})
}
