package content

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pressroom/pressroom/internal/access"
	"github.com/pressroom/pressroom/internal/shared"
	"github.com/pressroom/pressroom/internal/view"
)

// PagesHandler serves the home page and the personal dashboard.
type PagesHandler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	guard     access.Middleware
}

// NewPagesHandler constructs a PagesHandler.
func NewPagesHandler(logger *slog.Logger, service *Service, templates *view.Engine, guard access.Middleware) *PagesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PagesHandler{logger: logger, service: service, templates: templates, guard: guard}
}

// MountRoutes registers / and /dashboard.
func (h *PagesHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.home)
	r.With(h.guard.Authenticated()).Get("/dashboard", h.dashboard)
}

func (h *PagesHandler) home(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Latest(r.Context(), shared.ParsePageRequest(r.URL.Query()))
	if err != nil {
		h.logger.Error("home listing", slog.Any("error", err))
		h.guard.Fail(w, r, err)
		return
	}
	h.templates.Page(w, r, http.StatusOK, "pages/home.html", "Latest", listPageData{
		Pager: view.Pager{Pagination: res.Pagination},
		Base:  BasePath(access.KindPost),
		Items: res.Items,
	})
}

func (h *PagesHandler) dashboard(w http.ResponseWriter, r *http.Request) {
	uid, _ := access.IdentityFromContext(r.Context()).UserID()
	page := shared.ParsePageRequest(r.URL.Query())
	page.Limit = shared.MaxPerPage
	res, err := h.service.ListByAuthor(r.Context(), uid, page)
	if err != nil {
		h.logger.Error("dashboard listing", slog.Any("error", err))
		h.guard.Fail(w, r, err)
		return
	}
	h.templates.Page(w, r, http.StatusOK, "pages/dashboard.html", "Dashboard", map[string]any{"Items": res.Items})
}
