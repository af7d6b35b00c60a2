package users

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pressroom/pressroom/internal/access"
	"github.com/pressroom/pressroom/internal/content"
	"github.com/pressroom/pressroom/internal/shared"
	"github.com/pressroom/pressroom/internal/view"
)

// DashboardPath is the web path of the admin dashboard.
const DashboardPath = "/admin/dashboard"

// ContentAdmin is the content management the admin pages need.
type ContentAdmin interface {
	ListRecent(ctx context.Context, limit int) ([]content.Item, error)
	Delete(ctx context.Context, actorID string, kind access.Kind, id uuid.UUID) error
}

// Handler manages the admin pages.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	content   ContentAdmin
	templates *view.Engine
	guard     access.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, contentAdmin ContentAdmin, templates *view.Engine, guard access.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, content: contentAdmin, templates: templates, guard: guard}
}

// MountRoutes registers routes under /admin.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.Require(access.ActionAdminDashboard)).Get("/dashboard", h.dashboard)
	r.With(h.guard.RequireRef(access.ActionUserDelete, access.KindUser, "id")).Post("/users/{id}/delete", h.deleteUser)
	r.With(h.guard.RequireRef(access.ActionContentDelete, access.KindPost, "id")).Post("/posts/{id}/delete", h.deleteContent(access.KindPost))
	r.With(h.guard.RequireRef(access.ActionContentDelete, access.KindNews, "id")).Post("/news/{id}/delete", h.deleteContent(access.KindNews))
}

type dashboardData struct {
	Users []User
	Items []content.Item
	Error string
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	data := dashboardData{Error: r.URL.Query().Get("error")}
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		users, err := h.service.ListUsers(ctx)
		data.Users = users
		return err
	})
	g.Go(func() error {
		items, err := h.content.ListRecent(ctx, shared.MaxPerPage)
		data.Items = items
		return err
	})
	if err := g.Wait(); err != nil {
		h.logger.Error("admin dashboard", slog.Any("error", err))
		h.guard.Fail(w, r, err)
		return
	}
	h.templates.Page(w, r, http.StatusOK, "pages/admin_dashboard.html", "Administration", data)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, _ := access.ParseID(chi.URLParam(r, "id"))
	uid, _ := access.IdentityFromContext(r.Context()).UserID()
	if err := h.service.DeleteUser(r.Context(), uid, id); err != nil {
		h.fail(w, r, err)
		return
	}
	shared.AddFlash(r.Context(), "success", "User deleted")
	http.Redirect(w, r, DashboardPath, http.StatusSeeOther)
}

func (h *Handler) deleteContent(kind access.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := access.ParseID(chi.URLParam(r, "id"))
		uid, _ := access.IdentityFromContext(r.Context()).UserID()
		if err := h.content.Delete(r.Context(), uid, kind, id); err != nil {
			h.fail(w, r, err)
			return
		}
		shared.AddFlash(r.Context(), "success", "Deleted")
		http.Redirect(w, r, DashboardPath, http.StatusSeeOther)
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, shared.ErrNotFound) {
		h.guard.Deny(w, r, access.Deny(access.NotFound))
		return
	}
	h.logger.Error("admin request", slog.String("path", r.URL.Path), slog.Any("error", err))
	h.guard.Fail(w, r, err)
}
