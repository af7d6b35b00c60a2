package moderation

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pressroom/pressroom/internal/access"
	"github.com/pressroom/pressroom/internal/shared"
	"github.com/pressroom/pressroom/internal/view"
)

// QueuePath is the web path of the pending queue.
const QueuePath = "/admin/comments/pending"

// Handler serves the moderator pages.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	guard     access.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, guard access.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, guard: guard}
}

// MountRoutes registers routes under /admin/comments.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.Require(access.ActionCommentPending)).Get("/pending", h.pending)
	r.Post("/{id}/approve", h.decide(VerdictApprove))
	r.Post("/{id}/reject", h.decide(VerdictReject))
}

type pendingPageData struct {
	view.Pager
	Comments []PendingComment
}

func (h *Handler) pending(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.Pending(r.Context(), shared.ParsePageRequest(r.URL.Query()))
	if err != nil {
		h.logger.Error("list pending comments", slog.Any("error", err))
		h.templates.RenderError(w, r, http.StatusInternalServerError, shared.UserSafeMessage(err))
		return
	}
	h.templates.Page(w, r, http.StatusOK, "pages/admin_pending.html", "Pending comments", pendingPageData{
		Pager:    view.Pager{Pagination: page.Pagination},
		Comments: page.Comments,
	})
}

func (h *Handler) decide(verdict Verdict) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := access.IdentityFromContext(r.Context())
		out, err := h.service.Decide(r.Context(), id, chi.URLParam(r, "id"), verdict)
		if err != nil {
			h.guard.Fail(w, r, err)
			return
		}
		if !out.Decision.Allowed {
			h.guard.Deny(w, r, out.Decision)
			return
		}
		message := "Comment approved"
		if out.State == StateRejected {
			message = "Comment rejected"
		}
		shared.AddFlash(r.Context(), "success", message)
		http.Redirect(w, r, QueuePath, http.StatusSeeOther)
	}
}
