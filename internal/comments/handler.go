package comments

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pressroom/pressroom/internal/access"
	"github.com/pressroom/pressroom/internal/shared"
)

// Handler serves comment form posts on item pages.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     access.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, guard access.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, guard: guard, validator: shared.NewValidator()}
}

// MountRoutes registers comment routes below an item router of kind.
func (h *Handler) MountRoutes(r chi.Router, kind access.Kind) {
	r.With(h.guard.Require(access.ActionCommentCreate)).Post("/{id}/comments", h.create(kind))
	r.With(h.guard.RequireRef(access.ActionCommentDelete, access.KindComment, "commentID")).
		Post("/{id}/comments/{commentID}/delete", h.delete(kind))
}

func (h *Handler) create(kind access.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		parent := chi.URLParam(r, "id")
		if _, ok := access.ParseID(parent); !ok {
			h.guard.Deny(w, r, access.Deny(access.InvalidReference))
			return
		}
		back := itemPath(kind, parent)
		in := Input{ContentID: parent, Text: r.PostFormValue("text")}
		if err := shared.Validate(h.validator, in); err != nil {
			var verr *shared.ValidationError
			if errors.As(err, &verr) {
				shared.AddFlash(r.Context(), "error", "Comment: "+verr.Fields["text"])
				http.Redirect(w, r, back, http.StatusSeeOther)
				return
			}
			h.guard.Fail(w, r, err)
			return
		}
		uid, _ := access.IdentityFromContext(r.Context()).UserID()
		if _, err := h.service.Create(r.Context(), kind, uid, in); err != nil {
			h.fail(w, r, err)
			return
		}
		shared.AddFlash(r.Context(), "success", "Thanks! Your comment is awaiting moderation")
		http.Redirect(w, r, back, http.StatusSeeOther)
	}
}

func (h *Handler) delete(kind access.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parent, ok := access.ParseID(chi.URLParam(r, "id"))
		if !ok {
			h.guard.Deny(w, r, access.Deny(access.InvalidReference))
			return
		}
		commentID, _ := access.ParseID(chi.URLParam(r, "commentID"))
		uid, _ := access.IdentityFromContext(r.Context()).UserID()
		if err := h.service.Delete(r.Context(), uid, commentID, &parent); err != nil {
			h.fail(w, r, err)
			return
		}
		shared.AddFlash(r.Context(), "success", "Comment deleted")
		http.Redirect(w, r, itemPath(kind, parent.String()), http.StatusSeeOther)
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, shared.ErrNotFound) {
		h.guard.Deny(w, r, access.Deny(access.NotFound))
		return
	}
	h.logger.Error("comment request", slog.String("path", r.URL.Path), slog.Any("error", err))
	h.guard.Fail(w, r, err)
}

func itemPath(kind access.Kind, id string) string {
	if kind == access.KindNews {
		return "/news/" + id
	}
	return "/posts/" + id
}
