package comments

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/pressroom/pressroom/internal/access"
	"github.com/pressroom/pressroom/internal/platform/httpx"
	"github.com/pressroom/pressroom/internal/shared"
)

// APIHandler serves /api/comments.
type APIHandler struct {
	logger    *slog.Logger
	service   *Service
	guard     access.Middleware
	validator *validator.Validate
}

// NewAPIHandler constructs an APIHandler.
func NewAPIHandler(logger *slog.Logger, service *Service, guard access.Middleware) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIHandler{logger: logger, service: service, guard: guard, validator: shared.NewValidator()}
}

// MountRoutes registers comment API routes.
func (h *APIHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/search", h.search)
	r.With(h.guard.Require(access.ActionCommentCreate)).Post("/", h.create)
	r.With(h.guard.RequireRef(access.ActionCommentUpdate, access.KindComment, "id")).Put("/{id}", h.update)
	r.With(h.guard.RequireRef(access.ActionCommentDelete, access.KindComment, "id")).Delete("/{id}", h.delete)
}

func (h *APIHandler) create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := shared.Validate(h.validator, in); err != nil {
		shared.RespondValidation(w, err)
		return
	}
	uid, _ := access.IdentityFromContext(r.Context()).UserID()
	cm, err := h.service.Create(r.Context(), "", uid, in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "Comment submitted for moderation", cm)
}

func (h *APIHandler) list(w http.ResponseWriter, r *http.Request) {
	var contentID *uuid.UUID
	if raw := r.URL.Query().Get("postId"); raw != "" {
		id, ok := access.ParseID(raw)
		if !ok {
			h.guard.Deny(w, r, access.Deny(access.InvalidReference))
			return
		}
		contentID = &id
	}
	page, err := h.service.ListApproved(r.Context(), contentID, shared.ParsePageRequest(r.URL.Query()))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Comments fetched", page)
}

func (h *APIHandler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.service.Search(r.Context(), q.Get("q"), shared.ParsePageRequest(q))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Search results fetched", page)
}

func (h *APIHandler) update(w http.ResponseWriter, r *http.Request) {
	id, _ := access.ParseID(chi.URLParam(r, "id"))
	var in UpdateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := shared.Validate(h.validator, in); err != nil {
		shared.RespondValidation(w, err)
		return
	}
	uid, _ := access.IdentityFromContext(r.Context()).UserID()
	cm, err := h.service.Update(r.Context(), uid, id, in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Comment updated", cm)
}

func (h *APIHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, _ := access.ParseID(chi.URLParam(r, "id"))
	uid, _ := access.IdentityFromContext(r.Context()).UserID()
	if err := h.service.Delete(r.Context(), uid, id, nil); err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Comment deleted", map[string]string{"id": id.String()})
}

func (h *APIHandler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *shared.ValidationError
	switch {
	case errors.As(err, &verr):
		shared.RespondValidation(w, err)
	case errors.Is(err, shared.ErrNotFound):
		h.guard.Deny(w, r, access.Deny(access.NotFound))
	default:
		h.logger.Error("comment api", slog.String("path", r.URL.Path), slog.Any("error", err))
		h.guard.Fail(w, r, err)
	}
}
