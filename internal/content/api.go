package content

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pressroom/pressroom/internal/access"
	"github.com/pressroom/pressroom/internal/platform/httpx"
	"github.com/pressroom/pressroom/internal/shared"
)

// APIHandler serves the JSON endpoints of one content kind.
type APIHandler struct {
	kind      access.Kind
	logger    *slog.Logger
	service   *Service
	guard     access.Middleware
	validator *validator.Validate
}

// NewAPIHandler constructs an APIHandler for kind.
func NewAPIHandler(kind access.Kind, logger *slog.Logger, service *Service, guard access.Middleware) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIHandler{kind: kind, logger: logger, service: service, guard: guard, validator: shared.NewValidator()}
}

// MountRoutes registers item API routes.
func (h *APIHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.With(h.guard.Require(access.ActionContentListAll)).Get("/list", h.list)
	r.With(h.guard.Require(access.ActionContentSearch)).Get("/search", h.search)
	r.With(h.guard.Require(access.ActionContentCreate)).Post("/add", h.create)
	r.With(h.guard.RequireRef(access.ActionContentUpdate, h.kind, "id")).Put("/update/{id}", h.update)
	r.With(h.guard.RequireRef(access.ActionContentDelete, h.kind, "id")).Delete("/delete/{id}", h.delete)
	r.Get("/{id}", h.get)
}

type createdResponse struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func (h *APIHandler) list(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.List(r.Context(), h.kind, shared.ParsePageRequest(r.URL.Query()))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, Label(h.kind)+" fetched", res)
}

func (h *APIHandler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.service.Search(r.Context(), h.kind, q.Get("q"), shared.ParsePageRequest(q))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Search results fetched", res)
}

func (h *APIHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := access.ParseID(chi.URLParam(r, "id"))
	if !ok {
		h.guard.Deny(w, r, access.Deny(access.InvalidReference))
		return
	}
	item, err := h.service.Get(r.Context(), h.kind, id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Item fetched", item)
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
	item, err := h.service.Create(r.Context(), h.kind, uid, in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusCreated, string(h.kind)+" added successfully", createdResponse{ID: item.ID.String(), Title: item.Title})
}

func (h *APIHandler) update(w http.ResponseWriter, r *http.Request) {
	id, _ := access.ParseID(chi.URLParam(r, "id"))
	var patch Patch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := shared.Validate(h.validator, patch); err != nil {
		shared.RespondValidation(w, err)
		return
	}
	item, err := h.service.Update(r.Context(), h.kind, id, patch)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, string(h.kind)+" updated successfully", item)
}

func (h *APIHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, _ := access.ParseID(chi.URLParam(r, "id"))
	uid, _ := access.IdentityFromContext(r.Context()).UserID()
	if err := h.service.Delete(r.Context(), uid, h.kind, id); err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, string(h.kind)+" deleted successfully", map[string]string{"id": id.String()})
}

func (h *APIHandler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *shared.ValidationError
	switch {
	case errors.As(err, &verr):
		shared.RespondValidation(w, err)
	case errors.Is(err, shared.ErrNotFound):
		httpx.Error(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("content api", slog.String("path", r.URL.Path), slog.Any("error", err))
		h.guard.Fail(w, r, err)
	}
}

// CategoryHandler serves /api/categories.
type CategoryHandler struct {
	logger    *slog.Logger
	service   *Service
	guard     access.Middleware
	validator *validator.Validate
}

// NewCategoryHandler constructs a CategoryHandler.
func NewCategoryHandler(logger *slog.Logger, service *Service, guard access.Middleware) *CategoryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CategoryHandler{logger: logger, service: service, guard: guard, validator: shared.NewValidator()}
}

// MountRoutes registers category routes.
func (h *CategoryHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.With(h.guard.Require(access.ActionCategoryCreate)).Post("/", h.create)
}

func (h *CategoryHandler) list(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		h.logger.Error("list categories", slog.Any("error", err))
		h.guard.Fail(w, r, err)
		return
	}
	if categories == nil {
		categories = []Category{}
	}
	httpx.OK(w, http.StatusOK, "Categories fetched", categories)
}

func (h *CategoryHandler) create(w http.ResponseWriter, r *http.Request) {
	var in CategoryInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := shared.Validate(h.validator, in); err != nil {
		shared.RespondValidation(w, err)
		return
	}
	category, err := h.service.CreateCategory(r.Context(), in)
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			httpx.RespondError(w, err)
			return
		}
		h.logger.Error("create category", slog.Any("error", err))
		h.guard.Fail(w, r, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "Category created", category)
}
