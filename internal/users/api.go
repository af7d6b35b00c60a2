package users

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pressroom/pressroom/internal/access"
	"github.com/pressroom/pressroom/internal/platform/httpx"
	"github.com/pressroom/pressroom/internal/shared"
)

// APIHandler serves /api/users.
type APIHandler struct {
	logger  *slog.Logger
	service *Service
	guard   access.Middleware
}

// NewAPIHandler constructs an APIHandler.
func NewAPIHandler(logger *slog.Logger, service *Service, guard access.Middleware) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIHandler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers user API routes.
func (h *APIHandler) MountRoutes(r chi.Router) {
	r.With(h.guard.Require(access.ActionUserList)).Get("/", h.list)
	r.With(h.guard.RequireRef(access.ActionUserDelete, access.KindUser, "id")).Delete("/{id}", h.delete)
}

func (h *APIHandler) list(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("api list users", slog.Any("error", err))
		h.guard.Fail(w, r, err)
		return
	}
	if users == nil {
		users = []User{}
	}
	httpx.OK(w, http.StatusOK, "Users fetched", users)
}

func (h *APIHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, _ := access.ParseID(chi.URLParam(r, "id"))
	uid, _ := access.IdentityFromContext(r.Context()).UserID()
	if err := h.service.DeleteUser(r.Context(), uid, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.guard.Deny(w, r, access.Deny(access.NotFound))
			return
		}
		h.logger.Error("api delete user", slog.Any("error", err))
		h.guard.Fail(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, "User deleted", map[string]string{"id": id.String()})
}
