package moderation

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pressroom/pressroom/internal/access"
	"github.com/pressroom/pressroom/internal/platform/httpx"
	"github.com/pressroom/pressroom/internal/shared"
)

// APIHandler serves the moderation endpoints under /api/comments.
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

// MountRoutes registers the moderation routes.
func (h *APIHandler) MountRoutes(r chi.Router) {
	r.With(h.guard.Require(access.ActionCommentPending)).Get("/pending", h.pending)
	r.Post("/{id}/approve", h.decide(VerdictApprove))
	r.Post("/{id}/reject", h.decide(VerdictReject))
	r.With(h.guard.RequireRef(access.ActionCommentModerate, access.KindComment, "id")).Get("/{id}/history", h.history)
}

type verdictResponse struct {
	ID       string `json:"id"`
	Previous State  `json:"previous"`
	State    State  `json:"state"`
}

func (h *APIHandler) pending(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.Pending(r.Context(), shared.ParsePageRequest(r.URL.Query()))
	if err != nil {
		h.logger.Error("api list pending", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Pending comments fetched", page)
}

func (h *APIHandler) decide(verdict Verdict) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		commentID := chi.URLParam(r, "id")
		out, err := h.service.Decide(r.Context(), access.IdentityFromContext(r.Context()), commentID, verdict)
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
		httpx.OK(w, http.StatusOK, message, verdictResponse{ID: commentID, Previous: out.Previous, State: out.State})
	}
}

func (h *APIHandler) history(w http.ResponseWriter, r *http.Request) {
	id, _ := access.ParseID(chi.URLParam(r, "id"))
	entries, err := h.service.History(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.guard.Deny(w, r, access.Deny(access.NotFound))
			return
		}
		h.logger.Error("api moderation history", slog.Any("error", err))
		h.guard.Fail(w, r, err)
		return
	}
	if entries == nil {
		entries = []LogEntry{}
	}
	httpx.OK(w, http.StatusOK, "Moderation history fetched", entries)
}
