package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/pressroom/pressroom/internal/platform/httpx"
	"github.com/pressroom/pressroom/internal/shared"
)

// APIHandler exposes token based authentication for API clients.
type APIHandler struct {
	logger    *slog.Logger
	service   *Service
	tokens    *TokenIssuer
	validator *validator.Validate
}

// NewAPIHandler constructs an APIHandler.
func NewAPIHandler(logger *slog.Logger, service *Service, tokens *TokenIssuer) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIHandler{logger: logger, service: service, tokens: tokens, validator: shared.NewValidator()}
}

// MountRoutes registers /api/auth routes.
func (h *APIHandler) MountRoutes(r chi.Router) {
	r.Post("/login", h.login)
	r.Post("/register", h.register)
}

// Profile is the public projection of a user.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProfileOf projects user for API responses.
func ProfileOf(user *User) Profile {
	return Profile{ID: user.ID, Name: user.Name, Email: user.Email, Roles: user.Roles, CreatedAt: user.CreatedAt}
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      Profile   `json:"user"`
}

func (h *APIHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginForm
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := shared.Validate(h.validator, req); err != nil {
		shared.RespondValidation(w, err)
		return
	}
	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.Error(w, http.StatusUnauthorized, shared.UserSafeMessage(err))
			return
		}
		h.logger.Error("api authenticate", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	token, expiresAt, err := h.tokens.Issue(user)
	if err != nil {
		h.logger.Error("issue token", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "Login successful", tokenResponse{Token: token, ExpiresAt: expiresAt, User: ProfileOf(user)})
}

func (h *APIHandler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterInput
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := shared.Validate(h.validator, req); err != nil {
		shared.RespondValidation(w, err)
		return
	}
	user, err := h.service.Register(r.Context(), req)
	if err != nil {
		if !errors.Is(err, shared.ErrEmailTaken) {
			h.logger.Error("api register", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "User registered", ProfileOf(user))
}
