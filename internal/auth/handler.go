package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pressroom/pressroom/internal/access"
	"github.com/pressroom/pressroom/internal/shared"
	"github.com/pressroom/pressroom/internal/view"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      shared.NewValidator(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Get("/register", h.showRegister)
	r.Post("/register", h.handleRegister)
	r.Post("/logout", h.handleLogout)
}

type loginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginPageData struct {
	Form       loginForm
	Errors     map[string]string
	Next       string
	Registered bool
}

type registerPageData struct {
	Form   RegisterInput
	Errors map[string]string
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	data := loginPageData{
		Errors:     map[string]string{},
		Next:       access.SanitizeNext(r.URL.Query().Get("next")),
		Registered: r.URL.Query().Get("registered") == "true",
	}
	h.templates.Page(w, r, http.StatusOK, "pages/login.html", "Log in", data)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	form := loginForm{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	data := loginPageData{Form: form, Errors: map[string]string{}, Next: access.SanitizeNext(r.PostFormValue("next"))}

	if err := shared.Validate(h.validator, form); err != nil {
		var verr *shared.ValidationError
		if errors.As(err, &verr) {
			data.Errors = verr.Fields
		}
		data.Form.Password = ""
		h.templates.Page(w, r, http.StatusBadRequest, "pages/login.html", "Log in", data)
		return
	}

	user, err := h.service.Authenticate(r.Context(), form.Email, form.Password)
	if err != nil {
		status := http.StatusBadRequest
		if !errors.Is(err, shared.ErrInvalidCredentials) {
			h.logger.Error("authenticate", slog.Any("error", err))
			status = http.StatusInternalServerError
		}
		data.Errors["general"] = shared.UserSafeMessage(err)
		data.Form.Password = ""
		h.templates.Page(w, r, status, "pages/login.html", "Log in", data)
		return
	}

	if sess == nil {
		h.logger.Error("session missing during login")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.sessionManager.Renew(sess)
	sess.SetUser(user.ID.String(), user.Roles)
	h.csrfManager.Rotate(sess)
	sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Welcome back, " + user.Name})
	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, user.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}

	target := data.Next
	if target == "" {
		target = "/dashboard"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) showRegister(w http.ResponseWriter, r *http.Request) {
	h.templates.Page(w, r, http.StatusOK, "pages/register.html", "Register", registerPageData{Errors: map[string]string{}})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := RegisterInput{
		Name:     r.PostFormValue("name"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	data := registerPageData{Form: form, Errors: map[string]string{}}
	data.Form.Password = ""

	if err := shared.Validate(h.validator, form); err != nil {
		var verr *shared.ValidationError
		if errors.As(err, &verr) {
			data.Errors = verr.Fields
		}
		h.templates.Page(w, r, http.StatusBadRequest, "pages/register.html", "Register", data)
		return
	}

	if _, err := h.service.Register(r.Context(), form); err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, shared.ErrEmailTaken):
			data.Errors["email"] = shared.UserSafeMessage(err)
		default:
			h.logger.Error("register", slog.Any("error", err))
			status = http.StatusInternalServerError
			data.Errors["general"] = shared.UserSafeMessage(err)
		}
		h.templates.Page(w, r, status, "pages/register.html", "Register", data)
		return
	}
	http.Redirect(w, r, access.LoginPath+"?registered=true", http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, access.LoginPath, http.StatusSeeOther)
}
