package app

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pressroom/pressroom/internal/access"
	"github.com/pressroom/pressroom/internal/auth"
	"github.com/pressroom/pressroom/internal/comments"
	"github.com/pressroom/pressroom/internal/content"
	"github.com/pressroom/pressroom/internal/moderation"
	"github.com/pressroom/pressroom/internal/observability"
	"github.com/pressroom/pressroom/internal/platform/httpx"
	"github.com/pressroom/pressroom/internal/shared"
	"github.com/pressroom/pressroom/internal/users"
	"github.com/pressroom/pressroom/jobs"
	"github.com/pressroom/pressroom/web"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Tokens         TokenParser
	Metrics        *observability.Metrics

	PagesHandler      *content.PagesHandler
	AuthHandler       *auth.Handler
	PostsHandler      *content.Handler
	NewsHandler       *content.Handler
	CommentsHandler   *comments.Handler
	ModerationHandler *moderation.Handler
	AdminHandler      *users.Handler

	AuthAPI       *auth.APIHandler
	PostsAPI      *content.APIHandler
	NewsAPI       *content.APIHandler
	CategoriesAPI *content.CategoryHandler
	CommentsAPI   *comments.APIHandler
	ModerationAPI *moderation.APIHandler
	UsersAPI      *users.APIHandler

	JobHandler   *jobs.Handler
	HealthChecks map[string]HealthCheck
}

// NewRouter constructs the chi.Router with the web, API and ops routes.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()
	mwCfg := MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}
	for _, mw := range MiddlewareStack(mwCfg) {
		r.Use(mw)
	}

	r.Get("/healthz", healthHandler(params.Logger, params.HealthChecks))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	r.Route("/api", func(r chi.Router) {
		for _, mw := range APIMiddleware(mwCfg, params.Tokens) {
			r.Use(mw)
		}
		r.Route("/auth", params.AuthAPI.MountRoutes)
		r.Route("/posts", params.PostsAPI.MountRoutes)
		r.Route("/news", params.NewsAPI.MountRoutes)
		r.Route("/categories", params.CategoriesAPI.MountRoutes)
		r.Route("/comments", func(r chi.Router) {
			params.CommentsAPI.MountRoutes(r)
			params.ModerationAPI.MountRoutes(r)
		})
		r.Route("/users", params.UsersAPI.MountRoutes)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			httpx.Error(w, http.StatusNotFound, "route not found")
		})
	})

	r.Group(func(r chi.Router) {
		for _, mw := range WebMiddleware(mwCfg) {
			r.Use(mw)
		}
		params.PagesHandler.MountRoutes(r)
		params.AuthHandler.MountRoutes(r)
		r.Route(content.BasePath(access.KindPost), func(r chi.Router) {
			params.PostsHandler.MountRoutes(r)
			params.CommentsHandler.MountRoutes(r, access.KindPost)
		})
		r.Route(content.BasePath(access.KindNews), func(r chi.Router) {
			params.NewsHandler.MountRoutes(r)
			params.CommentsHandler.MountRoutes(r, access.KindNews)
		})
		r.Route("/admin", func(r chi.Router) {
			params.AdminHandler.MountRoutes(r)
			r.Route("/comments", params.ModerationHandler.MountRoutes)
		})
	})

	return r
}

type healthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(logger *slog.Logger, checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		out := healthStatus{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.Warn("health check failed", slog.String("check", name), slog.Any("error", err))
				out.Checks[name] = "down"
				out.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			out.Checks[name] = "up"
		}
		httpx.JSON(w, status, out)
	}
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
