package access

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pressroom/pressroom/internal/platform/httpx"
)

// PageRenderer renders the error page on the web surface.
type PageRenderer interface {
	RenderError(w http.ResponseWriter, r *http.Request, status int, message string)
}

// Middleware wires access decisions into HTTP handlers.
type Middleware struct {
	Engine  *Engine
	Logger  *slog.Logger
	Surface Surface
	Pages   PageRenderer
}

// Authenticated requires an authenticated identity.
func (m Middleware) Authenticated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := m.Engine.RequireAuthenticated(IdentityFromContext(r.Context()))
			if !d.Allowed {
				m.Deny(w, r, d)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Require guards a route with an action that does not target a resource.
func (m Middleware) Require(action Action) func(http.Handler) http.Handler {
	return m.guard(action, func(*http.Request) *ResourceRef { return nil })
}

// RequireRef guards a route whose target resource id is the chi URL parameter param.
func (m Middleware) RequireRef(action Action, kind Kind, param string) func(http.Handler) http.Handler {
	return m.guard(action, func(r *http.Request) *ResourceRef {
		ref := Ref(kind, chi.URLParam(r, param))
		return &ref
	})
}

func (m Middleware) guard(action Action, refFn func(*http.Request) *ResourceRef) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := m.Engine.Evaluate(r.Context(), action, IdentityFromContext(r.Context()), refFn(r))
			if err != nil {
				m.Fail(w, r, err)
				return
			}
			if !d.Allowed {
				m.Deny(w, r, d)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Deny writes the surface outcome for a denied decision.
func (m Middleware) Deny(w http.ResponseWriter, r *http.Request, d Decision) {
	out := Report(d.Reason, m.Surface)
	if m.Surface == SurfaceAPI {
		httpx.Error(w, out.Status, out.Message)
		return
	}
	if out.IsRedirect() {
		location := out.Redirect
		if d.Reason == Unauthenticated && r.Method == http.MethodGet {
			if next := SanitizeNext(r.URL.RequestURI()); next != "" {
				location += "?next=" + url.QueryEscape(next)
			}
		}
		http.Redirect(w, r, location, out.Status)
		return
	}
	m.renderPage(w, r, out)
}

// Fail writes the outcome for an error that prevented a decision.
func (m Middleware) Fail(w http.ResponseWriter, r *http.Request, err error) {
	if m.Logger != nil {
		m.Logger.Error("access check failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	out := ReportUnavailable(m.Surface)
	if m.Surface == SurfaceAPI {
		httpx.Error(w, out.Status, out.Message)
		return
	}
	m.renderPage(w, r, out)
}

func (m Middleware) renderPage(w http.ResponseWriter, r *http.Request, out Outcome) {
	if m.Pages == nil {
		http.Error(w, out.Message, out.Status)
		return
	}
	m.Pages.RenderError(w, r, out.Status, out.Message)
}

// SanitizeNext returns next when it is a safe local redirect target, otherwise "".
func SanitizeNext(next string) string {
	next = strings.TrimSpace(next)
	if next == "" || len(next) > 2048 {
		return ""
	}
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return ""
	}
	if u.Path == LoginPath {
		return ""
	}
	return next
}
