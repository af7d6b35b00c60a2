package view

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pressroom/pressroom/internal/access"
	"github.com/pressroom/pressroom/internal/shared"
	"github.com/pressroom/pressroom/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
	csrf      *shared.CSRFManager
	logger    *slog.Logger
}

// Option customises an Engine.
type Option func(*Engine)

// WithCSRF makes Page populate CSRF tokens from the request session.
func WithCSRF(csrf *shared.CSRFManager) Option {
	return func(e *Engine) { e.csrf = csrf }
}

// WithLogger sets the logger used for render failures.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// Viewer describes the signed-in principal for navigation.
type Viewer struct {
	UserID  string
	IsAdmin bool
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	Viewer      *Viewer
	Data        any
}

// NewEngine parses templates at build-time.
func NewEngine(opts ...Option) (*Engine, error) {
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006 15:04")
		},
		"excerpt": func(s string, n int) string {
			r := []rune(strings.TrimSpace(s))
			if len(r) <= n {
				return string(r)
			}
			return string(r[:n]) + "…"
		},
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	e := &Engine{templates: tpl, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	var buf bytes.Buffer
	if err := e.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := buf.WriteTo(w)
	return err
}

// Page renders name with data built from the request session and identity.
func (e *Engine) Page(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	td := e.templateData(r, title, data)
	var buf bytes.Buffer
	if err := e.templates.ExecuteTemplate(&buf, name, td); err != nil {
		e.logger.Error("render template", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// RenderError renders the error page with status.
func (e *Engine) RenderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	e.Page(w, r, status, access.ErrorTemplate, http.StatusText(status), map[string]any{
		"Status":  status,
		"Message": message,
	})
}

func (e *Engine) templateData(r *http.Request, title string, data any) TemplateData {
	td := TemplateData{Title: title, CurrentPath: r.URL.Path, Data: data}
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if e.csrf != nil {
			td.CSRFToken, _ = e.csrf.EnsureToken(r.Context(), sess)
		}
		td.Flash = sess.PopFlash()
	}
	id := access.IdentityFromContext(r.Context())
	if uid, ok := id.UserID(); ok && id.Authenticated() {
		td.Viewer = &Viewer{UserID: uid, IsAdmin: id.HasRole(access.RoleAdmin)}
	}
	return td
}

var _ access.PageRenderer = (*Engine)(nil)

// Pager carries pagination state for listing pages.
type Pager struct {
	Pagination shared.Pagination
	Query      string
}

// PrevPage returns the previous page number.
func (p Pager) PrevPage() int {
	if p.Pagination.Page <= 1 {
		return 1
	}
	return p.Pagination.Page - 1
}

// NextPage returns the next page number.
func (p Pager) NextPage() int {
	return p.Pagination.Page + 1
}
