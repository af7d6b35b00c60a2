package content

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pressroom/pressroom/internal/access"
	"github.com/pressroom/pressroom/internal/comments"
	"github.com/pressroom/pressroom/internal/shared"
	"github.com/pressroom/pressroom/internal/view"
)

// Handler serves the web pages of one content kind.
type Handler struct {
	kind      access.Kind
	logger    *slog.Logger
	service   *Service
	comments  *comments.Service
	templates *view.Engine
	engine    *access.Engine
	guard     access.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler for kind.
func NewHandler(kind access.Kind, logger *slog.Logger, service *Service, commentSvc *comments.Service, templates *view.Engine, engine *access.Engine, guard access.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		kind:      kind,
		logger:    logger,
		service:   service,
		comments:  commentSvc,
		templates: templates,
		engine:    engine,
		guard:     guard,
		validator: shared.NewValidator(),
	}
}

// MountRoutes registers item routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(access.ActionContentCreate))
		r.Get("/new", h.showCreate)
		r.Post("/", h.create)
	})
	r.Get("/{id}", h.show)
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRef(access.ActionContentUpdate, h.kind, "id"))
		r.Get("/{id}/edit", h.showEdit)
		r.Post("/{id}/edit", h.update)
	})
	r.With(h.guard.RequireRef(access.ActionContentDelete, h.kind, "id")).Post("/{id}/delete", h.delete)
}

type listPageData struct {
	view.Pager
	Base  string
	Items []Item
}

type formPageData struct {
	Action     string
	Form       Input
	Categories []Category
	Errors     map[string]string
}

type showPageData struct {
	Item      *Item
	Comments  []comments.Comment
	CanManage bool
	Errors    map[string]string
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := shared.ParsePageRequest(q)
	var (
		res Result
		err error
	)
	if query := q.Get("q"); query != "" {
		res, err = h.service.Search(r.Context(), h.kind, query, page)
	} else {
		res, err = h.service.List(r.Context(), h.kind, page)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.templates.Page(w, r, http.StatusOK, "pages/home.html", Label(h.kind), listPageData{
		Pager: view.Pager{Pagination: res.Pagination, Query: res.Query},
		Base:  BasePath(h.kind),
		Items: res.Items,
	})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := access.ParseID(chi.URLParam(r, "id"))
	if !ok {
		h.guard.Deny(w, r, access.Deny(access.InvalidReference))
		return
	}
	item, err := h.service.Get(r.Context(), h.kind, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	approved, err := h.comments.ApprovedFor(r.Context(), item.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	identity := access.IdentityFromContext(r.Context())
	canManage := h.engine.CheckOwnerOrRole(identity, item.Ownership(), h.engine.Policy().RolesFor(access.ActionContentUpdate)).Allowed
	h.templates.Page(w, r, http.StatusOK, "pages/content_show.html", item.Title, showPageData{
		Item:      item,
		Comments:  approved,
		CanManage: canManage,
	})
}

func (h *Handler) showCreate(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, BasePath(h.kind), Input{}, nil)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.parseForm(w, r)
	if !ok {
		return
	}
	action := BasePath(h.kind)
	if err := shared.Validate(h.validator, in); err != nil {
		h.formError(w, r, action, in, err)
		return
	}
	uid, _ := access.IdentityFromContext(r.Context()).UserID()
	item, err := h.service.Create(r.Context(), h.kind, uid, in)
	if err != nil {
		h.formError(w, r, action, in, err)
		return
	}
	shared.AddFlash(r.Context(), "success", "Published")
	http.Redirect(w, r, item.Path(), http.StatusSeeOther)
}

func (h *Handler) showEdit(w http.ResponseWriter, r *http.Request) {
	id, _ := access.ParseID(chi.URLParam(r, "id"))
	item, err := h.service.Get(r.Context(), h.kind, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	in := Input{Title: item.Title, Content: item.Content, ImageURL: item.ImageURL}
	if item.CategoryID != nil {
		in.CategoryID = item.CategoryID.String()
	}
	h.renderForm(w, r, http.StatusOK, item.Path()+"/edit", in, nil)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, _ := access.ParseID(chi.URLParam(r, "id"))
	in, ok := h.parseForm(w, r)
	if !ok {
		return
	}
	action := BasePath(h.kind) + "/" + id.String() + "/edit"
	if err := shared.Validate(h.validator, in); err != nil {
		h.formError(w, r, action, in, err)
		return
	}
	item, err := h.service.Update(r.Context(), h.kind, id, PatchFrom(in))
	if err != nil {
		h.formError(w, r, action, in, err)
		return
	}
	shared.AddFlash(r.Context(), "success", "Changes saved")
	http.Redirect(w, r, item.Path(), http.StatusSeeOther)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, _ := access.ParseID(chi.URLParam(r, "id"))
	uid, _ := access.IdentityFromContext(r.Context()).UserID()
	if err := h.service.Delete(r.Context(), uid, h.kind, id); err != nil {
		h.fail(w, r, err)
		return
	}
	shared.AddFlash(r.Context(), "success", "Deleted")
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) (Input, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return Input{}, false
	}
	return Input{
		Title:      r.PostFormValue("title"),
		Content:    r.PostFormValue("content"),
		CategoryID: r.PostFormValue("categoryId"),
		ImageURL:   r.PostFormValue("imageUrl"),
	}, true
}

func (h *Handler) formError(w http.ResponseWriter, r *http.Request, action string, in Input, err error) {
	var verr *shared.ValidationError
	switch {
	case errors.As(err, &verr):
		h.renderForm(w, r, http.StatusBadRequest, action, in, verr.Fields)
	case errors.Is(err, shared.ErrNotFound):
		h.renderForm(w, r, http.StatusBadRequest, action, in, map[string]string{"categoryId": "Select a category"})
	default:
		h.fail(w, r, err)
	}
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, status int, action string, in Input, errs map[string]string) {
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if errs == nil {
		errs = map[string]string{}
	}
	title := "New " + string(h.kind)
	if action != BasePath(h.kind) {
		title = "Edit " + string(h.kind)
	}
	h.templates.Page(w, r, status, "pages/content_form.html", title, formPageData{
		Action:     action,
		Form:       in,
		Categories: categories,
		Errors:     errs,
	})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *shared.ValidationError
	switch {
	case errors.As(err, &verr):
		h.templates.RenderError(w, r, http.StatusBadRequest, shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrNotFound):
		h.guard.Deny(w, r, access.Deny(access.NotFound))
	default:
		h.logger.Error("content request", slog.String("path", r.URL.Path), slog.Any("error", err))
		h.guard.Fail(w, r, err)
	}
}
