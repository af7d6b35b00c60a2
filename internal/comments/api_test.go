package comments

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressroom/pressroom/internal/access"
)

// ownershipStore answers ownership lookups from the memory repo plus a table
// of item authors.
type ownershipStore struct {
	repo    *memoryRepo
	authors map[uuid.UUID]string
}

func (s *ownershipStore) FindOwnership(_ context.Context, kind access.Kind, id uuid.UUID) (access.Ownership, error) {
	if kind == access.KindComment {
		cm, ok := s.repo.items[id]
		if !ok {
			return access.Ownership{}, access.ErrResourceNotFound
		}
		return access.Ownership{AuthorID: cm.AuthorID.String(), ParentKind: cm.ContentKind, ParentID: cm.ContentID}, nil
	}
	author, ok := s.authors[id]
	if !ok || s.repo.contents[id] != kind {
		return access.Ownership{}, access.ErrResourceNotFound
	}
	return access.Ownership{AuthorID: author}, nil
}

type apiFixture struct {
	repo   *memoryRepo
	store  *ownershipStore
	svc    *Service
	router chi.Router
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	repo := newMemoryRepo()
	store := &ownershipStore{repo: repo, authors: make(map[uuid.UUID]string)}
	policy, err := access.NewPolicy()
	require.NoError(t, err)
	guard := access.Middleware{Engine: access.NewEngine(access.NewResolver(store), policy), Surface: access.SurfaceAPI}
	svc := NewService(repo, nil, nil, nil)
	r := chi.NewRouter()
	r.Route("/api/comments", NewAPIHandler(nil, svc, guard).MountRoutes)
	return &apiFixture{repo: repo, store: store, svc: svc, router: r}
}

func (f *apiFixture) seed(t *testing.T, postOwner string) *Comment {
	t.Helper()
	post := uuid.New()
	f.repo.contents[post] = access.KindPost
	f.store.authors[post] = postOwner
	cm, err := f.svc.Create(context.Background(), access.KindPost, uuid.NewString(), Input{ContentID: post.String(), Text: "original text"})
	require.NoError(t, err)
	return cm
}

func (f *apiFixture) do(id access.Identity, method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(access.WithIdentity(req.Context(), id))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestAPIUpdateComment(t *testing.T) {
	f := newAPIFixture(t)
	owner := uuid.NewString()
	cm := f.seed(t, owner)
	target := "/api/comments/" + cm.ID.String()
	body := map[string]string{"text": "edited text"}

	rec := f.do(access.NewIdentity(uuid.NewString(), access.RoleUser), http.MethodPut, target, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "original text", f.repo.items[cm.ID].Text)

	rec = f.do(access.Anonymous(), http.MethodPut, target, body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(access.NewIdentity(owner, access.RoleUser), http.MethodPut, target, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "edited text", f.repo.items[cm.ID].Text)
	require.NotNil(t, f.repo.items[cm.ID].LastModifiedBy)
	assert.Equal(t, owner, f.repo.items[cm.ID].LastModifiedBy.String())
}

func TestAPIUpdateCommentNotFound(t *testing.T) {
	f := newAPIFixture(t)
	admin := access.NewIdentity(uuid.NewString(), access.RoleAdmin)

	rec := f.do(admin, http.MethodPut, "/api/comments/"+uuid.NewString(), map[string]string{"text": "edited text"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(admin, http.MethodPut, "/api/comments/c1", map[string]string{"text": "edited text"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIUpdateCommentValidates(t *testing.T) {
	f := newAPIFixture(t)
	owner := uuid.NewString()
	cm := f.seed(t, owner)

	rec := f.do(access.NewIdentity(owner, access.RoleUser), http.MethodPut, "/api/comments/"+cm.ID.String(), map[string]string{"text": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "original text", f.repo.items[cm.ID].Text)
}
