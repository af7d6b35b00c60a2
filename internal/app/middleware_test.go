package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressroom/pressroom/internal/access"
	"github.com/pressroom/pressroom/internal/shared"
)

type stubTokens map[string]access.Identity

func (s stubTokens) Parse(raw string) (access.Identity, error) {
	id, ok := s[raw]
	if !ok {
		return access.Identity{}, errors.New("bad token")
	}
	return id, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func chain(h http.Handler, mws []func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func whoAmI(w http.ResponseWriter, r *http.Request) {
	id := access.IdentityFromContext(r.Context())
	uid, _ := id.UserID()
	if !id.Authenticated() {
		uid = "anonymous"
	}
	_, _ = io.WriteString(w, uid)
}

func TestAPIMiddlewareBearer(t *testing.T) {
	tokens := stubTokens{"good": access.NewIdentity("u1", access.RoleUser)}
	h := chain(http.HandlerFunc(whoAmI), APIMiddleware(MiddlewareConfig{Logger: discardLogger(), Config: &Config{}}, tokens))

	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{name: "missing token is anonymous", status: http.StatusOK, body: "anonymous"},
		{name: "valid bearer", header: "Bearer good", status: http.StatusOK, body: "u1"},
		{name: "raw token", header: "good", status: http.StatusOK, body: "u1"},
		{name: "invalid token", header: "Bearer nope", status: http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, tc.status, rec.Code)
			if tc.body != "" {
				require.Equal(t, tc.body, rec.Body.String())
			} else {
				require.Contains(t, rec.Body.String(), `"success":false`)
			}
		})
	}
}

func TestAPIMiddlewareRejectsRevokedUser(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sessions := shared.NewSessionManager(client, "pressroom_session", "secret", time.Hour, false)
	sessions.SetRevocationTTL(24 * time.Hour)

	tokens := stubTokens{
		"gone": access.NewIdentity("u-gone", access.RoleAdmin),
		"kept": access.NewIdentity("u-kept", access.RoleUser),
	}
	cfg := MiddlewareConfig{Logger: discardLogger(), Config: &Config{}, SessionManager: sessions}
	h := chain(http.HandlerFunc(whoAmI), APIMiddleware(cfg, tokens))
	require.NoError(t, sessions.RevokeUser(context.Background(), "u-gone"))
	assert.Equal(t, 24*time.Hour, mr.TTL("pressroom:revoked:u-gone"))

	call := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}
	assert.Equal(t, http.StatusUnauthorized, call("gone").Code)
	rec := call("kept")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-kept", rec.Body.String())

	mr.Close()
	assert.Equal(t, http.StatusServiceUnavailable, call("kept").Code)
}

func TestWebMiddlewareSessionRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sessions := shared.NewSessionManager(client, "pressroom_session", "secret", time.Hour, false)
	cfg := MiddlewareConfig{Logger: discardLogger(), SessionManager: sessions, CSRFManager: shared.NewCSRFManager("csrf")}

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		for _, mw := range WebMiddleware(cfg) {
			r.Use(mw)
		}
		r.Get("/login-as", func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			sessions.Renew(sess)
			sess.SetUser("admin1", []string{"Admin"})
			w.WriteHeader(http.StatusNoContent)
		})
		r.Get("/me", func(w http.ResponseWriter, r *http.Request) {
			id := access.IdentityFromContext(r.Context())
			if !id.HasRole(access.RoleAdmin) {
				http.Error(w, "not admin", http.StatusForbidden)
				return
			}
			whoAmI(w, r)
		})
		r.Post("/me", whoAmI)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login-as", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	require.Equal(t, "pressroom_session", cookies[0].Name)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "admin1", rec.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/me", strings.NewReader(""))
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	up := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	rec := httptest.NewRecorder()
	healthHandler(discardLogger(), map[string]HealthCheck{"postgres": up})(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok","checks":{"postgres":"up"}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	healthHandler(discardLogger(), map[string]HealthCheck{"postgres": up, "redis": down})(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.JSONEq(t, `{"status":"degraded","checks":{"postgres":"up","redis":"down"}}`, rec.Body.String())
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := bearerToken(req)
	require.False(t, ok)

	req.Header.Set("Authorization", "bearer  abc ")
	token, ok := bearerToken(req)
	require.True(t, ok)
	require.Equal(t, "abc", token)
}

func TestStaticCacheHandler(t *testing.T) {
	h := staticCacheHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/css/site.css", nil))
	require.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
}
