package view

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressroom/pressroom/internal/access"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestRenderErrorWritesStatusAndMessage(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/posts/x/edit", nil)
	res := httptest.NewRecorder()
	engine.RenderError(res, req, http.StatusForbidden, "You are not allowed to do that")

	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Contains(t, res.Body.String(), "You are not allowed to do that")
	assert.Contains(t, res.Header().Get("Content-Type"), "text/html")
}

func TestPageShowsAdminNavigation(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(access.WithIdentity(req.Context(), access.NewIdentity("u-1", access.RoleAdmin)))
	res := httptest.NewRecorder()
	engine.RenderError(res, req, http.StatusNotFound, "missing")

	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Contains(t, res.Body.String(), `href="/admin/dashboard"`)
}
