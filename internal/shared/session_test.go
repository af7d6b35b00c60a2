package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/pressroom/pressroom/internal/access"
)

func newTestSessions(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "pressroom_session", "secret", time.Hour, false), mr
}

func commitAndCookie(t *testing.T, sm *SessionManager, sess *Session) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(context.Background(), rec, sess))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func TestSessionPersistsIdentityAndFlash(t *testing.T) {
	sm, mr := newTestSessions(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.False(t, sess.Identity().Authenticated())

	sess.SetUser("u1", []string{"user", "bogus"})
	sess.AddFlash(FlashMessage{Kind: "success", Message: "Welcome"})
	cookie := commitAndCookie(t, sm, sess)
	require.True(t, mr.Exists("pressroom:session:"+cookie.Value))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.Equal(t, cookie.Value, loaded.ID)

	id := loaded.Identity()
	uid, ok := id.UserID()
	require.True(t, ok)
	require.Equal(t, "u1", uid)
	require.True(t, id.HasRole(access.RoleUser))
	require.Equal(t, []string{"user", "bogus"}, loaded.Roles())

	flash := loaded.PopFlash()
	require.NotNil(t, flash)
	require.Equal(t, "Welcome", flash.Message)
	require.Nil(t, loaded.PopFlash())
}

func TestSessionUnknownCookieStartsFresh(t *testing.T) {
	sm, _ := newTestSessions(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "pressroom_session", Value: "attacker-chosen"})

	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	require.NotEqual(t, "attacker-chosen", sess.ID)
}

func TestSessionRenewDropsPreviousID(t *testing.T) {
	sm, mr := newTestSessions(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	first := commitAndCookie(t, sm, sess)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(first)
	sess, err = sm.Load(ctx, req)
	require.NoError(t, err)
	sm.Renew(sess)
	sess.SetUser("admin1", []string{"Admin"})
	second := commitAndCookie(t, sm, sess)

	require.NotEqual(t, first.Value, second.Value)
	require.False(t, mr.Exists("pressroom:session:"+first.Value))
	require.True(t, mr.Exists("pressroom:session:"+second.Value))
}

func TestSessionDestroyExpiresCookie(t *testing.T) {
	sm, mr := newTestSessions(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	cookie := commitAndCookie(t, sm, sess)

	sm.Destroy(sess)
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))
	require.False(t, mr.Exists("pressroom:session:"+cookie.Value))
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	require.Equal(t, -1, cleared[0].MaxAge)
}

func TestSessionLoadFailsWhenRedisDown(t *testing.T) {
	sm, mr := newTestSessions(t)
	mr.Close()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "pressroom_session", Value: "abc"})
	_, err := sm.Load(context.Background(), req)
	require.Error(t, err)
}

func TestSessionIndexFollowsLoginAndLogout(t *testing.T) {
	sm, mr := newTestSessions(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sm.Renew(sess)
	sess.SetUser("u1", []string{"User"})
	cookie := commitAndCookie(t, sm, sess)
	members, err := mr.Members("pressroom:user-sessions:u1")
	require.NoError(t, err)
	require.Equal(t, []string{cookie.Value}, members)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	sm.Destroy(loaded)
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), loaded))
	require.False(t, mr.Exists("pressroom:session:"+cookie.Value))
	members, _ = mr.Members("pressroom:user-sessions:u1")
	require.Empty(t, members)
}

func TestRevokeUserEndsEverySession(t *testing.T) {
	sm, mr := newTestSessions(t)
	ctx := context.Background()
	sm.SetRevocationTTL(24 * time.Hour)

	var cookies []*http.Cookie
	for i := 0; i < 2; i++ {
		sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		sess.SetUser("u1", []string{"Admin"})
		cookies = append(cookies, commitAndCookie(t, sm, sess))
	}

	require.NoError(t, sm.RevokeUser(ctx, "u1"))
	require.Equal(t, 24*time.Hour, mr.TTL("pressroom:revoked:u1"))
	require.False(t, mr.Exists("pressroom:user-sessions:u1"))
	for _, cookie := range cookies {
		require.False(t, mr.Exists("pressroom:session:"+cookie.Value))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookie)
		loaded, err := sm.Load(ctx, req)
		require.NoError(t, err)
		require.False(t, loaded.Identity().Authenticated())
		require.NotEqual(t, cookie.Value, loaded.ID)
	}
}
