package shared

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/pressroom/pressroom/internal/access"
)

// FlashMessage represents a one-time notification stored in session.
type FlashMessage struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// SessionManager orchestrates cookie based sessions backed by Redis.
type SessionManager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
	secure     bool
	secret     []byte
	// revokeTTL is how long a revoked user stays locked out; at least ttl.
	revokeTTL time.Duration
}

// Session holds per-request session data.
type Session struct {
	ID         string
	values     map[string]string
	userID     string
	roles      []string
	flashes    []FlashMessage
	previousID string
	// storedUser is the user the session was loaded or last committed with.
	storedUser string
	isNew      bool
	dirty      bool
	destroyed  bool
}

type sessionPayload struct {
	Values  map[string]string `json:"values"`
	UserID  string            `json:"user_id"`
	Roles   []string          `json:"roles"`
	Flashes []FlashMessage    `json:"flashes"`
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, cookieName string, secret string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		client:     client,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
		secret:     []byte(secret),
		revokeTTL:  ttl,
	}
}

// SetRevocationTTL extends how long RevokeUser keeps a user locked out, so
// credentials living longer than a session (bearer tokens) are covered too.
func (sm *SessionManager) SetRevocationTTL(d time.Duration) {
	if d > sm.revokeTTL {
		sm.revokeTTL = d
	}
}

// Load loads the session named by the request cookie or starts a new one.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return sm.newSession(), nil
		}
		return nil, err
	}

	payload, err := sm.client.Get(ctx, sm.redisKey(cookie.Value)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Unknown or expired id: never adopt a client supplied id.
			return sm.newSession(), nil
		}
		return nil, err
	}

	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, err
	}

	if stored.UserID != "" {
		revoked, err := sm.Revoked(ctx, stored.UserID)
		if err != nil {
			return nil, err
		}
		if revoked {
			if err := sm.client.Del(ctx, sm.redisKey(cookie.Value)).Err(); err != nil {
				return nil, err
			}
			return sm.newSession(), nil
		}
	}

	sess := sm.newSession()
	sess.ID = cookie.Value
	if stored.Values != nil {
		sess.values = stored.Values
	}
	sess.userID = stored.UserID
	sess.storedUser = stored.UserID
	sess.roles = stored.Roles
	sess.flashes = stored.Flashes
	sess.isNew = false
	sess.dirty = false
	return sess, nil
}

// Commit persists the session and writes cookie headers as needed.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return nil
	}

	if sess.previousID != "" {
		pipe := sm.client.TxPipeline()
		pipe.Del(ctx, sm.redisKey(sess.previousID))
		if sess.storedUser != "" {
			pipe.SRem(ctx, sm.userKey(sess.storedUser), sess.previousID)
		}
		if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		sess.previousID = ""
	}

	if sess.destroyed {
		pipe := sm.client.TxPipeline()
		pipe.Del(ctx, sm.redisKey(sess.ID))
		if sess.storedUser != "" {
			pipe.SRem(ctx, sm.userKey(sess.storedUser), sess.ID)
		}
		if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		http.SetCookie(w, &http.Cookie{
			Name:     sm.cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   sm.secure,
			SameSite: http.SameSiteLaxMode,
		})
		return nil
	}

	if sess.dirty || sess.isNew {
		data, err := json.Marshal(sess.payload())
		if err != nil {
			return err
		}
		pipe := sm.client.TxPipeline()
		pipe.Set(ctx, sm.redisKey(sess.ID), data, sm.ttl)
		if sess.storedUser != "" && sess.storedUser != sess.userID {
			pipe.SRem(ctx, sm.userKey(sess.storedUser), sess.ID)
		}
		if sess.userID != "" {
			pipe.SAdd(ctx, sm.userKey(sess.userID), sess.ID)
			pipe.Expire(ctx, sm.userKey(sess.userID), sm.ttl)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		sess.storedUser = sess.userID
		sess.dirty = false
		sess.isNew = false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(sm.ttl),
	})
	return nil
}

// Renew issues a fresh session id, keeping the data. Called on login so a
// pre-authentication id is never promoted.
func (sm *SessionManager) Renew(sess *Session) {
	if sess == nil {
		return
	}
	if !sess.isNew {
		sess.previousID = sess.ID
	}
	sess.ID = sm.generateSessionID()
	sess.dirty = true
}

// Destroy marks the session for deletion.
func (sm *SessionManager) Destroy(sess *Session) {
	if sess == nil {
		return
	}
	sess.destroyed = true
}

// RevokeUser ends every session of userID and marks the user revoked so
// sessions committed by in-flight requests and bearer tokens are refused too.
func (sm *SessionManager) RevokeUser(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	ids, err := sm.client.SMembers(ctx, sm.userKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	pipe := sm.client.TxPipeline()
	pipe.Set(ctx, sm.revokedKey(userID), "1", sm.revokeTTL)
	for _, id := range ids {
		pipe.Del(ctx, sm.redisKey(id))
	}
	pipe.Del(ctx, sm.userKey(userID))
	_, err = pipe.Exec(ctx)
	return err
}

// Revoked reports whether userID was revoked within the revocation window.
func (sm *SessionManager) Revoked(ctx context.Context, userID string) (bool, error) {
	n, err := sm.client.Exists(ctx, sm.revokedKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

// Set stores a key-value pair.
func (s *Session) Set(key, value string) {
	s.values[key] = value
	s.dirty = true
}

// Get retrieves a value.
func (s *Session) Get(key string) string {
	return s.values[key]
}

// Delete removes a value.
func (s *Session) Delete(key string) {
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	s.dirty = true
}

// SetUser binds the session to a user and the roles granted at login.
func (s *Session) SetUser(id string, roles []string) {
	s.userID = id
	s.roles = append([]string(nil), roles...)
	s.dirty = true
}

// User returns the current user ID.
func (s *Session) User() string {
	return s.userID
}

// Roles returns the role names stored at login.
func (s *Session) Roles() []string {
	return append([]string(nil), s.roles...)
}

// Identity converts the session into the request principal.
func (s *Session) Identity() access.Identity {
	if s == nil || s.userID == "" {
		return access.Anonymous()
	}
	return access.NewIdentity(s.userID, access.ParseRoleSet(s.roles).Slice()...)
}

// AddFlash queues a flash message.
func (s *Session) AddFlash(msg FlashMessage) {
	s.flashes = append(s.flashes, msg)
	s.dirty = true
}

// PopFlash retrieves and clears the oldest flash message.
func (s *Session) PopFlash() *FlashMessage {
	if len(s.flashes) == 0 {
		return nil
	}
	msg := s.flashes[0]
	s.flashes = s.flashes[1:]
	s.dirty = true
	return &msg
}

func (s *Session) payload() sessionPayload {
	return sessionPayload{Values: s.values, UserID: s.userID, Roles: s.roles, Flashes: s.flashes}
}

func (sm *SessionManager) newSession() *Session {
	return &Session{
		ID:     sm.generateSessionID(),
		values: make(map[string]string),
		isNew:  true,
		dirty:  true,
	}
}

func (sm *SessionManager) redisKey(id string) string {
	return "pressroom:session:" + id
}

func (sm *SessionManager) userKey(userID string) string {
	return "pressroom:user-sessions:" + userID
}

func (sm *SessionManager) revokedKey(userID string) string {
	return "pressroom:revoked:" + userID
}

func (sm *SessionManager) generateSessionID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return base64.RawURLEncoding.EncodeToString([]byte(time.Now().Format(time.RFC3339Nano)))
	}
	if len(sm.secret) > 0 {
		for i := range b {
			b[i] ^= sm.secret[i%len(sm.secret)]
		}
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
