package access

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	records map[uuid.UUID]Ownership
	err     error
	calls   int
}

func newStubStore() *stubStore {
	return &stubStore{records: make(map[uuid.UUID]Ownership)}
}

func (s *stubStore) FindOwnership(_ context.Context, kind Kind, id uuid.UUID) (Ownership, error) {
	s.calls++
	if s.err != nil {
		return Ownership{}, s.err
	}
	own, ok := s.records[id]
	if !ok || own.Kind != kind {
		return Ownership{}, ErrResourceNotFound
	}
	return own, nil
}

func (s *stubStore) addPost(author string) uuid.UUID {
	id := uuid.New()
	s.records[id] = Ownership{Kind: KindPost, AuthorID: author}
	return id
}

func (s *stubStore) addComment(author string, parent uuid.UUID) uuid.UUID {
	id := uuid.New()
	s.records[id] = Ownership{Kind: KindComment, AuthorID: author, ParentKind: KindPost, ParentID: parent}
	return id
}

type recordingObserver struct {
	decisions []Decision
}

func (o *recordingObserver) ObserveDecision(_ Action, d Decision) {
	o.decisions = append(o.decisions, d)
}

func newTestEngine(t *testing.T, store ContentStore, opts ...EngineOption) *Engine {
	t.Helper()
	policy, err := NewPolicy()
	require.NoError(t, err)
	return NewEngine(NewResolver(store), policy, opts...)
}

func TestRequireAuthenticated(t *testing.T) {
	e := newTestEngine(t, newStubStore())

	assert.Equal(t, Deny(Unauthenticated), e.RequireAuthenticated(Anonymous()))
	assert.Equal(t, Deny(Unauthenticated), e.RequireAuthenticated(NewIdentity("u1")))
	assert.Equal(t, Deny(Unauthenticated), e.RequireAuthenticated(NewIdentity("", RoleUser)))
	assert.True(t, e.RequireAuthenticated(NewIdentity("u1", RoleUser)).Allowed)
}

func TestRequireRole(t *testing.T) {
	e := newTestEngine(t, newStubStore())
	admins := NewRoleSet(RoleAdmin)

	assert.True(t, e.RequireRole(NewIdentity("a1", RoleAdmin), admins).Allowed)
	assert.Equal(t, Deny(Forbidden), e.RequireRole(NewIdentity("u1", RoleUser), admins))
	assert.Equal(t, Deny(Unauthenticated), e.RequireRole(Anonymous(), admins))
	assert.Equal(t, Deny(Forbidden), e.RequireRole(NewIdentity("a1", RoleAdmin), NewRoleSet()))
}

func TestOwnerOrRoleScenarios(t *testing.T) {
	e := newTestEngine(t, newStubStore())
	post := Ownership{Kind: KindPost, AuthorID: "u2"}
	admins := NewRoleSet(RoleAdmin)

	assert.Equal(t, Deny(Forbidden), e.CheckOwnerOrRole(NewIdentity("u1", RoleUser), post, admins))
	assert.Equal(t, Allow(), e.CheckOwnerOrRole(NewIdentity("u2", RoleUser), post, admins))
	assert.Equal(t, Allow(), e.CheckOwnerOrRole(NewIdentity("m1", RoleAdmin), post, admins))
	assert.Equal(t, Deny(Unauthenticated), e.CheckOwnerOrRole(Anonymous(), post, admins))
}

func TestRequireOwnerOrRole(t *testing.T) {
	store := newStubStore()
	e := newTestEngine(t, store)
	owner := uuid.NewString()
	postID := store.addPost(owner)
	admins := NewRoleSet(RoleAdmin)
	ref := Ref(KindPost, postID.String())
	ctx := context.Background()

	cases := []struct {
		name string
		id   Identity
		want Decision
	}{
		{"owner", NewIdentity(owner, RoleUser), Allow()},
		{"moderator", NewIdentity(uuid.NewString(), RoleAdmin), Allow()},
		{"neither", NewIdentity(uuid.NewString(), RoleUser), Deny(Forbidden)},
		{"anonymous", Anonymous(), Deny(Unauthenticated)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := e.RequireOwnerOrRole(ctx, tc.id, ref, admins)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRequireOwnerOrRoleMissingResource(t *testing.T) {
	store := newStubStore()
	e := newTestEngine(t, store)

	got, err := e.RequireOwnerOrRole(context.Background(), NewIdentity(uuid.NewString(), RoleUser), Ref(KindPost, uuid.NewString()), NewRoleSet(RoleAdmin))
	require.NoError(t, err)
	assert.Equal(t, Deny(NotFound), got)
}

func TestRequireOwnerOrRoleRoleShortCircuits(t *testing.T) {
	store := newStubStore()
	e := newTestEngine(t, store)

	got, err := e.RequireOwnerOrRole(context.Background(), NewIdentity(uuid.NewString(), RoleAdmin), Ref(KindPost, uuid.NewString()), NewRoleSet(RoleAdmin))
	require.NoError(t, err)
	assert.True(t, got.Allowed)
	assert.Zero(t, store.calls)
}

func TestRequireOwnerOrRoleInvalidReference(t *testing.T) {
	store := newStubStore()
	e := newTestEngine(t, store)

	got, err := e.RequireOwnerOrRole(context.Background(), NewIdentity(uuid.NewString(), RoleUser), Ref(KindPost, "p1"), NewRoleSet(RoleAdmin))
	require.NoError(t, err)
	assert.Equal(t, Deny(InvalidReference), got)
	assert.Zero(t, store.calls)
}

func TestRequireOwnerOrRoleStoreUnavailable(t *testing.T) {
	store := newStubStore()
	store.err = errors.New("connection refused")
	e := newTestEngine(t, store)

	_, err := e.RequireOwnerOrRole(context.Background(), NewIdentity(uuid.NewString(), RoleUser), Ref(KindPost, uuid.NewString()), NewRoleSet(RoleAdmin))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	var storeErr *StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, KindPost, storeErr.Kind)
}

func TestRequireNotSelf(t *testing.T) {
	e := newTestEngine(t, newStubStore())

	assert.Equal(t, Deny(SelfActionForbidden), e.RequireNotSelf(NewIdentity("admin1", RoleAdmin), "admin1"))
	assert.Equal(t, Allow(), e.RequireNotSelf(NewIdentity("admin1", RoleAdmin), "u7"))
	assert.Equal(t, Deny(Unauthenticated), e.RequireNotSelf(Anonymous(), "admin1"))

	id := uuid.New()
	assert.Equal(t, Deny(SelfActionForbidden), e.RequireNotSelf(NewIdentity(id.String(), RoleAdmin), " "+id.String()))
}

func TestEvaluateSelfDeleteBeatsRole(t *testing.T) {
	e := newTestEngine(t, newStubStore())
	self := uuid.NewString()

	ref := Ref(KindUser, self)
	got, err := e.Evaluate(context.Background(), ActionUserDelete, NewIdentity(self, RoleAdmin), &ref)
	require.NoError(t, err)
	assert.Equal(t, Deny(SelfActionForbidden), got)

	other := Ref(KindUser, uuid.NewString())
	got, err = e.Evaluate(context.Background(), ActionUserDelete, NewIdentity(self, RoleAdmin), &other)
	require.NoError(t, err)
	assert.True(t, got.Allowed)

	got, err = e.Evaluate(context.Background(), ActionUserDelete, NewIdentity(self, RoleUser), &other)
	require.NoError(t, err)
	assert.Equal(t, Deny(Forbidden), got)
}

func TestEvaluateCommentDeleteDualOwnership(t *testing.T) {
	store := newStubStore()
	e := newTestEngine(t, store)
	commentAuthor := uuid.NewString()
	postOwner := uuid.NewString()
	postID := store.addPost(postOwner)
	commentID := store.addComment(commentAuthor, postID)
	ref := Ref(KindComment, commentID.String())
	ctx := context.Background()

	got, err := e.Evaluate(ctx, ActionCommentDelete, NewIdentity(commentAuthor, RoleUser), &ref)
	require.NoError(t, err)
	assert.Equal(t, Deny(Forbidden), got)

	got, err = e.Evaluate(ctx, ActionCommentDelete, NewIdentity(postOwner, RoleUser), &ref)
	require.NoError(t, err)
	assert.True(t, got.Allowed)

	got, err = e.Evaluate(ctx, ActionCommentDelete, NewIdentity(uuid.NewString(), RoleAdmin), &ref)
	require.NoError(t, err)
	assert.True(t, got.Allowed)
}

func TestEvaluateCommentUpdate(t *testing.T) {
	store := newStubStore()
	e := newTestEngine(t, store)
	postOwner := uuid.NewString()
	commentID := store.addComment(uuid.NewString(), store.addPost(postOwner))
	ref := Ref(KindComment, commentID.String())
	ctx := context.Background()

	got, err := e.Evaluate(ctx, ActionCommentUpdate, NewIdentity(postOwner, RoleUser), &ref)
	require.NoError(t, err)
	assert.True(t, got.Allowed)

	got, err = e.Evaluate(ctx, ActionCommentUpdate, NewIdentity(uuid.NewString(), RoleUser), &ref)
	require.NoError(t, err)
	assert.Equal(t, Deny(Forbidden), got)

	got, err = e.Evaluate(ctx, ActionCommentUpdate, NewIdentity(uuid.NewString(), RoleCustomer), &ref)
	require.NoError(t, err)
	assert.True(t, got.Allowed)

	missing := Ref(KindComment, uuid.NewString())
	got, err = e.Evaluate(ctx, ActionCommentUpdate, NewIdentity(postOwner, RoleUser), &missing)
	require.NoError(t, err)
	assert.Equal(t, Deny(NotFound), got)
}

func TestEvaluateCommentWithMissingParent(t *testing.T) {
	store := newStubStore()
	e := newTestEngine(t, store)
	commentID := store.addComment(uuid.NewString(), uuid.New())
	ref := Ref(KindComment, commentID.String())

	got, err := e.Evaluate(context.Background(), ActionCommentDelete, NewIdentity(uuid.NewString(), RoleUser), &ref)
	require.NoError(t, err)
	assert.Equal(t, Deny(NotFound), got)
}

func TestEvaluateRoleOnlyActions(t *testing.T) {
	e := newTestEngine(t, newStubStore())
	ctx := context.Background()
	user := NewIdentity(uuid.NewString(), RoleUser)
	admin := NewIdentity(uuid.NewString(), RoleAdmin)

	got, err := e.Evaluate(ctx, ActionContentCreate, user, nil)
	require.NoError(t, err)
	assert.True(t, got.Allowed)

	got, err = e.Evaluate(ctx, ActionContentCreate, admin, nil)
	require.NoError(t, err)
	assert.True(t, got.Allowed, "admin inherits user grants")

	got, err = e.Evaluate(ctx, ActionAdminDashboard, user, nil)
	require.NoError(t, err)
	assert.Equal(t, Deny(Forbidden), got)

	got, err = e.Evaluate(ctx, ActionCommentModerate, Anonymous(), nil)
	require.NoError(t, err)
	assert.Equal(t, Deny(Unauthenticated), got)

	bad := Ref(KindComment, "not-a-uuid")
	got, err = e.Evaluate(ctx, ActionCommentModerate, admin, &bad)
	require.NoError(t, err)
	assert.Equal(t, Deny(InvalidReference), got)

	got, err = e.Evaluate(ctx, ActionCommentModerate, user, &bad)
	require.NoError(t, err)
	assert.Equal(t, Deny(Forbidden), got)
}

func TestEvaluateUnknownAction(t *testing.T) {
	e := newTestEngine(t, newStubStore())

	got, err := e.Evaluate(context.Background(), Action("post.publish"), NewIdentity("a1", RoleAdmin), nil)
	require.NoError(t, err)
	assert.Equal(t, Deny(Forbidden), got)
}

func TestEvaluateOwnedActionNeedsRef(t *testing.T) {
	e := newTestEngine(t, newStubStore())

	got, err := e.Evaluate(context.Background(), ActionContentUpdate, NewIdentity(uuid.NewString(), RoleUser), nil)
	require.NoError(t, err)
	assert.Equal(t, Deny(InvalidReference), got)
}

func TestEvaluatePropagatesStoreErrors(t *testing.T) {
	store := newStubStore()
	store.err = errors.New("pool closed")
	obs := &recordingObserver{}
	e := newTestEngine(t, store, WithObserver(obs))
	ref := Ref(KindNews, uuid.NewString())

	got, err := e.Evaluate(context.Background(), ActionContentDelete, NewIdentity(uuid.NewString(), RoleUser), &ref)
	require.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, Decision{}, got)
	assert.Empty(t, obs.decisions)
}

func TestEvaluateNotifiesObserver(t *testing.T) {
	obs := &recordingObserver{}
	e := newTestEngine(t, newStubStore(), WithObserver(obs))

	_, err := e.Evaluate(context.Background(), ActionUserList, NewIdentity("u1", RoleUser), nil)
	require.NoError(t, err)
	_, err = e.Evaluate(context.Background(), ActionUserList, NewIdentity("a1", RoleAdmin), nil)
	require.NoError(t, err)

	require.Len(t, obs.decisions, 2)
	assert.Equal(t, Deny(Forbidden), obs.decisions[0])
	assert.True(t, obs.decisions[1].Allowed)
}
