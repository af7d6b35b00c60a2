package access

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	id := uuid.New()
	got, ok := ParseID(" " + id.String() + " ")
	assert.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = ParseID("p1")
	assert.False(t, ok)
	_, ok = ParseID(uuid.Nil.String())
	assert.False(t, ok)
	_, ok = ParseID("")
	assert.False(t, ok)
}

func TestResolveContent(t *testing.T) {
	store := newStubStore()
	postID := store.addPost("u2")

	own, kind, err := NewResolver(store).Resolve(context.Background(), Ref(KindPost, postID.String()))
	require.NoError(t, err)
	assert.Equal(t, FailureNone, kind)
	assert.Equal(t, "u2", own.Owner())
	assert.Equal(t, postID, own.ID)
}

func TestResolveCommentUsesParentOwner(t *testing.T) {
	store := newStubStore()
	postID := store.addPost("owner")
	commentID := store.addComment("writer", postID)

	own, kind, err := NewResolver(store).Resolve(context.Background(), Ref(KindComment, commentID.String()))
	require.NoError(t, err)
	assert.Equal(t, FailureNone, kind)
	assert.Equal(t, "writer", own.AuthorID)
	assert.Equal(t, "owner", own.ParentAuthorID)
	assert.Equal(t, "owner", own.Owner())
	assert.Equal(t, 2, store.calls)
}

func TestResolveRejectsBadReferences(t *testing.T) {
	store := newStubStore()
	r := NewResolver(store)

	_, kind, err := r.Resolve(context.Background(), Ref(KindUser, uuid.NewString()))
	require.NoError(t, err)
	assert.Equal(t, InvalidReference, kind)

	_, kind, err = r.Resolve(context.Background(), Ref(KindPost, "nope"))
	require.NoError(t, err)
	assert.Equal(t, InvalidReference, kind)
	assert.Zero(t, store.calls)
}

func TestResolveKindMismatchIsNotFound(t *testing.T) {
	store := newStubStore()
	postID := store.addPost("u2")

	_, kind, err := NewResolver(store).Resolve(context.Background(), Ref(KindNews, postID.String()))
	require.NoError(t, err)
	assert.Equal(t, NotFound, kind)
}

func TestResolveWrapsStoreFailure(t *testing.T) {
	cause := errors.New("timeout")
	store := newStubStore()
	store.err = cause

	_, _, err := NewResolver(store).Resolve(context.Background(), Ref(KindPost, uuid.NewString()))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, cause)
}
