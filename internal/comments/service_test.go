package comments

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressroom/pressroom/internal/access"
	"github.com/pressroom/pressroom/internal/moderation"
	"github.com/pressroom/pressroom/internal/shared"
)

type memoryRepo struct {
	items    map[uuid.UUID]*Comment
	contents map[uuid.UUID]access.Kind
	filters  []Filter
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: make(map[uuid.UUID]*Comment), contents: make(map[uuid.UUID]access.Kind)}
}

func (r *memoryRepo) Create(_ context.Context, kind access.Kind, contentID, authorID uuid.UUID, text string) (*Comment, error) {
	parentKind, ok := r.contents[contentID]
	if !ok || (kind != "" && parentKind != kind) {
		return nil, shared.ErrNotFound
	}
	now := time.Now().UTC()
	cm := &Comment{ID: uuid.New(), ContentID: contentID, ContentKind: parentKind, AuthorID: authorID, Text: text, State: moderation.StatePending, CreatedAt: now, UpdatedAt: now}
	r.items[cm.ID] = cm
	return cm, nil
}

func (r *memoryRepo) Get(_ context.Context, id uuid.UUID) (*Comment, error) {
	cm, ok := r.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cm, nil
}

func (r *memoryRepo) Update(_ context.Context, id uuid.UUID, text string, editorID uuid.UUID, at time.Time) (*Comment, error) {
	cm, ok := r.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cm.Text = text
	cm.LastModifiedBy = &editorID
	cm.UpdatedAt = at
	return cm, nil
}

func (r *memoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.items[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *memoryRepo) List(_ context.Context, f Filter) ([]Comment, int, error) {
	r.filters = append(r.filters, f)
	var out []Comment
	for _, cm := range r.items {
		if f.ContentID != nil && cm.ContentID != *f.ContentID {
			continue
		}
		if f.State != "" && cm.State != f.State {
			continue
		}
		if f.Query != "" && !strings.Contains(strings.ToLower(cm.Text), strings.ToLower(f.Query)) {
			continue
		}
		out = append(out, *cm)
	}
	return out, len(out), nil
}

type recordingNotifier struct {
	submitted []Comment
	err       error
}

func (n *recordingNotifier) CommentSubmitted(_ context.Context, cm Comment) error {
	n.submitted = append(n.submitted, cm)
	return n.err
}

type memoryAuditor struct {
	logs []shared.AuditLog
}

func (a *memoryAuditor) Record(_ context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func TestCreateStartsPendingAndNotifies(t *testing.T) {
	repo := newMemoryRepo()
	post := uuid.New()
	repo.contents[post] = access.KindPost
	notifier := &recordingNotifier{}
	svc := NewService(repo, notifier, nil, nil)

	cm, err := svc.Create(context.Background(), access.KindPost, uuid.NewString(), Input{ContentID: post.String(), Text: "  Nice write-up  "})
	require.NoError(t, err)
	assert.Equal(t, moderation.StatePending, cm.State)
	assert.Equal(t, "Nice write-up", cm.Text)
	require.Len(t, notifier.submitted, 1)
	assert.Equal(t, cm.ID, notifier.submitted[0].ID)
}

func TestCreateSurvivesNotifierFailure(t *testing.T) {
	repo := newMemoryRepo()
	post := uuid.New()
	repo.contents[post] = access.KindNews
	svc := NewService(repo, &recordingNotifier{err: errors.New("redis down")}, nil, nil)

	cm, err := svc.Create(context.Background(), access.KindNews, uuid.NewString(), Input{ContentID: post.String(), Text: "hello there"})
	require.NoError(t, err)
	assert.NotNil(t, cm)
}

func TestCreateRejectsWrongParent(t *testing.T) {
	repo := newMemoryRepo()
	post := uuid.New()
	repo.contents[post] = access.KindPost
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.Create(context.Background(), access.KindNews, uuid.NewString(), Input{ContentID: post.String(), Text: "hello there"})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.Create(context.Background(), access.KindPost, uuid.NewString(), Input{ContentID: "p1", Text: "hello there"})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "postId")
}

func TestDeleteChecksParentAndAudits(t *testing.T) {
	repo := newMemoryRepo()
	post := uuid.New()
	other := uuid.New()
	repo.contents[post] = access.KindPost
	auditor := &memoryAuditor{}
	svc := NewService(repo, nil, auditor, nil)
	cm, err := svc.Create(context.Background(), access.KindPost, uuid.NewString(), Input{ContentID: post.String(), Text: "first!"})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), "actor", cm.ID, &other)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Contains(t, repo.items, cm.ID)

	require.NoError(t, svc.Delete(context.Background(), "actor", cm.ID, &post))
	assert.NotContains(t, repo.items, cm.ID)
	require.Len(t, auditor.logs, 1)
	assert.Equal(t, "comment.delete", auditor.logs[0].Action)
	assert.Equal(t, cm.ID.String(), auditor.logs[0].EntityID)
}

func TestPublicListingsOnlyShowApproved(t *testing.T) {
	repo := newMemoryRepo()
	post := uuid.New()
	repo.contents[post] = access.KindPost
	svc := NewService(repo, nil, nil, nil)
	for _, text := range []string{"pending comment", "approved comment", "rejected comment"} {
		_, err := svc.Create(context.Background(), access.KindPost, uuid.NewString(), Input{ContentID: post.String(), Text: text})
		require.NoError(t, err)
	}
	for _, cm := range repo.items {
		switch {
		case strings.HasPrefix(cm.Text, "approved"):
			cm.State = moderation.StateApproved
		case strings.HasPrefix(cm.Text, "rejected"):
			cm.State = moderation.StateRejected
		}
	}

	items, err := svc.ApprovedFor(context.Background(), post)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "approved comment", items[0].Text)

	page, err := svc.ListApproved(context.Background(), nil, shared.PageRequest{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page.Comments, 1)
	assert.Equal(t, 1, page.Pagination.Total)

	res, err := svc.Search(context.Background(), "comment", shared.PageRequest{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, res.Comments, 1)
	assert.Equal(t, "comment", res.Query)
	for _, f := range repo.filters {
		assert.Equal(t, moderation.StateApproved, f.State)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil, nil)

	_, err := svc.Search(context.Background(), "  ", shared.PageRequest{Page: 1, Limit: 10})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "q")
}

func TestUpdateStampsEditorAndKeepsState(t *testing.T) {
	repo := newMemoryRepo()
	post := uuid.New()
	repo.contents[post] = access.KindPost
	auditor := &memoryAuditor{}
	svc := NewService(repo, nil, auditor, nil)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return at }
	cm, err := svc.Create(context.Background(), access.KindPost, uuid.NewString(), Input{ContentID: post.String(), Text: "first take"})
	require.NoError(t, err)
	cm.State = moderation.StateApproved
	editor := uuid.New()

	updated, err := svc.Update(context.Background(), editor.String(), cm.ID, UpdateInput{Text: "  second take  "})
	require.NoError(t, err)
	assert.Equal(t, "second take", updated.Text)
	require.NotNil(t, updated.LastModifiedBy)
	assert.Equal(t, editor, *updated.LastModifiedBy)
	assert.Equal(t, at, updated.UpdatedAt)
	assert.Equal(t, moderation.StateApproved, updated.State)
	require.Len(t, auditor.logs, 1)
	assert.Equal(t, "comment.update", auditor.logs[0].Action)
}

func TestUpdateMissingComment(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil, nil)

	_, err := svc.Update(context.Background(), uuid.NewString(), uuid.New(), UpdateInput{Text: "anything"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
