package comments

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pressroom/pressroom/internal/access"
	"github.com/pressroom/pressroom/internal/moderation"
	"github.com/pressroom/pressroom/internal/shared"
)

// Notifier is told about comments entering the moderation queue.
type Notifier interface {
	CommentSubmitted(ctx context.Context, comment Comment) error
}

// Service implements comment use cases.
type Service struct {
	repo     Repository
	notifier Notifier
	auditor  shared.Auditor
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a Service. notifier and auditor may be nil.
func NewService(repo Repository, notifier Notifier, auditor shared.Auditor, logger *slog.Logger) *Service {
	if auditor == nil {
		auditor = shared.NopAuditor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, notifier: notifier, auditor: auditor, logger: logger, now: time.Now}
}

// Create stores a pending comment by authorID on the item in.ContentID.
// kind restricts the parent's kind when non-empty.
func (s *Service) Create(ctx context.Context, kind access.Kind, authorID string, in Input) (*Comment, error) {
	author, ok := access.ParseID(authorID)
	if !ok {
		return nil, fmt.Errorf("comments: create: invalid author: %w", shared.ErrNotFound)
	}
	contentID, ok := access.ParseID(in.ContentID)
	if !ok {
		return nil, &shared.ValidationError{Fields: map[string]string{"postId": "Invalid id"}}
	}
	cm, err := s.repo.Create(ctx, kind, contentID, author, strings.TrimSpace(in.Text))
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		if err := s.notifier.CommentSubmitted(ctx, *cm); err != nil {
			s.logger.Warn("enqueue moderation notice", slog.String("comment_id", cm.ID.String()), slog.Any("error", err))
		}
	}
	return cm, nil
}

// Get returns a comment in any state.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Comment, error) {
	return s.repo.Get(ctx, id)
}

// Update replaces the text of comment id on behalf of actorID, stamping
// last_modified_by and updated_at.
func (s *Service) Update(ctx context.Context, actorID string, id uuid.UUID, in UpdateInput) (*Comment, error) {
	editor, ok := access.ParseID(actorID)
	if !ok {
		return nil, fmt.Errorf("comments: update: invalid editor: %w", shared.ErrNotFound)
	}
	cm, err := s.repo.Update(ctx, id, strings.TrimSpace(in.Text), editor, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.auditor.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   "comment.update",
		Entity:   string(access.KindComment),
		EntityID: id.String(),
	}); err != nil {
		s.logger.Warn("audit comment update", slog.String("id", id.String()), slog.Any("error", err))
	}
	return cm, nil
}

// Delete removes a comment. When parentID is set the comment must belong to
// that item, otherwise shared.ErrNotFound is returned.
func (s *Service) Delete(ctx context.Context, actorID string, id uuid.UUID, parentID *uuid.UUID) error {
	if parentID != nil {
		cm, err := s.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if cm.ContentID != *parentID {
			return shared.ErrNotFound
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.auditor.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   "comment.delete",
		Entity:   string(access.KindComment),
		EntityID: id.String(),
	}); err != nil {
		s.logger.Warn("audit comment delete", slog.String("id", id.String()), slog.Any("error", err))
	}
	return nil
}

// ApprovedFor returns the approved comments of one item.
func (s *Service) ApprovedFor(ctx context.Context, contentID uuid.UUID) ([]Comment, error) {
	items, _, err := s.repo.List(ctx, Filter{ContentID: &contentID, State: moderation.StateApproved, Limit: shared.MaxPerPage})
	return items, err
}

// ListApproved returns a page of approved comments, optionally of one item.
func (s *Service) ListApproved(ctx context.Context, contentID *uuid.UUID, page shared.PageRequest) (Page, error) {
	return s.list(ctx, Filter{ContentID: contentID, State: moderation.StateApproved}, page)
}

// Search matches q against approved comment text.
func (s *Service) Search(ctx context.Context, q string, page shared.PageRequest) (Page, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return Page{}, &shared.ValidationError{Fields: map[string]string{"q": "This field is required"}}
	}
	res, err := s.list(ctx, Filter{State: moderation.StateApproved, Query: q}, page)
	res.Query = q
	return res, err
}

func (s *Service) list(ctx context.Context, filter Filter, page shared.PageRequest) (Page, error) {
	filter.Limit = page.Limit
	filter.Offset = page.Offset()
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return Page{}, err
	}
	return Page{Comments: items, Pagination: shared.NewPagination(page.Page, page.Limit, total)}, nil
}
