package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pressroom/pressroom/internal/access"
	"github.com/pressroom/pressroom/internal/shared"
)

// PendingComment is an entry of the moderator queue.
type PendingComment struct {
	ID          uuid.UUID   `json:"id"`
	ContentID   uuid.UUID   `json:"postId"`
	ContentKind access.Kind `json:"postKind"`
	AuthorID    uuid.UUID   `json:"authorId"`
	Text        string      `json:"text"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// Store is the comment persistence the workflow needs. CommentState returns
// shared.ErrNotFound for unknown comments.
type Store interface {
	CommentState(ctx context.Context, id uuid.UUID) (State, error)
	SetCommentState(ctx context.Context, id uuid.UUID, state State, moderatorID uuid.UUID, at time.Time) error
	ListPending(ctx context.Context, limit, offset int) ([]PendingComment, int, error)
}

// Authorizer evaluates access rules.
type Authorizer interface {
	Evaluate(ctx context.Context, action access.Action, id access.Identity, ref *access.ResourceRef) (access.Decision, error)
}

// Outcome is the result of a moderation request. State fields are only set
// when the decision allowed the request.
type Outcome struct {
	Decision access.Decision
	Previous State
	State    State
}

// Service applies verdicts.
type Service struct {
	store   Store
	authz   Authorizer
	history Recorder
	auditor shared.Auditor
	logger  *slog.Logger
	now     func() time.Time
}

// NewService constructs a Service. history and auditor may be nil.
func NewService(store Store, authz Authorizer, history Recorder, auditor shared.Auditor, logger *slog.Logger) *Service {
	if auditor == nil {
		auditor = shared.NopAuditor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, authz: authz, history: history, auditor: auditor, logger: logger, now: time.Now}
}

// Decide applies verdict to a comment on behalf of id. The access decision is
// reached before any state is read for writing; a denial is returned as an
// Outcome, not an error.
func (s *Service) Decide(ctx context.Context, id access.Identity, commentID string, verdict Verdict) (Outcome, error) {
	ref := access.Ref(access.KindComment, commentID)
	d, err := s.authz.Evaluate(ctx, access.ActionCommentModerate, id, &ref)
	if err != nil {
		return Outcome{}, err
	}
	if !d.Allowed {
		return Outcome{Decision: d}, nil
	}
	cid, ok := access.ParseID(commentID)
	if !ok {
		return Outcome{Decision: access.Deny(access.InvalidReference)}, nil
	}
	uid, _ := id.UserID()
	moderator, ok := access.ParseID(uid)
	if !ok {
		return Outcome{}, fmt.Errorf("moderation: moderator id %q is not a uuid", uid)
	}

	current, err := s.store.CommentState(ctx, cid)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Outcome{Decision: access.Deny(access.NotFound)}, nil
		}
		return Outcome{}, &access.StoreError{Kind: access.KindComment, ID: cid.String(), Err: err}
	}
	next, err := Next(current, verdict)
	if err != nil {
		return Outcome{}, err
	}

	at := s.now().UTC()
	if err := s.store.SetCommentState(ctx, cid, next, moderator, at); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Outcome{Decision: access.Deny(access.NotFound)}, nil
		}
		return Outcome{}, &access.StoreError{Kind: access.KindComment, ID: cid.String(), Err: err}
	}

	if s.history != nil {
		if err := s.history.Record(ctx, LogEntry{CommentID: cid, ActorID: moderator, Verdict: verdict, From: current, To: next, At: at}); err != nil {
			s.logger.Warn("moderation history", slog.String("comment_id", cid.String()), slog.Any("error", err))
		}
	}
	if err := s.auditor.Record(ctx, shared.AuditLog{
		ActorID:  moderator.String(),
		Action:   "comment." + string(verdict),
		Entity:   string(access.KindComment),
		EntityID: cid.String(),
		Meta:     map[string]any{"from": string(current), "to": string(next)},
		At:       at,
	}); err != nil {
		s.logger.Warn("audit moderation", slog.String("comment_id", cid.String()), slog.Any("error", err))
	}
	s.logger.Info("comment moderated",
		slog.String("comment_id", cid.String()),
		slog.String("moderator_id", moderator.String()),
		slog.String("from", string(current)),
		slog.String("to", string(next)))
	return Outcome{Decision: access.Allow(), Previous: current, State: next}, nil
}

// PendingPage is one page of the moderator queue.
type PendingPage struct {
	Comments   []PendingComment  `json:"comments"`
	Pagination shared.Pagination `json:"pagination"`
}

// Pending lists comments awaiting a verdict, newest first.
func (s *Service) Pending(ctx context.Context, page shared.PageRequest) (PendingPage, error) {
	items, total, err := s.store.ListPending(ctx, page.Limit, page.Offset())
	if err != nil {
		return PendingPage{}, err
	}
	return PendingPage{Comments: items, Pagination: shared.NewPagination(page.Page, page.Limit, total)}, nil
}

// PendingCount returns the size of the queue.
func (s *Service) PendingCount(ctx context.Context) (int, error) {
	_, total, err := s.store.ListPending(ctx, 1, 0)
	return total, err
}

// History returns the verdicts recorded for a comment. An unknown comment
// yields shared.ErrNotFound.
func (s *Service) History(ctx context.Context, commentID uuid.UUID) ([]LogEntry, error) {
	if _, err := s.store.CommentState(ctx, commentID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, &access.StoreError{Kind: access.KindComment, ID: commentID.String(), Err: err}
	}
	if s.history == nil {
		return nil, nil
	}
	return s.history.List(ctx, commentID)
}
