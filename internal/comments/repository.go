package comments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pressroom/pressroom/internal/access"
	"github.com/pressroom/pressroom/internal/moderation"
	"github.com/pressroom/pressroom/internal/shared"
)

// Filter narrows comment listings.
type Filter struct {
	ContentID *uuid.UUID
	State     moderation.State
	Query     string
	Limit     int
	Offset    int
}

// Repository persists comments.
type Repository interface {
	Create(ctx context.Context, kind access.Kind, contentID, authorID uuid.UUID, text string) (*Comment, error)
	Get(ctx context.Context, id uuid.UUID) (*Comment, error)
	Update(ctx context.Context, id uuid.UUID, text string, editorID uuid.UUID, at time.Time) (*Comment, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter Filter) ([]Comment, int, error)
}

// PGRepository implements Repository and moderation.Store using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const commentColumns = `cm.id, cm.content_id, c.kind, cm.author_id, cm.text, cm.state, cm.last_modified_by, cm.created_at, cm.updated_at`

const commentFrom = ` FROM comments cm JOIN contents c ON c.id = cm.content_id`

func scanComment(row pgx.Row) (*Comment, error) {
	var cm Comment
	var kind, state string
	if err := row.Scan(&cm.ID, &cm.ContentID, &kind, &cm.AuthorID, &cm.Text, &state, &cm.LastModifiedBy, &cm.CreatedAt, &cm.UpdatedAt); err != nil {
		return nil, err
	}
	cm.ContentKind = access.Kind(kind)
	cm.State = moderation.State(state)
	return &cm, nil
}

// Create inserts a pending comment. When kind is set the parent must be of
// that kind; a missing parent yields shared.ErrNotFound.
func (r *PGRepository) Create(ctx context.Context, kind access.Kind, contentID, authorID uuid.UUID, text string) (*Comment, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `INSERT INTO comments (content_id, author_id, text, state)
SELECT c.id, $2, $3, $4 FROM contents c WHERE c.id = $1 AND ($5 = '' OR c.kind = $5)
RETURNING id`, contentID, authorID, text, string(moderation.StatePending), string(kind)).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("parent not found: %w", shared.ErrNotFound)
		}
		return nil, fmt.Errorf("comments: create: %w", err)
	}
	return r.Get(ctx, id)
}

// Get fetches a comment in any state.
func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (*Comment, error) {
	cm, err := scanComment(r.pool.QueryRow(ctx, `SELECT `+commentColumns+commentFrom+` WHERE cm.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("comments: get: %w", err)
	}
	return cm, nil
}

// Update replaces the text of a comment and stamps the editor. The
// moderation state is left as it is.
func (r *PGRepository) Update(ctx context.Context, id uuid.UUID, text string, editorID uuid.UUID, at time.Time) (*Comment, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE comments SET text = $2, last_modified_by = $3, updated_at = $4 WHERE id = $1`,
		id, text, editorID, at)
	if err != nil {
		return nil, fmt.Errorf("comments: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, shared.ErrNotFound
	}
	return r.Get(ctx, id)
}

// Delete removes a comment.
func (r *PGRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("comments: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// List returns comments matching filter, newest first, with the total match count.
func (r *PGRepository) List(ctx context.Context, filter Filter) ([]Comment, int, error) {
	where := []string{"TRUE"}
	var args []any
	if filter.ContentID != nil {
		args = append(args, *filter.ContentID)
		where = append(where, fmt.Sprintf("cm.content_id = $%d", len(args)))
	}
	if filter.State != "" {
		args = append(args, string(filter.State))
		where = append(where, fmt.Sprintf("cm.state = $%d", len(args)))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(q)+"%")
		where = append(where, fmt.Sprintf("cm.text ILIKE $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+commentFrom+` WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("comments: count: %w", err)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = shared.DefaultPerPage
	}
	args = append(args, limit, filter.Offset)
	rows, err := r.pool.Query(ctx, `SELECT `+commentColumns+commentFrom+` WHERE `+cond+
		fmt.Sprintf(` ORDER BY cm.created_at DESC, cm.id LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("comments: list: %w", err)
	}
	defer rows.Close()
	out := make([]Comment, 0, limit)
	for rows.Next() {
		cm, err := scanComment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("comments: scan: %w", err)
		}
		out = append(out, *cm)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("comments: list: %w", err)
	}
	return out, total, nil
}

// CommentState implements moderation.Store.
func (r *PGRepository) CommentState(ctx context.Context, id uuid.UUID) (moderation.State, error) {
	var state string
	if err := r.pool.QueryRow(ctx, `SELECT state FROM comments WHERE id = $1`, id).Scan(&state); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shared.ErrNotFound
		}
		return "", err
	}
	return moderation.State(state), nil
}

// SetCommentState implements moderation.Store.
func (r *PGRepository) SetCommentState(ctx context.Context, id uuid.UUID, state moderation.State, moderatorID uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE comments SET state = $2, last_modified_by = $3, updated_at = $4 WHERE id = $1`,
		id, string(state), moderatorID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListPending implements moderation.Store.
func (r *PGRepository) ListPending(ctx context.Context, limit, offset int) ([]moderation.PendingComment, int, error) {
	items, total, err := r.List(ctx, Filter{State: moderation.StatePending, Limit: limit, Offset: offset})
	if err != nil {
		return nil, 0, err
	}
	out := make([]moderation.PendingComment, len(items))
	for i, cm := range items {
		out[i] = moderation.PendingComment{
			ID:          cm.ID,
			ContentID:   cm.ContentID,
			ContentKind: cm.ContentKind,
			AuthorID:    cm.AuthorID,
			Text:        cm.Text,
			CreatedAt:   cm.CreatedAt,
		}
	}
	return out, total, nil
}

var (
	_ Repository       = (*PGRepository)(nil)
	_ moderation.Store = (*PGRepository)(nil)
)
