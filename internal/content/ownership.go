package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pressroom/pressroom/internal/access"
)

// OwnershipRepository answers ownership lookups for the access engine.
type OwnershipRepository struct {
	pool *pgxpool.Pool
}

// NewOwnershipRepository constructs an OwnershipRepository.
func NewOwnershipRepository(pool *pgxpool.Pool) *OwnershipRepository {
	return &OwnershipRepository{pool: pool}
}

// FindOwnership returns the author of an item, or for a comment its author
// and parent reference.
func (r *OwnershipRepository) FindOwnership(ctx context.Context, kind access.Kind, id uuid.UUID) (access.Ownership, error) {
	var (
		own access.Ownership
		err error
	)
	switch {
	case kind.IsContent():
		var author uuid.UUID
		err = r.pool.QueryRow(ctx, `SELECT author_id FROM contents WHERE id = $1 AND kind = $2`, id, string(kind)).Scan(&author)
		own.AuthorID = author.String()
	case kind == access.KindComment:
		var author, parent uuid.UUID
		var parentKind string
		err = r.pool.QueryRow(ctx, `SELECT cm.author_id, cm.content_id, c.kind
FROM comments cm
JOIN contents c ON c.id = cm.content_id
WHERE cm.id = $1`, id).Scan(&author, &parent, &parentKind)
		own.AuthorID = author.String()
		own.ParentID = parent
		own.ParentKind = access.Kind(parentKind)
	default:
		return access.Ownership{}, fmt.Errorf("content: unsupported ownership kind %q", kind)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return access.Ownership{}, access.ErrResourceNotFound
		}
		return access.Ownership{}, err
	}
	return own, nil
}

var _ access.ContentStore = (*OwnershipRepository)(nil)
