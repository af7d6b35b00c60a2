package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pressroom/pressroom/internal/access"
	"github.com/pressroom/pressroom/internal/shared"
)

// Repository persists items and categories.
type Repository interface {
	Create(ctx context.Context, item Item) (*Item, error)
	Update(ctx context.Context, kind access.Kind, id uuid.UUID, patch Patch) (*Item, error)
	Delete(ctx context.Context, kind access.Kind, id uuid.UUID) error
	Get(ctx context.Context, kind access.Kind, id uuid.UUID) (*Item, error)
	List(ctx context.Context, filter ListFilter) ([]Item, int, error)
	ListCategories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, in CategoryInput) (*Category, error)
	CategoryExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const itemColumns = `c.id, c.kind, c.author_id, c.category_id, COALESCE(cat.name, ''), c.title, c.content, c.image_url, c.created_at, c.updated_at`

const itemFrom = ` FROM contents c LEFT JOIN categories cat ON cat.id = c.category_id`

func scanItem(row pgx.Row) (*Item, error) {
	var item Item
	var kind string
	err := row.Scan(&item.ID, &kind, &item.AuthorID, &item.CategoryID, &item.Category, &item.Title, &item.Content, &item.ImageURL, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	item.Kind = access.Kind(kind)
	return &item, nil
}

// Create inserts a new item.
func (r *PGRepository) Create(ctx context.Context, item Item) (*Item, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `INSERT INTO contents (kind, author_id, category_id, title, content, image_url)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`, string(item.Kind), item.AuthorID, item.CategoryID, item.Title, item.Content, item.ImageURL).Scan(&id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("content: create: %w", shared.ErrNotFound)
		}
		return nil, fmt.Errorf("content: create: %w", err)
	}
	return r.Get(ctx, item.Kind, id)
}

// Update applies patch. author_id is never part of the statement.
func (r *PGRepository) Update(ctx context.Context, kind access.Kind, id uuid.UUID, patch Patch) (*Item, error) {
	sets := make([]string, 0, 5)
	args := []any{id, string(kind)}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Content != nil {
		add("content", *patch.Content)
	}
	if patch.CategoryID != nil {
		categoryID, err := uuid.Parse(*patch.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("content: update: %w", shared.ErrNotFound)
		}
		add("category_id", categoryID)
	}
	if patch.ImageURL != nil {
		add("image_url", *patch.ImageURL)
	}
	add("updated_at", time.Now().UTC())

	tag, err := r.pool.Exec(ctx, `UPDATE contents SET `+strings.Join(sets, ", ")+` WHERE id = $1 AND kind = $2`, args...)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("content: update: %w", shared.ErrNotFound)
		}
		return nil, fmt.Errorf("content: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, shared.ErrNotFound
	}
	return r.Get(ctx, kind, id)
}

// Delete removes an item; its comments go with it through the foreign key.
func (r *PGRepository) Delete(ctx context.Context, kind access.Kind, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM contents WHERE id = $1 AND kind = $2`, id, string(kind))
	if err != nil {
		return fmt.Errorf("content: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Get fetches one item.
func (r *PGRepository) Get(ctx context.Context, kind access.Kind, id uuid.UUID) (*Item, error) {
	item, err := scanItem(r.pool.QueryRow(ctx, `SELECT `+itemColumns+itemFrom+` WHERE c.id = $1 AND c.kind = $2`, id, string(kind)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("content: get: %w", err)
	}
	return item, nil
}

// List returns a page of items matching filter, newest first, and the total match count.
func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]Item, int, error) {
	where := []string{"TRUE"}
	var args []any
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		where = append(where, fmt.Sprintf("c.kind = $%d", len(args)))
	}
	if filter.AuthorID != nil {
		args = append(args, *filter.AuthorID)
		where = append(where, fmt.Sprintf("c.author_id = $%d", len(args)))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(c.title ILIKE $%d OR c.content ILIKE $%d OR cat.name ILIKE $%d)", n, n, n))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+itemFrom+` WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("content: count: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = shared.DefaultPerPage
	}
	args = append(args, limit, filter.Offset)
	rows, err := r.pool.Query(ctx, `SELECT `+itemColumns+itemFrom+` WHERE `+cond+
		fmt.Sprintf(` ORDER BY c.created_at DESC, c.id LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("content: list: %w", err)
	}
	defer rows.Close()

	items := make([]Item, 0, limit)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("content: scan: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("content: list: %w", err)
	}
	return items, total, nil
}

// ListCategories returns active categories ordered by name.
func (r *PGRepository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description, is_active, created_at FROM categories WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("content: list categories: %w", err)
	}
	defer rows.Close()
	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// CreateCategory inserts a category.
func (r *PGRepository) CreateCategory(ctx context.Context, in CategoryInput) (*Category, error) {
	c := Category{Name: strings.TrimSpace(in.Name), Description: strings.TrimSpace(in.Description), IsActive: true}
	err := r.pool.QueryRow(ctx, `INSERT INTO categories (name, description) VALUES ($1, $2) RETURNING id, created_at`,
		c.Name, c.Description).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("category %q exists: %w", c.Name, shared.ErrDuplicate)
		}
		return nil, fmt.Errorf("content: create category: %w", err)
	}
	return &c, nil
}

// CategoryExists reports whether an active category has id.
func (r *PGRepository) CategoryExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1 AND is_active)`, id).Scan(&exists)
	return exists, err
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

var _ Repository = (*PGRepository)(nil)
