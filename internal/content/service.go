package content

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/pressroom/pressroom/internal/access"
	"github.com/pressroom/pressroom/internal/shared"
)

// Result is a page of items with its pagination metadata.
type Result struct {
	Items      []Item            `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
	Query      string            `json:"query,omitempty"`
}

// Service implements item and category use cases. Authorization happens in
// route guards before these methods run.
type Service struct {
	repo    Repository
	auditor shared.Auditor
	logger  *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, auditor shared.Auditor, logger *slog.Logger) *Service {
	if auditor == nil {
		auditor = shared.NopAuditor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, auditor: auditor, logger: logger}
}

// Create stores a new item owned by authorID.
func (s *Service) Create(ctx context.Context, kind access.Kind, authorID string, in Input) (*Item, error) {
	author, ok := access.ParseID(authorID)
	if !ok {
		return nil, fmt.Errorf("content: create: invalid author: %w", shared.ErrNotFound)
	}
	categoryID, err := s.category(ctx, in.CategoryID)
	if err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, Item{
		Kind:       kind,
		AuthorID:   author,
		CategoryID: &categoryID,
		Title:      strings.TrimSpace(in.Title),
		Content:    strings.TrimSpace(in.Content),
		ImageURL:   strings.TrimSpace(in.ImageURL),
	})
}

// Update applies patch to the item. The author never changes.
func (s *Service) Update(ctx context.Context, kind access.Kind, id uuid.UUID, patch Patch) (*Item, error) {
	if patch.Empty() {
		return nil, &shared.ValidationError{Fields: map[string]string{"general": "Nothing to update"}}
	}
	if patch.CategoryID != nil {
		if _, err := s.category(ctx, *patch.CategoryID); err != nil {
			return nil, err
		}
	}
	if patch.Title != nil {
		t := strings.TrimSpace(*patch.Title)
		patch.Title = &t
	}
	return s.repo.Update(ctx, kind, id, patch)
}

// Delete removes the item and its comments, recording an audit entry.
func (s *Service) Delete(ctx context.Context, actorID string, kind access.Kind, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, kind, id); err != nil {
		return err
	}
	if err := s.auditor.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   "content.delete",
		Entity:   string(kind),
		EntityID: id.String(),
	}); err != nil {
		s.logger.Warn("audit content delete", slog.String("id", id.String()), slog.Any("error", err))
	}
	return nil
}

// Get returns one item.
func (s *Service) Get(ctx context.Context, kind access.Kind, id uuid.UUID) (*Item, error) {
	return s.repo.Get(ctx, kind, id)
}

// List returns a page of items of kind.
func (s *Service) List(ctx context.Context, kind access.Kind, page shared.PageRequest) (Result, error) {
	return s.list(ctx, ListFilter{Kind: kind}, page)
}

// Search matches q against title, content and category name, case-insensitively.
func (s *Service) Search(ctx context.Context, kind access.Kind, q string, page shared.PageRequest) (Result, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return Result{}, &shared.ValidationError{Fields: map[string]string{"q": "This field is required"}}
	}
	res, err := s.list(ctx, ListFilter{Kind: kind, Query: q}, page)
	res.Query = q
	return res, err
}

// ListByAuthor returns items of every kind written by authorID.
func (s *Service) ListByAuthor(ctx context.Context, authorID string, page shared.PageRequest) (Result, error) {
	author, ok := access.ParseID(authorID)
	if !ok {
		return Result{Pagination: shared.NewPagination(page.Page, page.Limit, 0)}, nil
	}
	return s.list(ctx, ListFilter{AuthorID: &author}, page)
}

// Latest returns a page of items of every kind.
func (s *Service) Latest(ctx context.Context, page shared.PageRequest) (Result, error) {
	return s.list(ctx, ListFilter{}, page)
}

// ListRecent returns the newest items of every kind.
func (s *Service) ListRecent(ctx context.Context, limit int) ([]Item, error) {
	items, _, err := s.repo.List(ctx, ListFilter{Limit: limit})
	return items, err
}

// Categories lists active categories.
func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	return s.repo.ListCategories(ctx)
}

// CreateCategory adds a category.
func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (*Category, error) {
	return s.repo.CreateCategory(ctx, in)
}

func (s *Service) list(ctx context.Context, filter ListFilter, page shared.PageRequest) (Result, error) {
	filter.Limit = page.Limit
	filter.Offset = page.Offset()
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return Result{}, err
	}
	return Result{Items: items, Pagination: shared.NewPagination(page.Page, page.Limit, total)}, nil
}

func (s *Service) category(ctx context.Context, raw string) (uuid.UUID, error) {
	id, ok := access.ParseID(raw)
	if !ok {
		return uuid.Nil, &shared.ValidationError{Fields: map[string]string{"categoryId": "Select a category"}}
	}
	exists, err := s.repo.CategoryExists(ctx, id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("content: category lookup: %w", err)
	}
	if !exists {
		return uuid.Nil, fmt.Errorf("category not found: %w", shared.ErrNotFound)
	}
	return id, nil
}
