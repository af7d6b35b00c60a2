// Package content manages posts and news items. Both kinds share one table
// and one set of handlers; the kind only changes routing and labels.
package content

import (
	"time"

	"github.com/google/uuid"

	"github.com/pressroom/pressroom/internal/access"
)

// Item is a post or news item.
type Item struct {
	ID         uuid.UUID   `json:"id"`
	Kind       access.Kind `json:"kind"`
	AuthorID   uuid.UUID   `json:"authorId"`
	CategoryID *uuid.UUID  `json:"categoryId,omitempty"`
	Category   string      `json:"category"`
	Title      string      `json:"title"`
	Content    string      `json:"content"`
	ImageURL   string      `json:"imageUrl,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// Path returns the web path of the item.
func (i Item) Path() string {
	return BasePath(i.Kind) + "/" + i.ID.String()
}

// Ownership projects the item for access checks.
func (i Item) Ownership() access.Ownership {
	return access.Ownership{Kind: i.Kind, ID: i.ID, AuthorID: i.AuthorID.String()}
}

// BasePath returns the route prefix for kind.
func BasePath(kind access.Kind) string {
	if kind == access.KindNews {
		return "/news"
	}
	return "/posts"
}

// Label returns the human readable plural for kind.
func Label(kind access.Kind) string {
	if kind == access.KindNews {
		return "News"
	}
	return "Posts"
}

// Category groups items.
type Category struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Input is the full set of writable fields.
type Input struct {
	Title      string `json:"title" validate:"required,min=5,max=150"`
	Content    string `json:"content" validate:"required,min=10"`
	CategoryID string `json:"categoryId" validate:"required,uuid"`
	ImageURL   string `json:"imageUrl" validate:"omitempty,max=2048"`
}

// Patch is a partial update. AuthorID is deliberately absent.
type Patch struct {
	Title      *string `json:"title" validate:"omitempty,min=5,max=150"`
	Content    *string `json:"content" validate:"omitempty,min=10"`
	CategoryID *string `json:"categoryId" validate:"omitempty,uuid"`
	ImageURL   *string `json:"imageUrl" validate:"omitempty,max=2048"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Content == nil && p.CategoryID == nil && p.ImageURL == nil
}

// PatchFrom converts a full input into a patch that overwrites every field.
func PatchFrom(in Input) Patch {
	return Patch{Title: &in.Title, Content: &in.Content, CategoryID: &in.CategoryID, ImageURL: &in.ImageURL}
}

// CategoryInput creates a category.
type CategoryInput struct {
	Name        string `json:"name" validate:"required,min=2,max=64"`
	Description string `json:"description" validate:"max=500"`
}

// ListFilter narrows listings. A zero Kind lists every kind.
type ListFilter struct {
	Kind     access.Kind
	AuthorID *uuid.UUID
	Query    string
	Limit    int
	Offset   int
}

// Page is one page of items.
type Page struct {
	Items []Item `json:"items"`
	Total int    `json:"total"`
}
