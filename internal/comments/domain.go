// Package comments stores reader comments on posts and news items. New
// comments start pending and only approved ones are ever listed publicly.
package comments

import (
	"time"

	"github.com/google/uuid"

	"github.com/pressroom/pressroom/internal/access"
	"github.com/pressroom/pressroom/internal/moderation"
	"github.com/pressroom/pressroom/internal/shared"
)

// Comment is a reader comment.
type Comment struct {
	ID             uuid.UUID        `json:"id"`
	ContentID      uuid.UUID        `json:"postId"`
	ContentKind    access.Kind      `json:"postKind"`
	AuthorID       uuid.UUID        `json:"authorId"`
	Text           string           `json:"text"`
	State          moderation.State `json:"state"`
	LastModifiedBy *uuid.UUID       `json:"lastModifiedBy,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// Input creates a comment.
type Input struct {
	ContentID string `json:"postId" validate:"required,uuid"`
	Text      string `json:"text" validate:"required,min=3,max=1000"`
}

// UpdateInput replaces the text of a comment.
type UpdateInput struct {
	Text string `json:"text" validate:"required,min=3,max=1000"`
}

// Page is one page of comments.
type Page struct {
	Comments   []Comment         `json:"comments"`
	Pagination shared.Pagination `json:"pagination"`
	Query      string            `json:"searchTerm,omitempty"`
}
