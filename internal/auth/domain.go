package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/pressroom/pressroom/internal/access"
)

// User represents an authenticated user account.
type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Roles        []string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity converts the account into the principal used by access checks.
func (u *User) Identity() access.Identity {
	if u == nil {
		return access.Anonymous()
	}
	return access.NewIdentity(u.ID.String(), access.ParseRoleSet(u.Roles).Slice()...)
}

// NewUser carries the fields required to create an account.
type NewUser struct {
	Name         string
	Email        string
	PasswordHash string
	Roles        []string
}
