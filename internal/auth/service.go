package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pressroom/pressroom/internal/access"
	"github.com/pressroom/pressroom/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs a new Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// RegisterInput is the validated registration payload.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=3,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

// Register creates an account holding the default User role.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*User, error) {
	return s.create(ctx, input, access.RoleUser)
}

// BootstrapAdmin creates an account holding the Admin role.
func (s *Service) BootstrapAdmin(ctx context.Context, input RegisterInput) (*User, error) {
	return s.create(ctx, input, access.RoleAdmin)
}

func (s *Service) create(ctx context.Context, input RegisterInput, roles ...access.Role) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, shared.ErrEmailTaken
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, NewUser{
		Name:         input.Name,
		Email:        email,
		PasswordHash: hash,
		Roles:        access.NewRoleSet(roles...).Strings(),
	})
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	ok, err := VerifyPassword(user.PasswordHash, password)
	if err != nil || !ok {
		return nil, shared.ErrInvalidCredentials
	}
	if NeedsRehash(user.PasswordHash) {
		if hash, err := HashPassword(password); err == nil {
			if err := s.repo.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
				s.logger.Warn("upgrade password hash", slog.String("user_id", user.ID.String()), slog.Any("error", err))
			} else {
				user.PasswordHash = hash
			}
		}
	}
	return user, nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID uuid.UUID, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}
