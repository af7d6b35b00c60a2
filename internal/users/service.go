package users

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pressroom/pressroom/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// SessionRevoker ends the sessions of a user.
type SessionRevoker interface {
	RevokeUser(ctx context.Context, userID string) error
}

// Service handles user business logic.
type Service struct {
	repo     RepositoryPort
	sessions SessionRevoker
	auditor  shared.Auditor
	logger   *slog.Logger
}

// NewService builds Service instance. sessions may be nil when no session
// store is wired.
func NewService(repo RepositoryPort, sessions SessionRevoker, auditor shared.Auditor, logger *slog.Logger) *Service {
	if auditor == nil {
		auditor = shared.NopAuditor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, sessions: sessions, auditor: auditor, logger: logger}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// DeleteUser removes a user and everything they authored and logs them out
// everywhere. The caller must have passed the not-self guard.
func (s *Service) DeleteUser(ctx context.Context, actorID string, id uuid.UUID) error {
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	if s.sessions != nil {
		if err := s.sessions.RevokeUser(ctx, id.String()); err != nil {
			s.logger.Error("revoke sessions of deleted user", slog.String("id", id.String()), slog.Any("error", err))
			return fmt.Errorf("users: revoke sessions: %w", err)
		}
	}
	if err := s.auditor.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   "user.delete",
		Entity:   "user",
		EntityID: id.String(),
	}); err != nil {
		s.logger.Warn("audit user delete", slog.String("id", id.String()), slog.Any("error", err))
	}
	return nil
}
