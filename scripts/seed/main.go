// Command seed fills a development database with demo accounts, content and
// comments in every moderation state.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pressroom/pressroom/internal/access"
	"github.com/pressroom/pressroom/internal/app"
	"github.com/pressroom/pressroom/internal/auth"
	"github.com/pressroom/pressroom/internal/comments"
	"github.com/pressroom/pressroom/internal/content"
	"github.com/pressroom/pressroom/internal/moderation"
	"github.com/pressroom/pressroom/internal/platform/db"
	"github.com/pressroom/pressroom/internal/shared"
)

const demoPassword = "pressroom-demo"

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: 2})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := newSeeder(pool, logger).run(ctx); err != nil {
		logger.Error("seed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("seed complete")
}

type seeder struct {
	logger   *slog.Logger
	users    auth.Repository
	auth     *auth.Service
	content  *content.Service
	comments *comments.Service
	states   moderation.Store
}

func newSeeder(pool *pgxpool.Pool, logger *slog.Logger) *seeder {
	authRepo := auth.NewRepository(pool)
	commentRepo := comments.NewRepository(pool)
	return &seeder{
		logger:   logger,
		users:    authRepo,
		auth:     auth.NewService(authRepo, logger),
		content:  content.NewService(content.NewRepository(pool), nil, logger),
		comments: comments.NewService(commentRepo, nil, nil, logger),
		states:   commentRepo,
	}
}

func (s *seeder) run(ctx context.Context) error {
	admin, err := s.account(ctx, "Admin One", "admin1@pressroom.test", true)
	if err != nil {
		return err
	}
	alice, err := s.account(ctx, "Alice Writer", "u1@pressroom.test", false)
	if err != nil {
		return err
	}
	bob, err := s.account(ctx, "Bob Reader", "u2@pressroom.test", false)
	if err != nil {
		return err
	}

	category, err := s.category(ctx, "General")
	if err != nil {
		return err
	}

	post, err := s.content.Create(ctx, access.KindPost, alice.ID.String(), content.Input{
		Title:      "Hello from Alice",
		Content:    "The first post on this site, written by a regular user.",
		CategoryID: category.ID.String(),
	})
	if err != nil {
		return err
	}
	if _, err := s.content.Create(ctx, access.KindNews, admin.ID.String(), content.Input{
		Title:      "Site launch",
		Content:    "The newsroom is open. Comments are moderated before they appear.",
		CategoryID: category.ID.String(),
	}); err != nil {
		return err
	}

	verdicts := []struct {
		author *auth.User
		text   string
		state  moderation.State
	}{
		{author: bob, text: "Welcome aboard!", state: moderation.StateApproved},
		{author: bob, text: "Buy cheap watches here", state: moderation.StateRejected},
		{author: alice, text: "Thanks, more soon.", state: moderation.StatePending},
	}
	for _, v := range verdicts {
		cm, err := s.comments.Create(ctx, access.KindPost, v.author.ID.String(), comments.Input{ContentID: post.ID.String(), Text: v.text})
		if err != nil {
			return err
		}
		if v.state == moderation.StatePending {
			continue
		}
		if err := s.states.SetCommentState(ctx, cm.ID, v.state, admin.ID, time.Now()); err != nil {
			return err
		}
	}
	s.logger.Info("seeded demo content", slog.String("post_id", post.ID.String()), slog.Int("comments", len(verdicts)))
	return nil
}

func (s *seeder) account(ctx context.Context, name, email string, admin bool) (*auth.User, error) {
	in := auth.RegisterInput{Name: name, Email: email, Password: demoPassword}
	var (
		user *auth.User
		err  error
	)
	if admin {
		user, err = s.auth.BootstrapAdmin(ctx, in)
	} else {
		user, err = s.auth.Register(ctx, in)
	}
	if errors.Is(err, shared.ErrEmailTaken) {
		return s.users.FindByEmail(ctx, email)
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("seeded account", slog.String("email", email), slog.Bool("admin", admin))
	return user, nil
}

func (s *seeder) category(ctx context.Context, name string) (*content.Category, error) {
	created, err := s.content.CreateCategory(ctx, content.CategoryInput{Name: name, Description: "Everything else"})
	if err == nil {
		return created, nil
	}
	if !errors.Is(err, shared.ErrDuplicate) {
		return nil, err
	}
	all, err := s.content.Categories(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Name == name {
			return &all[i], nil
		}
	}
	return nil, errors.New("seed: category vanished")
}
