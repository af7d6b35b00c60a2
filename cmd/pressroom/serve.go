package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/pressroom/pressroom/internal/access"
	"github.com/pressroom/pressroom/internal/app"
	"github.com/pressroom/pressroom/internal/auth"
	"github.com/pressroom/pressroom/internal/comments"
	"github.com/pressroom/pressroom/internal/content"
	"github.com/pressroom/pressroom/internal/moderation"
	"github.com/pressroom/pressroom/internal/observability"
	"github.com/pressroom/pressroom/internal/platform/cache"
	"github.com/pressroom/pressroom/internal/platform/db"
	"github.com/pressroom/pressroom/internal/shared"
	"github.com/pressroom/pressroom/internal/users"
	"github.com/pressroom/pressroom/internal/view"
	"github.com/pressroom/pressroom/jobs"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookieName, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	sessionManager.SetRevocationTTL(cfg.JWTTTL)
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	metrics := observability.NewMetrics()

	templates, err := view.NewEngine(view.WithCSRF(csrfManager), view.WithLogger(logger))
	if err != nil {
		return err
	}

	policy, err := access.NewPolicy()
	if err != nil {
		return err
	}
	engine := access.NewEngine(
		access.NewResolver(content.NewOwnershipRepository(pool)),
		policy,
		access.WithLogger(logger),
		access.WithObserver(metrics),
	)
	webGuard := access.Middleware{Engine: engine, Logger: logger, Surface: access.SurfaceWeb, Pages: templates}
	apiGuard := access.Middleware{Engine: engine, Logger: logger, Surface: access.SurfaceAPI}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	queue := jobs.NewClient(redisOpts)
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn("queue close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)

	authService := auth.NewService(auth.NewRepository(pool), logger)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)

	commentRepo := comments.NewRepository(pool)
	commentService := comments.NewService(commentRepo, queue, auditLogger, logger)

	contentService := content.NewService(content.NewRepository(pool), auditLogger, logger)

	moderationService := moderation.NewService(commentRepo, engine, moderation.NewHistory(pool, logger), auditLogger, logger)

	userService := users.NewService(users.NewRepository(pool), sessionManager, auditLogger, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		Tokens:         tokens,
		Metrics:        metrics,

		PagesHandler:      content.NewPagesHandler(logger, contentService, templates, webGuard),
		AuthHandler:       auth.NewHandler(logger, authService, templates, sessionManager, csrfManager),
		PostsHandler:      content.NewHandler(access.KindPost, logger, contentService, commentService, templates, engine, webGuard),
		NewsHandler:       content.NewHandler(access.KindNews, logger, contentService, commentService, templates, engine, webGuard),
		CommentsHandler:   comments.NewHandler(logger, commentService, webGuard),
		ModerationHandler: moderation.NewHandler(logger, moderationService, templates, webGuard),
		AdminHandler:      users.NewHandler(logger, userService, contentService, templates, webGuard),

		AuthAPI:       auth.NewAPIHandler(logger, authService, tokens),
		PostsAPI:      content.NewAPIHandler(access.KindPost, logger, contentService, apiGuard),
		NewsAPI:       content.NewAPIHandler(access.KindNews, logger, contentService, apiGuard),
		CategoriesAPI: content.NewCategoryHandler(logger, contentService, apiGuard),
		CommentsAPI:   comments.NewAPIHandler(logger, commentService, apiGuard),
		ModerationAPI: moderation.NewAPIHandler(logger, moderationService, apiGuard),
		UsersAPI:      users.NewAPIHandler(logger, userService, apiGuard),

		JobHandler: jobs.NewHandler(inspector, logger),
		HealthChecks: map[string]app.HealthCheck{
			"postgres": pool.Ping,
			"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
