package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pressroom/pressroom/internal/access"
	"github.com/pressroom/pressroom/internal/app"
	"github.com/pressroom/pressroom/internal/comments"
	"github.com/pressroom/pressroom/internal/content"
	jobmetrics "github.com/pressroom/pressroom/internal/jobs"
	"github.com/pressroom/pressroom/internal/moderation"
	"github.com/pressroom/pressroom/internal/platform/db"
	"github.com/pressroom/pressroom/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	policy, err := access.NewPolicy()
	if err != nil {
		logger.Error("load access policy", slog.Any("error", err))
		os.Exit(1)
	}
	engine := access.NewEngine(access.NewResolver(content.NewOwnershipRepository(pool)), policy, access.WithLogger(logger))
	moderationService := moderation.NewService(comments.NewRepository(pool), engine, moderation.NewHistory(pool, logger), nil, logger)

	metrics := jobmetrics.NewMetrics(prometheus.DefaultRegisterer)
	moderationJobs := jobs.NewModerationJobs(moderationService, logger, metrics)

	digestTask, err := jobs.NewModerationDigestTask(jobs.ModerationDigestPayload{WarnAbove: cfg.DigestWarnAbove})
	if err != nil {
		logger.Error("build digest task", slog.Any("error", err))
		os.Exit(1)
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   redisOpts,
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers:    moderationJobs.Handlers(),
		Cron: []jobs.CronRegistration{
			{Spec: cfg.DigestCron, Task: digestTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:              cfg.WorkerMetricsAddr,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("serving worker metrics", slog.String("addr", cfg.WorkerMetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("worker metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
