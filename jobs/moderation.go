package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/pressroom/pressroom/internal/jobs"
)

// DefaultDigestWarnAbove is the queue size that makes the digest log a warning.
const DefaultDigestWarnAbove = 50

// PendingCounter reports the size of the moderation queue.
type PendingCounter interface {
	PendingCount(ctx context.Context) (int, error)
}

// ModerationJobs handles the moderation tasks.
type ModerationJobs struct {
	Queue   PendingCounter
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewModerationJobs initialises the moderation handlers.
func NewModerationJobs(queue PendingCounter, logger *slog.Logger, metrics *jobmetrics.Metrics) *ModerationJobs {
	return &ModerationJobs{Queue: queue, Logger: logger, Metrics: metrics}
}

// Handlers returns the task handlers to register on the worker.
func (j *ModerationJobs) Handlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskModerationNotify, Handler: j.HandleNotify},
		{Type: TaskModerationDigest, Handler: j.HandleDigest},
	}
}

// HandleNotify logs the submitted comment for moderators and refreshes the
// queue gauge.
func (j *ModerationJobs) HandleNotify(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil {
		return errors.New("moderation notify: handler not configured")
	}
	var payload CommentSubmittedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.CommentID == "" {
		return asynq.SkipRetry
	}
	tracker := j.Metrics.Track(TaskModerationNotify)
	defer func() { err = tracker.End(err) }()

	pending, err := j.count(ctx)
	if err != nil {
		return err
	}
	j.logger().Info("comment awaiting moderation",
		slog.String("comment_id", payload.CommentID),
		slog.String("content_id", payload.ContentID),
		slog.String("content_kind", payload.ContentKind),
		slog.String("author_id", payload.AuthorID),
		slog.Int("pending", pending),
	)
	return nil
}

// HandleDigest records the queue size and warns when it grows past the
// configured threshold.
func (j *ModerationJobs) HandleDigest(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil {
		return errors.New("moderation digest: handler not configured")
	}
	var payload ModerationDigestPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.WarnAbove <= 0 {
		payload.WarnAbove = DefaultDigestWarnAbove
	}
	tracker := j.Metrics.Track(TaskModerationDigest)
	defer func() { err = tracker.End(err) }()

	pending, err := j.count(ctx)
	if err != nil {
		return err
	}
	logger := j.logger().With(slog.Int("pending", pending), slog.Int("warn_above", payload.WarnAbove))
	if pending > payload.WarnAbove {
		logger.Warn("moderation queue backlog")
		return nil
	}
	logger.Info("moderation digest")
	return nil
}

func (j *ModerationJobs) count(ctx context.Context) (int, error) {
	if j.Queue == nil {
		return 0, errors.New("moderation jobs: queue not configured")
	}
	pending, err := j.Queue.PendingCount(ctx)
	if err != nil {
		j.logger().Error("count pending comments", slog.Any("error", err))
		return 0, err
	}
	j.Metrics.SetPending(pending)
	return pending, nil
}

func (j *ModerationJobs) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
