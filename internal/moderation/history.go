package moderation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LogEntry is one recorded verdict.
type LogEntry struct {
	ID        int64     `json:"id"`
	CommentID uuid.UUID `json:"commentId"`
	ActorID   uuid.UUID `json:"actorId"`
	Verdict   Verdict   `json:"verdict"`
	From      State     `json:"from"`
	To        State     `json:"to"`
	At        time.Time `json:"at"`
}

// Recorder persists moderation history.
type Recorder interface {
	Record(ctx context.Context, entry LogEntry) error
	List(ctx context.Context, commentID uuid.UUID) ([]LogEntry, error)
}

// History stores verdicts in moderation_log.
type History struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewHistory constructs History.
func NewHistory(pool *pgxpool.Pool, logger *slog.Logger) *History {
	if logger == nil {
		logger = slog.Default()
	}
	return &History{pool: pool, logger: logger}
}

// Record writes a verdict to the log.
func (h *History) Record(ctx context.Context, entry LogEntry) error {
	if h == nil {
		return errors.New("moderation history not initialised")
	}
	if entry.CommentID == uuid.Nil {
		return errors.New("moderation comment id required")
	}
	if entry.ActorID == uuid.Nil {
		return errors.New("moderation actor required")
	}
	if entry.Verdict == "" {
		return errors.New("moderation verdict required")
	}
	var at *time.Time
	if !entry.At.IsZero() {
		at = &entry.At
	}
	_, err := h.pool.Exec(ctx, `INSERT INTO moderation_log (comment_id, actor_id, verdict, from_state, to_state, at)
VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))`, entry.CommentID, entry.ActorID, string(entry.Verdict), string(entry.From), string(entry.To), at)
	if err != nil {
		h.logger.Error("record moderation", slog.Any("error", err))
		return err
	}
	return nil
}

// List returns the verdicts recorded for a comment, oldest first.
func (h *History) List(ctx context.Context, commentID uuid.UUID) ([]LogEntry, error) {
	if h == nil {
		return nil, errors.New("moderation history not initialised")
	}
	rows, err := h.pool.Query(ctx, `SELECT id, comment_id, actor_id, verdict, from_state, to_state, at
FROM moderation_log WHERE comment_id = $1 ORDER BY at ASC, id ASC`, commentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []LogEntry
	for rows.Next() {
		var e LogEntry
		var verdict, from, to string
		if err := rows.Scan(&e.ID, &e.CommentID, &e.ActorID, &verdict, &from, &to, &e.At); err != nil {
			return nil, err
		}
		e.Verdict, e.From, e.To = Verdict(verdict), State(from), State(to)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

var _ Recorder = (*History)(nil)
