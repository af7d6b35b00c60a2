package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskModerationNotify announces a comment that entered the moderation queue.
	TaskModerationNotify = "moderation:notify"
	// TaskModerationDigest summarises the moderation queue on a schedule.
	TaskModerationDigest = "moderation:digest"
)

// CommentSubmittedPayload identifies a newly submitted comment.
type CommentSubmittedPayload struct {
	CommentID   string `json:"comment_id"`
	ContentID   string `json:"content_id"`
	ContentKind string `json:"content_kind"`
	AuthorID    string `json:"author_id"`
}

// NewModerationNotifyTask constructs an Asynq task.
func NewModerationNotifyTask(payload CommentSubmittedPayload) (*asynq.Task, error) {
	if payload.CommentID == "" {
		return nil, fmt.Errorf("moderation notify: comment id required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskModerationNotify, data), nil
}

// ModerationDigestPayload configures the digest run.
type ModerationDigestPayload struct {
	WarnAbove int `json:"warn_above"`
}

// NewModerationDigestTask constructs the scheduled digest task.
func NewModerationDigestTask(payload ModerationDigestPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskModerationDigest, data), nil
}
