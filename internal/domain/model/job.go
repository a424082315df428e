package model

import (
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// JobKind distinguishes one-shot transfers from batch runs.
type JobKind string

const (
	JobSingle JobKind = "single"
	JobBatch  JobKind = "batch"
)

// MessageRef points at a posted platform message, typically the job's
// progress/status message.
type MessageRef struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int   `json:"message_id"`
}

// Job is one user's in-progress transfer. At most one exists per user at any
// time; the registry enforces that.
type Job struct {
	ID              string     `json:"id"`
	UserID          int64      `json:"user_id"`
	Kind            JobKind    `json:"kind"`
	Total           int        `json:"total"`
	Current         int        `json:"current"`
	Success         int        `json:"success"`
	CancelRequested bool       `json:"cancel_requested"`
	ProgressMessage MessageRef `json:"progress_message"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func NewJob(userID int64, kind JobKind, total int, progress MessageRef) *Job {
	now := time.Now()
	return &Job{
		ID:              ulid.MustNew(ulid.Timestamp(now), rand.New(rand.NewSource(now.UnixNano()))).String(),
		UserID:          userID,
		Kind:            kind,
		Total:           total,
		ProgressMessage: progress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
