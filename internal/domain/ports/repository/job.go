package repository

import (
	"context"

	"telegram-content-relay/internal/domain/model"
)

// JobRepository persists the at-most-one active job per user. Every mutation
// is written through so a restart can recover or report orphaned jobs.
type JobRepository interface {
	// Create stores a new job. Returns domain.ErrAlreadyActive if the user
	// already has one.
	Create(ctx context.Context, job *model.Job) error
	// Update persists progress. Best-effort for callers: a failed write is a
	// persistence warning, never fatal to the in-memory job.
	Update(ctx context.Context, job *model.Job) error
	Find(ctx context.Context, userID int64) (*model.Job, error)
	// SetCancel flips the cancel flag. Returns false if no job exists.
	SetCancel(ctx context.Context, userID int64) (bool, error)
	Delete(ctx context.Context, userID int64) error
	ListActive(ctx context.Context) ([]*model.Job, error)
}
