package postgres

import (
	"context"
	"errors"
	"time"

	"telegram-content-relay/internal/domain"
	"telegram-content-relay/internal/domain/model"
	"telegram-content-relay/internal/domain/ports/repository"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
)

var _ repository.JobRepository = (*jobRepo)(nil)

// jobRepo keeps one row per user; the primary key is what enforces the
// at-most-one-job invariant at the storage layer.
type jobRepo struct {
	pool *pgxpool.Pool
	log  *zerolog.Logger
}

func NewJobRepo(pool *pgxpool.Pool, logger *zerolog.Logger) *jobRepo {
	l := logger.With().Str("component", "JobRepo").Logger()
	return &jobRepo{pool: pool, log: &l}
}

const uniqueViolation = "23505"

func (r *jobRepo) Create(ctx context.Context, job *model.Job) error {
	job.UpdatedAt = time.Now()

	const q = `
INSERT INTO relay_jobs (user_id, id, kind, total, current, success, cancel_requested,
  progress_chat, progress_message, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);`

	_, err := r.pool.Exec(ctx, q,
		job.UserID, job.ID, job.Kind, job.Total, job.Current, job.Success, job.CancelRequested,
		job.ProgressMessage.ChatID, job.ProgressMessage.MessageID, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrAlreadyActive
		}
		return err
	}
	return nil
}

func (r *jobRepo) Update(ctx context.Context, job *model.Job) error {
	job.UpdatedAt = time.Now()

	const q = `
UPDATE relay_jobs SET current = $2, success = $3, cancel_requested = $4, updated_at = $5
WHERE user_id = $1;`

	_, err := r.pool.Exec(ctx, q,
		job.UserID, job.Current, job.Success, job.CancelRequested, job.UpdatedAt)
	return err
}

func (r *jobRepo) Find(ctx context.Context, userID int64) (*model.Job, error) {
	const q = `
SELECT user_id, id, kind, total, current, success, cancel_requested,
  progress_chat, progress_message, created_at, updated_at
FROM relay_jobs WHERE user_id = $1;`

	row := r.pool.QueryRow(ctx, q, userID)
	job, err := r.scan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoActiveJob
		}
		// A record we cannot read is treated as absent, not as a live job
		// that would lock the user out forever.
		r.log.Warn().Err(err).Int64("user_id", userID).Msg("unreadable job record, treating as absent")
		return nil, domain.ErrNoActiveJob
	}
	return job, nil
}

func (r *jobRepo) SetCancel(ctx context.Context, userID int64) (bool, error) {
	const q = `UPDATE relay_jobs SET cancel_requested = TRUE, updated_at = NOW() WHERE user_id = $1;`
	tag, err := r.pool.Exec(ctx, q, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *jobRepo) Delete(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM relay_jobs WHERE user_id = $1;`, userID)
	return err
}

func (r *jobRepo) ListActive(ctx context.Context) ([]*model.Job, error) {
	const q = `
SELECT user_id, id, kind, total, current, success, cancel_requested,
  progress_chat, progress_message, created_at, updated_at
FROM relay_jobs ORDER BY created_at;`

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*model.Job
	for rows.Next() {
		job, err := r.scan(rows)
		if err != nil {
			r.log.Warn().Err(err).Msg("skipping unreadable job record")
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *jobRepo) scan(row pgx.Row) (*model.Job, error) {
	var job model.Job
	var kind string
	err := row.Scan(
		&job.UserID, &job.ID, &kind, &job.Total, &job.Current, &job.Success,
		&job.CancelRequested, &job.ProgressMessage.ChatID, &job.ProgressMessage.MessageID,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	job.Kind = model.JobKind(kind)
	return &job, nil
}
