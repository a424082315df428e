// File: internal/usecase/relay_uc.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"telegram-content-relay/internal/domain"
	"telegram-content-relay/internal/domain/model"
	"telegram-content-relay/internal/domain/ports/repository"
	"telegram-content-relay/internal/infra/logging"
	"telegram-content-relay/internal/infra/metrics"
	"telegram-content-relay/internal/infra/worker"

	"github.com/rs/zerolog"
)

// RelayUC owns the job lifecycle: registration, the sequential batch loop,
// cooperative cancellation and final cleanup. One job per user at a time.
type RelayUC struct {
	jobs   repository.JobRepository
	pool   *ClientPool
	pipe   *Pipeline
	runner *worker.Runner

	itemDelay time.Duration
	// Jobs outlive the update that started them; they run on this context and
	// stop when the process shuts down.
	baseCtx context.Context

	log *zerolog.Logger
}

func NewRelayUC(
	baseCtx context.Context,
	jobs repository.JobRepository,
	pool *ClientPool,
	pipe *Pipeline,
	itemDelay time.Duration,
	logger *zerolog.Logger,
) *RelayUC {
	l := logger.With().Str("component", "RelayUC").Logger()
	return &RelayUC{
		baseCtx:   baseCtx,
		jobs:      jobs,
		pool:      pool,
		pipe:      pipe,
		runner:    worker.NewRunner(),
		itemDelay: itemDelay,
		log:       &l,
	}
}

var _ JobStarter = (*RelayUC)(nil)

// StartSingle registers and launches a one-item job.
func (uc *RelayUC) StartSingle(ctx context.Context, userID int64, ref model.SourceReference) error {
	return uc.start(ctx, userID, ref, model.JobSingle, 1)
}

// StartBatch registers and launches a job over count consecutive messages
// starting at ref.
func (uc *RelayUC) StartBatch(ctx context.Context, userID int64, ref model.SourceReference, count int) error {
	if count < 1 {
		return fmt.Errorf("%w: batch count %d", domain.ErrInvalidArgument, count)
	}
	return uc.start(ctx, userID, ref, model.JobBatch, count)
}

func (uc *RelayUC) start(ctx context.Context, userID int64, ref model.SourceReference, kind model.JobKind, total int) error {
	poster := uc.pool.ResolvePoster(ctx, userID)

	status, err := poster.SendText(ctx, userID, "Starting...", 0)
	if err != nil {
		return fmt.Errorf("post status message: %w", err)
	}

	job := model.NewJob(userID, kind, total, status)
	if err := uc.jobs.Create(ctx, job); err != nil {
		_ = poster.DeleteMessage(ctx, status)
		return err
	}

	if err := uc.runner.Go(uc.baseCtx, userID, func(runCtx context.Context) {
		uc.runJob(runCtx, job, ref)
	}); err != nil {
		// The registry said no duplicate exists, so a busy runner key means
		// the previous goroutine is still draining. Roll back the record.
		_ = uc.jobs.Delete(ctx, userID)
		_ = poster.DeleteMessage(ctx, status)
		return domain.ErrAlreadyActive
	}

	metrics.JobStarted()
	return nil
}

func (uc *RelayUC) runJob(ctx context.Context, job *model.Job, ref model.SourceReference) {
	ctx = logging.WithUserID(logging.WithJobID(ctx, job.ID), job.UserID)
	log := logging.With(ctx, uc.log)
	log.Info().Str("kind", string(job.Kind)).Int("total", job.Total).Msg("job started")

	defer func() {
		if err := uc.jobs.Delete(context.Background(), job.UserID); err != nil {
			log.Warn().Err(err).Msg("job record delete failed")
		}
		metrics.JobFinished()
	}()

	poster := uc.pool.ResolvePoster(ctx, job.UserID)
	cancelled := false

	for i := 0; i < job.Total; i++ {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		if uc.cancelRequested(ctx, job.UserID) {
			cancelled = true
			break
		}

		item := ref.At(i)
		reader, rerr := uc.pool.ResolveReader(ctx, job.UserID)
		if rerr != nil {
			reader = nil
		}

		outcome := uc.pipe.Transfer(ctx, TransferRequest{
			UserID:     job.UserID,
			Ref:        item,
			Poster:     poster,
			Reader:     reader,
			Privileged: uc.pool.Privileged(ctx),
			DestChat:   job.UserID,
			Status:     job.ProgressMessage,
		})

		job.Current = i + 1
		if outcome.Counted() {
			job.Success++
		}
		job.UpdatedAt = time.Now()
		if err := uc.jobs.Update(ctx, job); err != nil {
			log.Warn().Err(err).Msg("job progress write failed")
		}

		if job.Total > 1 {
			line := fmt.Sprintf("%d/%d %s", job.Current, job.Total, outcome.Describe())
			_ = poster.EditMessage(ctx, job.ProgressMessage, line)
		}
		log.Debug().Int("item", job.Current).Str("outcome", string(outcome.Kind)).Msg("item done")

		// Fixed pause between items, skipped after the last one.
		if i < job.Total-1 {
			select {
			case <-ctx.Done():
				cancelled = true
			case <-time.After(uc.itemDelay):
			}
			if cancelled {
				break
			}
		}
	}

	summary := fmt.Sprintf("Completed. Success: %d/%d", job.Success, job.Total)
	if cancelled {
		summary = fmt.Sprintf("Cancelled. %d/%d attempted", job.Current, job.Total)
	}
	if job.Kind == model.JobSingle && !cancelled {
		// Single transfers already reported their outcome; drop the
		// transient status message instead of leaving a summary behind.
		_ = poster.DeleteMessage(ctx, job.ProgressMessage)
	} else {
		_ = poster.EditMessage(ctx, job.ProgressMessage, summary)
	}
	log.Info().Bool("cancelled", cancelled).Int("success", job.Success).Msg("job finished")
}

func (uc *RelayUC) cancelRequested(ctx context.Context, userID int64) bool {
	current, err := uc.jobs.Find(ctx, userID)
	if err != nil {
		// The record is the source of truth for cancellation; if it cannot be
		// read the job keeps going and the next iteration retries.
		return false
	}
	return current.CancelRequested
}

// RequestCancel flips the cancel flag on the user's job. The loop observes it
// before the next item. Returns domain.ErrNoActiveJob when nothing runs.
func (uc *RelayUC) RequestCancel(ctx context.Context, userID int64) error {
	ok, err := uc.jobs.SetCancel(ctx, userID)
	if err != nil {
		return fmt.Errorf("set cancel flag: %w", err)
	}
	if !ok {
		return domain.ErrNoActiveJob
	}
	return nil
}

// ActiveJobs lists every registered job, for the admin surface.
func (uc *RelayUC) ActiveJobs(ctx context.Context) ([]*model.Job, error) {
	return uc.jobs.ListActive(ctx)
}

// RecoverOrphans clears job records left behind by a previous process and
// tells their owners. Called once on startup, before polling begins.
func (uc *RelayUC) RecoverOrphans(ctx context.Context) error {
	orphans, err := uc.jobs.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list orphaned jobs: %w", err)
	}
	for _, job := range orphans {
		uc.log.Warn().Str("job_id", job.ID).Int64("user_id", job.UserID).Msg("clearing orphaned job")
		poster := uc.pool.ResolvePoster(ctx, job.UserID)
		_, _ = poster.SendText(ctx, job.UserID, "A previous task was interrupted by a restart. Start it again if needed.", 0)
		if err := uc.jobs.Delete(ctx, job.UserID); err != nil {
			uc.log.Error().Err(err).Int64("user_id", job.UserID).Msg("orphaned job delete failed")
		}
	}
	return nil
}

// Shutdown blocks until every running job goroutine has returned.
func (uc *RelayUC) Shutdown() {
	uc.runner.Wait()
}

// NewQuotaPolicy builds the batch-size policy from the configured limits:
// premium users get the premium limit, everyone else the free one.
func NewQuotaPolicy(users repository.UserRepository, free, premium int) QuotaPolicy {
	return func(ctx context.Context, userID int64) int {
		u, err := users.Find(ctx, userID)
		if err == nil && u != nil && u.Premium {
			return premium
		}
		return free
	}
}
