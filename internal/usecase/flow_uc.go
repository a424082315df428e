// File: internal/usecase/flow_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"telegram-content-relay/internal/domain"
	"telegram-content-relay/internal/domain/model"
	"telegram-content-relay/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

// JobStarter hands a completed flow off to the job layer.
type JobStarter interface {
	StartSingle(ctx context.Context, userID int64, ref model.SourceReference) error
	StartBatch(ctx context.Context, userID int64, ref model.SourceReference, count int) error
}

// QuotaPolicy returns the maximum batch size for the user.
type QuotaPolicy func(ctx context.Context, userID int64) int

// FlowUC drives the per-user multi-step input flow. At most one state per
// user; abandoned states expire through the repository TTL.
type FlowUC struct {
	states  repository.StateRepository
	starter JobStarter
	quota   QuotaPolicy
	log     *zerolog.Logger
}

func NewFlowUC(states repository.StateRepository, starter JobStarter, quota QuotaPolicy, logger *zerolog.Logger) *FlowUC {
	l := logger.With().Str("component", "FlowUC").Logger()
	return &FlowUC{states: states, starter: starter, quota: quota, log: &l}
}

// StartFlow begins a new flow, discarding any prior one. A running job is
// untouched; only the pending input collection resets.
func (uc *FlowUC) StartFlow(ctx context.Context, userID int64, kind model.FlowKind) (string, error) {
	state := &model.ConversationState{
		Kind:      kind,
		Step:      model.StepAwaitingLink,
		CreatedAt: time.Now(),
	}
	if err := uc.states.SetState(ctx, userID, state); err != nil {
		return "", fmt.Errorf("persist flow state: %w", err)
	}
	switch kind {
	case model.FlowBatch:
		return "Send the link of the first message to start from.", nil
	default:
		return "Send the link of the message to fetch.", nil
	}
}

// FeedText advances the user's flow with one line of input and returns the
// reply to show. ErrFlowNotActive means no flow is waiting for input.
func (uc *FlowUC) FeedText(ctx context.Context, userID int64, text string) (string, error) {
	state, err := uc.states.GetState(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load flow state: %w", err)
	}
	if state == nil {
		return "", domain.ErrFlowNotActive
	}

	switch state.Step {
	case model.StepAwaitingLink:
		return uc.feedLink(ctx, userID, state, text)
	case model.StepAwaitingCount:
		return uc.feedCount(ctx, userID, state, text)
	}

	uc.log.Warn().Int64("user_id", userID).Str("step", string(state.Step)).Msg("unknown flow step, clearing")
	_ = uc.states.ClearState(ctx, userID)
	return "", domain.ErrFlowNotActive
}

func (uc *FlowUC) feedLink(ctx context.Context, userID int64, state *model.ConversationState, text string) (string, error) {
	ref, err := model.ParseMessageLink(strings.TrimSpace(text))
	if err != nil {
		// A bad link aborts the flow rather than looping on retries.
		_ = uc.states.ClearState(ctx, userID)
		return "That does not look like a message link. Start over when ready.", nil
	}

	if state.Kind == model.FlowSingle {
		_ = uc.states.ClearState(ctx, userID)
		if err := uc.starter.StartSingle(ctx, userID, ref); err != nil {
			return uc.startFailure(err), nil
		}
		return "", nil
	}

	state.Link = ref
	state.Step = model.StepAwaitingCount
	if err := uc.states.SetState(ctx, userID, state); err != nil {
		return "", fmt.Errorf("persist flow state: %w", err)
	}
	limit := uc.quota(ctx, userID)
	return fmt.Sprintf("How many messages? (max %d)", limit), nil
}

func (uc *FlowUC) feedCount(ctx context.Context, userID int64, state *model.ConversationState, text string) (string, error) {
	count, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || count < 1 {
		return "Send a positive number.", nil
	}

	limit := uc.quota(ctx, userID)
	if count > limit {
		return fmt.Sprintf("Limit is %d. Send a smaller number.", limit), nil
	}

	_ = uc.states.ClearState(ctx, userID)
	if err := uc.starter.StartBatch(ctx, userID, state.Link, count); err != nil {
		return uc.startFailure(err), nil
	}
	return "", nil
}

// Cancel aborts any pending flow. It does not touch a running job.
func (uc *FlowUC) Cancel(ctx context.Context, userID int64) (string, error) {
	state, err := uc.states.GetState(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load flow state: %w", err)
	}
	if state == nil {
		return "Nothing to cancel.", nil
	}
	if err := uc.states.ClearState(ctx, userID); err != nil {
		return "", fmt.Errorf("clear flow state: %w", err)
	}
	return "Cancelled.", nil
}

func (uc *FlowUC) startFailure(err error) string {
	if errors.Is(err, domain.ErrAlreadyActive) {
		return "You already have a running task. Use /stop first."
	}
	return "Could not start the task. Try again later."
}
