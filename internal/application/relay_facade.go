// File: internal/application/relay_facade.go
package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"telegram-content-relay/internal/domain"
	"telegram-content-relay/internal/domain/model"
	"telegram-content-relay/internal/domain/ports/adapter"
	"telegram-content-relay/internal/domain/ports/repository"
	"telegram-content-relay/internal/usecase"

	"github.com/rs/zerolog"
)

// RelayFacade is the single entry point the transport layer talks to. Each
// Handle method maps one user command to the use cases and returns the reply
// text to show; an empty reply means nothing should be sent.
type RelayFacade struct {
	flows  *usecase.FlowUC
	relay  *usecase.RelayUC
	users  repository.UserRepository
	cipher adapter.Cipher
	pool   *usecase.ClientPool
	log    *zerolog.Logger
}

func NewRelayFacade(
	flows *usecase.FlowUC,
	relay *usecase.RelayUC,
	users repository.UserRepository,
	cipher adapter.Cipher,
	pool *usecase.ClientPool,
	logger *zerolog.Logger,
) *RelayFacade {
	l := logger.With().Str("component", "RelayFacade").Logger()
	return &RelayFacade{flows: flows, relay: relay, users: users, cipher: cipher, pool: pool, log: &l}
}

// HandleSingle starts the one-message flow.
func (f *RelayFacade) HandleSingle(ctx context.Context, userID int64) string {
	reply, err := f.flows.StartFlow(ctx, userID, model.FlowSingle)
	if err != nil {
		f.log.Error().Err(err).Int64("user_id", userID).Msg("start single flow failed")
		return "Something went wrong. Try again."
	}
	return reply
}

// HandleBatch starts the batch flow.
func (f *RelayFacade) HandleBatch(ctx context.Context, userID int64) string {
	reply, err := f.flows.StartFlow(ctx, userID, model.FlowBatch)
	if err != nil {
		f.log.Error().Err(err).Int64("user_id", userID).Msg("start batch flow failed")
		return "Something went wrong. Try again."
	}
	return reply
}

// HandleText feeds free text into the user's pending flow. Text arriving with
// no flow active is ignored.
func (f *RelayFacade) HandleText(ctx context.Context, userID int64, text string) string {
	reply, err := f.flows.FeedText(ctx, userID, text)
	if err != nil {
		if errors.Is(err, domain.ErrFlowNotActive) {
			return ""
		}
		f.log.Error().Err(err).Int64("user_id", userID).Msg("flow input failed")
		return "Something went wrong. Try again."
	}
	return reply
}

// HandleCancel aborts the pending input flow, not a running job.
func (f *RelayFacade) HandleCancel(ctx context.Context, userID int64) string {
	reply, err := f.flows.Cancel(ctx, userID)
	if err != nil {
		f.log.Error().Err(err).Int64("user_id", userID).Msg("flow cancel failed")
		return "Something went wrong. Try again."
	}
	return reply
}

// HandleStop requests cancellation of the running job.
func (f *RelayFacade) HandleStop(ctx context.Context, userID int64) string {
	err := f.relay.RequestCancel(ctx, userID)
	switch {
	case err == nil:
		return "Stopping after the current item..."
	case errors.Is(err, domain.ErrNoActiveJob):
		return "No running task."
	default:
		f.log.Error().Err(err).Int64("user_id", userID).Msg("job cancel failed")
		return "Something went wrong. Try again."
	}
}

// HandleSetBot stores the user's own relay-bot token and drops any cached
// handle built from the old one.
func (f *RelayFacade) HandleSetBot(ctx context.Context, userID int64, token string) string {
	token = strings.TrimSpace(token)
	if token == "" || !strings.Contains(token, ":") {
		return "Send the command followed by a bot token."
	}
	u, err := f.users.Find(ctx, userID)
	if err != nil {
		f.log.Error().Err(err).Int64("user_id", userID).Msg("load user failed")
		return "Something went wrong. Try again."
	}
	if u == nil {
		u = &model.UserSession{UserID: userID}
	}
	u.BotToken = token
	u.UpdatedAt = time.Now()
	if err := f.users.Save(ctx, u); err != nil {
		f.log.Error().Err(err).Int64("user_id", userID).Msg("save bot token failed")
		return "Could not save the token. Try again."
	}
	f.pool.Invalidate(userID, usecase.CapOwnedBot)
	return "Bot saved. Transfers now post through your bot."
}

// HandleRemoveBot forgets the user's bot token.
func (f *RelayFacade) HandleRemoveBot(ctx context.Context, userID int64) string {
	u, err := f.users.Find(ctx, userID)
	if err != nil {
		f.log.Error().Err(err).Int64("user_id", userID).Msg("load user failed")
		return "Something went wrong. Try again."
	}
	if u == nil || !u.HasBot() {
		return "No bot configured."
	}
	u.BotToken = ""
	u.UpdatedAt = time.Now()
	if err := f.users.Save(ctx, u); err != nil {
		f.log.Error().Err(err).Int64("user_id", userID).Msg("remove bot failed")
		return "Could not remove the bot. Try again."
	}
	f.pool.Invalidate(userID, usecase.CapOwnedBot)
	return "Bot removed."
}

// HandleSetSession stores the user's session credential, encrypted at rest.
func (f *RelayFacade) HandleSetSession(ctx context.Context, userID int64, session string) string {
	session = strings.TrimSpace(session)
	if session == "" {
		return "Send the command followed by a session string."
	}
	encrypted, err := f.cipher.Encrypt(session)
	if err != nil {
		f.log.Error().Err(err).Int64("user_id", userID).Msg("session encrypt failed")
		return "Could not store the session. Try again."
	}
	u, ferr := f.users.Find(ctx, userID)
	if ferr != nil {
		f.log.Error().Err(ferr).Int64("user_id", userID).Msg("load user failed")
		return "Something went wrong. Try again."
	}
	if u == nil {
		u = &model.UserSession{UserID: userID}
	}
	u.SessionEncrypted = encrypted
	u.UpdatedAt = time.Now()
	if err := f.users.Save(ctx, u); err != nil {
		f.log.Error().Err(err).Int64("user_id", userID).Msg("save session failed")
		return "Could not store the session. Try again."
	}
	f.pool.Invalidate(userID, usecase.CapOwnedUser)
	return "Session saved. Restricted sources are now readable."
}

// HandleLogout forgets the user's session credential and closes its handles.
func (f *RelayFacade) HandleLogout(ctx context.Context, userID int64) string {
	u, err := f.users.Find(ctx, userID)
	if err != nil {
		f.log.Error().Err(err).Int64("user_id", userID).Msg("load user failed")
		return "Something went wrong. Try again."
	}
	if u == nil || !u.HasSession() {
		return "No session stored."
	}
	u.SessionEncrypted = ""
	u.UpdatedAt = time.Now()
	if err := f.users.Save(ctx, u); err != nil {
		f.log.Error().Err(err).Int64("user_id", userID).Msg("logout failed")
		return "Could not log out. Try again."
	}
	f.pool.Logout(userID)
	return "Logged out. The stored session was deleted."
}

// ActiveJobs exposes the running jobs for the admin surface.
func (f *RelayFacade) ActiveJobs(ctx context.Context) ([]*model.Job, error) {
	return f.relay.ActiveJobs(ctx)
}

// RequestCancelJob cancels a user's job from the admin surface. Returns false
// when the user has no job.
func (f *RelayFacade) RequestCancelJob(ctx context.Context, userID int64) (bool, error) {
	err := f.relay.RequestCancel(ctx, userID)
	if errors.Is(err, domain.ErrNoActiveJob) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
