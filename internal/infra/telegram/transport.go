// File: internal/infra/telegram/transport.go
package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-content-relay/internal/application"
	"telegram-content-relay/internal/config"
	"telegram-content-relay/internal/infra/logging"
	red "telegram-content-relay/internal/infra/redis"
)

const helpText = `Commands:
/single - fetch one message by link
/batch - fetch a range of messages
/cancel - abort the pending command
/stop - stop the running task
/setbot <token> - post through your own bot
/rembot - remove your bot
/setsession <string> - store a reader session
/logout - delete the stored session`

// Transport polls the platform for updates and dispatches them to the facade
// through a fixed worker fan-out. Engine logic lives behind the facade; this
// layer only routes.
type Transport struct {
	client  *Client
	cfg     *config.BotConfig
	facade  *application.RelayFacade
	limiter *red.RateLimiter
	admins  map[int64]struct{}

	workers       int
	cancelPolling context.CancelFunc
	log           *zerolog.Logger
}

func NewTransport(
	client *Client,
	cfg *config.BotConfig,
	facade *application.RelayFacade,
	limiter *red.RateLimiter,
	logger *zerolog.Logger,
) *Transport {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 5
	}
	admins := make(map[int64]struct{}, len(cfg.AdminIDs))
	for _, id := range cfg.AdminIDs {
		admins[id] = struct{}{}
	}
	l := logger.With().Str("component", "Transport").Logger()
	return &Transport{
		client:  client,
		cfg:     cfg,
		facade:  facade,
		limiter: limiter,
		admins:  admins,
		workers: workers,
		log:     &l,
	}
}

// StartPolling consumes updates until ctx is cancelled.
func (t *Transport) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.client.Bot().GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	t.cancelPolling = cancel

	var wg sync.WaitGroup
	queue := make(chan tgbotapi.Update, 100)

	for i := 0; i < t.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case update, ok := <-queue:
					if !ok {
						return
					}
					t.handleUpdate(ctx, update)
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(queue)
		for {
			select {
			case update := <-updates:
				select {
				case queue <- update:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	<-ctx.Done()
	t.client.Bot().StopReceivingUpdates()
	wg.Wait()
	return nil
}

// StopPolling ends the polling loop.
func (t *Transport) StopPolling() {
	if t.cancelPolling != nil {
		t.cancelPolling()
	}
}

func (t *Transport) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	msg := update.Message
	userID := msg.From.ID
	ctx = logging.WithUserID(ctx, userID)

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	reply := ""
	if strings.HasPrefix(text, "/") {
		command, arg := splitCommand(text)
		if !t.allow(ctx, userID, command) {
			reply = "Too many requests. Slow down."
		} else {
			reply = t.dispatch(ctx, userID, command, arg)
		}
	} else {
		reply = t.facade.HandleText(ctx, userID, text)
	}

	if reply != "" {
		t.reply(ctx, msg.Chat.ID, msg.MessageID, reply)
	}
}

func (t *Transport) dispatch(ctx context.Context, userID int64, command, arg string) string {
	switch command {
	case "/start":
		return "Send a message link with /single, or a range with /batch.\n\n" + helpText
	case "/help":
		return helpText
	case "/single":
		return t.facade.HandleSingle(ctx, userID)
	case "/batch":
		return t.facade.HandleBatch(ctx, userID)
	case "/cancel":
		return t.facade.HandleCancel(ctx, userID)
	case "/stop":
		return t.facade.HandleStop(ctx, userID)
	case "/setbot":
		return t.facade.HandleSetBot(ctx, userID, arg)
	case "/rembot":
		return t.facade.HandleRemoveBot(ctx, userID)
	case "/setsession":
		return t.facade.HandleSetSession(ctx, userID, arg)
	case "/logout":
		return t.facade.HandleLogout(ctx, userID)
	case "/jobs":
		if !t.isAdmin(userID) {
			return "You are not authorized to use this command."
		}
		return t.jobsReport(ctx)
	}
	return "Unknown command. Send /help for the list."
}

func (t *Transport) jobsReport(ctx context.Context) string {
	jobs, err := t.facade.ActiveJobs(ctx)
	if err != nil {
		t.log.Error().Err(err).Msg("active jobs lookup failed")
		return "Could not list jobs."
	}
	if len(jobs) == 0 {
		return "No running jobs."
	}
	var b strings.Builder
	for _, j := range jobs {
		fmt.Fprintf(&b, "%d: %s %d/%d\n", j.UserID, j.Kind, j.Current, j.Total)
	}
	return b.String()
}

func (t *Transport) isAdmin(userID int64) bool {
	_, ok := t.admins[userID]
	return ok
}

// allow applies the per-user per-command rate limit. Limiter failures fail
// open: a degraded redis must not stop the bot.
func (t *Transport) allow(ctx context.Context, userID int64, command string) bool {
	if t.limiter == nil {
		return true
	}
	ok, err := t.limiter.Allow(ctx, red.UserCommandKey(userID, strings.TrimPrefix(command, "/")), 10, time.Minute)
	if err != nil {
		t.log.Warn().Err(err).Msg("rate limiter unavailable")
		return true
	}
	return ok
}

func (t *Transport) reply(ctx context.Context, chatID int64, replyTo int, text string) {
	if _, err := t.client.SendText(ctx, chatID, text, replyTo); err != nil {
		t.log.Warn().Err(err).Int64("chat_id", chatID).Msg("reply failed")
	}
}

// splitCommand separates the command word from its argument and strips any
// @botname suffix.
func splitCommand(text string) (string, string) {
	command, arg, _ := strings.Cut(text, " ")
	if at := strings.Index(command, "@"); at > 0 {
		command = command[:at]
	}
	return strings.ToLower(command), strings.TrimSpace(arg)
}
