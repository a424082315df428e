// File: internal/usecase/client_pool.go
package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"telegram-content-relay/internal/domain"
	"telegram-content-relay/internal/domain/ports/adapter"
	"telegram-content-relay/internal/domain/ports/repository"
	"telegram-content-relay/internal/infra/metrics"
	red "telegram-content-relay/internal/infra/redis"

	"github.com/rs/zerolog"
)

// Capability names what a resolved client must be able to do.
type Capability string

const (
	CapOwnedBot       Capability = "owned_bot"       // post under the user's own bot identity
	CapOwnedUser      Capability = "owned_user"      // read as the user's authenticated session
	CapFallbackShared Capability = "fallback_shared" // operator-provided shared identity
	CapDefaultBot     Capability = "default_bot"     // the platform-wide relay bot
)

type poolKey struct {
	userID int64
	cap    Capability
}

// The shared identity is not user-scoped; it caches under this key.
const sharedKeyUser int64 = 0

// ClientPool lazily creates and caches live client handles per user per
// capability. Starting a handle is a slow network handshake, so resolutions
// for the same (user, capability) pair are serialized with a keyed lock while
// different users never wait on each other.
type ClientPool struct {
	factory       adapter.ClientFactory
	users         repository.UserRepository
	cipher        adapter.Cipher
	locker        red.Locker
	defaultBot    adapter.MessengerClient
	sharedSession string

	// How long a losing resolver waits for the winner before giving up, and
	// how often it re-checks the cache while waiting.
	resolveWait time.Duration
	retryDelay  time.Duration

	mu    sync.Mutex
	cache map[poolKey]adapter.MessengerClient

	log *zerolog.Logger
}

func NewClientPool(
	factory adapter.ClientFactory,
	users repository.UserRepository,
	cipher adapter.Cipher,
	locker red.Locker,
	defaultBot adapter.MessengerClient,
	sharedSession string,
	logger *zerolog.Logger,
) *ClientPool {
	l := logger.With().Str("component", "ClientPool").Logger()
	return &ClientPool{
		factory:       factory,
		users:         users,
		cipher:        cipher,
		locker:        locker,
		defaultBot:    defaultBot,
		sharedSession: sharedSession,
		resolveWait:   30 * time.Second,
		retryDelay:    250 * time.Millisecond,
		cache:         map[poolKey]adapter.MessengerClient{},
		log:           &l,
	}
}

// Resolve returns a usable client for the capability, or
// domain.ErrCapabilityUnavailable. Connection failures never propagate as
// anything else; callers fail the item, not the job.
func (p *ClientPool) Resolve(ctx context.Context, userID int64, cap Capability) (adapter.MessengerClient, error) {
	if cap == CapDefaultBot {
		return p.defaultBot, nil
	}

	key := poolKey{userID: userID, cap: cap}
	if cap == CapFallbackShared {
		key.userID = sharedKeyUser
	}

	if c := p.cached(key); c != nil {
		metrics.IncResolution(string(cap), "hit")
		return c, nil
	}

	// Serialize handle creation per (user, capability); other users proceed
	// on their own keys. A losing resolver waits for the winner and re-checks
	// the cache, so a concurrent resolution degrades to a cache hit rather
	// than a failed item.
	lockKey := fmt.Sprintf("client_resolve:%d:%s", key.userID, cap)
	token, err := p.locker.TryLock(ctx, lockKey, 30*time.Second)
	for deadline := time.Now().Add(p.resolveWait); err != nil; {
		if c := p.cached(key); c != nil {
			metrics.IncResolution(string(cap), "hit")
			return c, nil
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			metrics.IncResolution(string(cap), "unavailable")
			return nil, fmt.Errorf("%w: resolution lock: %v", domain.ErrCapabilityUnavailable, err)
		}
		select {
		case <-ctx.Done():
		case <-time.After(p.retryDelay):
		}
		token, err = p.locker.TryLock(ctx, lockKey, 30*time.Second)
	}
	defer func() { _ = p.locker.Unlock(ctx, lockKey, token) }()

	if c := p.cached(key); c != nil {
		metrics.IncResolution(string(cap), "hit")
		return c, nil
	}

	client, err := p.build(ctx, userID, cap)
	if err != nil {
		metrics.IncResolution(string(cap), "unavailable")
		return nil, err
	}

	p.mu.Lock()
	p.cache[key] = client
	p.mu.Unlock()
	metrics.IncResolution(string(cap), "created")
	return client, nil
}

func (p *ClientPool) build(ctx context.Context, userID int64, cap Capability) (adapter.MessengerClient, error) {
	switch cap {
	case CapOwnedBot:
		u, err := p.users.Find(ctx, userID)
		if err != nil || !u.HasBot() {
			return nil, domain.ErrCapabilityUnavailable
		}
		c, err := p.factory.NewBotClient(ctx, u.BotToken)
		if err != nil {
			p.log.Warn().Err(err).Int64("user_id", userID).Msg("owned bot start failed")
			return nil, fmt.Errorf("%w: owned bot", domain.ErrCapabilityUnavailable)
		}
		return c, nil

	case CapOwnedUser:
		u, err := p.users.Find(ctx, userID)
		if err != nil || !u.HasSession() {
			return nil, domain.ErrCapabilityUnavailable
		}
		session, err := p.cipher.Decrypt(u.SessionEncrypted)
		if err != nil {
			p.log.Warn().Err(err).Int64("user_id", userID).Msg("session decrypt failed")
			return nil, fmt.Errorf("%w: session credential", domain.ErrCapabilityUnavailable)
		}
		c, err := p.factory.NewSessionClient(ctx, session)
		if err != nil {
			p.log.Warn().Err(err).Int64("user_id", userID).Msg("user session start failed")
			return nil, fmt.Errorf("%w: user session", domain.ErrCapabilityUnavailable)
		}
		return c, nil

	case CapFallbackShared:
		if p.sharedSession == "" {
			return nil, domain.ErrCapabilityUnavailable
		}
		c, err := p.factory.NewSessionClient(ctx, p.sharedSession)
		if err != nil {
			p.log.Warn().Err(err).Msg("shared session start failed")
			return nil, fmt.Errorf("%w: shared session", domain.ErrCapabilityUnavailable)
		}
		return c, nil
	}
	return nil, domain.ErrCapabilityUnavailable
}

// ResolveReader picks the best identity for read access: the user's own
// session, else the shared fallback.
func (p *ClientPool) ResolveReader(ctx context.Context, userID int64) (adapter.MessengerClient, error) {
	if c, err := p.Resolve(ctx, userID, CapOwnedUser); err == nil {
		return c, nil
	}
	return p.Resolve(ctx, userID, CapFallbackShared)
}

// ResolvePoster picks the identity for write access: the user's own bot,
// else the platform default bot.
func (p *ClientPool) ResolvePoster(ctx context.Context, userID int64) adapter.MessengerClient {
	if c, err := p.Resolve(ctx, userID, CapOwnedBot); err == nil {
		return c
	}
	return p.defaultBot
}

// Privileged returns the high-capacity shared identity when configured,
// nil otherwise.
func (p *ClientPool) Privileged(ctx context.Context) adapter.MessengerClient {
	c, err := p.Resolve(ctx, sharedKeyUser, CapFallbackShared)
	if err != nil {
		return nil
	}
	return c
}

func (p *ClientPool) cached(key poolKey) adapter.MessengerClient {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cache[key]
}

// Invalidate tears down one cached handle, e.g. after a disconnect.
func (p *ClientPool) Invalidate(userID int64, cap Capability) {
	key := poolKey{userID: userID, cap: cap}
	if cap == CapFallbackShared {
		key.userID = sharedKeyUser
	}
	p.mu.Lock()
	c := p.cache[key]
	delete(p.cache, key)
	p.mu.Unlock()
	if c != nil {
		c.Close()
	}
}

// Logout tears down every handle owned by the user, after a credential
// change or an explicit logout.
func (p *ClientPool) Logout(userID int64) {
	p.Invalidate(userID, CapOwnedBot)
	p.Invalidate(userID, CapOwnedUser)
}
