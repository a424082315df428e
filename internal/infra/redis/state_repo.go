package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"telegram-content-relay/internal/domain/model"
	"telegram-content-relay/internal/domain/ports/repository"

	"github.com/go-redis/redis/v8"
)

var _ repository.StateRepository = (*StateRepo)(nil)

// StateRepo manages user conversational state in Redis. The key TTL doubles
// as the abandoned-flow expiry: a user who never replies simply reads back as
// idle once the TTL lapses.
type StateRepo struct {
	client RedisClient
	ttl    time.Duration
}

func NewStateRepo(client RedisClient, ttl time.Duration) *StateRepo {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &StateRepo{client: client, ttl: ttl}
}

func (s *StateRepo) stateKey(userID int64) string {
	return fmt.Sprintf("flow_state:%d", userID)
}

func (s *StateRepo) SetState(ctx context.Context, userID int64, state *model.ConversationState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.stateKey(userID), data, s.ttl)
}

func (s *StateRepo) GetState(ctx context.Context, userID int64) (*model.ConversationState, error) {
	data, err := s.client.Get(ctx, s.stateKey(userID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var state model.ConversationState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *StateRepo) ClearState(ctx context.Context, userID int64) error {
	return s.client.Del(ctx, s.stateKey(userID))
}
