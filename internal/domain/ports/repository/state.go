package repository

import (
	"context"

	"telegram-content-relay/internal/domain/model"
)

// StateRepository is the port for managing a user's conversational state.
// Implementations own the expiry policy for abandoned flows; an expired state
// reads back as absent.
type StateRepository interface {
	SetState(ctx context.Context, userID int64, state *model.ConversationState) error
	// GetState returns nil with no error when the user holds no state.
	GetState(ctx context.Context, userID int64) (*model.ConversationState, error)
	ClearState(ctx context.Context, userID int64) error
}
