package repository

import (
	"context"

	"telegram-content-relay/internal/domain/model"
)

// UserRepository stores relay identities and free-form preferences per user.
type UserRepository interface {
	Save(ctx context.Context, u *model.UserSession) error
	// Find returns nil with no error for unknown users.
	Find(ctx context.Context, userID int64) (*model.UserSession, error)

	// GetPref returns def when the key is unset.
	GetPref(ctx context.Context, userID int64, key, def string) (string, error)
	SetPref(ctx context.Context, userID int64, key, value string) error
	DelPref(ctx context.Context, userID int64, key string) error
}
