package postgres

import (
	"context"
	"errors"
	"time"

	"telegram-content-relay/internal/domain/model"
	"telegram-content-relay/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

var _ repository.UserRepository = (*userRepo)(nil)

type userRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

func (r *userRepo) Save(ctx context.Context, u *model.UserSession) error {
	u.UpdatedAt = time.Now()

	const q = `
INSERT INTO relay_users (user_id, bot_token, session_encrypted, premium, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id) DO UPDATE SET
  bot_token = EXCLUDED.bot_token,
  session_encrypted = EXCLUDED.session_encrypted,
  premium = EXCLUDED.premium,
  updated_at = EXCLUDED.updated_at;`

	_, err := r.pool.Exec(ctx, q, u.UserID, u.BotToken, u.SessionEncrypted, u.Premium, u.UpdatedAt)
	return err
}

func (r *userRepo) Find(ctx context.Context, userID int64) (*model.UserSession, error) {
	const q = `
SELECT user_id, bot_token, session_encrypted, premium, updated_at
FROM relay_users WHERE user_id = $1;`

	var u model.UserSession
	err := r.pool.QueryRow(ctx, q, userID).Scan(
		&u.UserID, &u.BotToken, &u.SessionEncrypted, &u.Premium, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) GetPref(ctx context.Context, userID int64, key, def string) (string, error) {
	const q = `SELECT value FROM relay_prefs WHERE user_id = $1 AND key = $2;`
	var v string
	err := r.pool.QueryRow(ctx, q, userID, key).Scan(&v)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return def, nil
		}
		return def, err
	}
	return v, nil
}

func (r *userRepo) SetPref(ctx context.Context, userID int64, key, value string) error {
	const q = `
INSERT INTO relay_prefs (user_id, key, value)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, key) DO UPDATE SET value = EXCLUDED.value;`
	_, err := r.pool.Exec(ctx, q, userID, key, value)
	return err
}

func (r *userRepo) DelPref(ctx context.Context, userID int64, key string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM relay_prefs WHERE user_id = $1 AND key = $2;`, userID, key)
	return err
}
