package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/slms/leave-service/internal/model"
)

// TokenRepo persists password reset tokens, one row per user holding only
// the token hash.
type TokenRepo struct{ db *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{db: db} }

// Replace stores hash as the user's only reset token.
func (r *TokenRepo) Replace(ctx context.Context, userID uint64, hash string, exp time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reset_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)
		 ON DUPLICATE KEY UPDATE token_hash = VALUES(token_hash), expires_at = VALUES(expires_at),
		 created_at = CURRENT_TIMESTAMP`,
		userID, hash, exp)
	return err
}

// Find returns the user's reset token.  Expiry is left to the caller.
func (r *TokenRepo) Find(ctx context.Context, userID uint64) (*model.ResetToken, error) {
	var t model.ResetToken
	err := r.db.QueryRowContext(ctx,
		"SELECT user_id, token_hash, created_at, expires_at FROM reset_tokens WHERE user_id = ?",
		userID).Scan(&t.UserID, &t.TokenHash, &t.CreatedAt, &t.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Delete drops the user's reset token, if any.
func (r *TokenRepo) Delete(ctx context.Context, userID uint64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM reset_tokens WHERE user_id = ?", userID)
	return err
}

// DeleteExpired purges tokens that expired before now.
func (r *TokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM reset_tokens WHERE expires_at <= ?", now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
