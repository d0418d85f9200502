package model

import "time"

// ResetToken models an entry in the `reset_tokens` table.  Only the bcrypt
// hash of the token handed to the user is stored.  A user owns at most one
// row; requesting a new token replaces it.
type ResetToken struct {
	UserID    uint64
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token is no longer usable at now.
func (t *ResetToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
