// Package session keeps the active session of each user.  A bearer token
// is only accepted while the entry for its user still exists, which makes
// logout, deactivation and password reset effective immediately.
package session

import (
	"context"
	"time"

	"github.com/slms/leave-service/internal/model"
)

// Entry is what the auth guard needs on every request: the issued token
// and a snapshot of the account.
type Entry struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Store is keyed by user id.  Get reports ok=false for missing or expired
// entries; it returns an error only when the backend itself fails.
type Store interface {
	Set(ctx context.Context, userID uint64, e Entry, ttl time.Duration) error
	Get(ctx context.Context, userID uint64) (Entry, bool, error)
	Remove(ctx context.Context, userID uint64) error
}
