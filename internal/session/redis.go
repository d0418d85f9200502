package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares sessions between API instances.  Entries are JSON
// under "<prefix>:<userID>" with the TTL set on the key.
type RedisStore struct {
	rdb    redis.Cmdable
	prefix string
}

func NewRedisStore(rdb redis.Cmdable, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "slms:session"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (r *RedisStore) key(userID uint64) string { return fmt.Sprintf("%s:%d", r.prefix, userID) }

func (r *RedisStore) Set(ctx context.Context, userID uint64, e Entry, ttl time.Duration) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, r.key(userID), b, ttl).Err()
}

func (r *RedisStore) Get(ctx context.Context, userID uint64) (Entry, bool, error) {
	b, err := r.rdb.Get(ctx, r.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		return Entry{}, false, fmt.Errorf("decode session %d: %w", userID, err)
	}
	return e, true, nil
}

func (r *RedisStore) Remove(ctx context.Context, userID uint64) error {
	return r.rdb.Del(ctx, r.key(userID)).Err()
}
