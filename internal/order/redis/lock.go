package redis

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// Client is the subset of redis operations the lock needs; the real
// *redis.Client satisfies it and tests substitute an in-memory fake.
type Client interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Redis holds per-table advisory locks. A table is locked for the span of
// one order mutation so two concurrent writers cannot interleave a
// create against a status update that frees the same table. Locks carry a
// TTL so a crashed holder cannot wedge a table forever.
type Redis struct {
	Client Client
	TTL    time.Duration
}

func NewRedis(client Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = defaultLockTTL()
	}
	return &Redis{Client: client, TTL: ttl}
}

func defaultLockTTL() time.Duration {
	ttl := 30 * time.Second
	if s := os.Getenv("TABLE_LOCK_TTL_SECONDS"); s != "" {
		if secs, err := strconv.Atoi(s); err == nil && secs > 0 {
			ttl = time.Duration(secs) * time.Second
		}
	}
	return ttl
}

func lockKey(tableID int64) string {
	return fmt.Sprintf("table_lock:%d", tableID)
}

// LockTable takes the advisory lock for a table. The token identifies the
// holder; only the same token can unlock. Returns false when another
// mutation holds the lock.
func (r *Redis) LockTable(ctx context.Context, tableID int64, token string) (bool, error) {
	return r.Client.SetNX(ctx, lockKey(tableID), token, r.TTL).Result()
}

// UnlockTable releases the lock if this token still owns it. Releasing an
// expired or foreign lock is a no-op.
func (r *Redis) UnlockTable(ctx context.Context, tableID int64, token string) error {
	key := lockKey(tableID)
	val, err := r.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	if val == token {
		_, err := r.Client.Del(ctx, key).Result()
		return err
	}
	return nil
}
