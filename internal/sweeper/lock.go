package sweeper

import (
	"context"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

const lockKeyPrefix = "clinic-booking:sweeper:"

// Locker hands each sweep window to a single instance.
type Locker interface {

	// Acquire takes the lock of the given window for ttl. It returns false if another instance
	// already holds it.
	Acquire(ctx context.Context, window string, ttl time.Duration) (bool, error)
}

// RedisLocker is a Locker over a redis SET NX.
type RedisLocker struct {
	client *redis.Client
	owner  string
}

// NewRedisLocker creates a Locker over the given redis client.
func NewRedisLocker(client *redis.Client) *RedisLocker {
	owner, err := os.Hostname()
	if err != nil || owner == "" {
		owner = "unknown"
	}
	return &RedisLocker{client: client, owner: owner}
}

func (r *RedisLocker) Acquire(ctx context.Context, window string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, lockKeyPrefix+window, r.owner, ttl).Result()
}
