package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const lockPrefix = "reconcile_lock:"

// Lock is a best-effort guard so that concurrent reads do not all poll the
// gateway for the same pending payment. Losing the lock only costs a
// duplicate status query; correctness never depends on it.
type Lock struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewLock(client *redis.Client, ttl time.Duration) *Lock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Lock{Client: client, TTL: ttl}
}

// Acquire takes the per-order guard. It returns false when another
// reconciliation currently holds it.
func (l *Lock) Acquire(ctx context.Context, orderID string) (bool, error) {
	return l.Client.SetNX(ctx, lockPrefix+orderID, "1", l.TTL).Result()
}

// Release drops the guard. The TTL reclaims it if the caller dies first.
func (l *Lock) Release(ctx context.Context, orderID string) error {
	return l.Client.Del(ctx, lockPrefix+orderID).Err()
}
