package gamecache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lease key only when still held by the caller, so
// a slow instance cannot free a lease that already expired and was re-taken.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Lease is a distributed mutual-exclusion lease held in the shared cache.
// The TTL bounds how long a crashed holder can stall the task.
type Lease struct {
	rdb   *redis.Client
	key   string
	owner string
	ttl   time.Duration
}

// NewLease scopes a lease to one scheduled task. owner should identify the
// instance (server ID).
func NewLease(rdb *redis.Client, task, owner string, ttl time.Duration) *Lease {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Lease{rdb: rdb, key: "lease:" + task, owner: owner, ttl: ttl}
}

// TryAcquire takes the lease if no other instance holds it.
func (l *Lease) TryAcquire(ctx context.Context) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, l.key, l.owner, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lease %s: %w", l.key, err)
	}
	return ok, nil
}

// Release frees the lease when still owned; expired or stolen leases are
// left alone.
func (l *Lease) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, l.rdb, []string{l.key}, l.owner).Err()
}
