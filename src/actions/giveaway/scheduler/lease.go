package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// renewScript extends the lease only if this owner still holds it.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLease lets one worker replica at a time run scheduler ticks.
type RedisLease struct {
	rdb   *redis.Client
	key   string
	owner string
	ttl   time.Duration
}

// NewRedisLease returns a lease held under key for ttl at a time.
func NewRedisLease(rdb *redis.Client, key string, ttl time.Duration) *RedisLease {
	return &RedisLease{rdb: rdb, key: key, owner: uuid.NewString(), ttl: ttl}
}

// Acquire takes the lease if it is free, or renews it if this replica
// already holds it.
func (l *RedisLease) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, l.key, l.owner, l.ttl).Result()
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}
	renewed, err := renewScript.Run(ctx, l.rdb, []string{l.key}, l.owner, l.ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return renewed == 1, nil
}

// Release gives the lease up if this replica holds it.
func (l *RedisLease) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, l.rdb, []string{l.key}, l.owner).Err()
}
