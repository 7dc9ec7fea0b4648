package scheduler

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLock is a SET NX lock; keys expire on their own.
type RedisLock struct {
	rdb *redis.Client
}

func NewRedisLock(rdb *redis.Client) *RedisLock {
	return &RedisLock{rdb: rdb}
}

func (l *RedisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.rdb.SetNX(ctx, key, "1", ttl).Result()
}
