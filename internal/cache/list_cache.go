package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// List kinds cached per owner.
const (
	KindTasks      = "tasks"
	KindNotes      = "notes"
	KindCategories = "categories"
)

const keyPrefix = "taskflow:list:"

// ListCache caches per-owner list responses in Redis.
type ListCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewListCache returns a new ListCache.
func NewListCache(rdb *redis.Client, ttl time.Duration) *ListCache {
	return &ListCache{rdb: rdb, ttl: ttl}
}

func listKey(owner, kind string) string {
	return keyPrefix + owner + ":" + kind
}

// Get decodes the cached list into out. ok is false on a miss.
func (c *ListCache) Get(ctx context.Context, owner, kind string, out any) (bool, error) {
	b, err := c.rdb.Get(ctx, listKey(owner, kind)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores the list in cache.
func (c *ListCache) Set(ctx context.Context, owner, kind string, list any) error {
	b, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, listKey(owner, kind), b, c.ttl).Err()
}

// Invalidate drops the given kinds for owner (cache invalidation on write).
func (c *ListCache) Invalidate(ctx context.Context, owner string, kinds ...string) error {
	if len(kinds) == 0 {
		return nil
	}
	keys := make([]string, len(kinds))
	for i, k := range kinds {
		keys[i] = listKey(owner, k)
	}
	return c.rdb.Del(ctx, keys...).Err()
}
