package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/lxp-platform/fabric/worker/internal/repository"
)

var _ repository.DedupStore = (*redisDedupStore)(nil)

const (
	lockKeyPrefix = "fabric:worker:lock:"
	lockTTL       = 10 * time.Minute
)

type redisDedupStore struct {
	client *goredis.Client
}

// NewRedisDedupStore creates a Redis-backed DedupStore using SETNX.
func NewRedisDedupStore(client *goredis.Client) repository.DedupStore {
	return &redisDedupStore{client: client}
}

// AcquireLock uses Redis SETNX to atomically acquire a processing lock.
func (r *redisDedupStore) AcquireLock(ctx context.Context, jobID string) (bool, error) {
	key := lockKeyPrefix + jobID
	ok, err := r.client.SetNX(ctx, key, time.Now().Unix(), lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis: acquire lock: %w", err)
	}
	return ok, nil
}

// ReleaseLock sets a TTL on the lock key for eventual cleanup.
func (r *redisDedupStore) ReleaseLock(ctx context.Context, jobID string) error {
	key := lockKeyPrefix + jobID
	return r.client.Expire(ctx, key, lockTTL).Err()
}
