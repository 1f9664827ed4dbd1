package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ProfileLocker serializes reconciliation per profile across worker
// instances. Acquire returns false when another worker holds the lock.
type ProfileLocker interface {
	Acquire(ctx context.Context, profileID uuid.UUID, ttl time.Duration) (bool, error)
	Release(ctx context.Context, profileID uuid.UUID) error
}

// RedisLocker implements ProfileLocker with a Redis SETNX lock. The TTL
// bounds how long a crashed worker can block a profile.
type RedisLocker struct {
	client *redis.Client
}

// NewRedisLocker creates a Redis-backed profile locker
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func lockKey(profileID uuid.UUID) string {
	return "reconcile:lock:" + profileID.String()
}

// Acquire takes the per-profile lock if it is free
func (l *RedisLocker) Acquire(ctx context.Context, profileID uuid.UUID, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockKey(profileID), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire reconcile lock: %w", err)
	}
	return ok, nil
}

// Release frees the per-profile lock
func (l *RedisLocker) Release(ctx context.Context, profileID uuid.UUID) error {
	if err := l.client.Del(ctx, lockKey(profileID)).Err(); err != nil {
		return fmt.Errorf("failed to release reconcile lock: %w", err)
	}
	return nil
}

// Ensure RedisLocker implements the interface
var _ ProfileLocker = (*RedisLocker)(nil)
