package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/skilldesk/skilldesk-backend/internal/config"
)

// ErrDeadlineNotCached signals a cache miss; callers fall back to the
// session row, which is the source of truth.
var ErrDeadlineNotCached = errors.New("deadline not cached")

// DeadlineCache is a fast read path for a session's immutable quiz deadline.
type DeadlineCache interface {
	GetDeadline(ctx context.Context, sessionID uuid.UUID) (time.Time, error)
	SetDeadline(ctx context.Context, sessionID uuid.UUID, deadline time.Time) error
}

// RedisDeadlineCache stores deadlines as Unix timestamps in Redis.
type RedisDeadlineCache struct {
	rdb *redis.Client
}

// NewRedisDeadlineCache creates a new RedisDeadlineCache.
func NewRedisDeadlineCache(rdb *redis.Client) *RedisDeadlineCache {
	return &RedisDeadlineCache{rdb: rdb}
}

// GetDeadline returns the cached deadline or ErrDeadlineNotCached on a miss.
func (c *RedisDeadlineCache) GetDeadline(ctx context.Context, sessionID uuid.UUID) (time.Time, error) {
	val, err := c.rdb.Get(ctx, config.CacheKey.SessionDeadlineKey(sessionID.String())).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, ErrDeadlineNotCached
	}
	if err != nil {
		return time.Time{}, err
	}

	unix, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		// Corrupt cache entry. Treat as a miss so the DB value self-heals it.
		return time.Time{}, ErrDeadlineNotCached
	}
	return time.Unix(unix, 0), nil
}

// SetDeadline caches a deadline. No TTL: the value is tiny and immutable.
func (c *RedisDeadlineCache) SetDeadline(ctx context.Context, sessionID uuid.UUID, deadline time.Time) error {
	return c.rdb.Set(ctx, config.CacheKey.SessionDeadlineKey(sessionID.String()), deadline.Unix(), 0).Err()
}
