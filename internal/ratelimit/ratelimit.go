package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter bounds how many publishes an organization may run per window.
// Counters live in Redis so every worker instance sees the same budget.
type Limiter interface {
	Allow(ctx context.Context, orgID int64) (bool, error)
}

type redisLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, limit int64, window time.Duration) Limiter {
	return &redisLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

func (l *redisLimiter) Allow(ctx context.Context, orgID int64) (bool, error) {
	bucket := time.Now().Unix() / int64(l.window.Seconds())
	key := fmt.Sprintf("ratelimit:publish:%d:%d", orgID, bucket)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	if count == 1 {
		// First hit in the window owns setting the expiry.
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			slog.Info(err.Error())
		}
	}

	return count <= l.limit, nil
}
