package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a fixed-window limiter backed by a shared Redis counter per key,
// so all server instances agree on the count.
//
// On transport failure the limiter fails open: availability is prioritized
// over strict enforcement, and the miss is logged rather than surfaced.
type Redis struct {
	client *redis.Client
	prefix string
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, prefix: "captureai:rl:"}
}

func (r *Redis) Check(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	redisKey := r.prefix + key

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	// ExpireNX starts the window on the first hit and leaves it alone after.
	pipe.ExpireNX(ctx, redisKey, window)
	ttlCmd := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("rate limit check failed, allowing request", "key", key, "error", err)
		return Result{Allowed: true, Used: 0, Limit: limit, ResetAt: time.Now().Add(window)}, nil
	}

	count := int(incr.Val())
	ttl := ttlCmd.Val()
	if ttl < 0 {
		ttl = window
	}
	resetAt := time.Now().Add(ttl)

	if count > limit {
		return Result{Allowed: false, Used: count, Limit: limit, ResetAt: resetAt}, nil
	}
	return Result{Allowed: true, Used: count, Limit: limit, ResetAt: resetAt}, nil
}
