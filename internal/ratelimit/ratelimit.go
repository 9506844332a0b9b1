package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether another attempt for key is allowed in the current window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Noop allows everything; used when no Redis address is configured.
type Noop struct{}

func (Noop) Allow(context.Context, string) (bool, error) { return true, nil }

// Redis is a fixed-window counter keyed per caller; the window starts at the first attempt.
type Redis struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRedis(ctx context.Context, addr string, limit int, window time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return &Redis{client: client, limit: limit, window: window}, nil
}

// Allow counts one attempt for key. The counter is created with its TTL in the same
// transaction as the increment, so a counter never outlives its window.
func (l *Redis) Allow(ctx context.Context, key string) (bool, error) {
	k := Key(key)

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, k, 0, l.window)
		incr = pipe.Incr(ctx, k)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("count attempt %s: %w", k, err)
	}
	return incr.Val() <= int64(l.limit), nil
}

func (l *Redis) Close() error {
	return l.client.Close()
}

// Key namespaces limiter counters.
func Key(key string) string {
	return "ratelimit:login:" + key
}
