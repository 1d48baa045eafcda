package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const budgetKey = "whoopsync:whoop:budget:day"

// RedisBudget shares the daily request count between every process that
// talks to the same WHOOP application (the server and CLI runs).
type RedisBudget struct {
	client *redis.Client
	key    string
	window time.Duration
}

func NewRedisBudget(client *redis.Client) *RedisBudget {
	return &RedisBudget{client: client, key: budgetKey, window: DayWindow}
}

func (b *RedisBudget) Increment(ctx context.Context) (int, error) {
	pipe := b.client.TxPipeline()
	incr := pipe.Incr(ctx, b.key)
	// NX: the window starts at the first request and is not extended by later ones.
	pipe.ExpireNX(ctx, b.key, b.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to increment daily budget: %w", err)
	}
	return int(incr.Val()), nil
}

func (b *RedisBudget) Used(ctx context.Context) (int, error) {
	n, err := b.client.Get(ctx, b.key).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read daily budget: %w", err)
	}
	return n, nil
}

// NewRedisClient parses a redis:// URL and verifies the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}
