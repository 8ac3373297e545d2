package probes

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func RedisPing(client redis.UniversalClient) HealthFunc {
	return func(ctx context.Context) (bool, float64, error) {
		start := time.Now()
		err := client.Ping(ctx).Err()
		latency := time.Since(start).Seconds() * 1000
		if err != nil {
			return false, latency, fmt.Errorf("ping cache: %w", err)
		}
		return true, latency, nil
	}
}

func RedisQueueDepth(client redis.UniversalClient, key string) DepthFunc {
	return func(ctx context.Context) (int, error) {
		n, err := client.LLen(ctx, key).Result()
		if err != nil {
			return 0, fmt.Errorf("llen %s: %w", key, err)
		}
		return int(n), nil
	}
}
