package db

import (
	"context"
	"fmt"
	"time"

	"scorelib/config"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis opens a Redis connection for the listing cache and verifies
// it with a ping. The caller owns the returned client.
func ConnectRedis(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}
