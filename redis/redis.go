package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// InitRedis connects to Redis and checks the connection.
func InitRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	fmt.Println("✅ Connected to Redis")
	return client, nil
}
