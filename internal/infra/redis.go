package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisOpTimeout = 2 * time.Second

// NewRedisClient builds a client from a redis:// URL, names the connection
// and verifies connectivity. Operations that do not set their own deadline
// are bounded by short read and write timeouts.
func NewRedisClient(ctx context.Context, url, clientName string) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("redis url is required")
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if clientName != "" {
		opt.ClientName = clientName
	}
	if opt.ReadTimeout == 0 {
		opt.ReadTimeout = redisOpTimeout
	}
	if opt.WriteTimeout == 0 {
		opt.WriteTimeout = redisOpTimeout
	}

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}
