package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "maratonas:session:"

// RedisStorage keeps records in Redis, optionally expiring them.
type RedisStorage struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisOption configures a RedisStorage.
type RedisOption func(*RedisStorage)

// WithPrefix namespaces keys, e.g. per workstation user.
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStorage) { s.prefix = prefix }
}

// WithTTL expires records after ttl. Zero keeps them until removed.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStorage) { s.ttl = ttl }
}

// NewRedisStorage wraps an existing client.
func NewRedisStorage(client *redis.Client, opts ...RedisOption) *RedisStorage {
	s := &RedisStorage{client: client, prefix: defaultRedisPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *RedisStorage) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set uses a single SET, which Redis applies atomically.
func (s *RedisStorage) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, s.prefix+key, value, s.ttl).Err()
}

func (s *RedisStorage) Remove(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}
