package auth

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedPrefix = "maratonas:revoked:"

// Revocations remembers logged-out token ids until the tokens expire.
type Revocations interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	Revoked(ctx context.Context, tokenID string) (bool, error)
}

type redisRevocations struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisRevocations stores revoked ids as expiring keys.
func NewRedisRevocations(client *redis.Client) Revocations {
	return &redisRevocations{client: client, now: time.Now}
}

func (r *redisRevocations) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, revokedPrefix+tokenID, 1, ttl).Err()
}

func (r *redisRevocations) Revoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type memoryRevocations struct {
	mu    sync.Mutex
	until map[string]time.Time
	now   func() time.Time
}

// NewMemoryRevocations keeps revoked ids in process memory.
func NewMemoryRevocations() Revocations {
	return &memoryRevocations{until: make(map[string]time.Time), now: time.Now}
}

func (m *memoryRevocations) Revoke(_ context.Context, tokenID string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for id, exp := range m.until {
		if !exp.After(now) {
			delete(m.until, id)
		}
	}
	if until.After(now) {
		m.until[tokenID] = until
	}
	return nil
}

func (m *memoryRevocations) Revoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.until[tokenID]
	return ok && exp.After(m.now()), nil
}
