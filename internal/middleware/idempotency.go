package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	idempotencyPrefix    = "maratonas:idempotency:"
	pendingMarker        = "pending"
	idempotencyTimeout   = 2 * time.Second
)

// replay is a completed response kept for retries carrying the same key.
type replay struct {
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
}

type idempotencyStore struct {
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// lookup returns the stored replay, or pending=true while the first request
// holding the key is still running.
func (s idempotencyStore) lookup(ctx context.Context, key string) (r *replay, pending bool, err error) {
	raw, err := s.cache.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if string(raw) == pendingMarker {
		return nil, true, nil
	}
	var stored replay
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, false, err
	}
	return &stored, false, nil
}

func (s idempotencyStore) reserve(ctx context.Context, key string) (bool, error) {
	return s.cache.SetNX(ctx, key, pendingMarker, s.ttl).Result()
}

func (s idempotencyStore) save(ctx context.Context, key string, r replay) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, key, payload, s.ttl).Err()
}

func (s idempotencyStore) release(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), idempotencyTimeout)
	defer cancel()
	if err := s.cache.Del(ctx, key).Err(); err != nil {
		s.logger.Warn("idempotency release failed", slog.String("key", key), slog.Any("error", err))
	}
}

// requestFingerprint binds a key to one method, path and body.
func requestFingerprint(c *fiber.Ctx) string {
	sum := sha256.Sum256(c.Body())
	return c.Method() + " " + c.Path() + " " + hex.EncodeToString(sum[:])
}

// Idempotency makes unsafe requests retry-safe. The first request carrying an
// Idempotency-Key runs; later ones with the same key get its response back.
// Keys are scoped to the authenticated user when there is one. Failed
// requests (handler errors and 5xx) release the key so the client can retry.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	store := idempotencyStore{cache: cache, ttl: ttl, logger: logger}

	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		header := c.Get(idempotencyKeyHeader)
		if header == "" {
			return fiber.NewError(fiber.StatusBadRequest, "missing Idempotency-Key header")
		}
		key := idempotencyPrefix + header
		if userID, _ := c.Locals("user_id").(string); userID != "" {
			key = idempotencyPrefix + userID + ":" + header
		}
		fingerprint := requestFingerprint(c)

		ctx, cancel := context.WithTimeout(c.UserContext(), idempotencyTimeout)
		defer cancel()

		stored, pending, err := store.lookup(ctx, key)
		if err != nil {
			logger.Error("idempotency lookup failed", slog.String("key", header), slog.Any("error", err))
			return fiber.NewError(fiber.StatusServiceUnavailable, "idempotency store unavailable")
		}
		if pending {
			return fiber.NewError(fiber.StatusConflict, "request with this Idempotency-Key is still in progress")
		}
		if stored != nil {
			if stored.Fingerprint != fingerprint {
				return fiber.NewError(fiber.StatusUnprocessableEntity, "Idempotency-Key reused for a different request")
			}
			if stored.ContentType != "" {
				c.Set(fiber.HeaderContentType, stored.ContentType)
			}
			c.Set("Idempotent-Replay", "true")
			return c.Status(stored.Status).Send(stored.Body)
		}

		ok, err := store.reserve(ctx, key)
		if err != nil {
			logger.Error("idempotency reservation failed", slog.String("key", header), slog.Any("error", err))
			return fiber.NewError(fiber.StatusServiceUnavailable, "idempotency store unavailable")
		}
		if !ok {
			return fiber.NewError(fiber.StatusConflict, "request with this Idempotency-Key is still in progress")
		}

		if err := c.Next(); err != nil {
			store.release(key)
			return err
		}

		status := c.Response().StatusCode()
		if status >= fiber.StatusInternalServerError {
			store.release(key)
			return nil
		}

		saveCtx, saveCancel := context.WithTimeout(context.Background(), idempotencyTimeout)
		defer saveCancel()
		err = store.save(saveCtx, key, replay{
			Fingerprint: fingerprint,
			Status:      status,
			ContentType: string(c.Response().Header.ContentType()),
			Body:        append([]byte(nil), c.Response().Body()...),
		})
		if err != nil {
			logger.Error("idempotency persist failed", slog.String("key", header), slog.Any("error", err))
			store.release(key)
		}
		return nil
	}
}
