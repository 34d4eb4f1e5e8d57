package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/maratonas-femininas/maratonas/internal/logging"
)

type idempotencyFixture struct {
	app   *fiber.App
	mr    *miniredis.Miniredis
	calls int
	fail  bool
}

func newIdempotencyFixture(t *testing.T) *idempotencyFixture {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		cache.Close()
		mr.Close()
	})

	f := &idempotencyFixture{app: fiber.New(), mr: mr}
	f.app.Use(func(c *fiber.Ctx) error {
		if user := c.Get("X-Test-User"); user != "" {
			c.Locals("user_id", user)
		}
		return c.Next()
	})
	f.app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	f.app.Post("/competitions/:id/registrations", func(c *fiber.Ctx) error {
		f.calls++
		if f.fail {
			return fiber.NewError(fiber.StatusConflict, "competition is full")
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"competition_id": c.Params("id"), "n": f.calls})
	})
	f.app.Get("/competitions", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	return f
}

func (f *idempotencyFixture) post(t *testing.T, path, key, user, body string) (int, string, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	resp, err := f.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(payload), resp.Header.Get("Idempotent-Replay")
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	f := newIdempotencyFixture(t)
	if status, _, _ := f.post(t, "/competitions/c1/registrations", "", "", "{}"); status != fiber.StatusBadRequest {
		t.Fatalf("expected %d got %d", fiber.StatusBadRequest, status)
	}
	if f.calls != 0 {
		t.Fatalf("handler should not run without a key")
	}
}

func TestIdempotencyReplaysFirstResponse(t *testing.T) {
	f := newIdempotencyFixture(t)

	status, first, replayed := f.post(t, "/competitions/c1/registrations", "abc123", "u1", `{"category":"open"}`)
	if status != fiber.StatusCreated || replayed != "" {
		t.Fatalf("expected fresh 201, got %d replay=%q", status, replayed)
	}
	status, second, replayed := f.post(t, "/competitions/c1/registrations", "abc123", "u1", `{"category":"open"}`)
	if status != fiber.StatusCreated || replayed != "true" {
		t.Fatalf("expected replayed 201, got %d replay=%q", status, replayed)
	}
	if first != second {
		t.Fatalf("expected replayed body %s got %s", first, second)
	}
	if f.calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", f.calls)
	}
}

func TestIdempotencyRejectsKeyReuseForDifferentRequest(t *testing.T) {
	f := newIdempotencyFixture(t)

	if status, _, _ := f.post(t, "/competitions/c1/registrations", "shared", "u1", "{}"); status != fiber.StatusCreated {
		t.Fatalf("expected 201 got %d", status)
	}
	if status, _, _ := f.post(t, "/competitions/c2/registrations", "shared", "u1", "{}"); status != fiber.StatusUnprocessableEntity {
		t.Fatalf("other path: expected 422 got %d", status)
	}
	if status, _, _ := f.post(t, "/competitions/c1/registrations", "shared", "u1", `{"category":"x"}`); status != fiber.StatusUnprocessableEntity {
		t.Fatalf("other body: expected 422 got %d", status)
	}
}

func TestIdempotencyKeysAreScopedPerUser(t *testing.T) {
	f := newIdempotencyFixture(t)

	f.post(t, "/competitions/c1/registrations", "k", "ana", "{}")
	status, _, replayed := f.post(t, "/competitions/c1/registrations", "k", "fernanda", "{}")
	if status != fiber.StatusCreated || replayed != "" {
		t.Fatalf("expected a fresh response for another user, got %d replay=%q", status, replayed)
	}
	if f.calls != 2 {
		t.Fatalf("expected two handler runs, got %d", f.calls)
	}
}

func TestIdempotencyConflictsWhileInProgress(t *testing.T) {
	f := newIdempotencyFixture(t)
	if err := f.mr.Set(idempotencyPrefix+"u1:busy", pendingMarker); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if status, _, _ := f.post(t, "/competitions/c1/registrations", "busy", "u1", "{}"); status != fiber.StatusConflict {
		t.Fatalf("expected 409 got %d", status)
	}
	if f.calls != 0 {
		t.Fatalf("handler should not run while the key is pending")
	}
}

func TestIdempotencyReleasesKeyOnError(t *testing.T) {
	f := newIdempotencyFixture(t)
	f.fail = true
	if status, _, _ := f.post(t, "/competitions/c1/registrations", "retry", "u1", "{}"); status != fiber.StatusConflict {
		t.Fatalf("expected handler error 409, got %d", status)
	}
	if f.mr.Exists(idempotencyPrefix + "u1:retry") {
		t.Fatalf("expected key to be released")
	}

	f.fail = false
	if status, _, replayed := f.post(t, "/competitions/c1/registrations", "retry", "u1", "{}"); status != fiber.StatusCreated || replayed != "" {
		t.Fatalf("expected retry to run, got %d replay=%q", status, replayed)
	}
}

func TestIdempotencyIgnoresSafeMethods(t *testing.T) {
	f := newIdempotencyFixture(t)
	resp, err := f.app.Test(httptest.NewRequest(fiber.MethodGet, "/competitions", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected GET without key to pass, got %d", resp.StatusCode)
	}
}
