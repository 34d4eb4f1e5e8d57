package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestRequestIDReusesValidHeader(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(RequestIDFrom(c)) })

	req := httptest.NewRequest(fiber.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if got := resp.Header.Get(requestIDHeader); got != "abc-123" {
		t.Fatalf("expected echoed id, got %q", got)
	}

	req = httptest.NewRequest(fiber.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, strings.Repeat("x", maxRequestIDBytes+1))
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if got := resp.Header.Get(requestIDHeader); len(got) != 36 {
		t.Fatalf("expected a generated uuid, got %q", got)
	}
}

func TestAuditLogsErrorStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	app := fiber.New()
	app.Use(RequestID(), Audit(logger))
	app.Get("/missing", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "competition not found")
	})

	if _, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/missing", nil)); err != nil {
		t.Fatalf("app.Test: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["level"] != "INFO" {
		t.Fatalf("client errors should log at info, got %v", entry["level"])
	}
	if entry["status"] != float64(fiber.StatusNotFound) {
		t.Fatalf("expected status 404 in log, got %v", entry["status"])
	}
	if entry["request_id"] == "" || entry["request_id"] == nil {
		t.Fatalf("expected request id in log")
	}
}
