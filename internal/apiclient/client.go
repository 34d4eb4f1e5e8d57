// Package apiclient talks to the competition API: the credential exchange
// used by the session manager and the resource calls issued by the CLI.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	defaultTimeout       = 10 * time.Second
	idempotencyKeyHeader = "Idempotency-Key"
)

// ErrExchangeFailed covers every way a login can fail: rejected credentials,
// unreachable server or an unreadable reply.
var ErrExchangeFailed = errors.New("authentication did not succeed")

// Error is a non-2xx reply from the API.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Client is safe for concurrent use; it holds no connection state.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithToken authenticates requests with a bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New builds a client for the API rooted at baseURL, e.g.
// "http://localhost:8080/api/v1".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{baseURL: strings.TrimRight(baseURL, "/"), timeout: defaultTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithToken returns a copy of c that sends token.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = token
	return &clone
}

type reply struct {
	code int
	body []byte
	errs []error
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a := fiber.AcquireAgent()
	req := a.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	a.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if c.token != "" {
		a.Set(fiber.HeaderAuthorization, "Bearer "+c.token)
	}
	if method != fiber.MethodGet && method != fiber.MethodHead {
		a.Set(idempotencyKeyHeader, uuid.NewString())
	}
	if in != nil {
		a.JSON(in)
	}
	a.Timeout(c.timeout)
	if err := a.Parse(); err != nil {
		fiber.ReleaseAgent(a)
		return fmt.Errorf("prepare %s %s: %w", method, path, err)
	}

	done := make(chan reply, 1)
	go func() {
		code, body, errs := a.Bytes()
		done <- reply{code: code, body: body, errs: errs}
	}()

	var r reply
	select {
	case <-ctx.Done():
		return ctx.Err()
	case r = <-done:
	}

	if len(r.errs) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("%s %s: %w", method, path, errors.Join(r.errs...))
	}
	if r.code < 200 || r.code > 299 {
		return &Error{Status: r.code, Message: errorMessage(r.body)}
	}
	if out == nil || len(r.body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.body, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func errorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(body))
}
