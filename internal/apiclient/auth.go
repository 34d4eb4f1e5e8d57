package apiclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/maratonas-femininas/maratonas/internal/identity"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Exchange posts the credentials to /auth/login. Every failure wraps
// ErrExchangeFailed so callers cannot, and need not, tell a wrong password
// from an unreachable server.
func (c *Client) Exchange(ctx context.Context, email, password string) (identity.Identity, error) {
	var raw json.RawMessage
	if err := c.do(ctx, fiber.MethodPost, "/auth/login", loginRequest{Email: email, Password: password}, &raw); err != nil {
		if ctx.Err() != nil {
			return identity.Identity{}, err
		}
		return identity.Identity{}, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	ident, err := identity.DecodeIdentity(raw)
	if err != nil {
		return identity.Identity{}, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	return ident, nil
}

// Logout revokes the client's token on the server.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, fiber.MethodPost, "/auth/logout", nil, nil)
}

// Me returns the identity the server associates with the client's token.
func (c *Client) Me(ctx context.Context) (identity.Identity, error) {
	var raw json.RawMessage
	if err := c.do(ctx, fiber.MethodGet, "/me", nil, &raw); err != nil {
		return identity.Identity{}, err
	}
	return identity.DecodeIdentity(raw)
}

// RegisterRequest is a self-registration.
type RegisterRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Role        string `json:"role"`
	Institution string `json:"institution,omitempty"`
}

// RegisterAccount creates an account; it does not log in.
func (c *Client) RegisterAccount(ctx context.Context, in RegisterRequest) (identity.Identity, error) {
	var raw json.RawMessage
	if err := c.do(ctx, fiber.MethodPost, "/identity/register", in, &raw); err != nil {
		return identity.Identity{}, err
	}
	return identity.DecodeIdentity(raw)
}
