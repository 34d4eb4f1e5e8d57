package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/maratonas-femininas/maratonas/internal/auth"
	"github.com/maratonas-femininas/maratonas/internal/authz"
	"github.com/maratonas-femininas/maratonas/internal/metrics"
)

// BearerAuth verifies the access token and binds its claims to the request.
func BearerAuth(tokens *auth.Service, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		raw := strings.TrimSpace(header[len("Bearer "):])
		claims, err := tokens.Verify(c.UserContext(), raw)
		switch {
		case err == nil:
		case errors.Is(err, auth.ErrTokenExpired):
			return fiber.NewError(http.StatusUnauthorized, "token has expired")
		case errors.Is(err, auth.ErrTokenRevoked):
			return fiber.NewError(http.StatusUnauthorized, "token invalidated")
		case errors.Is(err, auth.ErrInvalidToken):
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		default:
			logger.Error("verify token", slog.Any("error", err))
			return fiber.NewError(http.StatusServiceUnavailable, "cannot verify token")
		}

		auth.Bind(c, claims)
		c.Locals("user_id", claims.Subject)
		return c.Next()
	}
}

// RequirePermission rejects callers whose role fails a context-free
// permission before the handler runs.
func RequirePermission(perm authz.Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := auth.Actor(c)
		if !authz.Allowed(actor.Role, perm, authz.Resource{}) {
			metrics.AuthorizationDenials.WithLabelValues(string(perm), actor.Role.String()).Inc()
			return fiber.NewError(http.StatusForbidden, "forbidden: "+string(perm))
		}
		return c.Next()
	}
}
