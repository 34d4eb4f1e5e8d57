package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/maratonas-femininas/maratonas/internal/auth"
)

// RegisterAuthRoutes wires the public login endpoint. Logout is registered
// on the protected group because it needs the bearer token.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, rateLimiter fiber.Handler) {
	group := r.Group("/auth")
	if rateLimiter != nil {
		group.Post("/login", rateLimiter, h.Login)
	} else {
		group.Post("/login", h.Login)
	}
}
