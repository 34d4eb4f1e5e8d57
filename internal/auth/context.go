package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/maratonas-femininas/maratonas/internal/identity"
)

const claimsLocal = "auth_claims"

// Bind attaches verified claims to the request.
func Bind(c *fiber.Ctx, claims *Claims) {
	c.Locals(claimsLocal, claims)
}

// ClaimsFrom returns the claims bound by the bearer middleware.
func ClaimsFrom(c *fiber.Ctx) (*Claims, bool) {
	claims, ok := c.Locals(claimsLocal).(*Claims)
	return claims, ok && claims != nil
}

// Actor returns the caller's identity, or the zero (anonymous) identity.
func Actor(c *fiber.Ctx) identity.Identity {
	claims, ok := ClaimsFrom(c)
	if !ok {
		return identity.Identity{}
	}
	return claims.Identity()
}
