package middleware

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/maratonas-femininas/maratonas/internal/auth"
	"github.com/maratonas-femininas/maratonas/internal/authz"
	"github.com/maratonas-femininas/maratonas/internal/config"
	"github.com/maratonas-femininas/maratonas/internal/identity"
	"github.com/maratonas-femininas/maratonas/internal/logging"
)

func newTokenService() *auth.Service {
	return auth.NewService(config.Config{JWTSecret: "test-secret", AccessTokenTTL: time.Hour}, auth.NewMemoryRevocations())
}

func bearerApp(tokens *auth.Service) *fiber.App {
	app := fiber.New()
	protected := app.Group("", BearerAuth(tokens, logging.Discard()))
	protected.Get("/whoami", func(c *fiber.Ctx) error {
		return c.JSON(auth.Actor(c))
	})
	protected.Post("/teams", RequirePermission(authz.PermManageTeams), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})
	return app
}

func issue(t *testing.T, tokens *auth.Service, role identity.Role) string {
	t.Helper()
	tok, err := tokens.Issue(identity.User{ID: "u-" + role.String(), Email: role.String() + "@ex.com", Role: role})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return tok.Value
}

func TestBearerAuthRejectsMissingAndForgedTokens(t *testing.T) {
	tokens := newTokenService()
	app := bearerApp(tokens)

	for name, header := range map[string]string{
		"missing": "",
		"basic":   "Basic Zm9vOmJhcg==",
		"forged":  "Bearer " + issue(t, auth.NewService(config.Config{JWTSecret: "other", AccessTokenTTL: time.Hour}, nil), identity.RoleAdmin),
		"garbage": "Bearer not.a.token",
	} {
		req := httptest.NewRequest(fiber.MethodGet, "/whoami", nil)
		if header != "" {
			req.Header.Set(fiber.HeaderAuthorization, header)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("%s: app.Test: %v", name, err)
		}
		if resp.StatusCode != fiber.StatusUnauthorized {
			t.Fatalf("%s: expected 401 got %d", name, resp.StatusCode)
		}
	}
}

func TestBearerAuthAcceptsValidTokenUntilRevoked(t *testing.T) {
	tokens := newTokenService()
	app := bearerApp(tokens)
	raw := issue(t, tokens, identity.RoleParticipant)

	req := httptest.NewRequest(fiber.MethodGet, "/whoami", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+raw)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 got %d", resp.StatusCode)
	}

	claims, err := tokens.Verify(context.Background(), raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := tokens.Logout(context.Background(), claims); err != nil {
		t.Fatalf("logout: %v", err)
	}

	req = httptest.NewRequest(fiber.MethodGet, "/whoami", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+raw)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected revoked token to be rejected, got %d", resp.StatusCode)
	}
}

func TestRequirePermission(t *testing.T) {
	tokens := newTokenService()
	app := bearerApp(tokens)

	cases := map[identity.Role]int{
		identity.RoleAdmin:        fiber.StatusCreated,
		identity.RoleCollaborator: fiber.StatusCreated,
		identity.RoleParticipant:  fiber.StatusForbidden,
		identity.RoleSponsor:      fiber.StatusForbidden,
	}
	for role, want := range cases {
		req := httptest.NewRequest(fiber.MethodPost, "/teams", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+issue(t, tokens, role))
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		if resp.StatusCode != want {
			t.Fatalf("%s: expected %d got %d", role, want, resp.StatusCode)
		}
	}
}
