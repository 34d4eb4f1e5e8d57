package routes

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/maratonas-femininas/maratonas/internal/auth"
	"github.com/maratonas-femininas/maratonas/internal/identity"
)

type accountView struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Email       string        `json:"email"`
	Role        identity.Role `json:"role"`
	Institution string        `json:"institution,omitempty"`
}

func viewOf(u identity.User) accountView {
	return accountView{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, Institution: u.Institution}
}

// RegisterIdentityRoutes wires self-registration.
func RegisterIdentityRoutes(r fiber.Router, ids *identity.Service, logger *slog.Logger) {
	r.Post("/identity/register", func(c *fiber.Ctx) error {
		var req struct {
			Name        string `json:"name"`
			Email       string `json:"email"`
			Password    string `json:"password"`
			Role        string `json:"role"`
			Institution string `json:"institution"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid request body")
		}
		role, err := identity.ParseRole(req.Role)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		user, err := ids.Register(c.UserContext(), identity.RegisterInput{
			Name:        req.Name,
			Email:       req.Email,
			Password:    req.Password,
			Role:        role,
			Institution: req.Institution,
		})
		if errors.Is(err, identity.ErrUserExists) {
			return fiber.NewError(http.StatusConflict, err.Error())
		}
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		if logger != nil {
			logger.Info("identity.register completed",
				slog.String("user_id", user.ID),
				slog.String("role", user.Role.String()),
				slog.Int("status", http.StatusCreated),
			)
		}
		return c.Status(http.StatusCreated).JSON(viewOf(user))
	})
}

// RegisterProfileRoute exposes the caller's account.
func RegisterProfileRoute(r fiber.Router, ids *identity.Service) {
	r.Get("/me", func(c *fiber.Ctx) error {
		claims, ok := auth.ClaimsFrom(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "unauthorized")
		}
		user, err := ids.Get(c.UserContext(), claims.Subject)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "user not found")
		}
		return c.JSON(viewOf(user))
	})
}
