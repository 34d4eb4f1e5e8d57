package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/maratonas-femininas/maratonas/internal/identity"
	"github.com/maratonas-femininas/maratonas/internal/metrics"
)

// Handler exposes login and logout.
type Handler struct {
	ids    *identity.Service
	svc    *Service
	logger *slog.Logger
}

func NewHandler(ids *identity.Service, svc *Service, logger *slog.Logger) *Handler {
	return &Handler{ids: ids, svc: svc, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	ID        string        `json:"id"`
	Email     string        `json:"email"`
	Role      identity.Role `json:"role"`
	Token     string        `json:"token"`
	ExpiresIn int64         `json:"expires_in"`
}

// Login exchanges an email/password pair for the caller's identity and a
// bearer token. Unknown emails and wrong passwords get the same reply.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	user, err := h.ids.Authenticate(c.UserContext(), identity.Credentials{Email: req.Email, Password: req.Password})
	if errors.Is(err, identity.ErrInvalidCredentials) {
		metrics.LoginAttempts.WithLabelValues(metrics.OutcomeRejected).Inc()
		return fiber.NewError(http.StatusUnauthorized, "invalid email or password")
	}
	if err != nil {
		metrics.LoginAttempts.WithLabelValues(metrics.OutcomeError).Inc()
		h.logger.Error("login failed", slog.Any("error", err))
		return fiber.NewError(http.StatusInternalServerError, "login unavailable")
	}

	token, err := h.svc.Issue(user)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues(metrics.OutcomeError).Inc()
		h.logger.Error("sign token", slog.Any("error", err))
		return fiber.NewError(http.StatusInternalServerError, "login unavailable")
	}
	metrics.LoginAttempts.WithLabelValues(metrics.OutcomeSuccess).Inc()
	h.logger.Info("login succeeded", slog.String("user_id", user.ID), slog.String("role", user.Role.String()))

	return c.Status(http.StatusOK).JSON(loginResponse{
		ID:        user.ID,
		Email:     user.Email,
		Role:      user.Role,
		Token:     token.Value,
		ExpiresIn: int64(h.svc.ttl.Seconds()),
	})
}

// Logout revokes the bearer token used for the request.
func (h *Handler) Logout(c *fiber.Ctx) error {
	claims, ok := ClaimsFrom(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	if err := h.svc.Logout(c.UserContext(), claims); err != nil {
		h.logger.Error("revoke token", slog.String("user_id", claims.Subject), slog.Any("error", err))
		return fiber.NewError(http.StatusInternalServerError, "logout failed")
	}
	metrics.TokenRevocations.Inc()
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "logged_out"})
}
