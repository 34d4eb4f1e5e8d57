package competition

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/maratonas-femininas/maratonas/internal/auth"
	"github.com/maratonas-femininas/maratonas/internal/authz"
)

// Handler exposes competitions, registrations, sponsorships and teams over HTTP.
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type competitionRequest struct {
	Name            *string `json:"name"`
	Location        *string `json:"location"`
	Date            *string `json:"date"`
	Time            *string `json:"time"`
	MaxParticipants *int    `json:"max_participants"`
	Description     *string `json:"description"`
	TeamID          string  `json:"team_id"`
}

type competitionView struct {
	Competition
	Permissions []authz.Permission `json:"permissions"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// List returns every competition.
func (h *Handler) List(c *fiber.Ctx) error {
	list, err := h.svc.List(c.UserContext())
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(list)
}

// Get returns one competition plus the permissions the caller holds on it.
func (h *Handler) Get(c *fiber.Ctx) error {
	actor := auth.Actor(c)
	comp, res, err := h.svc.Resource(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(competitionView{Competition: comp, Permissions: authz.Granted(actor.Role, res)})
}

// Create adds a competition.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req competitionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	in := CreateInput{
		Name:        deref(req.Name),
		Location:    deref(req.Location),
		StartTime:   deref(req.Time),
		Description: deref(req.Description),
		TeamID:      req.TeamID,
	}
	if req.MaxParticipants != nil {
		in.MaxParticipants = *req.MaxParticipants
	}
	if req.Date != nil {
		d, err := ParseDate(*req.Date)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "date must be YYYY-MM-DD")
		}
		in.Date = d
	}
	comp, err := h.svc.Create(c.UserContext(), auth.Actor(c), in)
	if err != nil {
		return h.fail(err)
	}
	return c.Status(http.StatusCreated).JSON(comp)
}

// Update edits a competition.
func (h *Handler) Update(c *fiber.Ctx) error {
	var req competitionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	in := UpdateInput{
		Name:            req.Name,
		Location:        req.Location,
		StartTime:       req.Time,
		MaxParticipants: req.MaxParticipants,
		Description:     req.Description,
	}
	if req.Date != nil {
		d, err := ParseDate(*req.Date)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "date must be YYYY-MM-DD")
		}
		in.Date = &d
	}
	comp, err := h.svc.Update(c.UserContext(), auth.Actor(c), c.Params("id"), in)
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(comp)
}

// Finalize closes a competition.
func (h *Handler) Finalize(c *fiber.Ctx) error {
	comp, err := h.svc.Finalize(c.UserContext(), auth.Actor(c), c.Params("id"))
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(comp)
}

// Register enrolls the caller, or participant_id when given.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req struct {
		ParticipantID string `json:"participant_id"`
		Category      string `json:"category"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid request body")
		}
	}
	reg, err := h.svc.Register(c.UserContext(), auth.Actor(c), c.Params("id"), RegisterInput{
		ParticipantID: req.ParticipantID,
		Category:      req.Category,
	})
	if err != nil {
		return h.fail(err)
	}
	return c.Status(http.StatusCreated).JSON(reg)
}

// Registrations lists a competition's participants.
func (h *Handler) Registrations(c *fiber.Ctx) error {
	regs, err := h.svc.Registrations(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(regs)
}

// Sponsor records a contribution from the caller.
func (h *Handler) Sponsor(c *fiber.Ctx) error {
	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	sp, err := h.svc.Sponsor(c.UserContext(), auth.Actor(c), c.Params("id"), req.Amount)
	if err != nil {
		return h.fail(err)
	}
	return c.Status(http.StatusCreated).JSON(sp)
}

// Sponsorships lists a competition's sponsors.
func (h *Handler) Sponsorships(c *fiber.Ctx) error {
	list, err := h.svc.Sponsorships(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(list)
}

// Teams lists every team.
func (h *Handler) Teams(c *fiber.Ctx) error {
	teams, err := h.svc.Teams(c.UserContext())
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(teams)
}

// CreateTeam adds a team.
func (h *Handler) CreateTeam(c *fiber.Ctx) error {
	var req struct {
		Name    string   `json:"name"`
		Members []string `json:"members"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	team, err := h.svc.CreateTeam(c.UserContext(), auth.Actor(c), req.Name, req.Members)
	if err != nil {
		return h.fail(err)
	}
	return c.Status(http.StatusCreated).JSON(team)
}

// AddTeamMember adds a collaborator to a team.
func (h *Handler) AddTeamMember(c *fiber.Ctx) error {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	team, err := h.svc.AddTeamMember(c.UserContext(), auth.Actor(c), c.Params("id"), req.UserID)
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(team)
}

func (h *Handler) fail(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrFull), errors.Is(err, ErrAlreadyRegistered),
		errors.Is(err, ErrAlreadySponsored), errors.Is(err, ErrAlreadyMember):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalid):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("competition request failed", slog.Any("error", err))
		return fiber.NewError(http.StatusInternalServerError, "internal error")
	}
}
