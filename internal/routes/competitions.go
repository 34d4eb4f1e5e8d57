package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/maratonas-femininas/maratonas/internal/authz"
	"github.com/maratonas-femininas/maratonas/internal/competition"
	"github.com/maratonas-femininas/maratonas/internal/middleware"
)

// RegisterCompetitionRoutes wires competitions, registrations and sponsorships.
// Context-dependent permissions are enforced by competition.Service.
func RegisterCompetitionRoutes(r fiber.Router, h *competition.Handler) {
	group := r.Group("/competitions")
	group.Get("/", h.List)
	group.Post("/", middleware.RequirePermission(authz.PermCreateCompetition), h.Create)
	group.Get("/:id", h.Get)
	group.Put("/:id", middleware.RequirePermission(authz.PermEditCompetition), h.Update)
	group.Post("/:id/finalize", h.Finalize)
	group.Get("/:id/registrations", h.Registrations)
	group.Post("/:id/registrations", h.Register)
	group.Get("/:id/sponsorships", h.Sponsorships)
	group.Post("/:id/sponsorships", middleware.RequirePermission(authz.PermSponsor), h.Sponsor)
}

// RegisterTeamRoutes wires team management.
func RegisterTeamRoutes(r fiber.Router, h *competition.Handler) {
	group := r.Group("/teams")
	group.Get("/", h.Teams)
	group.Post("/", middleware.RequirePermission(authz.PermManageTeams), h.CreateTeam)
	group.Post("/:id/members", middleware.RequirePermission(authz.PermManageTeams), h.AddTeamMember)
}
