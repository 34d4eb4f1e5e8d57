package apiclient

import (
	"context"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/maratonas-femininas/maratonas/internal/authz"
	"github.com/maratonas-femininas/maratonas/internal/competition"
)

// CompetitionView is a competition plus the permissions the caller holds on it.
type CompetitionView struct {
	competition.Competition
	Permissions []authz.Permission `json:"permissions"`
}

func competitionPath(id string, rest ...string) string {
	p := "/competitions/" + url.PathEscape(id)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

func (c *Client) ListCompetitions(ctx context.Context) ([]competition.Competition, error) {
	var out []competition.Competition
	err := c.do(ctx, fiber.MethodGet, "/competitions", nil, &out)
	return out, err
}

func (c *Client) GetCompetition(ctx context.Context, id string) (CompetitionView, error) {
	var out CompetitionView
	err := c.do(ctx, fiber.MethodGet, competitionPath(id), nil, &out)
	return out, err
}

// NewCompetition is the body of a create request. Date is YYYY-MM-DD.
type NewCompetition struct {
	Name            string `json:"name"`
	Location        string `json:"location,omitempty"`
	Date            string `json:"date"`
	Time            string `json:"time,omitempty"`
	MaxParticipants int    `json:"max_participants,omitempty"`
	Description     string `json:"description,omitempty"`
	TeamID          string `json:"team_id"`
}

func (c *Client) CreateCompetition(ctx context.Context, in NewCompetition) (competition.Competition, error) {
	var out competition.Competition
	err := c.do(ctx, fiber.MethodPost, "/competitions", in, &out)
	return out, err
}

func (c *Client) FinalizeCompetition(ctx context.Context, id string) (competition.Competition, error) {
	var out competition.Competition
	err := c.do(ctx, fiber.MethodPost, competitionPath(id, "finalize"), nil, &out)
	return out, err
}

// Register enrolls the caller, or participantID when it is not empty.
func (c *Client) Register(ctx context.Context, competitionID, participantID, category string) (competition.Registration, error) {
	body := struct {
		ParticipantID string `json:"participant_id,omitempty"`
		Category      string `json:"category,omitempty"`
	}{participantID, category}
	var out competition.Registration
	err := c.do(ctx, fiber.MethodPost, competitionPath(competitionID, "registrations"), body, &out)
	return out, err
}

func (c *Client) Registrations(ctx context.Context, competitionID string) ([]competition.Registration, error) {
	var out []competition.Registration
	err := c.do(ctx, fiber.MethodGet, competitionPath(competitionID, "registrations"), nil, &out)
	return out, err
}

// Sponsor contributes amount, in cents.
func (c *Client) Sponsor(ctx context.Context, competitionID string, amount int64) (competition.Sponsorship, error) {
	body := struct {
		Amount int64 `json:"amount"`
	}{amount}
	var out competition.Sponsorship
	err := c.do(ctx, fiber.MethodPost, competitionPath(competitionID, "sponsorships"), body, &out)
	return out, err
}

func (c *Client) Teams(ctx context.Context) ([]competition.Team, error) {
	var out []competition.Team
	err := c.do(ctx, fiber.MethodGet, "/teams", nil, &out)
	return out, err
}
