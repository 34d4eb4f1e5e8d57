package competition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/maratonas-femininas/maratonas/internal/authz"
	"github.com/maratonas-femininas/maratonas/internal/identity"
	"github.com/maratonas-femininas/maratonas/internal/metrics"
	"github.com/maratonas-femininas/maratonas/internal/notification"
)

// Accounts resolves user ids to accounts. identity.Service satisfies it.
type Accounts interface {
	Get(ctx context.Context, id string) (identity.User, error)
}

// Service applies the permission predicates to every mutation before
// touching the repository. Client-side checks are advisory; these are not.
type Service struct {
	repo     Repository
	accounts Accounts
	notifier notification.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds a competition service. notifier may be nil.
func NewService(repo Repository, accounts Accounts, notifier notification.Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, accounts: accounts, notifier: notifier, logger: logger, now: time.Now}
}

// ResourceFor builds the decision context for actorID acting on c.
func ResourceFor(c Competition, team Team, actorID string, now time.Time) authz.Resource {
	return authz.Resource{
		Finalized:  c.IsFinalized(now),
		Affiliated: team.ID == c.TeamID && team.HasMember(actorID),
	}
}

func (s *Service) require(actor identity.Identity, perm authz.Permission, res authz.Resource) error {
	if authz.Allowed(actor.Role, perm, res) {
		return nil
	}
	metrics.AuthorizationDenials.WithLabelValues(string(perm), actor.Role.String()).Inc()
	s.logger.Warn("authorization denied",
		slog.String("permission", string(perm)),
		slog.String("user_id", string(actor.ID)),
		slog.String("role", actor.Role.String()),
	)
	return fmt.Errorf("%w: %s", ErrForbidden, perm)
}

func (s *Service) decorate(c Competition) Competition {
	c.Status = c.StatusAt(s.now())
	return c
}

// CreateInput captures the fields of a new competition.
type CreateInput struct {
	Name            string
	Location        string
	Date            time.Time
	StartTime       string
	MaxParticipants int
	Description     string
	TeamID          string
}

func (in CreateInput) validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalid)
	case in.Date.IsZero():
		return fmt.Errorf("%w: date is required", ErrInvalid)
	case in.MaxParticipants < 0:
		return fmt.Errorf("%w: max participants cannot be negative", ErrInvalid)
	case strings.TrimSpace(in.TeamID) == "":
		return fmt.Errorf("%w: team is required", ErrInvalid)
	}
	if in.StartTime != "" {
		if _, err := time.Parse("15:04", in.StartTime); err != nil {
			return fmt.Errorf("%w: time must be HH:MM", ErrInvalid)
		}
	}
	return nil
}

// Create adds a competition run by an existing team.
func (s *Service) Create(ctx context.Context, actor identity.Identity, in CreateInput) (Competition, error) {
	if err := s.require(actor, authz.PermCreateCompetition, authz.Resource{}); err != nil {
		return Competition{}, err
	}
	if err := in.validate(); err != nil {
		return Competition{}, err
	}
	if _, err := s.repo.GetTeam(ctx, in.TeamID); err != nil {
		return Competition{}, fmt.Errorf("team %s: %w", in.TeamID, err)
	}

	c := Competition{
		ID:              uuid.NewString(),
		Name:            strings.TrimSpace(in.Name),
		Location:        strings.TrimSpace(in.Location),
		Date:            in.Date.UTC(),
		StartTime:       in.StartTime,
		MaxParticipants: in.MaxParticipants,
		Description:     strings.TrimSpace(in.Description),
		TeamID:          in.TeamID,
		CreatedBy:       string(actor.ID),
		CreatedAt:       s.now().UTC(),
	}
	if err := s.repo.CreateCompetition(ctx, c); err != nil {
		return Competition{}, err
	}
	return s.decorate(c), nil
}

// UpdateInput carries optional changes; nil fields are left alone.
type UpdateInput struct {
	Name            *string
	Location        *string
	Date            *time.Time
	StartTime       *string
	MaxParticipants *int
	Description     *string
}

// Update edits an existing competition. It cannot reopen a finalized one.
func (s *Service) Update(ctx context.Context, actor identity.Identity, id string, in UpdateInput) (Competition, error) {
	if err := s.require(actor, authz.PermEditCompetition, authz.Resource{}); err != nil {
		return Competition{}, err
	}
	c, err := s.repo.GetCompetition(ctx, id)
	if err != nil {
		return Competition{}, err
	}
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.Location != nil {
		c.Location = strings.TrimSpace(*in.Location)
	}
	if in.Date != nil {
		c.Date = in.Date.UTC()
	}
	if in.StartTime != nil {
		c.StartTime = *in.StartTime
	}
	if in.MaxParticipants != nil {
		c.MaxParticipants = *in.MaxParticipants
	}
	if in.Description != nil {
		c.Description = strings.TrimSpace(*in.Description)
	}
	check := CreateInput{Name: c.Name, Date: c.Date, StartTime: c.StartTime, MaxParticipants: c.MaxParticipants, TeamID: c.TeamID}
	if err := check.validate(); err != nil {
		return Competition{}, err
	}
	if c.MaxParticipants > 0 && c.Registrations > c.MaxParticipants {
		return Competition{}, fmt.Errorf("%w: %d participants already registered", ErrInvalid, c.Registrations)
	}
	if err := s.repo.UpdateCompetition(ctx, c); err != nil {
		return Competition{}, err
	}
	return s.Get(ctx, id)
}

// Finalize closes an open competition.
func (s *Service) Finalize(ctx context.Context, actor identity.Identity, id string) (Competition, error) {
	c, err := s.repo.GetCompetition(ctx, id)
	if err != nil {
		return Competition{}, err
	}
	res := authz.Resource{Finalized: c.IsFinalized(s.now())}
	if err := s.require(actor, authz.PermFinalizeCompetition, res); err != nil {
		return Competition{}, err
	}
	if err := s.repo.FinalizeCompetition(ctx, c.ID); err != nil {
		return Competition{}, err
	}
	s.logger.Info("competition finalized", slog.String("competition_id", c.ID), slog.String("user_id", string(actor.ID)))
	c.Finalized = true
	return s.decorate(c), nil
}

// Get returns one competition.
func (s *Service) Get(ctx context.Context, id string) (Competition, error) {
	c, err := s.repo.GetCompetition(ctx, id)
	if err != nil {
		return Competition{}, err
	}
	return s.decorate(c), nil
}

// List returns every competition ordered by date.
func (s *Service) List(ctx context.Context) ([]Competition, error) {
	list, err := s.repo.ListCompetitions(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i] = s.decorate(list[i])
	}
	return list, nil
}

// Resource returns the decision context for actor on competition id, so
// clients can render affordances with the same inputs the server uses.
func (s *Service) Resource(ctx context.Context, actor identity.Identity, id string) (Competition, authz.Resource, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return Competition{}, authz.Resource{}, err
	}
	team, err := s.repo.GetTeam(ctx, c.TeamID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Competition{}, authz.Resource{}, err
	}
	return c, ResourceFor(c, team, string(actor.ID), s.now()), nil
}

// RegisterInput names who is being registered. An empty ParticipantID, or
// the actor's own id, is a self-registration.
type RegisterInput struct {
	ParticipantID string
	Category      string
}

// Register enrolls a participant, either the actor herself or, for admins
// and affiliated collaborators, someone else.
func (s *Service) Register(ctx context.Context, actor identity.Identity, competitionID string, in RegisterInput) (Registration, error) {
	c, res, err := s.Resource(ctx, actor, competitionID)
	if err != nil {
		return Registration{}, err
	}

	participantID := strings.TrimSpace(in.ParticipantID)
	self := participantID == "" || participantID == string(actor.ID)
	if self {
		participantID = string(actor.ID)
		if err := s.require(actor, authz.PermRegister, res); err != nil {
			return Registration{}, err
		}
	} else {
		if err := s.require(actor, authz.PermRegisterOnBehalf, res); err != nil {
			return Registration{}, err
		}
		participant, err := s.accounts.Get(ctx, participantID)
		if errors.Is(err, identity.ErrUserNotFound) {
			return Registration{}, fmt.Errorf("participant %s: %w", participantID, ErrNotFound)
		}
		if err != nil {
			return Registration{}, err
		}
		if participant.Role != identity.RoleParticipant {
			return Registration{}, fmt.Errorf("%w: user %s is not a participant", ErrInvalid, participantID)
		}
	}

	if c.Full() {
		return Registration{}, ErrFull
	}

	reg := Registration{
		ID:            uuid.NewString(),
		CompetitionID: c.ID,
		ParticipantID: participantID,
		Category:      strings.TrimSpace(in.Category),
		RegisteredBy:  string(actor.ID),
		CreatedAt:     s.now().UTC(),
	}
	if err := s.repo.AddRegistration(ctx, reg, c.MaxParticipants); err != nil {
		return Registration{}, err
	}

	s.notify(ctx, notification.Message{
		Kind:        notification.KindRegistration,
		Destination: participantID,
		Body:        fmt.Sprintf("registered in %s", c.Name),
	})
	return reg, nil
}

// Registrations lists the participants of a competition.
func (s *Service) Registrations(ctx context.Context, competitionID string) ([]Registration, error) {
	if _, err := s.repo.GetCompetition(ctx, competitionID); err != nil {
		return nil, err
	}
	return s.repo.ListRegistrations(ctx, competitionID)
}

// Sponsor records the actor's contribution, in cents, to an open competition.
func (s *Service) Sponsor(ctx context.Context, actor identity.Identity, competitionID string, amount int64) (Sponsorship, error) {
	c, err := s.Get(ctx, competitionID)
	if err != nil {
		return Sponsorship{}, err
	}
	if err := s.require(actor, authz.PermSponsor, authz.Resource{}); err != nil {
		return Sponsorship{}, err
	}
	if c.IsFinalized(s.now()) {
		return Sponsorship{}, fmt.Errorf("%w: competition is finalized", ErrForbidden)
	}
	if amount <= 0 {
		return Sponsorship{}, fmt.Errorf("%w: amount must be positive", ErrInvalid)
	}

	sp := Sponsorship{
		ID:            uuid.NewString(),
		CompetitionID: c.ID,
		SponsorID:     string(actor.ID),
		Amount:        amount,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.repo.AddSponsorship(ctx, sp); err != nil {
		return Sponsorship{}, err
	}

	s.notify(ctx, notification.Message{
		Kind:        notification.KindSponsorship,
		Destination: c.TeamID,
		Body:        fmt.Sprintf("%s contributed %d.%02d to %s", actor.Email, amount/100, amount%100, c.Name),
	})
	return sp, nil
}

// Sponsorships lists the contributions to a competition.
func (s *Service) Sponsorships(ctx context.Context, competitionID string) ([]Sponsorship, error) {
	if _, err := s.repo.GetCompetition(ctx, competitionID); err != nil {
		return nil, err
	}
	return s.repo.ListSponsorships(ctx, competitionID)
}

// CreateTeam adds a team of collaborators.
func (s *Service) CreateTeam(ctx context.Context, actor identity.Identity, name string, members []string) (Team, error) {
	if err := s.require(actor, authz.PermManageTeams, authz.Resource{}); err != nil {
		return Team{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Team{}, fmt.Errorf("%w: name is required", ErrInvalid)
	}
	seen := make(map[string]bool, len(members))
	var unique []string
	for _, m := range members {
		if seen[m] {
			continue
		}
		seen[m] = true
		if err := s.checkCollaborator(ctx, m); err != nil {
			return Team{}, err
		}
		unique = append(unique, m)
	}
	t := Team{ID: uuid.NewString(), Name: name, Members: unique, CreatedAt: s.now().UTC()}
	if err := s.repo.CreateTeam(ctx, t); err != nil {
		return Team{}, err
	}
	return t, nil
}

// AddTeamMember adds a collaborator to a team.
func (s *Service) AddTeamMember(ctx context.Context, actor identity.Identity, teamID, userID string) (Team, error) {
	if err := s.require(actor, authz.PermManageTeams, authz.Resource{}); err != nil {
		return Team{}, err
	}
	if err := s.checkCollaborator(ctx, userID); err != nil {
		return Team{}, err
	}
	if err := s.repo.AddTeamMember(ctx, teamID, userID); err != nil {
		return Team{}, err
	}
	return s.repo.GetTeam(ctx, teamID)
}

// Teams lists every team.
func (s *Service) Teams(ctx context.Context) ([]Team, error) {
	return s.repo.ListTeams(ctx)
}

func (s *Service) checkCollaborator(ctx context.Context, userID string) error {
	user, err := s.accounts.Get(ctx, userID)
	if errors.Is(err, identity.ErrUserNotFound) {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return err
	}
	if user.Role != identity.RoleCollaborator {
		return fmt.Errorf("%w: user %s is not a collaborator", ErrInvalid, userID)
	}
	return nil
}

func (s *Service) notify(ctx context.Context, msg notification.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Warn("notification failed", slog.String("kind", msg.Kind), slog.Any("error", err))
	}
}
