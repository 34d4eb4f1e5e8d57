package competition

import "context"

// Repository persists competitions and everything attached to them.
type Repository interface {
	CreateCompetition(ctx context.Context, c Competition) error
	// UpdateCompetition overwrites the editable fields. It never touches the
	// finalized flag.
	UpdateCompetition(ctx context.Context, c Competition) error
	// FinalizeCompetition sets the finalized flag; ErrFinalized if already set.
	FinalizeCompetition(ctx context.Context, id string) error
	GetCompetition(ctx context.Context, id string) (Competition, error)
	ListCompetitions(ctx context.Context) ([]Competition, error)

	CreateTeam(ctx context.Context, t Team) error
	GetTeam(ctx context.Context, id string) (Team, error)
	ListTeams(ctx context.Context) ([]Team, error)
	AddTeamMember(ctx context.Context, teamID, userID string) error

	// AddRegistration stores r unless the participant is already registered,
	// the competition already holds capacity registrations (zero: no cap) or
	// it has been finalized meanwhile.
	AddRegistration(ctx context.Context, r Registration, capacity int) error
	ListRegistrations(ctx context.Context, competitionID string) ([]Registration, error)

	// AddSponsorship stores s unless the sponsor already contributed or the
	// competition has been finalized meanwhile.
	AddSponsorship(ctx context.Context, s Sponsorship) error
	ListSponsorships(ctx context.Context, competitionID string) ([]Sponsorship, error)
}
