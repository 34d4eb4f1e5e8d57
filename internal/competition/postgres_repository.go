package competition

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// PostgresRepository stores competitions in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func parseID(id string) (uuid.UUID, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, ErrNotFound
	}
	return u, nil
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

const competitionColumns = `c.id, c.name, c.location, c.date, c.start_time, c.max_participants, c.description,
        c.team_id, c.finalized, c.created_by, c.created_at,
        (SELECT COUNT(*) FROM registrations r WHERE r.competition_id = c.id)`

func scanCompetition(row pgx.Row) (Competition, error) {
	var (
		c                     Competition
		id, teamID, createdBy uuid.UUID
		registrations         int64
	)
	err := row.Scan(&id, &c.Name, &c.Location, &c.Date, &c.StartTime, &c.MaxParticipants, &c.Description,
		&teamID, &c.Finalized, &createdBy, &c.CreatedAt, &registrations)
	if errors.Is(err, pgx.ErrNoRows) {
		return Competition{}, ErrNotFound
	}
	if err != nil {
		return Competition{}, err
	}
	c.ID = id.String()
	c.TeamID = teamID.String()
	c.CreatedBy = createdBy.String()
	c.Date = c.Date.UTC()
	c.CreatedAt = c.CreatedAt.UTC()
	c.Registrations = int(registrations)
	return c, nil
}

// CreateCompetition inserts a competition; the team must exist.
func (r *PostgresRepository) CreateCompetition(ctx context.Context, c Competition) error {
	id, err := parseID(c.ID)
	if err != nil {
		return err
	}
	teamID, err := parseID(c.TeamID)
	if err != nil {
		return err
	}
	createdBy, err := parseID(c.CreatedBy)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO competitions
        (id, name, location, date, start_time, max_participants, description, team_id, finalized, created_by, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		id, c.Name, c.Location, c.Date, c.StartTime, c.MaxParticipants, c.Description, teamID, c.Finalized, createdBy, c.CreatedAt.UTC())
	if pgCode(err) == foreignKeyViolation {
		return ErrNotFound
	}
	return err
}

// UpdateCompetition overwrites the editable fields.
func (r *PostgresRepository) UpdateCompetition(ctx context.Context, c Competition) error {
	id, err := parseID(c.ID)
	if err != nil {
		return err
	}
	cmd, err := r.db.Exec(ctx, `UPDATE competitions
        SET name = $2, location = $3, date = $4, start_time = $5, max_participants = $6, description = $7
        WHERE id = $1`,
		id, c.Name, c.Location, c.Date, c.StartTime, c.MaxParticipants, c.Description)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FinalizeCompetition flips the finalized flag in a single statement.
func (r *PostgresRepository) FinalizeCompetition(ctx context.Context, id string) error {
	compID, err := parseID(id)
	if err != nil {
		return err
	}
	cmd, err := r.db.Exec(ctx, `UPDATE competitions SET finalized = TRUE WHERE id = $1 AND NOT finalized`, compID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM competitions WHERE id = $1)`, compID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrFinalized
}

// lockOpenCompetition takes the row lock on an unfinalized competition for
// the rest of tx.
func lockOpenCompetition(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	var finalized bool
	err := tx.QueryRow(ctx, `SELECT finalized FROM competitions WHERE id = $1 FOR UPDATE`, id).Scan(&finalized)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if finalized {
		return ErrFinalized
	}
	return nil
}

// GetCompetition fetches one competition with its registration count.
func (r *PostgresRepository) GetCompetition(ctx context.Context, id string) (Competition, error) {
	compID, err := parseID(id)
	if err != nil {
		return Competition{}, err
	}
	return scanCompetition(r.db.QueryRow(ctx, `SELECT `+competitionColumns+` FROM competitions c WHERE c.id = $1`, compID))
}

// ListCompetitions returns all competitions ordered by date.
func (r *PostgresRepository) ListCompetitions(ctx context.Context) ([]Competition, error) {
	rows, err := r.db.Query(ctx, `SELECT `+competitionColumns+` FROM competitions c ORDER BY c.date, c.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Competition
	for rows.Next() {
		c, err := scanCompetition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateTeam inserts a team and its initial members in one transaction.
func (r *PostgresRepository) CreateTeam(ctx context.Context, t Team) error {
	id, err := parseID(t.ID)
	if err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err := tx.Exec(ctx, `INSERT INTO teams (id, name, created_at) VALUES ($1, $2, $3)`, id, t.Name, t.CreatedAt.UTC()); err != nil {
		return err
	}
	for _, m := range t.Members {
		userID, err := parseID(m)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `INSERT INTO team_members (team_id, user_id) VALUES ($1, $2)`, id, userID); err != nil {
			if pgCode(err) == foreignKeyViolation {
				return ErrNotFound
			}
			return err
		}
	}
	return tx.Commit(ctx)
}

// GetTeam fetches a team with its members.
func (r *PostgresRepository) GetTeam(ctx context.Context, id string) (Team, error) {
	teamID, err := parseID(id)
	if err != nil {
		return Team{}, err
	}
	var (
		t         Team
		createdAt time.Time
	)
	err = r.db.QueryRow(ctx, `SELECT name, created_at FROM teams WHERE id = $1`, teamID).Scan(&t.Name, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Team{}, ErrNotFound
	}
	if err != nil {
		return Team{}, err
	}
	t.ID = teamID.String()
	t.CreatedAt = createdAt.UTC()
	if t.Members, err = r.members(ctx, teamID); err != nil {
		return Team{}, err
	}
	return t, nil
}

func (r *PostgresRepository) members(ctx context.Context, teamID uuid.UUID) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT user_id FROM team_members WHERE team_id = $1 ORDER BY user_id`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var u uuid.UUID
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		out = append(out, u.String())
	}
	return out, rows.Err()
}

// ListTeams returns all teams ordered by name.
func (r *PostgresRepository) ListTeams(ctx context.Context) ([]Team, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, created_at FROM teams ORDER BY name`)
	if err != nil {
		return nil, err
	}
	var teams []Team
	for rows.Next() {
		var (
			id uuid.UUID
			t  Team
		)
		if err := rows.Scan(&id, &t.Name, &t.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		t.ID = id.String()
		t.CreatedAt = t.CreatedAt.UTC()
		teams = append(teams, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range teams {
		id, _ := uuid.Parse(teams[i].ID)
		if teams[i].Members, err = r.members(ctx, id); err != nil {
			return nil, err
		}
	}
	return teams, nil
}

// AddTeamMember links a user to a team.
func (r *PostgresRepository) AddTeamMember(ctx context.Context, teamID, userID string) error {
	tid, err := parseID(teamID)
	if err != nil {
		return err
	}
	uid, err := parseID(userID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO team_members (team_id, user_id) VALUES ($1, $2)`, tid, uid)
	switch pgCode(err) {
	case uniqueViolation:
		return ErrAlreadyMember
	case foreignKeyViolation:
		return ErrNotFound
	}
	return err
}

// AddRegistration locks the competition row so the capacity check and the
// insert are atomic.
func (r *PostgresRepository) AddRegistration(ctx context.Context, reg Registration, capacity int) error {
	id, err := parseID(reg.ID)
	if err != nil {
		return err
	}
	compID, err := parseID(reg.CompetitionID)
	if err != nil {
		return err
	}
	participantID, err := parseID(reg.ParticipantID)
	if err != nil {
		return err
	}
	registeredBy, err := parseID(reg.RegisteredBy)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := lockOpenCompetition(ctx, tx, compID); err != nil {
		return err
	}

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM registrations WHERE competition_id = $1 AND participant_id = $2)`,
		compID, participantID).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrAlreadyRegistered
	}

	if capacity > 0 {
		var count int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM registrations WHERE competition_id = $1`, compID).Scan(&count); err != nil {
			return err
		}
		if count >= capacity {
			return ErrFull
		}
	}

	if _, err := tx.Exec(ctx, `INSERT INTO registrations (id, competition_id, participant_id, category, registered_by, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`, id, compID, participantID, reg.Category, registeredBy, reg.CreatedAt.UTC()); err != nil {
		switch pgCode(err) {
		case uniqueViolation:
			return ErrAlreadyRegistered
		case foreignKeyViolation:
			return ErrNotFound
		}
		return err
	}
	return tx.Commit(ctx)
}

// ListRegistrations returns registrations in the order they were made.
func (r *PostgresRepository) ListRegistrations(ctx context.Context, competitionID string) ([]Registration, error) {
	compID, err := parseID(competitionID)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, participant_id, category, registered_by, created_at
        FROM registrations WHERE competition_id = $1 ORDER BY created_at`, compID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Registration
	for rows.Next() {
		var (
			reg                           Registration
			id, participant, registeredBy uuid.UUID
		)
		if err := rows.Scan(&id, &participant, &reg.Category, &registeredBy, &reg.CreatedAt); err != nil {
			return nil, err
		}
		reg.ID = id.String()
		reg.CompetitionID = competitionID
		reg.ParticipantID = participant.String()
		reg.RegisteredBy = registeredBy.String()
		reg.CreatedAt = reg.CreatedAt.UTC()
		out = append(out, reg)
	}
	return out, rows.Err()
}

// AddSponsorship records a contribution; one per sponsor and competition.
func (r *PostgresRepository) AddSponsorship(ctx context.Context, s Sponsorship) error {
	id, err := parseID(s.ID)
	if err != nil {
		return err
	}
	compID, err := parseID(s.CompetitionID)
	if err != nil {
		return err
	}
	sponsorID, err := parseID(s.SponsorID)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := lockOpenCompetition(ctx, tx, compID); err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `INSERT INTO sponsorships (id, competition_id, sponsor_id, amount, created_at)
        VALUES ($1, $2, $3, $4, $5)`, id, compID, sponsorID, s.Amount, s.CreatedAt.UTC())
	switch pgCode(err) {
	case uniqueViolation:
		return ErrAlreadySponsored
	case foreignKeyViolation:
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ListSponsorships returns the contributions to a competition.
func (r *PostgresRepository) ListSponsorships(ctx context.Context, competitionID string) ([]Sponsorship, error) {
	compID, err := parseID(competitionID)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, sponsor_id, amount, created_at
        FROM sponsorships WHERE competition_id = $1 ORDER BY created_at`, compID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Sponsorship
	for rows.Next() {
		var (
			s             Sponsorship
			id, sponsorID uuid.UUID
		)
		if err := rows.Scan(&id, &sponsorID, &s.Amount, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.ID = id.String()
		s.CompetitionID = competitionID
		s.SponsorID = sponsorID.String()
		s.CreatedAt = s.CreatedAt.UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}
