package infra

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
        id            UUID PRIMARY KEY,
        name          TEXT NOT NULL,
        email         TEXT NOT NULL UNIQUE,
        role          TEXT NOT NULL CHECK (role IN ('admin', 'collaborator', 'participant', 'sponsor')),
        password_hash BYTEA NOT NULL,
        institution   TEXT NOT NULL DEFAULT '',
        created_at    TIMESTAMPTZ NOT NULL,
        last_login    TIMESTAMPTZ
    )`,
	`CREATE TABLE IF NOT EXISTS teams (
        id         UUID PRIMARY KEY,
        name       TEXT NOT NULL,
        created_at TIMESTAMPTZ NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS team_members (
        team_id UUID NOT NULL REFERENCES teams (id) ON DELETE CASCADE,
        user_id UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
        PRIMARY KEY (team_id, user_id)
    )`,
	`CREATE TABLE IF NOT EXISTS competitions (
        id               UUID PRIMARY KEY,
        name             TEXT NOT NULL,
        location         TEXT NOT NULL DEFAULT '',
        date             DATE NOT NULL,
        start_time       TEXT NOT NULL DEFAULT '',
        max_participants INTEGER NOT NULL DEFAULT 0 CHECK (max_participants >= 0),
        description      TEXT NOT NULL DEFAULT '',
        team_id          UUID NOT NULL REFERENCES teams (id),
        finalized        BOOLEAN NOT NULL DEFAULT FALSE,
        created_by       UUID NOT NULL REFERENCES users (id),
        created_at       TIMESTAMPTZ NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS registrations (
        id             UUID PRIMARY KEY,
        competition_id UUID NOT NULL REFERENCES competitions (id) ON DELETE CASCADE,
        participant_id UUID NOT NULL REFERENCES users (id),
        category       TEXT NOT NULL DEFAULT '',
        registered_by  UUID NOT NULL REFERENCES users (id),
        created_at     TIMESTAMPTZ NOT NULL,
        UNIQUE (competition_id, participant_id)
    )`,
	`CREATE TABLE IF NOT EXISTS sponsorships (
        id             UUID PRIMARY KEY,
        competition_id UUID NOT NULL REFERENCES competitions (id) ON DELETE CASCADE,
        sponsor_id     UUID NOT NULL REFERENCES users (id),
        amount         BIGINT NOT NULL CHECK (amount > 0),
        created_at     TIMESTAMPTZ NOT NULL,
        UNIQUE (competition_id, sponsor_id)
    )`,
}

// Migrate creates the tables the repositories expect. It is safe to run on
// every start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
