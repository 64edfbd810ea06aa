package db

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS organizers (
		id SERIAL PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'organizer',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS players (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		winning_percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_championships INT NOT NULL DEFAULT 0,
		avg_finish DOUBLE PRECISION NOT NULL DEFAULT 0,
		tournaments_played INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS tournaments (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		format TEXT NOT NULL,
		bracket_type TEXT NOT NULL,
		max_players INT NOT NULL,
		player_ids INT[] NOT NULL DEFAULT '{}',
		state JSONB NOT NULL,
		teams JSONB NOT NULL DEFAULT '[]',
		byes JSONB NOT NULL DEFAULT '[]',
		champion_id TEXT,
		finalist_id TEXT,
		placements JSONB NOT NULL DEFAULT '[]',
		version INT NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS matches (
		id TEXT PRIMARY KEY,
		tournament_id INT NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
		round TEXT NOT NULL,
		match_number INT NOT NULL,
		slot INT NOT NULL,
		team1 JSONB NOT NULL,
		team2 JSONB NOT NULL,
		score_override BOOLEAN NOT NULL DEFAULT FALSE,
		winner_id TEXT,
		status TEXT NOT NULL,
		admin_override JSONB,
		version INT NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CLOCK_TIMESTAMP(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (tournament_id, round, match_number)
	)`,
	`CREATE INDEX IF NOT EXISTS matches_tournament_round_idx ON matches (tournament_id, round)`,
}

// Migrate creates the tables the repositories expect. It is safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d failed: %w", i+1, err)
		}
	}
	return nil
}
