package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/tournament-engine/models"
)

var (
	ErrMatchNotFound        = fmt.Errorf("%w: match", models.ErrNotFound)
	ErrMatchVersionConflict = fmt.Errorf("%w: match was modified concurrently", models.ErrStateConflict)
	ErrRoundNotCurrent      = fmt.Errorf("%w: match round is no longer the current round", models.ErrStateConflict)
	ErrMatchNumberConflict  = fmt.Errorf("%w: match number already used in round", models.ErrInvariant)
)

type MatchRepository interface {
	GetByID(ctx context.Context, id string) (*models.Match, error)
	// ListByTournament returns matches in the order they were generated.
	// A nil round lists every round.
	ListByTournament(ctx context.Context, tournamentID int, round *models.Round) ([]*models.Match, error)
	// SaveMatchResult stores scores and status. m.Version must hold the version that
	// was read; on success it is incremented.
	SaveMatchResult(ctx context.Context, m *models.Match) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `
	id, tournament_id, round, match_number, slot, team1, team2, score_override,
	winner_id, status, admin_override, version, updated_at`

func (r *postgresMatchRepository) GetByID(ctx context.Context, id string) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	m, err := scanMatch(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match %s: %w", id, err)
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int, round *models.Round) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1`
	args := []interface{}{tournamentID}
	if round != nil {
		query += ` AND round = $2`
		args = append(args, *round)
	}
	query += ` ORDER BY created_at, match_number`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches of tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// SaveMatchResult holds the tournament row FOR SHARE while it checks that the match's
// round is still current, so it cannot interleave with a round advance.
func (r *postgresMatchRepository) SaveMatchResult(ctx context.Context, m *models.Match) error {
	team1, err := marshalJSON(m.Team1)
	if err != nil {
		return err
	}
	team2, err := marshalJSON(m.Team2)
	if err != nil {
		return err
	}
	var override interface{}
	if m.AdminOverride != nil {
		b, err := marshalJSON(m.AdminOverride)
		if err != nil {
			return err
		}
		override = b
	}

	var updatedAt time.Time
	err = withTx(ctx, r.db, func(tx *sql.Tx) error {
		var current, phase sql.NullString
		err := tx.QueryRowContext(ctx,
			`SELECT state->>'current_round', state->>'phase' FROM tournaments WHERE id = $1 FOR SHARE`,
			m.TournamentID,
		).Scan(&current, &phase)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrTournamentNotFound
			}
			return fmt.Errorf("failed to lock tournament %d: %w", m.TournamentID, err)
		}
		if !inPlay(models.Phase(phase.String)) {
			return fmt.Errorf("%w: tournament is %s", ErrRoundNotCurrent, phase.String)
		}
		if models.Round(current.String) != m.Round {
			return fmt.Errorf("%w: %s (current %s)", ErrRoundNotCurrent, m.Round, current.String)
		}

		query := `
			UPDATE matches SET
				team1 = $1,
				team2 = $2,
				score_override = $3,
				winner_id = NULLIF($4, ''),
				status = $5,
				admin_override = $6,
				version = version + 1,
				updated_at = NOW()
			WHERE id = $7 AND version = $8
			RETURNING updated_at`
		err = tx.QueryRowContext(ctx, query,
			team1, team2, m.ScoreOverride, m.WinnerID, m.Status, override, m.ID, m.Version,
		).Scan(&updatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrMatchVersionConflict, m.ID)
		}
		return err
	})
	if err != nil {
		return err
	}
	m.Version++
	m.UpdatedAt = updatedAt
	return nil
}

// inPlay reports whether match results may still be written in the phase.
func inPlay(p models.Phase) bool {
	return p == models.PhaseRoundRobin || p == models.PhaseBracket
}

func insertMatches(ctx context.Context, exec SQLExecutor, matches []*models.Match) error {
	if len(matches) == 0 {
		return nil
	}
	query := `
		INSERT INTO matches (
			id, tournament_id, round, match_number, slot, team1, team2, score_override,
			winner_id, status, admin_override, version, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11, $12, $13)`

	for _, m := range matches {
		team1, err := marshalJSON(m.Team1)
		if err != nil {
			return err
		}
		team2, err := marshalJSON(m.Team2)
		if err != nil {
			return err
		}
		_, err = exec.ExecContext(ctx, query,
			m.ID, m.TournamentID, m.Round, m.MatchNumber, m.Slot, team1, team2, m.ScoreOverride,
			m.WinnerID, m.Status, nil, m.Version, m.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err, "matches_tournament_id_round_match_number_key") {
				return fmt.Errorf("%w: %s #%d", ErrMatchNumberConflict, m.Round, m.MatchNumber)
			}
			return fmt.Errorf("failed to insert match %s: %w", m.ID, err)
		}
	}
	return nil
}

func scanMatch(row scanner) (*models.Match, error) {
	var (
		m                     models.Match
		team1, team2, adminOv []byte
		winner                sql.NullString
	)
	err := row.Scan(
		&m.ID, &m.TournamentID, &m.Round, &m.MatchNumber, &m.Slot, &team1, &team2, &m.ScoreOverride,
		&winner, &m.Status, &adminOv, &m.Version, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.WinnerID = winner.String
	if err := unmarshalJSON(team1, &m.Team1); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(team2, &m.Team2); err != nil {
		return nil, err
	}
	if len(adminOv) > 0 {
		m.AdminOverride = &models.AdminOverride{}
		if err := unmarshalJSON(adminOv, m.AdminOverride); err != nil {
			return nil, err
		}
	}
	return &m, nil
}
