package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentNotFound     = fmt.Errorf("%w: tournament", models.ErrNotFound)
	ErrTournamentNameConflict = fmt.Errorf("%w: tournament name already taken", models.ErrStateConflict)
	ErrVersionConflict        = fmt.Errorf("%w: tournament was modified concurrently", models.ErrStateConflict)
	ErrRoundChanged           = fmt.Errorf("%w: round results changed before commit", models.ErrStateConflict)
)

type ListTournamentsFilter struct {
	Phase  *models.Phase
	Limit  int
	Offset int
}

// RoundGuard pins the matches of a round to the versions a transition was computed
// from. SaveProgress refuses to commit when any of them moved on or is unfinished.
type RoundGuard struct {
	Round    models.Round
	Versions map[string]int
}

// Progress is one atomic state transition. Tournament.Version must hold the version
// that was read; on success it is incremented.
type Progress struct {
	Tournament   *models.Tournament
	NewMatches   []*models.Match
	ResetMatches bool
	Guard        *RoundGuard
}

type TournamentRepository interface {
	Create(ctx context.Context, t *models.Tournament) error
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	SaveProgress(ctx context.Context, p Progress) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

const tournamentColumns = `
	id, name, format, bracket_type, max_players, player_ids, state, teams, byes,
	champion_id, finalist_id, placements, version, created_at, updated_at`

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	state, teams, byes, placements, err := encodeTournament(t)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO tournaments (
			name, format, bracket_type, max_players, player_ids, state, teams, byes, placements, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1)
		RETURNING id, version, created_at, updated_at`

	err = r.db.QueryRowContext(ctx, query,
		t.Name, t.Format, t.BracketType, t.MaxPlayers, int64Array(t.PlayerIDs), state, teams, byes, placements,
	).Scan(&t.ID, &t.Version, &t.CreatedAt, &t.UpdatedAt)
	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`
	t, err := scanTournament(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE 1=1`
	args := []interface{}{}
	argID := 1

	if filter.Phase != nil {
		query += fmt.Sprintf(" AND state->>'phase' = $%d", argID)
		args = append(args, *filter.Phase)
		argID++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		t, scanErr := scanTournament(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, *t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return tournaments, nil
}

// SaveProgress writes a transition in one transaction. The tournament row is locked
// FOR UPDATE so score submissions holding it FOR SHARE finish first or wait.
func (r *postgresTournamentRepository) SaveProgress(ctx context.Context, p Progress) error {
	t := p.Tournament
	state, teams, byes, placements, err := encodeTournament(t)
	if err != nil {
		return err
	}

	var updatedAt time.Time
	err = withTx(ctx, r.db, func(tx *sql.Tx) error {
		var version int
		err := tx.QueryRowContext(ctx, `SELECT version FROM tournaments WHERE id = $1 FOR UPDATE`, t.ID).Scan(&version)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrTournamentNotFound
			}
			return fmt.Errorf("failed to lock tournament %d: %w", t.ID, err)
		}
		if version != t.Version {
			return fmt.Errorf("%w: have version %d, stored %d", ErrVersionConflict, t.Version, version)
		}

		if p.Guard != nil {
			if err := checkRoundGuard(ctx, tx, t.ID, p.Guard); err != nil {
				return err
			}
		}

		if p.ResetMatches {
			if _, err := tx.ExecContext(ctx, `DELETE FROM matches WHERE tournament_id = $1`, t.ID); err != nil {
				return fmt.Errorf("failed to delete matches of tournament %d: %w", t.ID, err)
			}
		}
		if err := insertMatches(ctx, tx, p.NewMatches); err != nil {
			return err
		}

		query := `
			UPDATE tournaments SET
				player_ids = $1,
				state = $2,
				teams = $3,
				byes = $4,
				champion_id = NULLIF($5, ''),
				finalist_id = NULLIF($6, ''),
				placements = $7,
				version = version + 1,
				updated_at = NOW()
			WHERE id = $8
			RETURNING updated_at`
		return tx.QueryRowContext(ctx, query,
			int64Array(t.PlayerIDs), state, teams, byes, t.ChampionID, t.FinalistID, placements, t.ID,
		).Scan(&updatedAt)
	})
	if err != nil {
		return r.handleTournamentError(err)
	}
	t.Version++
	t.UpdatedAt = updatedAt
	return nil
}

func checkRoundGuard(ctx context.Context, tx *sql.Tx, tournamentID int, g *RoundGuard) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, status, version FROM matches WHERE tournament_id = $1 AND round = $2`,
		tournamentID, g.Round)
	if err != nil {
		return fmt.Errorf("failed to re-check round %s: %w", g.Round, err)
	}
	defer rows.Close()

	seen := 0
	for rows.Next() {
		var (
			id      string
			status  models.MatchStatus
			version int
		)
		if err := rows.Scan(&id, &status, &version); err != nil {
			return fmt.Errorf("failed to scan match during re-check: %w", err)
		}
		want, ok := g.Versions[id]
		if !ok || want != version || !status.Finished() {
			return fmt.Errorf("%w: match %s in %s", ErrRoundChanged, id, g.Round)
		}
		seen++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if seen != len(g.Versions) {
		return fmt.Errorf("%w: %s has %d matches, expected %d", ErrRoundChanged, g.Round, seen, len(g.Versions))
	}
	return nil
}

func encodeTournament(t *models.Tournament) (state, teams, byes, placements string, err error) {
	if state, err = marshalJSON(t.State); err != nil {
		return
	}
	if teams, err = marshalJSON(nonNil(t.Teams)); err != nil {
		return
	}
	if byes, err = marshalJSON(nonNil(t.Byes)); err != nil {
		return
	}
	placements, err = marshalJSON(nonNil(t.Placements))
	return
}

func int64Array(ids []int) pq.Int64Array {
	out := make(pq.Int64Array, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func scanTournament(row scanner) (*models.Tournament, error) {
	var (
		t                             models.Tournament
		playerIDs                     pq.Int64Array
		state, teams, byes, placement []byte
		champion, finalist            sql.NullString
	)
	err := row.Scan(
		&t.ID, &t.Name, &t.Format, &t.BracketType, &t.MaxPlayers, &playerIDs, &state, &teams, &byes,
		&champion, &finalist, &placement, &t.Version, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	for _, id := range playerIDs {
		t.PlayerIDs = append(t.PlayerIDs, int(id))
	}
	t.ChampionID = champion.String
	t.FinalistID = finalist.String
	if err := unmarshalJSON(state, &t.State); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(teams, &t.Teams); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(byes, &t.Byes); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(placement, &t.Placements); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err, "tournaments_name_key") {
		return ErrTournamentNameConflict
	}
	if code, _, ok := pqCode(err); ok && code == foreignKeyViolation {
		return fmt.Errorf("%w: %v", ErrTournamentNotFound, err)
	}
	return err
}
