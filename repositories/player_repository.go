package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dosada05/tournament-engine/models"
)

var ErrPlayerNotFound = fmt.Errorf("%w: player", models.ErrNotFound)

type PlayerRepository interface {
	Create(ctx context.Context, p *models.Player) error
	// GetByIDs returns the players that exist; missing ids are simply absent from the map.
	GetByIDs(ctx context.Context, ids []int) (map[int]*models.Player, error)
	List(ctx context.Context, limit, offset int) ([]*models.Player, error)
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

const playerColumns = `id, name, winning_percentage, total_championships, avg_finish, tournaments_played, created_at`

func (r *postgresPlayerRepository) Create(ctx context.Context, p *models.Player) error {
	query := `
		INSERT INTO players (name, winning_percentage, total_championships, avg_finish, tournaments_played)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query,
		p.Name, p.WinningPercentage, p.TotalChampionships, p.AvgFinish, p.TournamentsPlayed,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}
	return nil
}

func (r *postgresPlayerRepository) GetByIDs(ctx context.Context, ids []int) (map[int]*models.Player, error) {
	players := make(map[int]*models.Player, len(ids))
	if len(ids) == 0 {
		return players, nil
	}
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, int64Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to load players: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players[p.ID] = p
	}
	return players, rows.Err()
}

func (r *postgresPlayerRepository) List(ctx context.Context, limit, offset int) ([]*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players ORDER BY id`
	args := []interface{}{}
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, limit)
	}
	if offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", len(args)+1)
		args = append(args, offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	players := make([]*models.Player, 0)
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func scanPlayer(row scanner) (*models.Player, error) {
	var p models.Player
	if err := row.Scan(&p.ID, &p.Name, &p.WinningPercentage, &p.TotalChampionships,
		&p.AvgFinish, &p.TournamentsPlayed, &p.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan player: %w", err)
	}
	return &p, nil
}
