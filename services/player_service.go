package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/repositories"
	"github.com/Dosada05/tournament-engine/seeding"
)

type CreatePlayerInput struct {
	Name               string  `json:"name"`
	WinningPercentage  float64 `json:"winning_percentage"`
	TotalChampionships int     `json:"total_championships"`
	AvgFinish          float64 `json:"avg_finish"`
	TournamentsPlayed  int     `json:"tournaments_played"`
}

type PlayerService interface {
	CreatePlayer(ctx context.Context, input CreatePlayerInput) (*models.Player, error)
	ListPlayers(ctx context.Context, limit, offset int) ([]*models.Player, error)
	// Preview reports the bracket size and byes for a number of entrants.
	Preview(entrants int) (seeding.Preview, error)
}

type playerService struct {
	players repositories.PlayerRepository
	logger  *slog.Logger
	timeout time.Duration
}

func NewPlayerService(players repositories.PlayerRepository, logger *slog.Logger, timeout time.Duration) PlayerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &playerService{players: players, logger: logger, timeout: timeout}
}

func (s *playerService) CreatePlayer(ctx context.Context, input CreatePlayerInput) (*models.Player, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrPlayerNameRequired
	}
	if input.WinningPercentage < 0 || input.WinningPercentage > 1 ||
		input.TotalChampionships < 0 || input.AvgFinish < 0 || input.TournamentsPlayed < 0 {
		return nil, ErrInvalidPlayerStats
	}

	p := &models.Player{
		Name:               name,
		WinningPercentage:  input.WinningPercentage,
		TotalChampionships: input.TotalChampionships,
		AvgFinish:          input.AvgFinish,
		TournamentsPlayed:  input.TournamentsPlayed,
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.players.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "player created", slog.Int("player_id", p.ID))
	return p, nil
}

func (s *playerService) ListPlayers(ctx context.Context, limit, offset int) ([]*models.Player, error) {
	switch {
	case limit <= 0:
		limit = 100
	case limit > 500:
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	return s.players.List(ctx, limit, offset)
}

func (s *playerService) Preview(entrants int) (seeding.Preview, error) {
	if entrants < 0 || entrants > MaxPlayersLimit {
		return seeding.Preview{}, ErrInvalidCapacity
	}
	return seeding.NewPreview(entrants), nil
}
