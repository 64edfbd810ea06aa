// Package seeding ranks players from their historical statistics.
package seeding

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/Dosada05/tournament-engine/models"
)

// Scoring weights.
const (
	WinPercentageWeight   = 100.0
	ChampionshipWeight    = 25.0
	FinishBaseline        = 10.0
	FinishWeight          = 5.0
	UnknownAvgFinish      = 99.0
	ExperienceCap         = 50
	NewPlayerThreshold    = 2
	NewPlayerNeutralScore = 50.0
)

var ErrPlayerNotFound = fmt.Errorf("%w: player", models.ErrNotFound)

// PlayerSource resolves player ids. Missing ids are simply absent from the result map.
type PlayerSource interface {
	GetByIDs(ctx context.Context, ids []int) (map[int]*models.Player, error)
}

// Adjuster is the format-specific hook applied to a player's raw score.
type Adjuster func(score float64, p *models.Player) float64

func passthrough(score float64, _ *models.Player) float64 { return score }

type PlayerSeed struct {
	Player    *models.Player `json:"player"`
	Score     int            `json:"score"`
	Seed      int            `json:"seed"`
	Reasoning string         `json:"reasoning"`
}

type Calculator struct {
	players   PlayerSource
	adjusters map[string]Adjuster
}

func NewCalculator(players PlayerSource) *Calculator {
	c := &Calculator{
		players:   players,
		adjusters: make(map[string]Adjuster),
	}
	for _, format := range []string{"M", "Men's Singles", "W", "Women's Doubles", "Mixed", "Mixed Doubles"} {
		c.adjusters[format] = passthrough
	}
	return c
}

// SetAdjuster installs the adjustment used for a format.
func (c *Calculator) SetAdjuster(format string, fn Adjuster) {
	c.adjusters[format] = fn
}

// Calculate resolves every id and ranks the players. The order of ids breaks ties.
func (c *Calculator) Calculate(ctx context.Context, playerIDs []int, format string) ([]PlayerSeed, error) {
	found, err := c.players.GetByIDs(ctx, playerIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load players for seeding: %w", err)
	}
	players := make([]*models.Player, 0, len(playerIDs))
	for _, id := range playerIDs {
		p, ok := found[id]
		if !ok || p == nil {
			return nil, fmt.Errorf("%w: id %d", ErrPlayerNotFound, id)
		}
		players = append(players, p)
	}
	return c.Rank(players, format), nil
}

// Rank scores and orders the players. It is deterministic for a given input order.
func (c *Calculator) Rank(players []*models.Player, format string) []PlayerSeed {
	adjust := passthrough
	if c != nil {
		if fn, ok := c.adjusters[format]; ok {
			adjust = fn
		}
	}

	seeds := make([]PlayerSeed, len(players))
	for i, p := range players {
		seeds[i] = PlayerSeed{
			Player:    p,
			Score:     score(p, adjust),
			Reasoning: Reasoning(p),
		}
	}
	sort.SliceStable(seeds, func(i, j int) bool {
		return seeds[i].Score > seeds[j].Score
	})
	for i := range seeds {
		seeds[i].Seed = i + 1
	}
	return seeds
}

func score(p *models.Player, adjust Adjuster) int {
	avgFinish := p.AvgFinish
	if avgFinish == 0 {
		avgFinish = UnknownAvgFinish
	}

	s := p.WinningPercentage * WinPercentageWeight
	s += float64(p.TotalChampionships) * ChampionshipWeight
	s += math.Max(0, (FinishBaseline-avgFinish)*FinishWeight)
	s += float64(min(ExperienceCap, p.TournamentsPlayed))
	s = adjust(s, p)

	if p.TournamentsPlayed < NewPlayerThreshold {
		s = NewPlayerNeutralScore
	}
	return int(math.Round(s))
}

// CheckPermutation reports whether seeds are exactly 1..len(seeds).
func CheckPermutation(seeds []int) error {
	seen := make([]bool, len(seeds)+1)
	for _, s := range seeds {
		if s < 1 || s > len(seeds) || seen[s] {
			return fmt.Errorf("%w: seeds %v are not a permutation of 1..%d", models.ErrInvariant, seeds, len(seeds))
		}
		seen[s] = true
	}
	return nil
}
