package brackets

import (
	"context"
	"fmt"
	"sort"

	"github.com/Dosada05/tournament-engine/models"
)

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() BracketGenerator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) GetName() string {
	return "RoundRobin"
}

func (g *RoundRobinGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error) {
	return GenerateRoundRobinSchedule(params.Entrants, params.RoundIndex)
}

// GenerateRoundRobinSchedule returns the pairings of one round-robin round using the
// circle method: the top seed stays fixed and everyone else rotates one place per round.
// Every team plays once per round, and pairings repeat only after N-1 rounds. With an odd
// number of teams the one drawn against the empty seat sits the round out as a bye.
func GenerateRoundRobinSchedule(entrants []Entrant, roundIndex int) ([]*BracketMatch, error) {
	if len(entrants) < 2 {
		return nil, ErrNotEnoughEntrants
	}
	if roundIndex < 0 || roundIndex >= len(models.RoundRobinRounds) {
		return nil, fmt.Errorf("%w: round-robin round index %d", ErrUnknownRound, roundIndex)
	}
	round := models.RoundRobinRounds[roundIndex]

	sorted := make([]Entrant, len(entrants))
	copy(sorted, entrants)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Seed < sorted[j].Seed })

	seats := make([]*Entrant, 0, len(sorted)+1)
	for i := range sorted {
		seats = append(seats, &sorted[i])
	}
	if len(seats)%2 == 1 {
		seats = append(seats, nil)
	}

	m := len(seats)
	shift := roundIndex % (m - 1)
	arranged := make([]*Entrant, m)
	arranged[0] = seats[0]
	for i := 1; i < m; i++ {
		arranged[i] = seats[1+(i-1+shift)%(m-1)]
	}

	slots := make([]*BracketMatch, 0, m/2)
	for i := 0; i < m/2; i++ {
		slots = append(slots, newSlot(round, i, arranged[i], arranged[m-1-i]))
	}
	numberMatches(slots)
	return slots, nil
}
