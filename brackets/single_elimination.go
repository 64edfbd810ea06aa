package brackets

import (
	"context"
	"sort"

	"github.com/Dosada05/tournament-engine/models"
)

type SingleEliminationGenerator struct {
}

func NewSingleEliminationGenerator() BracketGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) GetName() string {
	return "SingleElimination"
}

func (g *SingleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error) {
	return GenerateBracketPairings(params.Entrants, params.Round)
}

// bracketLines lists seeds in bracket line order, so that consecutive pairs meet in
// round one and adjacent pairs meet in round two. For 8 that is 1,8 5,4 3,6 7,2.
func bracketLines(size int) []int {
	lines := []int{1, 2}
	for n := 4; n <= size; n *= 2 {
		next := make([]int, 0, n)
		for i, s := range lines {
			if i%2 == 0 {
				next = append(next, s, n+1-s)
			} else {
				next = append(next, n+1-s, s)
			}
		}
		lines = next
	}
	return lines
}

// GenerateBracketPairings seeds a first elimination round. Seed i meets seed S+1-i where S
// is the bracket size; a missing opponent is a bye that advances the higher seed.
func GenerateBracketPairings(entrants []Entrant, round models.Round) ([]*BracketMatch, error) {
	n := len(entrants)
	if n < 2 {
		return nil, ErrNotEnoughEntrants
	}
	if n > MaxBracketSize {
		return nil, ErrTooManyEntrants
	}

	sorted := make([]Entrant, n)
	copy(sorted, entrants)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Seed < sorted[j].Seed })

	size := BracketSize(n)
	lines := bracketLines(size)
	slots := make([]*BracketMatch, 0, size/2)
	for p := 0; p < size/2; p++ {
		a, b := lines[2*p], lines[2*p+1]
		if a > b {
			a, b = b, a
		}
		bm := &BracketMatch{Round: round, Slot: p}
		e1 := sorted[a-1]
		bm.Team1 = &e1
		if b <= n {
			e2 := sorted[b-1]
			bm.Team2 = &e2
		}
		slots = append(slots, bm)
	}
	numberMatches(slots)
	return slots, nil
}

// PairAdjacent builds a round from slot-ordered survivors: slot p meets slot p+1.
func PairAdjacent(round models.Round, occupants []*Entrant) []*BracketMatch {
	slots := make([]*BracketMatch, 0, (len(occupants)+1)/2)
	for p := 0; p*2 < len(occupants); p++ {
		var b *Entrant
		if p*2+1 < len(occupants) {
			b = occupants[p*2+1]
		}
		slots = append(slots, newSlot(round, p, occupants[p*2], b))
	}
	numberMatches(slots)
	return slots
}

// PairAcross builds a round where a[p] meets b[p].
func PairAcross(round models.Round, a, b []*Entrant) []*BracketMatch {
	n := max(len(a), len(b))
	slots := make([]*BracketMatch, 0, n)
	for p := 0; p < n; p++ {
		var x, y *Entrant
		if p < len(a) {
			x = a[p]
		}
		if p < len(b) {
			y = b[p]
		}
		slots = append(slots, newSlot(round, p, x, y))
	}
	numberMatches(slots)
	return slots
}

func newSlot(round models.Round, slot int, a, b *Entrant) *BracketMatch {
	if a == nil {
		a, b = b, nil
	}
	return &BracketMatch{Round: round, Slot: slot, Team1: a, Team2: b}
}
