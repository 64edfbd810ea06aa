package brackets

import (
	"fmt"
	"math/bits"

	"github.com/Dosada05/tournament-engine/models"
)

const MaxBracketSize = 64

// Source tells the resolver where a round's entrants come from.
type Source int

const (
	FromSchedule  Source = iota // round-robin schedule over all entrants
	FromSeeds                   // seeded first elimination round
	FromWinners                 // adjacent winners of Feed
	FromLosers                  // adjacent losers of Feed
	FromLBWinners               // adjacent winners of the previous losers round
	FromMerge                   // winners of Feed against losers of Drop, slot by slot
	FromFinalists               // winner of Feed against winner of Drop
	FromRematch                 // winner of Feed against loser of Feed
	FromReset                   // the grand final teams again
)

// RoundSpec is one row of the round table.
type RoundSpec struct {
	Round  models.Round
	Source Source
	Feed   models.Round
	Drop   models.Round
	Index  int // position within the round-robin stage

	// Conditional rounds are only played when the resolver asks for them.
	Conditional bool
}

var eliminationNames = map[int]models.Round{
	2:  models.Final,
	4:  models.Semifinal,
	8:  models.Quarterfinal,
	16: models.RoundOf16,
	32: models.RoundOf32,
	64: models.RoundOf64,
}

var losersRounds = []models.Round{
	models.LosersRound1, models.LosersRound2, models.LosersRound3, models.LosersRound4,
	models.LosersRound5, models.LosersRound6, models.LosersRound7, models.LosersRound8,
}

// BracketSize is the smallest power of two holding n entrants.
func BracketSize(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// EliminationRound names the round played by size remaining entrants.
func EliminationRound(size int) (models.Round, error) {
	r, ok := eliminationNames[size]
	if !ok {
		return "", fmt.Errorf("%w: no elimination round for bracket size %d", models.ErrRuleViolation, size)
	}
	return r, nil
}

// Sequence returns the ordered rounds for a bracket type. size is the elimination
// bracket size and may be 0 for round-robin playoffs that have not reached the bracket.
func Sequence(bt models.BracketType, size int) ([]RoundSpec, error) {
	switch bt {
	case models.SingleElimination:
		return singleElimination(size)
	case models.DoubleElimination:
		return doubleElimination(size)
	case models.RoundRobinPlayoff:
		seq := make([]RoundSpec, 0, len(models.RoundRobinRounds)+6)
		for i, r := range models.RoundRobinRounds {
			seq = append(seq, RoundSpec{Round: r, Source: FromSchedule, Index: i})
		}
		if size == 0 {
			return seq, nil
		}
		elim, err := singleElimination(size)
		if err != nil {
			return nil, err
		}
		return append(seq, elim...), nil
	}
	return nil, fmt.Errorf("%w: unknown bracket type %q", models.ErrValidation, bt)
}

func singleElimination(size int) ([]RoundSpec, error) {
	if _, err := EliminationRound(size); err != nil {
		return nil, err
	}
	var seq []RoundSpec
	for s := size; s >= 2; s /= 2 {
		spec := RoundSpec{Round: eliminationNames[s], Source: FromSeeds}
		if len(seq) > 0 {
			spec.Source = FromWinners
			spec.Feed = seq[len(seq)-1].Round
		}
		seq = append(seq, spec)
	}
	return seq, nil
}

func losersRoundName(i, total int) models.Round {
	switch {
	case i == total:
		return models.LosersFinal
	case i == total-1 && total >= 3:
		return models.LosersSemifinal
	}
	return losersRounds[i-1]
}

// doubleElimination plays W1, then for each later winners round Wj the two losers
// rounds it unlocks, then the grand final and its conditional reset.
func doubleElimination(size int) ([]RoundSpec, error) {
	winners, err := singleElimination(size)
	if err != nil {
		return nil, err
	}
	k := len(winners)
	totalLosers := 2*k - 2
	lb := func(i int) models.Round { return losersRoundName(i, totalLosers) }

	seq := []RoundSpec{winners[0]}
	for j := 2; j <= k; j++ {
		seq = append(seq, winners[j-1])
		if j == 2 {
			seq = append(seq, RoundSpec{Round: lb(1), Source: FromLosers, Feed: winners[0].Round})
		} else {
			seq = append(seq, RoundSpec{Round: lb(2*j - 3), Source: FromLBWinners, Feed: lb(2*j - 4)})
		}
		seq = append(seq, RoundSpec{Round: lb(2*j - 2), Source: FromMerge, Feed: lb(2*j - 3), Drop: winners[j-1].Round})
	}

	final := winners[k-1].Round
	if k == 1 {
		seq = append(seq, RoundSpec{Round: models.GrandFinal, Source: FromRematch, Feed: final})
	} else {
		seq = append(seq, RoundSpec{Round: models.GrandFinal, Source: FromFinalists, Feed: final, Drop: lb(totalLosers)})
	}
	seq = append(seq, RoundSpec{Round: models.GrandFinalReset, Source: FromReset, Feed: models.GrandFinal, Conditional: true})
	return seq, nil
}

// Lookup finds a round in a sequence.
func Lookup(seq []RoundSpec, r models.Round) (RoundSpec, int, bool) {
	for i, spec := range seq {
		if spec.Round == r {
			return spec, i, true
		}
	}
	return RoundSpec{}, -1, false
}

// Next returns the round after r, or false when r is the last round.
func Next(seq []RoundSpec, r models.Round) (RoundSpec, bool, error) {
	_, i, ok := Lookup(seq, r)
	if !ok {
		return RoundSpec{}, false, fmt.Errorf("%w: %q", ErrUnknownRound, r)
	}
	if i+1 >= len(seq) {
		return RoundSpec{}, false, nil
	}
	return seq[i+1], true, nil
}

// Contains reports whether the round is valid for the bracket type. Double elimination
// rounds depend on the bracket size, so callers pass the one in effect.
func Contains(bt models.BracketType, size int, r models.Round) bool {
	seq, err := Sequence(bt, size)
	if err != nil {
		return false
	}
	_, _, ok := Lookup(seq, r)
	return ok
}
