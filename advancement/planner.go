package advancement

import (
	"fmt"

	"github.com/Dosada05/tournament-engine/brackets"
	"github.com/Dosada05/tournament-engine/models"
)

// PlanRound builds the slots of a round whose entrants come from earlier rounds.
// Seeded and round-robin rounds are generated from entrant lists instead.
func PlanRound(spec brackets.RoundSpec, in Input) ([]*brackets.BracketMatch, error) {
	switch spec.Source {
	case brackets.FromWinners, brackets.FromLBWinners:
		feed, err := in.Outcomes(spec.Feed)
		if err != nil {
			return nil, err
		}
		return brackets.PairAdjacent(spec.Round, winners(feed)), nil

	case brackets.FromLosers:
		feed, err := in.Outcomes(spec.Feed)
		if err != nil {
			return nil, err
		}
		return brackets.PairAdjacent(spec.Round, losers(feed)), nil

	case brackets.FromMerge:
		feed, err := in.Outcomes(spec.Feed)
		if err != nil {
			return nil, err
		}
		drop, err := in.Outcomes(spec.Drop)
		if err != nil {
			return nil, err
		}
		return brackets.PairAcross(spec.Round, winners(feed), losers(drop)), nil

	case brackets.FromFinalists:
		wb, err := in.Outcomes(spec.Feed)
		if err != nil {
			return nil, err
		}
		lb, err := in.Outcomes(spec.Drop)
		if err != nil {
			return nil, err
		}
		return brackets.PairAcross(spec.Round, winners(wb), winners(lb)), nil

	case brackets.FromRematch:
		final, err := in.Outcomes(spec.Feed)
		if err != nil {
			return nil, err
		}
		return brackets.PairAcross(spec.Round, winners(final), losers(final)), nil

	case brackets.FromReset:
		gf := in.MatchesIn(spec.Feed)
		if len(gf) != 1 {
			return nil, fmt.Errorf("%w: expected one grand final match, found %d", models.ErrInvariant, len(gf))
		}
		a, err := in.entrant(gf[0].Team1.TeamID)
		if err != nil {
			return nil, err
		}
		b, err := in.entrant(gf[0].Team2.TeamID)
		if err != nil {
			return nil, err
		}
		return brackets.PairAcross(spec.Round, []*brackets.Entrant{a}, []*brackets.Entrant{b}), nil
	}
	return nil, fmt.Errorf("%w: round %s is generated from entrants, not planned", models.ErrInvariant, spec.Round)
}

func winners(outcomes []Outcome) []*brackets.Entrant {
	out := make([]*brackets.Entrant, len(outcomes))
	for i, o := range outcomes {
		out[i] = o.Winner
	}
	return out
}

func losers(outcomes []Outcome) []*brackets.Entrant {
	out := make([]*brackets.Entrant, len(outcomes))
	for i, o := range outcomes {
		out[i] = o.Loser
	}
	return out
}

// NeedsBracketReset decides whether a double-elimination grand final must be replayed.
// The winners-bracket survivor enters unbeaten, so if the losers-bracket survivor wins the
// first grand final both teams have one loss and a second match decides the title.
func NeedsBracketReset(grandFinal *models.Match, wbSurvivor string, wbLossesBefore int) (bool, error) {
	w, _, err := Winner(grandFinal)
	if err != nil {
		return false, err
	}
	return w != wbSurvivor && wbLossesBefore == 0, nil
}

// GrandFinalReset checks the grand final of in and reports whether a reset is owed.
func (in Input) GrandFinalReset() (bool, error) {
	gf := in.MatchesIn(models.GrandFinal)
	if len(gf) != 1 {
		return false, fmt.Errorf("%w: expected one grand final match, found %d", models.ErrInvariant, len(gf))
	}
	wb := gf[0].Team1.TeamID
	return NeedsBracketReset(gf[0], wb, in.lossesBefore(models.GrandFinal)[wb])
}

// Champion resolves the deciding match of a finished bracket.
func Champion(terminal *models.Match) (champion, finalist string, err error) {
	return Winner(terminal)
}
