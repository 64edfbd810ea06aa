package brackets

import (
	"context"
	"fmt"

	"github.com/Dosada05/tournament-engine/models"
)

var (
	ErrNotEnoughEntrants = fmt.Errorf("%w: at least 2 entrants are required", models.ErrRuleViolation)
	ErrTooManyEntrants   = fmt.Errorf("%w: brackets hold at most %d entrants", models.ErrRuleViolation, MaxBracketSize)
	ErrUnknownRound      = fmt.Errorf("%w: round is not part of this bracket", models.ErrRuleViolation)
)

// Entrant is a team placed into a round together with the seed it holds there.
type Entrant struct {
	TeamID string `json:"team_id"`
	Seed   int    `json:"seed"`
}

// BracketMatch is one slot of a generated round. A slot with a single entrant is a bye;
// a slot with none is empty and only occurs in the losers bracket.
type BracketMatch struct {
	Round       models.Round `json:"round"`
	Slot        int          `json:"slot"`
	MatchNumber int          `json:"match_number,omitempty"`
	Team1       *Entrant     `json:"team1,omitempty"`
	Team2       *Entrant     `json:"team2,omitempty"`
}

func (bm *BracketMatch) IsBye() bool {
	return (bm.Team1 == nil) != (bm.Team2 == nil)
}

func (bm *BracketMatch) IsEmpty() bool {
	return bm.Team1 == nil && bm.Team2 == nil
}

// Playable reports whether the slot needs a match to be played.
func (bm *BracketMatch) Playable() bool {
	return bm.Team1 != nil && bm.Team2 != nil
}

// Advancing returns the entrant that moves on without playing, if any.
func (bm *BracketMatch) Advancing() *Entrant {
	if bm.Team1 != nil && bm.Team2 == nil {
		return bm.Team1
	}
	if bm.Team2 != nil && bm.Team1 == nil {
		return bm.Team2
	}
	return nil
}

type GenerateBracketParams struct {
	Entrants   []Entrant
	Round      models.Round
	RoundIndex int
}

type BracketGenerator interface {
	GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error)

	GetName() string
}

// numberMatches assigns match numbers 1..n to playable slots in slot order.
func numberMatches(slots []*BracketMatch) {
	n := 0
	for _, bm := range slots {
		if bm.Playable() {
			n++
			bm.MatchNumber = n
		}
	}
}
