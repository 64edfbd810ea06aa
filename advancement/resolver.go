// Package advancement decides who moves on once a round is finished.
package advancement

import (
	"fmt"
	"sort"

	"github.com/Dosada05/tournament-engine/brackets"
	"github.com/Dosada05/tournament-engine/models"
)

var (
	ErrRoundIncomplete = fmt.Errorf("%w: current round is not complete", models.ErrRuleViolation)
	ErrNoWinner        = fmt.Errorf("%w: match has no determinable winner", models.ErrInvariant)
	ErrUnknownTeam     = fmt.Errorf("%w: match references an unknown team", models.ErrInvariant)
)

// Input is everything the resolver reads. Matches holds every match of the tournament.
type Input struct {
	BracketType models.BracketType
	Teams       []models.Team
	Matches     []*models.Match
	Byes        []models.Bye
}

// Outcome is the result of one bracket slot.
type Outcome struct {
	Slot   int               `json:"slot"`
	Winner *brackets.Entrant `json:"winner,omitempty"`
	Loser  *brackets.Entrant `json:"loser,omitempty"`
	Match  *models.Match     `json:"-"`
}

type Advancement struct {
	Round      models.Round         `json:"round"`
	Outcomes   []Outcome            `json:"outcomes"`
	Advancing  []brackets.Entrant   `json:"advancing"`
	Eliminated []string             `json:"eliminated,omitempty"`
	Demoted    []string             `json:"demoted,omitempty"`
	Standings  []RoundRobinStanding `json:"standings,omitempty"`

	// Losses holds each loser's elimination loss count including this round.
	Losses map[string]int `json:"-"`
}

// IsRoundComplete is true when every match is completed or confirmed.
func IsRoundComplete(matches []*models.Match) bool {
	for _, m := range matches {
		if !m.Status.Finished() {
			return false
		}
	}
	return true
}

// Winner returns the winner and loser of a finished match. An explicit winner recorded
// with an admin override takes precedence over the scores.
func Winner(m *models.Match) (winner, loser string, err error) {
	if m.WinnerID != "" {
		switch m.WinnerID {
		case m.Team1.TeamID:
			return m.Team1.TeamID, m.Team2.TeamID, nil
		case m.Team2.TeamID:
			return m.Team2.TeamID, m.Team1.TeamID, nil
		}
		return "", "", fmt.Errorf("%w: winner %s is not in match %s", ErrUnknownTeam, m.WinnerID, m.ID)
	}
	switch {
	case m.Team1.Score > m.Team2.Score:
		return m.Team1.TeamID, m.Team2.TeamID, nil
	case m.Team2.Score > m.Team1.Score:
		return m.Team2.TeamID, m.Team1.TeamID, nil
	}
	return "", "", fmt.Errorf("%w: match %s", ErrNoWinner, m.ID)
}

// MatchesIn returns the matches of a round ordered by match number.
func (in Input) MatchesIn(r models.Round) []*models.Match {
	var out []*models.Match
	for _, m := range in.Matches {
		if m.Round == r {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchNumber < out[j].MatchNumber })
	return out
}

func (in Input) entrant(teamID string) (*brackets.Entrant, error) {
	for _, t := range in.Teams {
		if t.ID == teamID {
			return &brackets.Entrant{TeamID: t.ID, Seed: t.Seed}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownTeam, teamID)
}

// Outcomes resolves every slot of a finished round, byes included, in slot order.
func (in Input) Outcomes(r models.Round) ([]Outcome, error) {
	matches := in.MatchesIn(r)
	if !IsRoundComplete(matches) {
		return nil, fmt.Errorf("%w: %s", ErrRoundIncomplete, r)
	}

	var out []Outcome
	for _, m := range matches {
		w, l, err := Winner(m)
		if err != nil {
			return nil, err
		}
		we, err := in.entrant(w)
		if err != nil {
			return nil, err
		}
		le, err := in.entrant(l)
		if err != nil {
			return nil, err
		}
		out = append(out, Outcome{Slot: m.Slot, Winner: we, Loser: le, Match: m})
	}
	for _, b := range in.Byes {
		if b.Round != r {
			continue
		}
		o := Outcome{Slot: b.Slot}
		if b.TeamID != "" {
			e, err := in.entrant(b.TeamID)
			if err != nil {
				return nil, err
			}
			o.Winner = e
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out, nil
}

// ResolveAdvancement resolves a finished round. Elimination rounds report who moves on and
// who is out; round-robin rounds eliminate nobody and report cumulative standings instead.
func ResolveAdvancement(r models.Round, in Input) (Advancement, error) {
	outcomes, err := in.Outcomes(r)
	if err != nil {
		return Advancement{}, err
	}
	adv := Advancement{Round: r, Outcomes: outcomes}
	for _, o := range outcomes {
		if o.Winner != nil {
			adv.Advancing = append(adv.Advancing, *o.Winner)
		}
	}

	if r.IsRoundRobin() {
		adv.Standings = RankRoundRobin(in.Teams, in.Matches)
		return adv, nil
	}

	losses := in.lossesBefore(r)
	adv.Losses = make(map[string]int)
	for _, o := range outcomes {
		if o.Loser == nil {
			continue
		}
		adv.Losses[o.Loser.TeamID] = losses[o.Loser.TeamID] + 1
		if in.BracketType == models.DoubleElimination && losses[o.Loser.TeamID] == 0 {
			adv.Demoted = append(adv.Demoted, o.Loser.TeamID)
			continue
		}
		adv.Eliminated = append(adv.Eliminated, o.Loser.TeamID)
	}
	return adv, nil
}

// lossesBefore counts elimination losses in finished matches outside round r.
func (in Input) lossesBefore(r models.Round) map[string]int {
	losses := make(map[string]int)
	for _, m := range in.Matches {
		if m.Round == r || m.Round.IsRoundRobin() || !m.Status.Finished() {
			continue
		}
		if _, l, err := Winner(m); err == nil {
			losses[l]++
		}
	}
	return losses
}

// ApplyToTeams records loss counts and eliminations on the teams. It is idempotent, so
// resolving the same round twice leaves the teams unchanged.
func ApplyToTeams(teams []models.Team, adv Advancement) {
	byID := make(map[string]*models.Team, len(teams))
	for i := range teams {
		byID[teams[i].ID] = &teams[i]
	}
	for id, n := range adv.Losses {
		if t := byID[id]; t != nil {
			t.Losses = n
		}
	}
	for _, id := range adv.Eliminated {
		if t := byID[id]; t != nil {
			t.Eliminated = true
		}
	}
}
