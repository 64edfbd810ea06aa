package models

import "time"

// ManagementState is the single record of where a tournament stands.
// Only the progression package produces new values of it.
type ManagementState struct {
	Phase            Phase       `json:"phase"`
	CurrentRound     Round       `json:"current_round,omitempty"`
	BracketSize      int         `json:"bracket_size,omitempty"`
	RosterLocked     bool        `json:"roster_locked"`
	RoundStatus      RoundStatus `json:"round_status"`
	TotalMatches     int         `json:"total_matches"`
	CompletedMatches int         `json:"completed_matches"`
	CanAdvance       bool        `json:"can_advance"`
}

type Tournament struct {
	ID          int         `json:"id"`
	Name        string      `json:"name"`
	Format      string      `json:"format"`
	BracketType BracketType `json:"bracket_type"`
	MaxPlayers  int         `json:"max_players"`

	PlayerIDs []int           `json:"player_ids"`
	Teams     []Team          `json:"teams"`
	Byes      []Bye           `json:"byes,omitempty"`
	State     ManagementState `json:"state"`

	ChampionID string      `json:"champion_id,omitempty"`
	FinalistID string      `json:"finalist_id,omitempty"`
	Placements []Placement `json:"placements,omitempty"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Team returns a pointer into t.Teams, or nil.
func (t *Tournament) Team(id string) *Team {
	for i := range t.Teams {
		if t.Teams[i].ID == id {
			return &t.Teams[i]
		}
	}
	return nil
}

// Clone returns a deep copy so pure transitions never alias the caller's slices.
func (t *Tournament) Clone() *Tournament {
	if t == nil {
		return nil
	}
	c := *t
	c.PlayerIDs = append([]int(nil), t.PlayerIDs...)
	c.Teams = make([]Team, len(t.Teams))
	for i, team := range t.Teams {
		team.PlayerIDs = append([]int(nil), team.PlayerIDs...)
		c.Teams[i] = team
	}
	c.Byes = append([]Bye(nil), t.Byes...)
	c.Placements = append([]Placement(nil), t.Placements...)
	return &c
}
