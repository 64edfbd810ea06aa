package models

type Team struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PlayerIDs    []int  `json:"player_ids"`
	CombinedSeed int    `json:"combined_seed"`
	Seed         int    `json:"seed"`
	CheckedIn    bool   `json:"checked_in"`
	Eliminated   bool   `json:"eliminated"`
	Losses       int    `json:"losses"`
	AdvancedTo   Round  `json:"advanced_to,omitempty"`
}

// Bye records a bracket slot that advanced without a played match.
// An empty TeamID marks a slot nobody reached.
type Bye struct {
	Round  Round  `json:"round"`
	Slot   int    `json:"slot"`
	TeamID string `json:"team_id,omitempty"`
}

type Placement struct {
	TeamID string `json:"team_id"`
	Place  int    `json:"place"`
}
