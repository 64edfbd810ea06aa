package seeding

import "math/bits"

type Preview struct {
	TotalPlayers int  `json:"total_players"`
	BracketSize  int  `json:"bracket_size"`
	ByeCount     int  `json:"bye_count"`
	NeedsByes    bool `json:"needs_byes"`
}

// BracketSize is the smallest power of two that holds n entrants.
func BracketSize(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

func NewPreview(totalPlayers int) Preview {
	size := BracketSize(totalPlayers)
	byes := size - totalPlayers
	if totalPlayers == 0 {
		size, byes = 0, 0
	}
	return Preview{
		TotalPlayers: totalPlayers,
		BracketSize:  size,
		ByeCount:     byes,
		NeedsByes:    byes > 0,
	}
}
