package models

import "time"

// Player carries the historical statistics used for seeding. It is never changed by the engine.
type Player struct {
	ID                 int       `json:"id"`
	Name               string    `json:"name"`
	WinningPercentage  float64   `json:"winning_percentage"`
	TotalChampionships int       `json:"total_championships"`
	AvgFinish          float64   `json:"avg_finish"` // 0 when unknown
	TournamentsPlayed  int       `json:"tournaments_played"`
	CreatedAt          time.Time `json:"created_at"`
}

// CareerUpdate holds the statistic values a completed tournament produces for one player.
// Writing them back is left to the caller.
type CareerUpdate struct {
	PlayerID           int     `json:"player_id"`
	Finish             int     `json:"finish"`
	TournamentsPlayed  int     `json:"tournaments_played"`
	TotalChampionships int     `json:"total_championships"`
	AvgFinish          float64 `json:"avg_finish"`
}
