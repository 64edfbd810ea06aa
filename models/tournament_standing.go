package models

// Record is a win-loss split for one part of the tournament.
type Record struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
}

type BracketRecord struct {
	Record
	Eliminated bool  `json:"eliminated"`
	AdvancedTo Round `json:"advanced_to,omitempty"`
}

// TournamentStanding is derived from completed matches on every read and never stored.
type TournamentStanding struct {
	Rank            int     `json:"rank"`
	TeamID          string  `json:"team_id"`
	TeamName        string  `json:"team_name"`
	Seed            int     `json:"seed"`
	GamesPlayed     int     `json:"games_played"`
	Wins            int     `json:"wins"`
	Losses          int     `json:"losses"`
	WinPct          float64 `json:"win_pct"`
	ScoreFor        int     `json:"score_for"`
	ScoreAgainst    int     `json:"score_against"`
	ScoreDifference int     `json:"score_difference"`

	RoundRobinRecord Record        `json:"round_robin_record"`
	BracketRecord    BracketRecord `json:"bracket_record"`
	PerformanceGrade string        `json:"performance_grade"`
}
