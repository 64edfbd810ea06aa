package models

import "time"

type MatchStatus string

const (
	MatchScheduled  MatchStatus = "scheduled"
	MatchInProgress MatchStatus = "in-progress"
	MatchCompleted  MatchStatus = "completed"
	MatchConfirmed  MatchStatus = "confirmed"
	MatchCancelled  MatchStatus = "cancelled"
	MatchPostponed  MatchStatus = "postponed"
)

func (s MatchStatus) Valid() bool {
	switch s {
	case MatchScheduled, MatchInProgress, MatchCompleted, MatchConfirmed, MatchCancelled, MatchPostponed:
		return true
	}
	return false
}

// Finished reports whether the match counts toward round completion.
func (s MatchStatus) Finished() bool {
	return s == MatchCompleted || s == MatchConfirmed
}

type PlayerScore struct {
	PlayerID int `json:"player_id"`
	Points   int `json:"points"`
}

type MatchSide struct {
	TeamID       string        `json:"team_id"`
	Score        int           `json:"score"`
	PlayerScores []PlayerScore `json:"player_scores,omitempty"`
}

// AdminOverride is the audit record that lets a match complete with a nonstandard score.
type AdminOverride struct {
	Reason       string    `json:"reason"`
	AuthorizedBy string    `json:"authorized_by"`
	Timestamp    time.Time `json:"timestamp"`
}

type Match struct {
	ID            string         `json:"id"`
	TournamentID  int            `json:"tournament_id"`
	Round         Round          `json:"round"`
	MatchNumber   int            `json:"match_number"`
	Slot          int            `json:"slot"`
	Team1         MatchSide      `json:"team1"`
	Team2         MatchSide      `json:"team2"`
	ScoreOverride bool           `json:"score_override"`
	WinnerID      string         `json:"winner_id,omitempty"`
	Status        MatchStatus    `json:"status"`
	AdminOverride *AdminOverride `json:"admin_override,omitempty"`
	Version       int            `json:"version"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Involves reports whether the team plays in the match.
func (m *Match) Involves(teamID string) bool {
	return m.Team1.TeamID == teamID || m.Team2.TeamID == teamID
}

// SideOf returns the side the team plays on and its opponent's side.
func (m *Match) SideOf(teamID string) (own, opp MatchSide, ok bool) {
	switch teamID {
	case m.Team1.TeamID:
		return m.Team1, m.Team2, true
	case m.Team2.TeamID:
		return m.Team2, m.Team1, true
	}
	return MatchSide{}, MatchSide{}, false
}

// Clone returns a copy that shares no slices or pointers with m.
func (m *Match) Clone() *Match {
	if m == nil {
		return nil
	}
	c := *m
	c.Team1.PlayerScores = append([]PlayerScore(nil), m.Team1.PlayerScores...)
	c.Team2.PlayerScores = append([]PlayerScore(nil), m.Team2.PlayerScores...)
	if m.AdminOverride != nil {
		o := *m.AdminOverride
		c.AdminOverride = &o
	}
	return &c
}
