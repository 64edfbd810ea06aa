package advancement

import (
	"sort"

	"github.com/Dosada05/tournament-engine/brackets"
	"github.com/Dosada05/tournament-engine/models"
)

type RoundRobinStanding struct {
	TeamID       string  `json:"team_id"`
	OriginalSeed int     `json:"original_seed"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	WinPct       float64 `json:"win_pct"`
	PointDiff    int     `json:"point_diff"`
}

// RankRoundRobin orders teams by round-robin results: win percentage, then point
// differential, then original seed. Only finished round-robin matches count.
func RankRoundRobin(teams []models.Team, matches []*models.Match) []RoundRobinStanding {
	rows := make(map[string]*RoundRobinStanding, len(teams))
	out := make([]RoundRobinStanding, 0, len(teams))
	for _, t := range teams {
		rows[t.ID] = &RoundRobinStanding{TeamID: t.ID, OriginalSeed: t.CombinedSeed}
	}

	for _, m := range matches {
		if !m.Round.IsRoundRobin() || !m.Status.Finished() {
			continue
		}
		w, _, err := Winner(m)
		if err != nil {
			continue
		}
		for _, side := range [2][2]models.MatchSide{{m.Team1, m.Team2}, {m.Team2, m.Team1}} {
			row, ok := rows[side[0].TeamID]
			if !ok {
				continue
			}
			row.PointDiff += side[0].Score - side[1].Score
			if side[0].TeamID == w {
				row.Wins++
			} else {
				row.Losses++
			}
		}
	}

	for _, t := range teams {
		row := rows[t.ID]
		if played := row.Wins + row.Losses; played > 0 {
			row.WinPct = float64(row.Wins) / float64(played)
		}
		out = append(out, *row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.WinPct != b.WinPct {
			return a.WinPct > b.WinPct
		}
		if a.PointDiff != b.PointDiff {
			return a.PointDiff > b.PointDiff
		}
		return a.OriginalSeed < b.OriginalSeed
	})
	return out
}

// BracketSeeds turns a round-robin ranking into bracket entrants seeded 1..N.
func BracketSeeds(standings []RoundRobinStanding) []brackets.Entrant {
	out := make([]brackets.Entrant, len(standings))
	for i, s := range standings {
		out[i] = brackets.Entrant{TeamID: s.TeamID, Seed: i + 1}
	}
	return out
}
