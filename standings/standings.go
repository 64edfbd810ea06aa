// Package standings computes the live table shown while a tournament is running.
package standings

import (
	"sort"

	"github.com/Dosada05/tournament-engine/advancement"
	"github.com/Dosada05/tournament-engine/models"
)

// Grade bands by win percentage, checked from the top.
const (
	GradeA = 0.8
	GradeB = 0.6
	GradeC = 0.4
	GradeD = 0.2

	// NoGrade is shown for teams that have not finished a match.
	NoGrade = "-"
)

// Grade maps a win percentage to a letter.
func Grade(winPct float64) string {
	switch {
	case winPct >= GradeA:
		return "A"
	case winPct >= GradeB:
		return "B"
	case winPct >= GradeC:
		return "C"
	case winPct >= GradeD:
		return "D"
	}
	return "F"
}

// Compute aggregates every completed or confirmed match into one row per team, ranked by
// win percentage, then score difference, then seed.
func Compute(teams []models.Team, matches []*models.Match) []models.TournamentStanding {
	rows := make(map[string]*models.TournamentStanding, len(teams))
	for _, t := range teams {
		rows[t.ID] = &models.TournamentStanding{
			TeamID:   t.ID,
			TeamName: t.Name,
			Seed:     t.Seed,
			BracketRecord: models.BracketRecord{
				Eliminated: t.Eliminated,
				AdvancedTo: t.AdvancedTo,
			},
		}
	}

	for _, m := range matches {
		if !m.Status.Finished() {
			continue
		}
		winner, _, err := advancement.Winner(m)
		if err != nil {
			continue
		}
		for _, id := range [2]string{m.Team1.TeamID, m.Team2.TeamID} {
			row, ok := rows[id]
			if !ok {
				continue
			}
			own, opp, _ := m.SideOf(id)
			won := id == winner
			row.GamesPlayed++
			row.ScoreFor += own.Score
			row.ScoreAgainst += opp.Score

			rec := &row.BracketRecord.Record
			if m.Round.IsRoundRobin() {
				rec = &row.RoundRobinRecord
			}
			if won {
				row.Wins++
				rec.Wins++
			} else {
				row.Losses++
				rec.Losses++
			}
		}
	}

	out := make([]models.TournamentStanding, 0, len(teams))
	for _, t := range teams {
		row := rows[t.ID]
		row.ScoreDifference = row.ScoreFor - row.ScoreAgainst
		row.PerformanceGrade = NoGrade
		if row.GamesPlayed > 0 {
			row.WinPct = float64(row.Wins) / float64(row.GamesPlayed)
			row.PerformanceGrade = Grade(row.WinPct)
		}
		out = append(out, *row)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.WinPct != b.WinPct {
			return a.WinPct > b.WinPct
		}
		if a.ScoreDifference != b.ScoreDifference {
			return a.ScoreDifference > b.ScoreDifference
		}
		return a.Seed < b.Seed
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
