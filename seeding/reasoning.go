package seeding

import (
	"fmt"
	"strings"

	"github.com/Dosada05/tournament-engine/models"
)

// Reasoning explains a player's seeding position in plain words.
func Reasoning(p *models.Player) string {
	if p.TournamentsPlayed < NewPlayerThreshold {
		return "New player - neutral seeding"
	}

	var parts []string

	winPct := p.WinningPercentage * 100
	switch {
	case winPct > 70:
		parts = append(parts, "excellent win rate")
	case winPct > 50:
		parts = append(parts, "good win rate")
	case winPct > 30:
		parts = append(parts, "moderate win rate")
	}

	if n := p.TotalChampionships; n > 0 {
		suffix := ""
		if n > 1 {
			suffix = "s"
		}
		parts = append(parts, fmt.Sprintf("%d championship%s", n, suffix))
	}

	avgFinish := p.AvgFinish
	if avgFinish == 0 {
		avgFinish = UnknownAvgFinish
	}
	switch {
	case avgFinish <= 3:
		parts = append(parts, "consistently high finishes")
	case avgFinish <= 6:
		parts = append(parts, "solid tournament finishes")
	}

	switch {
	case p.TournamentsPlayed >= 10:
		parts = append(parts, "extensive experience")
	case p.TournamentsPlayed >= 5:
		parts = append(parts, "good experience")
	}

	if len(parts) == 0 {
		return "based on available statistics"
	}
	return strings.Join(parts, ", ")
}
