package seeding

import (
	"fmt"

	"github.com/Dosada05/tournament-engine/models"
)

var ErrOddPlayerCount = fmt.Errorf("%w: doubles formats need an even number of players", models.ErrRuleViolation)

var singlesFormats = map[string]bool{
	"M":               true,
	"W":               true,
	"Men's Singles":   true,
	"Women's Singles": true,
}

// TeamSize is 1 for singles formats and 2 otherwise.
func TeamSize(format string) int {
	if singlesFormats[format] {
		return 1
	}
	return 2
}

func TeamID(tournamentID, n int) string {
	return fmt.Sprintf("%d-T%d", tournamentID, n)
}

// FormTeams builds teams from seeded players. Doubles teams pair seed i with seed N+1-i
// so every team gets one strong and one weaker player.
func FormTeams(tournamentID int, seeds []PlayerSeed, format string) ([]models.Team, error) {
	if TeamSize(format) == 1 {
		teams := make([]models.Team, len(seeds))
		for i, s := range seeds {
			teams[i] = models.Team{
				ID:           TeamID(tournamentID, i+1),
				Name:         s.Player.Name,
				PlayerIDs:    []int{s.Player.ID},
				CombinedSeed: s.Seed,
				Seed:         s.Seed,
				CheckedIn:    true,
			}
		}
		return teams, nil
	}

	if len(seeds)%2 != 0 {
		return nil, fmt.Errorf("%w (got %d)", ErrOddPlayerCount, len(seeds))
	}
	n := len(seeds) / 2
	teams := make([]models.Team, n)
	for i := 0; i < n; i++ {
		hi, lo := seeds[i], seeds[len(seeds)-1-i]
		teams[i] = models.Team{
			ID:           TeamID(tournamentID, i+1),
			Name:         hi.Player.Name + " & " + lo.Player.Name,
			PlayerIDs:    []int{hi.Player.ID, lo.Player.ID},
			CombinedSeed: i + 1,
			Seed:         i + 1,
			CheckedIn:    true,
		}
	}
	return teams, nil
}
