package advancement

import (
	"sort"

	"github.com/Dosada05/tournament-engine/brackets"
	"github.com/Dosada05/tournament-engine/models"
)

// Placements ranks bracket teams once a champion exists: champion first, finalist second,
// then everyone else by how late their eliminating loss came. Teams knocked out in the
// same round share a place.
func Placements(seq []brackets.RoundSpec, in Input, champion, finalist string) []models.Placement {
	order := make(map[models.Round]int, len(seq))
	for i, s := range seq {
		order[s.Round] = i
	}

	lastLoss := make(map[string]int)
	for _, m := range in.Matches {
		if m.Round.IsRoundRobin() || !m.Status.Finished() {
			continue
		}
		_, l, err := Winner(m)
		if err != nil {
			continue
		}
		if idx, ok := order[m.Round]; ok && idx >= lastLoss[l] {
			lastLoss[l] = idx + 1
		}
	}

	type ranked struct {
		id    string
		depth int
	}
	var rest []ranked
	for _, t := range in.Teams {
		if t.ID == champion || t.ID == finalist {
			continue
		}
		if d, ok := lastLoss[t.ID]; ok {
			rest = append(rest, ranked{id: t.ID, depth: d})
		}
	}
	sort.SliceStable(rest, func(i, j int) bool { return rest[i].depth > rest[j].depth })

	out := []models.Placement{{TeamID: champion, Place: 1}}
	if finalist != "" {
		out = append(out, models.Placement{TeamID: finalist, Place: 2})
	}
	for i, r := range rest {
		place := len(out) + 1
		if i > 0 && rest[i-1].depth == r.depth {
			place = out[len(out)-1].Place
		}
		out = append(out, models.Placement{TeamID: r.id, Place: place})
	}
	return out
}

// CareerUpdates produces the statistic values each player ends the tournament with.
func CareerUpdates(teams []models.Team, placements []models.Placement, players map[int]*models.Player, champion string) []models.CareerUpdate {
	finish := make(map[string]int, len(placements))
	for _, p := range placements {
		finish[p.TeamID] = p.Place
	}

	var out []models.CareerUpdate
	for _, t := range teams {
		place, ok := finish[t.ID]
		if !ok {
			continue
		}
		for _, pid := range t.PlayerIDs {
			p := players[pid]
			if p == nil {
				p = &models.Player{ID: pid}
			}
			u := models.CareerUpdate{
				PlayerID:           pid,
				Finish:             place,
				TournamentsPlayed:  p.TournamentsPlayed + 1,
				TotalChampionships: p.TotalChampionships,
				AvgFinish:          float64(place),
			}
			if t.ID == champion {
				u.TotalChampionships++
			}
			if p.AvgFinish > 0 && p.TournamentsPlayed > 0 {
				u.AvgFinish = (p.AvgFinish*float64(p.TournamentsPlayed) + float64(place)) / float64(p.TournamentsPlayed+1)
			}
			out = append(out, u)
		}
	}
	return out
}
