package seeding

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/Dosada05/tournament-engine/models"
)

type playerMap map[int]*models.Player

func (m playerMap) GetByIDs(_ context.Context, ids []int) (map[int]*models.Player, error) {
	out := make(map[int]*models.Player)
	for _, id := range ids {
		if p, ok := m[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func roster() playerMap {
	return playerMap{
		1: {ID: 1, Name: "Ana", WinningPercentage: 0.75, TotalChampionships: 2, AvgFinish: 2.5, TournamentsPlayed: 12},
		2: {ID: 2, Name: "Ben", WinningPercentage: 0.55, TotalChampionships: 0, AvgFinish: 5, TournamentsPlayed: 6},
		3: {ID: 3, Name: "Cam", WinningPercentage: 0.9, TournamentsPlayed: 1},
		4: {ID: 4, Name: "Dee", WinningPercentage: 0.2, TournamentsPlayed: 2},
		5: {ID: 5, Name: "Eve", WinningPercentage: 0.35, TotalChampionships: 0, AvgFinish: 8, TournamentsPlayed: 3},
	}
}

func TestRankScores(t *testing.T) {
	c := NewCalculator(roster())
	seeds, err := c.Calculate(context.Background(), []int{1, 2, 3, 4, 5}, "Mixed")
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	// Ana: 75 + 50 + 37.5 + 12 = 174.5 -> 175 (round half away from zero)
	// Ben: 55 + 0 + 25 + 6 = 86
	// Eve: 35 + 10 + 3 = 48
	// Dee: 20 + 0 (avg finish unknown) + 2 = 22
	// Cam: new player -> 50
	want := []struct {
		id    int
		score int
	}{{1, 175}, {2, 86}, {3, 50}, {5, 48}, {4, 22}}
	for i, w := range want {
		if seeds[i].Player.ID != w.id || seeds[i].Score != w.score || seeds[i].Seed != i+1 {
			t.Errorf("seed %d = player %d score %d seed %d, want player %d score %d",
				i+1, seeds[i].Player.ID, seeds[i].Score, seeds[i].Seed, w.id, w.score)
		}
	}
}

func TestRankIsStableAndAPermutation(t *testing.T) {
	players := []*models.Player{
		{ID: 10, Name: "A", TournamentsPlayed: 0},
		{ID: 11, Name: "B", TournamentsPlayed: 1},
		{ID: 12, Name: "C", TournamentsPlayed: 0},
	}
	var c *Calculator
	first := c.Rank(players, "Mixed")
	for run := 0; run < 5; run++ {
		again := c.Rank(players, "Mixed")
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("ranking changed between runs")
		}
	}
	nums := make([]int, len(first))
	for i, s := range first {
		nums[i] = s.Seed
		if s.Player.ID != players[i].ID {
			t.Errorf("tie order changed: position %d has player %d", i, s.Player.ID)
		}
	}
	if err := CheckPermutation(nums); err != nil {
		t.Fatal(err)
	}
}

func TestCalculateUnknownPlayer(t *testing.T) {
	c := NewCalculator(roster())
	_, err := c.Calculate(context.Background(), []int{1, 99}, "Mixed")
	if !errors.Is(err, ErrPlayerNotFound) || !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("err = %v, want player not found", err)
	}
}

func TestAdjusterIsApplied(t *testing.T) {
	c := NewCalculator(roster())
	c.SetAdjuster("Ladder", func(score float64, p *models.Player) float64 {
		if p.ID == 2 {
			return score + 100
		}
		return score
	})
	seeds, err := c.Calculate(context.Background(), []int{1, 2}, "Ladder")
	if err != nil {
		t.Fatal(err)
	}
	if seeds[0].Player.ID != 2 {
		t.Fatalf("adjusted player should lead, got %d", seeds[0].Player.ID)
	}
}

func TestReasoning(t *testing.T) {
	tests := []struct {
		name string
		p    models.Player
		want string
	}{
		{"new player", models.Player{WinningPercentage: 1, TotalChampionships: 3, TournamentsPlayed: 1}, "New player - neutral seeding"},
		{"veteran", models.Player{WinningPercentage: 0.75, TotalChampionships: 2, AvgFinish: 2.5, TournamentsPlayed: 12},
			"excellent win rate, 2 championships, consistently high finishes, extensive experience"},
		{"solid", models.Player{WinningPercentage: 0.55, TotalChampionships: 1, AvgFinish: 5, TournamentsPlayed: 6},
			"good win rate, 1 championship, solid tournament finishes, good experience"},
		{"nothing notable", models.Player{WinningPercentage: 0.1, TournamentsPlayed: 2}, "based on available statistics"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Reasoning(&tt.p); got != tt.want {
				t.Errorf("Reasoning = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCheckPermutation(t *testing.T) {
	if err := CheckPermutation([]int{2, 1, 3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, bad := range [][]int{{1, 1}, {0, 1}, {1, 3}} {
		if err := CheckPermutation(bad); !errors.Is(err, models.ErrInvariant) {
			t.Errorf("CheckPermutation(%v) = %v, want invariant failure", bad, err)
		}
	}
}
