package brackets

import (
	"fmt"
	"testing"

	"github.com/Dosada05/tournament-engine/models"
)

func entrants(n int) []Entrant {
	out := make([]Entrant, n)
	for i := range out {
		out[i] = Entrant{TeamID: fmt.Sprintf("T%d", i+1), Seed: i + 1}
	}
	return out
}

func TestBracketPairingCount(t *testing.T) {
	for n := 2; n <= MaxBracketSize; n++ {
		size := BracketSize(n)
		round, err := EliminationRound(size)
		if err != nil {
			t.Fatal(err)
		}
		slots, err := GenerateBracketPairings(entrants(n), round)
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		if len(slots) != size/2 {
			t.Fatalf("n=%d: %d pairings, want %d", n, len(slots), size/2)
		}
		byes, played := 0, 0
		seen := map[string]bool{}
		for _, bm := range slots {
			if bm.IsEmpty() {
				t.Fatalf("n=%d: empty slot %d in first round", n, bm.Slot)
			}
			if bm.IsBye() {
				byes++
			} else {
				played++
				if bm.MatchNumber != played {
					t.Fatalf("n=%d: match number %d, want %d", n, bm.MatchNumber, played)
				}
			}
			for _, e := range []*Entrant{bm.Team1, bm.Team2} {
				if e == nil {
					continue
				}
				if seen[e.TeamID] {
					t.Fatalf("n=%d: %s placed twice", n, e.TeamID)
				}
				seen[e.TeamID] = true
			}
			if n >= 4 && bm.Playable() && ((bm.Team1.Seed == 1 && bm.Team2.Seed == 2) || (bm.Team1.Seed == 2 && bm.Team2.Seed == 1)) {
				t.Fatalf("n=%d: seeds 1 and 2 meet in round one", n)
			}
		}
		if byes != size-n || len(seen) != n {
			t.Fatalf("n=%d: byes=%d placed=%d", n, byes, len(seen))
		}
	}
}

func TestBracketPairingOrder(t *testing.T) {
	slots, err := GenerateBracketPairings(entrants(8), models.Quarterfinal)
	if err != nil {
		t.Fatal(err)
	}
	want := [][2]int{{1, 8}, {4, 5}, {3, 6}, {2, 7}}
	for i, bm := range slots {
		if bm.Team1.Seed != want[i][0] || bm.Team2.Seed != want[i][1] {
			t.Errorf("slot %d = %d v %d, want %d v %d", i, bm.Team1.Seed, bm.Team2.Seed, want[i][0], want[i][1])
		}
	}
}

func TestBracketByesGoToTopSeeds(t *testing.T) {
	slots, err := GenerateBracketPairings(entrants(5), models.Quarterfinal)
	if err != nil {
		t.Fatal(err)
	}
	got := map[int]bool{}
	playable := 0
	for _, bm := range slots {
		if e := bm.Advancing(); e != nil {
			got[e.Seed] = true
		}
		if bm.Playable() {
			playable++
		}
	}
	if len(got) != 3 || !got[1] || !got[2] || !got[3] || playable != 1 {
		t.Fatalf("byes = %v, playable = %d", got, playable)
	}
}

func TestBracketPairingNeedsTwo(t *testing.T) {
	if _, err := GenerateBracketPairings(entrants(1), models.Final); err == nil {
		t.Fatal("expected an error for a single entrant")
	}
}

func TestRoundRobinScheduleNoRepeats(t *testing.T) {
	for _, n := range []int{4, 5, 7, 8, 16} {
		met := map[[2]string]bool{}
		for r := 0; r < 3; r++ {
			slots, err := GenerateRoundRobinSchedule(entrants(n), r)
			if err != nil {
				t.Fatal(err)
			}
			appear := map[string]int{}
			for _, bm := range slots {
				if bm.Round != models.RoundRobinRounds[r] {
					t.Fatalf("round tag %s, want %s", bm.Round, models.RoundRobinRounds[r])
				}
				if bm.Team1 != nil {
					appear[bm.Team1.TeamID]++
				}
				if bm.Team2 != nil {
					appear[bm.Team2.TeamID]++
				}
				if !bm.Playable() {
					continue
				}
				if bm.Team1.TeamID == bm.Team2.TeamID {
					t.Fatalf("n=%d: self pairing", n)
				}
				key := [2]string{bm.Team1.TeamID, bm.Team2.TeamID}
				if key[0] > key[1] {
					key[0], key[1] = key[1], key[0]
				}
				if met[key] {
					t.Fatalf("n=%d round %d: %v repeated", n, r+1, key)
				}
				met[key] = true
			}
			if len(appear) != n {
				t.Fatalf("n=%d round %d: %d teams scheduled", n, r+1, len(appear))
			}
			for id, c := range appear {
				if c != 1 {
					t.Fatalf("n=%d round %d: %s appears %d times", n, r+1, id, c)
				}
			}
		}
	}
}

func TestSequences(t *testing.T) {
	rounds := func(seq []RoundSpec) []models.Round {
		out := make([]models.Round, len(seq))
		for i, s := range seq {
			out[i] = s.Round
		}
		return out
	}

	se, err := Sequence(models.SingleElimination, 8)
	if err != nil {
		t.Fatal(err)
	}
	if got := fmt.Sprint(rounds(se)); got != "[quarterfinal semifinal final]" {
		t.Errorf("single elimination = %s", got)
	}

	de, err := Sequence(models.DoubleElimination, 8)
	if err != nil {
		t.Fatal(err)
	}
	want := "[quarterfinal semifinal lbr-round-1 lbr-round-2 final lbr-semifinal lbr-final grand-final grand-final-reset]"
	if got := fmt.Sprint(rounds(de)); got != want {
		t.Errorf("double elimination = %s, want %s", got, want)
	}

	rr, err := Sequence(models.RoundRobinPlayoff, 16)
	if err != nil {
		t.Fatal(err)
	}
	if got := fmt.Sprint(rounds(rr)); got != "[RR_R1 RR_R2 RR_R3 round-of-16 quarterfinal semifinal final]" {
		t.Errorf("round robin playoff = %s", got)
	}

	next, ok, err := Next(se, models.Semifinal)
	if err != nil || !ok || next.Round != models.Final {
		t.Errorf("Next(semifinal) = %v %v %v", next.Round, ok, err)
	}
	if _, ok, _ := Next(se, models.Final); ok {
		t.Error("final should be terminal")
	}
	if _, _, err := Next(se, models.LosersFinal); err == nil {
		t.Error("losers final is not a single elimination round")
	}
	if Contains(models.SingleElimination, 8, models.RoundRobin1) {
		t.Error("RR_R1 must not belong to single elimination")
	}
	if !Contains(models.DoubleElimination, 4, models.LosersFinal) {
		t.Error("lbr-final must belong to a 4-team double elimination")
	}
}

func TestLargestDoubleEliminationFitsRoundNames(t *testing.T) {
	seq, err := Sequence(models.DoubleElimination, 64)
	if err != nil {
		t.Fatal(err)
	}
	seen := map[models.Round]bool{}
	for _, s := range seq {
		if seen[s.Round] {
			t.Fatalf("round %s appears twice", s.Round)
		}
		seen[s.Round] = true
	}
	if !seen[models.LosersRound8] || !seen[models.LosersSemifinal] {
		t.Fatalf("64-team losers bracket should use lbr-round-8 and lbr-semifinal")
	}
}

func TestPairAdjacentHandlesMissingSlots(t *testing.T) {
	a, b, c := &Entrant{TeamID: "A"}, &Entrant{TeamID: "B"}, &Entrant{TeamID: "C"}
	slots := PairAdjacent(models.LosersRound2, []*Entrant{a, b, nil, c, nil, nil})
	if len(slots) != 3 {
		t.Fatalf("got %d slots", len(slots))
	}
	if !slots[0].Playable() || slots[0].MatchNumber != 1 {
		t.Errorf("slot 0 = %+v", slots[0])
	}
	if slots[1].Advancing() != c {
		t.Errorf("slot 1 should advance C")
	}
	if !slots[2].IsEmpty() {
		t.Errorf("slot 2 should be empty")
	}
}
