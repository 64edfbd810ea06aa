package progression

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/Dosada05/tournament-engine/advancement"
	"github.com/Dosada05/tournament-engine/brackets"
	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/seeding"
)

func newTestEngine() *Engine {
	n := 0
	return NewEngine(seeding.NewCalculator(nil),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("m%d", n)
		}),
		WithClock(func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }),
	)
}

// newSnapshot registers players 1..n with no history, so seeds follow registration order
// and team k is "1-Tk".
func newSnapshot(n int, format string, bt models.BracketType) *Snapshot {
	t := &models.Tournament{
		ID:          1,
		Name:        "Spring Open",
		Format:      format,
		BracketType: bt,
		MaxPlayers:  128,
		State:       models.ManagementState{Phase: models.PhaseSetup},
	}
	players := make(map[int]*models.Player, n)
	for i := 1; i <= n; i++ {
		t.PlayerIDs = append(t.PlayerIDs, i)
		players[i] = &models.Player{ID: i, Name: fmt.Sprintf("P%d", i)}
	}
	return &Snapshot{Tournament: t, Players: players}
}

func apply(t *testing.T, e *Engine, s *Snapshot, a Action) Outcome {
	t.Helper()
	out, err := e.Apply(*s, a)
	if err != nil {
		t.Fatalf("%s: %v", a.Name, err)
	}
	s.Tournament = out.Tournament
	if out.Reset {
		s.Matches = nil
	}
	s.Matches = append(s.Matches, out.NewMatches...)
	return out
}

func act(name ActionName) Action {
	return Action{Name: name, Actor: "organizer@example.com"}
}

func toCheckIn(t *testing.T, e *Engine, s *Snapshot) {
	t.Helper()
	apply(t, e, s, act(StartRegistration))
	apply(t, e, s, act(CloseRegistration))
	apply(t, e, s, act(StartCheckIn))
}

func team(n int) string { return fmt.Sprintf("1-T%d", n) }

func teamNum(id string) int {
	var n int
	fmt.Sscanf(id, "1-T%d", &n)
	return n
}

func current(s *Snapshot) []*models.Match {
	var out []*models.Match
	for _, m := range s.Matches {
		if m.Round == s.Tournament.State.CurrentRound {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchNumber < out[j].MatchNumber })
	return out
}

func play(s *Snapshot, team1Wins func(m *models.Match) bool) {
	for _, m := range current(s) {
		if team1Wins(m) {
			m.Team1.Score, m.Team2.Score = 11, 6
		} else {
			m.Team1.Score, m.Team2.Score = 6, 11
		}
		m.Status = models.MatchCompleted
	}
}

func team1Wins(*models.Match) bool { return true }
func team2Wins(*models.Match) bool { return false }

func pairs(ms []*models.Match) string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Team1.TeamID + " v " + m.Team2.TeamID
	}
	return strings.Join(out, ", ")
}

func TestSingleEliminationAdvancesByAdjacency(t *testing.T) {
	e := newTestEngine()
	s := newSnapshot(8, "M", models.SingleElimination)
	toCheckIn(t, e, s)

	out := apply(t, e, s, act(StartBracket))
	if len(out.NewMatches) != 4 || s.Tournament.State.CurrentRound != models.Quarterfinal {
		t.Fatalf("start_bracket: %d matches, round %s", len(out.NewMatches), s.Tournament.State.CurrentRound)
	}
	if got, want := pairs(current(s)), "1-T1 v 1-T8, 1-T4 v 1-T5, 1-T3 v 1-T6, 1-T2 v 1-T7"; got != want {
		t.Fatalf("quarterfinals = %s, want %s", got, want)
	}

	// Seed 8 upsets seed 1; everyone else holds serve.
	play(s, func(m *models.Match) bool { return m.Team1.TeamID != team(1) })
	out = apply(t, e, s, act(AdvanceRound))
	if s.Tournament.State.CurrentRound != models.Semifinal || len(out.NewMatches) != 2 {
		t.Fatalf("advance: round %s with %d matches", s.Tournament.State.CurrentRound, len(out.NewMatches))
	}
	if got, want := pairs(current(s)), "1-T8 v 1-T4, 1-T3 v 1-T2"; got != want {
		t.Fatalf("semifinals = %s, want %s", got, want)
	}
	if tm := s.Tournament.Team(team(1)); !tm.Eliminated || tm.Losses != 1 {
		t.Fatalf("seed 1 after losing: %+v", tm)
	}

	play(s, team1Wins)
	apply(t, e, s, act(AdvanceRound))
	if got := pairs(current(s)); got != "1-T8 v 1-T3" {
		t.Fatalf("final = %s", got)
	}

	play(s, team1Wins)
	out = apply(t, e, s, act(AdvanceRound))
	tour := s.Tournament
	if tour.State.Phase != models.PhaseCompleted || tour.ChampionID != team(8) || tour.FinalistID != team(3) {
		t.Fatalf("completion: phase %s champion %s finalist %s", tour.State.Phase, tour.ChampionID, tour.FinalistID)
	}
	places := map[string]int{}
	for _, p := range tour.Placements {
		places[p.TeamID] = p.Place
	}
	if places[team(4)] != 3 || places[team(2)] != 3 || places[team(1)] != 5 {
		t.Errorf("placements = %+v", tour.Placements)
	}
	if len(out.CareerUpdates) != 8 {
		t.Errorf("career updates = %d, want 8", len(out.CareerUpdates))
	}

	if _, err := e.Apply(*s, act(CompleteTournament)); !errors.Is(err, ErrActionNotAllowed) {
		t.Fatalf("completing twice: %v", err)
	}
}

func TestByesAdvanceTopSeeds(t *testing.T) {
	e := newTestEngine()
	s := newSnapshot(5, "M", models.SingleElimination)
	toCheckIn(t, e, s)

	out := apply(t, e, s, act(StartBracket))
	if s.Tournament.State.BracketSize != 8 {
		t.Fatalf("bracket size = %d", s.Tournament.State.BracketSize)
	}
	if len(out.NewMatches) != 1 || pairs(out.NewMatches) != "1-T4 v 1-T5" {
		t.Fatalf("round one matches = %s", pairs(out.NewMatches))
	}

	byes := map[string]bool{}
	for _, b := range s.Tournament.Byes {
		byes[b.TeamID] = true
	}
	for _, n := range []int{1, 2, 3} {
		if !byes[team(n)] {
			t.Errorf("seed %d has no bye: %+v", n, s.Tournament.Byes)
		}
		for _, m := range s.Matches {
			if m.Involves(team(n)) {
				t.Errorf("seed %d was given a match", n)
			}
		}
	}

	play(s, team2Wins)
	apply(t, e, s, act(AdvanceRound))
	if got := pairs(current(s)); got != "1-T1 v 1-T5, 1-T3 v 1-T2" {
		t.Fatalf("semifinals = %s", got)
	}
}

func TestRoundRobinPlayoffSeedsBracketFromStandings(t *testing.T) {
	e := newTestEngine()
	s := newSnapshot(16, "M", models.RoundRobinPlayoff)
	toCheckIn(t, e, s)

	if _, err := e.Apply(*s, act(StartBracket)); !errors.Is(err, ErrWrongBracketType) {
		t.Fatalf("start_bracket before round robin: %v", err)
	}
	apply(t, e, s, act(StartRoundRobin))

	seen := map[string]bool{}
	for i, r := range models.RoundRobinRounds {
		if s.Tournament.State.CurrentRound != r {
			t.Fatalf("round %d is %s, want %s", i, s.Tournament.State.CurrentRound, r)
		}
		ms := current(s)
		if len(ms) != 8 {
			t.Fatalf("%s has %d matches", r, len(ms))
		}
		appearances := map[string]int{}
		for _, m := range ms {
			a, b := m.Team1.TeamID, m.Team2.TeamID
			if a == b {
				t.Fatalf("%s pairs %s with itself", r, a)
			}
			if a > b {
				a, b = b, a
			}
			if seen[a+"|"+b] {
				t.Fatalf("%s repeats %s v %s", r, a, b)
			}
			seen[a+"|"+b] = true
			appearances[a]++
			appearances[b]++
		}
		if len(appearances) != 16 {
			t.Fatalf("%s: %d teams play, want 16", r, len(appearances))
		}

		// Higher team numbers always win, inverting the registration order.
		play(s, func(m *models.Match) bool { return teamNum(m.Team1.TeamID) > teamNum(m.Team2.TeamID) })
		apply(t, e, s, act(AdvanceRound))
	}

	if s.Tournament.State.Phase != models.PhaseBracket || s.Tournament.State.CurrentRound != models.RoundOf16 {
		t.Fatalf("after round robin: phase %s round %s", s.Tournament.State.Phase, s.Tournament.State.CurrentRound)
	}

	standings := advancement.RankRoundRobin(s.Tournament.Teams, s.Matches)
	if standings[0].TeamID == team(1) {
		t.Fatal("bracket seeding should follow round-robin results, not registration")
	}
	first := current(s)[0]
	if first.Team1.TeamID != standings[0].TeamID || first.Team2.TeamID != standings[15].TeamID {
		t.Fatalf("first match %s v %s, want %s v %s",
			first.Team1.TeamID, first.Team2.TeamID, standings[0].TeamID, standings[15].TeamID)
	}
	if tm := s.Tournament.Team(standings[0].TeamID); tm.Seed != 1 {
		t.Errorf("top round-robin team has bracket seed %d", tm.Seed)
	}
}

func TestDoubleEliminationBracketReset(t *testing.T) {
	for _, tc := range []struct {
		name      string
		gfWinner  func(*models.Match) bool
		wantReset bool
		champion  string
	}{
		{"losers survivor forces reset", team2Wins, true, team(1)},
		{"unbeaten team wins outright", team1Wins, false, team(1)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEngine()
			s := newSnapshot(4, "M", models.DoubleElimination)
			toCheckIn(t, e, s)
			apply(t, e, s, act(StartBracket))

			if got := pairs(current(s)); got != "1-T1 v 1-T4, 1-T2 v 1-T3" {
				t.Fatalf("semifinals = %s", got)
			}
			play(s, team1Wins)
			apply(t, e, s, act(AdvanceRound))
			if tm := s.Tournament.Team(team(4)); tm.Eliminated || tm.Losses != 1 {
				t.Fatalf("first loss should demote, not eliminate: %+v", tm)
			}

			if got := pairs(current(s)); s.Tournament.State.CurrentRound != models.Final || got != "1-T1 v 1-T2" {
				t.Fatalf("%s = %s", s.Tournament.State.CurrentRound, got)
			}
			play(s, team1Wins)
			apply(t, e, s, act(AdvanceRound))

			if got := pairs(current(s)); s.Tournament.State.CurrentRound != models.LosersRound1 || got != "1-T4 v 1-T3" {
				t.Fatalf("%s = %s", s.Tournament.State.CurrentRound, got)
			}
			play(s, team1Wins)
			apply(t, e, s, act(AdvanceRound))
			if tm := s.Tournament.Team(team(3)); !tm.Eliminated {
				t.Fatal("second loss should eliminate")
			}

			if got := pairs(current(s)); s.Tournament.State.CurrentRound != models.LosersFinal || got != "1-T4 v 1-T2" {
				t.Fatalf("%s = %s", s.Tournament.State.CurrentRound, got)
			}
			play(s, team2Wins)
			apply(t, e, s, act(AdvanceRound))

			if got := pairs(current(s)); s.Tournament.State.CurrentRound != models.GrandFinal || got != "1-T1 v 1-T2" {
				t.Fatalf("%s = %s", s.Tournament.State.CurrentRound, got)
			}
			play(s, tc.gfWinner)
			apply(t, e, s, act(AdvanceRound))

			if tc.wantReset {
				if s.Tournament.State.CurrentRound != models.GrandFinalReset || pairs(current(s)) != "1-T1 v 1-T2" {
					t.Fatalf("expected reset match, round %s", s.Tournament.State.CurrentRound)
				}
				if s.Tournament.ChampionID != "" {
					t.Fatal("champion recorded before the reset match")
				}
				play(s, team1Wins)
				apply(t, e, s, act(AdvanceRound))
			}

			if s.Tournament.State.Phase != models.PhaseCompleted || s.Tournament.ChampionID != tc.champion {
				t.Fatalf("phase %s champion %s", s.Tournament.State.Phase, s.Tournament.ChampionID)
			}
			if s.Tournament.FinalistID != team(2) {
				t.Errorf("finalist = %s", s.Tournament.FinalistID)
			}
		})
	}
}

func TestAdvanceRejectedUntilRoundComplete(t *testing.T) {
	e := newTestEngine()
	s := newSnapshot(4, "M", models.SingleElimination)
	toCheckIn(t, e, s)
	apply(t, e, s, act(StartBracket))

	ms := current(s)
	ms[0].Team1.Score, ms[0].Team2.Score, ms[0].Status = 11, 4, models.MatchCompleted
	ms[1].Status = models.MatchInProgress

	before := s.Tournament.State
	if before.CanAdvance {
		t.Fatal("CanAdvance should be false while a match is in progress")
	}
	_, err := e.Apply(*s, act(AdvanceRound))
	if !errors.Is(err, advancement.ErrRoundIncomplete) || !errors.Is(err, models.ErrRuleViolation) {
		t.Fatalf("err = %v", err)
	}
	if s.Tournament.State != before {
		t.Fatal("failed transition changed the snapshot")
	}

	ms[1].Team1.Score, ms[1].Team2.Score, ms[1].Status = 12, 10, models.MatchConfirmed
	if st := Derive(s.Tournament, s.Matches); !st.CanAdvance || st.CompletedMatches != 2 {
		t.Fatalf("derived state = %+v", st)
	}
	apply(t, e, s, act(AdvanceRound))
}

func TestPhaseOrderIsEnforced(t *testing.T) {
	e := newTestEngine()
	s := newSnapshot(4, "M", models.SingleElimination)

	for _, name := range []ActionName{CloseRegistration, StartCheckIn, StartBracket, AdvanceRound, CompleteTournament, SetRound} {
		if _, err := e.Apply(*s, act(name)); !errors.Is(err, ErrActionNotAllowed) {
			t.Errorf("%s during setup: %v", name, err)
		}
	}
	if _, err := e.Apply(*s, act(StartRoundRobin)); !errors.Is(err, ErrWrongBracketType) {
		t.Errorf("start_round_robin on single elimination: %v", err)
	}
	if _, err := e.Apply(*s, act("shuffle")); !errors.Is(err, models.ErrValidation) {
		t.Errorf("unknown action: %v", err)
	}

	apply(t, e, s, act(StartRegistration))
	if _, err := e.Apply(*s, act(StartCheckIn)); !errors.Is(err, ErrRosterNotLocked) {
		t.Errorf("check-in before close_registration: %v", err)
	}
}

func TestCloseRegistrationFormsDoublesTeams(t *testing.T) {
	e := newTestEngine()
	s := newSnapshot(8, "Mixed Doubles", models.SingleElimination)
	apply(t, e, s, act(StartRegistration))
	apply(t, e, s, act(CloseRegistration))

	tour := s.Tournament
	if !tour.State.RosterLocked || tour.State.Phase != models.PhaseRegistration {
		t.Fatalf("state = %+v", tour.State)
	}
	if len(tour.Teams) != 4 {
		t.Fatalf("teams = %d", len(tour.Teams))
	}
	if ids := tour.Teams[0].PlayerIDs; ids[0] != 1 || ids[1] != 8 {
		t.Errorf("top team players = %v, want [1 8]", ids)
	}
	for _, tm := range tour.Teams {
		if !tm.CheckedIn {
			t.Errorf("%s should default to checked in", tm.ID)
		}
	}

	s = newSnapshot(3, "Mixed Doubles", models.SingleElimination)
	apply(t, e, s, act(StartRegistration))
	if _, err := e.Apply(*s, act(CloseRegistration)); !errors.Is(err, seeding.ErrOddPlayerCount) {
		t.Errorf("odd doubles roster: %v", err)
	}

	s = newSnapshot(2, "M", models.SingleElimination)
	s.Tournament.PlayerIDs = append(s.Tournament.PlayerIDs, 99)
	apply(t, e, s, act(StartRegistration))
	if _, err := e.Apply(*s, act(CloseRegistration)); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("unknown player: %v", err)
	}
}

func TestAbsentTeamsAreWithdrawn(t *testing.T) {
	e := newTestEngine()
	s := newSnapshot(4, "M", models.SingleElimination)
	toCheckIn(t, e, s)
	s.Tournament.Team(team(4)).CheckedIn = false

	out := apply(t, e, s, act(StartBracket))
	if len(out.NewMatches) != 1 || pairs(out.NewMatches) != "1-T2 v 1-T3" {
		t.Fatalf("matches = %s", pairs(out.NewMatches))
	}
	if !s.Tournament.Team(team(4)).Eliminated {
		t.Error("absent team should be withdrawn")
	}
}

func TestResetRequiresConfirmation(t *testing.T) {
	e := newTestEngine()
	s := newSnapshot(4, "M", models.SingleElimination)
	toCheckIn(t, e, s)
	apply(t, e, s, act(StartBracket))

	if _, err := e.Apply(*s, act(ResetTournament)); !errors.Is(err, ErrResetNotConfirmed) {
		t.Fatalf("unconfirmed reset: %v", err)
	}

	out := apply(t, e, s, Action{Name: ResetTournament, ConfirmReset: true})
	if !out.Reset || len(s.Matches) != 0 || len(s.Tournament.Teams) != 0 || len(s.Tournament.Byes) != 0 {
		t.Fatalf("reset left data behind: %+v", out)
	}
	if s.Tournament.State.Phase != models.PhaseSetup || s.Tournament.State.CurrentRound != "" {
		t.Fatalf("state after reset = %+v", s.Tournament.State)
	}
	if len(s.Tournament.PlayerIDs) != 4 {
		t.Error("registered players should survive a reset")
	}
}

func TestSetRoundAndRegeneration(t *testing.T) {
	e := newTestEngine()
	s := newSnapshot(8, "M", models.SingleElimination)
	toCheckIn(t, e, s)
	apply(t, e, s, act(StartBracket))
	play(s, team1Wins)
	apply(t, e, s, act(AdvanceRound))

	for _, tc := range []struct {
		target models.Round
		err    error
	}{
		{"", ErrMissingTargetRound},
		{models.LosersRound1, brackets.ErrUnknownRound},
		{models.RoundRobin2, brackets.ErrUnknownRound},
		{models.Round("round-of-8"), brackets.ErrUnknownRound},
		{models.Final, ErrRoundNotGenerated},
	} {
		if _, err := e.Apply(*s, Action{Name: SetRound, TargetRound: tc.target}); !errors.Is(err, tc.err) {
			t.Errorf("set_round %q: %v, want %v", tc.target, err, tc.err)
		}
	}

	apply(t, e, s, Action{Name: SetRound, TargetRound: models.Quarterfinal})
	if s.Tournament.State.CurrentRound != models.Quarterfinal {
		t.Fatalf("round = %s", s.Tournament.State.CurrentRound)
	}

	out := apply(t, e, s, act(AdvanceRound))
	if len(out.NewMatches) != 0 || s.Tournament.State.CurrentRound != models.Semifinal {
		t.Fatalf("re-advancing created %d matches, round %s", len(out.NewMatches), s.Tournament.State.CurrentRound)
	}
	if tm := s.Tournament.Team(team(8)); tm.Losses != 1 {
		t.Errorf("losses counted twice: %d", tm.Losses)
	}

	apply(t, e, s, Action{Name: SetRound, TargetRound: models.Quarterfinal})
	qf := current(s)
	qf[0].Team1.Score, qf[0].Team2.Score = 3, 11
	if _, err := e.Apply(*s, act(AdvanceRound)); !errors.Is(err, ErrRoundAlreadyCreated) {
		t.Fatalf("changed result regenerated semifinals: %v", err)
	}
}

func TestApplyDoesNotMutateSnapshot(t *testing.T) {
	e := newTestEngine()
	s := newSnapshot(4, "M", models.SingleElimination)
	toCheckIn(t, e, s)

	orig := s.Tournament
	if _, err := e.Apply(*s, act(StartBracket)); err != nil {
		t.Fatal(err)
	}
	if orig.State.Phase != models.PhaseCheckIn || orig.State.CurrentRound != "" || len(orig.Byes) != 0 {
		t.Fatalf("snapshot changed: %+v", orig.State)
	}
	for _, tm := range orig.Teams {
		if tm.AdvancedTo != "" {
			t.Fatalf("snapshot team changed: %+v", tm)
		}
	}
}
