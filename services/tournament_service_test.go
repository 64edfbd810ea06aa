package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Dosada05/tournament-engine/advancement"
	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/notify"
	"github.com/Dosada05/tournament-engine/progression"
	"github.com/Dosada05/tournament-engine/repositories"
	"github.com/Dosada05/tournament-engine/seeding"
	"github.com/Dosada05/tournament-engine/storage"
)

func TestCreateTournamentValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		input   CreateTournamentInput
		wantErr error
	}{
		{"blank name", CreateTournamentInput{Name: "  ", BracketType: models.SingleElimination}, ErrTournamentNameRequired},
		{"unknown bracket", CreateTournamentInput{Name: "Open", BracketType: "swiss"}, ErrInvalidBracketType},
		{"one player", CreateTournamentInput{Name: "Open", BracketType: models.SingleElimination, MaxPlayers: 1}, ErrInvalidCapacity},
		{"too many players", CreateTournamentInput{Name: "Open", BracketType: models.SingleElimination, MaxPlayers: 129}, ErrInvalidCapacity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.tournaments.CreateTournament(ctx, tt.input)
			if !errors.Is(err, tt.wantErr) || !errors.Is(err, models.ErrValidation) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	tour, err := f.tournaments.CreateTournament(ctx, CreateTournamentInput{Name: " Open ", BracketType: models.DoubleElimination})
	if err != nil {
		t.Fatal(err)
	}
	if tour.Name != "Open" || tour.MaxPlayers != MaxPlayersLimit || tour.State.Phase != models.PhaseSetup {
		t.Fatalf("created = %+v", tour)
	}
}

func TestSingleEliminationRunsToCompletion(t *testing.T) {
	f := newFixture(t)
	tour := f.checkedIn(t, models.SingleElimination, 8)
	id := tour.ID

	if len(tour.Teams) != 4 || tour.State.Phase != models.PhaseCheckIn {
		t.Fatalf("after check-in: %d teams, phase %s", len(tour.Teams), tour.State.Phase)
	}

	res := f.act(t, id, progression.StartBracket)
	if res.Tournament.State.CurrentRound != models.Semifinal || len(res.NewMatches) != 2 {
		t.Fatalf("start_bracket: round %s, %d matches", res.Tournament.State.CurrentRound, len(res.NewMatches))
	}

	_, err := f.tournaments.ExecuteAction(context.Background(), id, progression.Action{Name: progression.AdvanceRound})
	if !errors.Is(err, advancement.ErrRoundIncomplete) {
		t.Fatalf("advance with open matches: %v", err)
	}

	f.finishRound(t, id)
	res = f.act(t, id, progression.AdvanceRound)
	if res.Tournament.State.CurrentRound != models.Final || len(res.NewMatches) != 1 {
		t.Fatalf("advance: round %s, %d matches", res.Tournament.State.CurrentRound, len(res.NewMatches))
	}
	if len(res.Advancement) != 1 || len(res.Advancement[0].Advancing) != 2 {
		t.Errorf("advancement = %+v", res.Advancement)
	}

	f.finishRound(t, id)
	res = f.act(t, id, progression.AdvanceRound)
	done := res.Tournament
	if done.State.Phase != models.PhaseCompleted {
		t.Fatalf("phase = %s", done.State.Phase)
	}
	if want := seeding.TeamID(id, 1); done.ChampionID != want {
		t.Errorf("champion = %s, want %s", done.ChampionID, want)
	}
	if len(res.CareerUpdates) != 8 {
		t.Errorf("career updates = %d, want 8", len(res.CareerUpdates))
	}

	key := storage.ResultsKey(id)
	if !f.uploads.has(key) {
		t.Fatalf("results not archived under %s", key)
	}
	if res.ResultsURL != "https://cdn.test/"+key {
		t.Errorf("results url = %q", res.ResultsURL)
	}
	var archived storage.Results
	if err := json.Unmarshal(f.uploads.objects[key], &archived); err != nil {
		t.Fatal(err)
	}
	if len(archived.Matches) != 3 || archived.ChampionID != done.ChampionID {
		t.Errorf("archive holds %d matches, champion %q", len(archived.Matches), archived.ChampionID)
	}

	ev := f.events.last()
	if ev.Type != notify.StateChanged || ev.Action != string(progression.AdvanceRound) || ev.ChampionID != done.ChampionID {
		t.Errorf("last event = %+v", ev)
	}
	if ev.Actor != "director" {
		t.Errorf("event actor = %q", ev.Actor)
	}

	standings, err := f.tournaments.GetStandings(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if len(standings) != 4 || standings[0].TeamID != done.ChampionID {
		t.Errorf("standings = %+v", standings)
	}
}

func TestResetAfterCompletionRemovesArchive(t *testing.T) {
	f := newFixture(t)
	tour := f.checkedIn(t, models.SingleElimination, 4)
	f.act(t, tour.ID, progression.StartBracket)
	f.finishRound(t, tour.ID)
	f.act(t, tour.ID, progression.AdvanceRound)

	key := storage.ResultsKey(tour.ID)
	if !f.uploads.has(key) {
		t.Fatal("completed tournament was not archived")
	}

	ctx := context.Background()
	_, err := f.tournaments.ExecuteAction(ctx, tour.ID, progression.Action{Name: progression.ResetTournament})
	if !errors.Is(err, progression.ErrResetNotConfirmed) {
		t.Fatalf("unconfirmed reset: %v", err)
	}
	res, err := f.tournaments.ExecuteAction(ctx, tour.ID, progression.Action{Name: progression.ResetTournament, ConfirmReset: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Tournament.State.Phase != models.PhaseSetup {
		t.Errorf("phase after reset = %s", res.Tournament.State.Phase)
	}
	if f.uploads.has(key) {
		t.Error("archive should be removed on reset")
	}
	matches, err := f.tournaments.ListMatches(ctx, tour.ID, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Errorf("%d matches survived the reset", len(matches))
	}
	if !f.events.last().Reset {
		t.Error("reset event should be flagged")
	}
}

func TestRegisterPlayersRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tour, err := f.tournaments.CreateTournament(ctx, CreateTournamentInput{
		Name: "Club Night", Format: "Mixed Doubles", BracketType: models.SingleElimination, MaxPlayers: 4,
	})
	if err != nil {
		t.Fatal(err)
	}
	ids := f.createPlayers(t, 5)

	if _, err := f.tournaments.RegisterPlayers(ctx, tour.ID, ids[:2], "desk"); !errors.Is(err, ErrRegistrationNotOpen) {
		t.Fatalf("register during setup: %v", err)
	}
	f.act(t, tour.ID, progression.StartRegistration)

	tests := []struct {
		name    string
		ids     []int
		wantErr error
	}{
		{"empty", nil, ErrNoPlayersGiven},
		{"duplicate in request", []int{ids[0], ids[0]}, ErrAlreadyRegistered},
		{"unknown player", []int{999}, seeding.ErrPlayerNotFound},
		{"over capacity", ids, ErrTournamentFull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.tournaments.RegisterPlayers(ctx, tour.ID, tt.ids, "desk"); !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	got, err := f.tournaments.RegisterPlayers(ctx, tour.ID, ids[:4], "desk")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.PlayerIDs) != 4 {
		t.Fatalf("registered = %v", got.PlayerIDs)
	}
	if _, err := f.tournaments.RegisterPlayers(ctx, tour.ID, ids[1:2], "desk"); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("second registration: %v", err)
	}

	live, err := f.tournaments.GetLive(ctx, tour.ID)
	if err != nil {
		t.Fatal(err)
	}
	if live.Seeding == nil || live.Seeding.BracketSize != 2 {
		t.Errorf("seeding preview = %+v", live.Seeding)
	}

	f.act(t, tour.ID, progression.CloseRegistration)
	if _, err := f.tournaments.RegisterPlayers(ctx, tour.ID, ids[2:4], "desk"); !errors.Is(err, ErrRegistrationNotOpen) {
		t.Fatalf("register after roster lock: %v", err)
	}
}

func TestCheckInWithdrawsAbsentTeams(t *testing.T) {
	f := newFixture(t)
	tour := f.checkedIn(t, models.SingleElimination, 8)
	ctx := context.Background()
	absent := seeding.TeamID(tour.ID, 4)

	if _, err := f.tournaments.SetCheckIn(ctx, tour.ID, "nobody", false, "desk"); !errors.Is(err, ErrTeamNotFound) {
		t.Fatalf("unknown team: %v", err)
	}
	got, err := f.tournaments.SetCheckIn(ctx, tour.ID, absent, false, "desk")
	if err != nil {
		t.Fatal(err)
	}
	if got.Team(absent).CheckedIn {
		t.Fatal("check-in flag not cleared")
	}

	res := f.act(t, tour.ID, progression.StartBracket)
	if len(res.NewMatches) != 1 {
		t.Fatalf("matches = %d, want 1", len(res.NewMatches))
	}
	if !res.Tournament.Team(absent).Eliminated {
		t.Error("absent team should be withdrawn")
	}
	if len(res.Tournament.Byes) != 1 || res.Tournament.Byes[0].TeamID != seeding.TeamID(tour.ID, 1) {
		t.Errorf("byes = %+v", res.Tournament.Byes)
	}

	if _, err := f.tournaments.SetCheckIn(ctx, tour.ID, absent, true, "desk"); !errors.Is(err, ErrNotCheckingIn) {
		t.Errorf("check-in after start: %v", err)
	}
}

func TestGetLiveDerivesRoundProgress(t *testing.T) {
	f := newFixture(t)
	tour := f.checkedIn(t, models.SingleElimination, 8)
	f.act(t, tour.ID, progression.StartBracket)
	ctx := context.Background()

	first := f.currentMatches(t, tour.ID)[0]
	_, err := f.matches.UpdateMatch(ctx, first.ID, UpdateMatchInput{
		Team1Score: score(11), Team2Score: score(9), Status: models.MatchCompleted,
	}, "scorer")
	if err != nil {
		t.Fatal(err)
	}

	live, err := f.tournaments.GetLive(ctx, tour.ID)
	if err != nil {
		t.Fatal(err)
	}
	st := live.Tournament.State
	if st.TotalMatches != 2 || st.CompletedMatches != 1 || st.CanAdvance || st.RoundStatus != models.RoundInProgress {
		t.Fatalf("state = %+v", st)
	}
	if live.Seeding != nil {
		t.Error("seeding preview is only shown before play")
	}
	if len(live.Standings) != 4 {
		t.Errorf("standings = %d rows", len(live.Standings))
	}
}

// flakyTournaments fails SaveProgress with a version conflict a set number of times.
type flakyTournaments struct {
	repositories.TournamentRepository
	failures int
	calls    int
}

func (r *flakyTournaments) SaveProgress(ctx context.Context, p repositories.Progress) error {
	r.calls++
	if r.failures > 0 {
		r.failures--
		return repositories.ErrVersionConflict
	}
	return r.TournamentRepository.SaveProgress(ctx, p)
}

func TestExecuteActionRetriesOnceOnConflict(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		wantCalls int
		wantErr   bool
	}{
		{"recovers after one conflict", 1, 2, false},
		{"gives up after the retry", 2, 2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flaky := &flakyTournaments{}
			f := newFixtureWith(t, func(r repositories.TournamentRepository) repositories.TournamentRepository {
				flaky.TournamentRepository = r
				return flaky
			})
			tour, err := f.tournaments.CreateTournament(context.Background(), CreateTournamentInput{
				Name: "Retry Cup", BracketType: models.SingleElimination,
			})
			if err != nil {
				t.Fatal(err)
			}

			flaky.failures = tt.failures
			_, err = f.tournaments.ExecuteAction(context.Background(), tour.ID, progression.Action{Name: progression.StartRegistration})
			if flaky.calls != tt.wantCalls {
				t.Errorf("SaveProgress calls = %d, want %d", flaky.calls, tt.wantCalls)
			}
			if tt.wantErr {
				if !errors.Is(err, models.ErrStateConflict) {
					t.Fatalf("err = %v, want state conflict", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestGuardPinsResolvedRound(t *testing.T) {
	f := newFixture(t)
	tour := f.checkedIn(t, models.SingleElimination, 4)
	f.act(t, tour.ID, progression.StartBracket)
	f.finishRound(t, tour.ID)

	snap := progression.Snapshot{Tournament: &models.Tournament{State: models.ManagementState{CurrentRound: models.Final}}}
	if g := guardFor(progression.StartRegistration, snap); g != nil {
		t.Errorf("start_registration should not pin a round: %+v", g)
	}
	live, err := f.tournaments.GetLive(context.Background(), tour.ID)
	if err != nil {
		t.Fatal(err)
	}
	snap = progression.Snapshot{Tournament: live.Tournament, Matches: live.Matches}
	g := guardFor(progression.AdvanceRound, snap)
	if g == nil || g.Round != models.Final || len(g.Versions) != 1 {
		t.Fatalf("guard = %+v", g)
	}
}
