package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/tournament-engine/metrics"
	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/notify"
	"github.com/Dosada05/tournament-engine/progression"
	"github.com/Dosada05/tournament-engine/repositories"
	"github.com/Dosada05/tournament-engine/seeding"
	"github.com/Dosada05/tournament-engine/storage"
)

var fixedNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingNotifier) Publish(_ context.Context, _ int, ev notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingNotifier) last() notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

type memoryUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (u *memoryUploader) Upload(_ context.Context, key, _ string, r io.Reader) (*storage.UploadResult, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.objects == nil {
		u.objects = make(map[string][]byte)
	}
	u.objects[key] = body
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *memoryUploader) Delete(_ context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	return nil
}

func (u *memoryUploader) GetPublicURL(key string) string { return "https://cdn.test/" + key }

func (u *memoryUploader) has(key string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.objects[key]
	return ok
}

type fixture struct {
	store       *repositories.MemoryStore
	tournaments TournamentService
	matches     MatchService
	events      *recordingNotifier
	uploads     *memoryUploader
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, nil)
}

// newFixtureWith lets a test wrap the tournament repository.
func newFixtureWith(t *testing.T, wrap func(repositories.TournamentRepository) repositories.TournamentRepository) *fixture {
	t.Helper()
	store := repositories.NewMemoryStore()
	tournaments := store.Tournaments()
	if wrap != nil {
		tournaments = wrap(tournaments)
	}

	n := 0
	seeder := seeding.NewCalculator(store.Players())
	engine := progression.NewEngine(seeder,
		progression.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("m%d", n)
		}),
		progression.WithClock(func() time.Time { return fixedNow }),
	)
	events := &recordingNotifier{}
	uploads := &memoryUploader{}
	rec := metrics.NewRecorder()

	return &fixture{
		store:   store,
		events:  events,
		uploads: uploads,
		tournaments: NewTournamentService(TournamentServiceDeps{
			Tournaments: tournaments,
			Matches:     store.Matches(),
			Players:     store.Players(),
			Engine:      engine,
			Seeder:      seeder,
			Notifier:    events,
			Archiver:    storage.NewResultsArchiver(uploads),
			Metrics:     rec,
			Logger:      quietLogger(),
		}),
		matches: NewMatchService(MatchServiceDeps{
			Tournaments: tournaments,
			Matches:     store.Matches(),
			Notifier:    events,
			Metrics:     rec,
			Logger:      quietLogger(),
			Now:         func() time.Time { return fixedNow },
		}),
	}
}

// createPlayers stores n players with falling winning percentages, so player i is seed i.
func (f *fixture) createPlayers(t *testing.T, n int) []int {
	t.Helper()
	ids := make([]int, 0, n)
	for i := 1; i <= n; i++ {
		p := &models.Player{
			Name:              fmt.Sprintf("Player %d", i),
			WinningPercentage: 1 - float64(i)/100,
			TournamentsPlayed: 10,
		}
		if err := f.store.Players().Create(context.Background(), p); err != nil {
			t.Fatalf("create player: %v", err)
		}
		ids = append(ids, p.ID)
	}
	return ids
}

// checkedIn creates a doubles tournament with the given number of players and takes it
// to check-in.
func (f *fixture) checkedIn(t *testing.T, bt models.BracketType, players int) *models.Tournament {
	t.Helper()
	ctx := context.Background()
	tour, err := f.tournaments.CreateTournament(ctx, CreateTournamentInput{
		Name:        "Summer Classic",
		Format:      "Mixed Doubles",
		BracketType: bt,
	})
	if err != nil {
		t.Fatalf("create tournament: %v", err)
	}
	f.act(t, tour.ID, progression.StartRegistration)
	if _, err := f.tournaments.RegisterPlayers(ctx, tour.ID, f.createPlayers(t, players), "desk"); err != nil {
		t.Fatalf("register players: %v", err)
	}
	f.act(t, tour.ID, progression.CloseRegistration)
	return f.act(t, tour.ID, progression.StartCheckIn).Tournament
}

func (f *fixture) act(t *testing.T, id int, name progression.ActionName) *ActionResult {
	t.Helper()
	res, err := f.tournaments.ExecuteAction(context.Background(), id, progression.Action{Name: name, Actor: "director"})
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return res
}

func (f *fixture) currentMatches(t *testing.T, id int) []*models.Match {
	t.Helper()
	live, err := f.tournaments.GetLive(context.Background(), id)
	if err != nil {
		t.Fatalf("get live: %v", err)
	}
	var out []*models.Match
	for _, m := range live.Matches {
		if m.Round == live.Tournament.State.CurrentRound {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchNumber < out[j].MatchNumber })
	return out
}

func score(v float64) *float64 { return &v }

// finishRound completes every match of the current round 11-5 for team 1.
func (f *fixture) finishRound(t *testing.T, id int) {
	t.Helper()
	for _, m := range f.currentMatches(t, id) {
		_, err := f.matches.UpdateMatch(context.Background(), m.ID, UpdateMatchInput{
			Team1Score: score(11),
			Team2Score: score(5),
			Status:     models.MatchCompleted,
		}, "scorer")
		if err != nil {
			t.Fatalf("complete %s: %v", m.ID, err)
		}
	}
}

func contains(haystack []byte, needle string) bool {
	return bytes.Contains(haystack, []byte(needle))
}
