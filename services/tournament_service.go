package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/tournament-engine/advancement"
	"github.com/Dosada05/tournament-engine/metrics"
	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/notify"
	"github.com/Dosada05/tournament-engine/progression"
	"github.com/Dosada05/tournament-engine/repositories"
	"github.com/Dosada05/tournament-engine/seeding"
	"github.com/Dosada05/tournament-engine/standings"
	"github.com/Dosada05/tournament-engine/storage"
)

// MaxPlayersLimit is two players for each of the 64 bracket slots.
const MaxPlayersLimit = 128

type CreateTournamentInput struct {
	Name        string             `json:"name"`
	Format      string             `json:"format"`
	BracketType models.BracketType `json:"bracket_type"`
	MaxPlayers  int                `json:"max_players"`
}

// LiveView is everything a scoreboard needs in one read.
type LiveView struct {
	Tournament *models.Tournament          `json:"tournament"`
	Matches    []*models.Match             `json:"matches"`
	Standings  []models.TournamentStanding `json:"standings"`
	Byes       []models.Bye                `json:"byes"`
	Seeding    *seeding.Preview            `json:"seeding,omitempty"`
}

type ActionResult struct {
	Tournament    *models.Tournament        `json:"tournament"`
	NewMatches    []*models.Match           `json:"new_matches"`
	Advancement   []advancement.Advancement `json:"advancement,omitempty"`
	CareerUpdates []models.CareerUpdate     `json:"career_updates,omitempty"`
	ResultsURL    string                    `json:"results_url,omitempty"`
}

type TournamentService interface {
	CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error)
	GetLive(ctx context.Context, id int) (*LiveView, error)
	GetStandings(ctx context.Context, id int) ([]models.TournamentStanding, error)
	ListMatches(ctx context.Context, id int, round *models.Round) ([]*models.Match, error)
	RegisterPlayers(ctx context.Context, id int, playerIDs []int, actor string) (*models.Tournament, error)
	SetCheckIn(ctx context.Context, id int, teamID string, present bool, actor string) (*models.Tournament, error)
	CalculateSeeding(ctx context.Context, id int) ([]seeding.PlayerSeed, error)
	ExecuteAction(ctx context.Context, id int, action progression.Action) (*ActionResult, error)
}

type TournamentServiceDeps struct {
	Tournaments repositories.TournamentRepository
	Matches     repositories.MatchRepository
	Players     repositories.PlayerRepository
	Engine      *progression.Engine
	Seeder      *seeding.Calculator
	Notifier    notify.Notifier
	Archiver    *storage.ResultsArchiver
	Metrics     *metrics.Recorder
	Logger      *slog.Logger
	RepoTimeout time.Duration
}

type tournamentService struct {
	tournaments repositories.TournamentRepository
	matches     repositories.MatchRepository
	players     repositories.PlayerRepository
	engine      *progression.Engine
	seeder      *seeding.Calculator
	notifier    notify.Notifier
	archiver    *storage.ResultsArchiver
	metrics     *metrics.Recorder
	logger      *slog.Logger
	timeout     time.Duration
	locks       *keyedMutex
}

func NewTournamentService(deps TournamentServiceDeps) TournamentService {
	s := &tournamentService{
		tournaments: deps.Tournaments,
		matches:     deps.Matches,
		players:     deps.Players,
		engine:      deps.Engine,
		seeder:      deps.Seeder,
		notifier:    deps.Notifier,
		archiver:    deps.Archiver,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		timeout:     deps.RepoTimeout,
		locks:       newKeyedMutex(),
	}
	if s.seeder == nil {
		s.seeder = seeding.NewCalculator(deps.Players)
	}
	if s.engine == nil {
		s.engine = progression.NewEngine(s.seeder)
	}
	if s.notifier == nil {
		s.notifier = notify.Nop{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

func (s *tournamentService) CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, ErrTournamentNameRequired
	}
	if !input.BracketType.Valid() {
		return nil, fmt.Errorf("%w (got %q)", ErrInvalidBracketType, input.BracketType)
	}
	if input.MaxPlayers == 0 {
		input.MaxPlayers = MaxPlayersLimit
	}
	if input.MaxPlayers < 2 || input.MaxPlayers > MaxPlayersLimit {
		return nil, ErrInvalidCapacity
	}

	t := &models.Tournament{
		Name:        input.Name,
		Format:      strings.TrimSpace(input.Format),
		BracketType: input.BracketType,
		MaxPlayers:  input.MaxPlayers,
		State: models.ManagementState{
			Phase:       models.PhaseSetup,
			RoundStatus: models.RoundNotStarted,
		},
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.tournaments.Create(ctx, t); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "tournament created",
		slog.Int("tournament_id", t.ID),
		slog.String("bracket_type", string(t.BracketType)))
	return t, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	return s.tournaments.List(ctx, filter)
}

// load reads a tournament and all of its matches in parallel.
func (s *tournamentService) load(ctx context.Context, id int) (*models.Tournament, []*models.Match, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var (
		t       *models.Tournament
		matches []*models.Match
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		t, err = s.tournaments.GetByID(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		matches, err = s.matches.ListByTournament(gctx, id, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return t, matches, nil
}

func (s *tournamentService) GetLive(ctx context.Context, id int) (*LiveView, error) {
	t, matches, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	t.State = progression.Derive(t, matches)
	view := &LiveView{
		Tournament: t,
		Matches:    matches,
		Standings:  standings.Compute(t.Teams, matches),
		Byes:       t.Byes,
	}
	if t.State.Phase == models.PhaseRegistration || t.State.Phase == models.PhaseCheckIn {
		entrants := len(t.Teams)
		if entrants == 0 {
			entrants = len(t.PlayerIDs) / seeding.TeamSize(t.Format)
		}
		p := seeding.NewPreview(entrants)
		view.Seeding = &p
	}
	return view, nil
}

func (s *tournamentService) GetStandings(ctx context.Context, id int) ([]models.TournamentStanding, error) {
	t, matches, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return standings.Compute(t.Teams, matches), nil
}

func (s *tournamentService) ListMatches(ctx context.Context, id int, round *models.Round) ([]*models.Match, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.tournaments.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.matches.ListByTournament(ctx, id, round)
}

func (s *tournamentService) RegisterPlayers(ctx context.Context, id int, playerIDs []int, actor string) (*models.Tournament, error) {
	if len(playerIDs) == 0 {
		return nil, ErrNoPlayersGiven
	}
	unlock := s.locks.Lock(id)
	defer unlock()

	var saved *models.Tournament
	err := retryOnConflict(s.metrics, "register_players", func() error {
		ctx, cancel := withTimeout(ctx, s.timeout)
		defer cancel()

		t, err := s.tournaments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if t.State.Phase != models.PhaseRegistration || t.State.RosterLocked {
			return fmt.Errorf("%w (phase %s)", ErrRegistrationNotOpen, t.State.Phase)
		}

		registered := make(map[int]bool, len(t.PlayerIDs)+len(playerIDs))
		for _, pid := range t.PlayerIDs {
			registered[pid] = true
		}
		for _, pid := range playerIDs {
			if registered[pid] {
				return fmt.Errorf("%w: id %d", ErrAlreadyRegistered, pid)
			}
			registered[pid] = true
		}
		if t.MaxPlayers > 0 && len(t.PlayerIDs)+len(playerIDs) > t.MaxPlayers {
			return fmt.Errorf("%w: %d of %d places taken", ErrTournamentFull, len(t.PlayerIDs), t.MaxPlayers)
		}

		found, err := s.players.GetByIDs(ctx, playerIDs)
		if err != nil {
			return err
		}
		for _, pid := range playerIDs {
			if found[pid] == nil {
				return fmt.Errorf("%w: id %d", seeding.ErrPlayerNotFound, pid)
			}
		}

		t.PlayerIDs = append(t.PlayerIDs, playerIDs...)
		if err := s.tournaments.SaveProgress(ctx, repositories.Progress{Tournament: t}); err != nil {
			return err
		}
		saved = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	ev := notify.NewEvent(notify.StateChanged, id, saved.State)
	ev.Action = "register_players"
	ev.Actor = actor
	s.publish(ctx, ev)
	return saved, nil
}

func (s *tournamentService) SetCheckIn(ctx context.Context, id int, teamID string, present bool, actor string) (*models.Tournament, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	var saved *models.Tournament
	err := retryOnConflict(s.metrics, "check_in", func() error {
		ctx, cancel := withTimeout(ctx, s.timeout)
		defer cancel()

		t, err := s.tournaments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if t.State.Phase != models.PhaseCheckIn {
			return fmt.Errorf("%w (phase %s)", ErrNotCheckingIn, t.State.Phase)
		}
		team := t.Team(teamID)
		if team == nil {
			return fmt.Errorf("%w: %s", ErrTeamNotFound, teamID)
		}
		team.CheckedIn = present
		if err := s.tournaments.SaveProgress(ctx, repositories.Progress{Tournament: t}); err != nil {
			return err
		}
		saved = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	ev := notify.NewEvent(notify.StateChanged, id, saved.State)
	ev.Action = "check_in"
	ev.Actor = actor
	s.publish(ctx, ev)
	return saved, nil
}

func (s *tournamentService) CalculateSeeding(ctx context.Context, id int) ([]seeding.PlayerSeed, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	t, err := s.tournaments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.seeder.Calculate(ctx, t.PlayerIDs, t.Format)
}

// ExecuteAction runs one management action under the tournament's lock. The outcome is
// written in a single transaction; a concurrent change makes it reload and try once more.
func (s *tournamentService) ExecuteAction(ctx context.Context, id int, action progression.Action) (*ActionResult, error) {
	start := time.Now()
	unlock := s.locks.Lock(id)
	defer unlock()

	var (
		out  progression.Outcome
		snap progression.Snapshot
	)
	err := retryOnConflict(s.metrics, "save_progress", func() error {
		var err error
		snap, err = s.snapshot(ctx, id, action.Name)
		if err != nil {
			return err
		}
		out, err = s.engine.Apply(snap, action)
		if err != nil {
			return err
		}

		p := repositories.Progress{
			Tournament:   out.Tournament,
			NewMatches:   out.NewMatches,
			ResetMatches: out.Reset,
			Guard:        guardFor(action.Name, snap),
		}
		ctx, cancel := withTimeout(ctx, s.timeout)
		defer cancel()
		return s.tournaments.SaveProgress(ctx, p)
	})
	s.metrics.RecordAction(string(action.Name), outcomeOf(err), time.Since(start))
	if err != nil {
		s.logger.WarnContext(ctx, "tournament action rejected",
			slog.Int("tournament_id", id),
			slog.String("action", string(action.Name)),
			slog.Any("error", err))
		return nil, err
	}

	t := out.Tournament
	s.logger.InfoContext(ctx, "tournament action applied",
		slog.Int("tournament_id", id),
		slog.String("action", string(action.Name)),
		slog.String("phase", string(t.State.Phase)),
		slog.String("round", string(t.State.CurrentRound)),
		slog.Int("new_matches", len(out.NewMatches)))

	res := &ActionResult{
		Tournament:    t,
		NewMatches:    out.NewMatches,
		Advancement:   out.Resolved,
		CareerUpdates: out.CareerUpdates,
	}
	if res.NewMatches == nil {
		res.NewMatches = []*models.Match{}
	}

	switch {
	case t.State.Phase == models.PhaseCompleted && snap.Tournament.State.Phase != models.PhaseCompleted:
		all := make([]*models.Match, 0, len(snap.Matches)+len(out.NewMatches))
		all = append(append(all, snap.Matches...), out.NewMatches...)
		res.ResultsURL = s.archive(ctx, t, all, out.CareerUpdates)
	case out.Reset && snap.Tournament.State.Phase == models.PhaseCompleted:
		rctx, cancel := withTimeout(ctx, s.timeout)
		if err := s.archiver.Remove(rctx, id); err != nil {
			s.logger.WarnContext(ctx, "failed to remove archived results", slog.Int("tournament_id", id), slog.Any("error", err))
		}
		cancel()
	}

	ev := notify.NewEvent(notify.StateChanged, id, t.State)
	ev.Action = string(action.Name)
	ev.Actor = action.Actor
	ev.Matches = out.NewMatches
	ev.Reset = out.Reset
	ev.Advancement = out.Resolved
	ev.ChampionID = t.ChampionID
	ev.CareerUpdates = out.CareerUpdates
	s.publish(ctx, ev)

	return res, nil
}

// snapshot loads what the engine needs. Players are only read when the action can
// seed the roster or finish the tournament.
func (s *tournamentService) snapshot(ctx context.Context, id int, name progression.ActionName) (progression.Snapshot, error) {
	t, matches, err := s.load(ctx, id)
	if err != nil {
		return progression.Snapshot{}, err
	}
	snap := progression.Snapshot{Tournament: t, Matches: matches}

	switch name {
	case progression.CloseRegistration, progression.AdvanceRound, progression.CompleteTournament:
		if len(t.PlayerIDs) == 0 {
			break
		}
		ctx, cancel := withTimeout(ctx, s.timeout)
		defer cancel()
		snap.Players, err = s.players.GetByIDs(ctx, t.PlayerIDs)
		if err != nil {
			return progression.Snapshot{}, fmt.Errorf("failed to load players of tournament %d: %w", id, err)
		}
	}
	return snap, nil
}

// guardFor pins the current round's results for actions that resolve it.
func guardFor(name progression.ActionName, snap progression.Snapshot) *repositories.RoundGuard {
	switch name {
	case progression.AdvanceRound, progression.CompleteTournament, progression.StartBracket:
	default:
		return nil
	}
	round := snap.Tournament.State.CurrentRound
	if round == "" {
		return nil
	}
	g := &repositories.RoundGuard{Round: round, Versions: make(map[string]int)}
	for _, m := range snap.Matches {
		if m.Round == round {
			g.Versions[m.ID] = m.Version
		}
	}
	return g
}

func (s *tournamentService) archive(ctx context.Context, t *models.Tournament, matches []*models.Match, career []models.CareerUpdate) string {
	if s.archiver == nil {
		return ""
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	loc, err := s.archiver.Archive(ctx, storage.Results{
		TournamentID:  t.ID,
		Name:          t.Name,
		Format:        t.Format,
		BracketType:   t.BracketType,
		ChampionID:    t.ChampionID,
		FinalistID:    t.FinalistID,
		Placements:    t.Placements,
		Teams:         t.Teams,
		Standings:     standings.Compute(t.Teams, matches),
		Matches:       matches,
		CareerUpdates: career,
		CompletedAt:   t.UpdatedAt,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to archive tournament results", slog.Int("tournament_id", t.ID), slog.Any("error", err))
		return ""
	}
	return loc
}

func (s *tournamentService) publish(ctx context.Context, ev notify.Event) {
	if err := s.notifier.Publish(ctx, ev.TournamentID, ev); err != nil {
		s.logger.WarnContext(ctx, "state change not delivered to every subscriber",
			slog.Int("tournament_id", ev.TournamentID),
			slog.String("event_id", ev.ID),
			slog.Any("error", err))
	}
}
