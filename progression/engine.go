package progression

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Dosada05/tournament-engine/advancement"
	"github.com/Dosada05/tournament-engine/brackets"
	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/seeding"
)

// Snapshot is the state a transition reads. Players is only consulted when the roster is
// seeded and when career statistics are produced at completion.
type Snapshot struct {
	Tournament *models.Tournament
	Matches    []*models.Match
	Players    map[int]*models.Player
}

// Outcome is the result of one successful transition. Tournament is a new value; the
// snapshot passed to Apply is never modified.
type Outcome struct {
	Tournament    *models.Tournament
	NewMatches    []*models.Match
	Reset         bool
	Resolved      []advancement.Advancement
	CareerUpdates []models.CareerUpdate
}

type Option func(*Engine)

// WithIDGenerator replaces the match id source.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

func WithClock(fn func() time.Time) Option {
	return func(e *Engine) { e.now = fn }
}

type Engine struct {
	seeder     *seeding.Calculator
	opening    brackets.BracketGenerator
	roundRobin brackets.BracketGenerator
	newID      func() string
	now        func() time.Time
}

func NewEngine(seeder *seeding.Calculator, opts ...Option) *Engine {
	e := &Engine{
		seeder:     seeder,
		opening:    brackets.NewSingleEliminationGenerator(),
		roundRobin: brackets.NewRoundRobinGenerator(),
		newID:      uuid.NewString,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply validates the action against the snapshot and computes the next state.
// On error the returned Outcome is empty and nothing should be written.
func (e *Engine) Apply(s Snapshot, a Action) (Outcome, error) {
	if s.Tournament == nil {
		return Outcome{}, fmt.Errorf("%w: tournament", models.ErrNotFound)
	}
	if !a.Name.Valid() {
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownAction, a.Name)
	}

	r := &run{
		e:       e,
		t:       s.Tournament.Clone(),
		matches: append([]*models.Match(nil), s.Matches...),
		players: s.Players,
	}

	var err error
	switch a.Name {
	case StartRegistration:
		err = r.startRegistration()
	case CloseRegistration:
		err = r.closeRegistration()
	case StartCheckIn:
		err = r.startCheckIn()
	case StartRoundRobin:
		err = r.startRoundRobin()
	case StartBracket:
		err = r.startBracket()
	case AdvanceRound:
		err = r.advanceRound()
	case CompleteTournament:
		err = r.completeTournament()
	case ResetTournament:
		err = r.reset(a.ConfirmReset)
	case SetRound:
		err = r.setRound(a.TargetRound)
	}
	if err != nil {
		return Outcome{}, err
	}

	r.t.State = Derive(r.t, r.matches)
	r.t.UpdatedAt = e.now()
	r.out.Tournament = r.t
	return r.out, nil
}

// Derive recomputes the counters and flags of the tournament's management state
// from the matches of its current round.
func Derive(t *models.Tournament, matches []*models.Match) models.ManagementState {
	st := t.State
	st.TotalMatches, st.CompletedMatches = 0, 0
	st.RoundStatus = models.RoundNotStarted
	st.CanAdvance = false
	if st.CurrentRound == "" {
		return st
	}

	started := false
	for _, m := range matches {
		if m.Round != st.CurrentRound {
			continue
		}
		st.TotalMatches++
		if m.Status.Finished() {
			st.CompletedMatches++
		}
		if m.Status != models.MatchScheduled {
			started = true
		}
	}
	switch {
	case st.CompletedMatches == st.TotalMatches:
		st.RoundStatus = models.RoundCompleted
	case started:
		st.RoundStatus = models.RoundInProgress
	}
	inPlay := st.Phase == models.PhaseRoundRobin || st.Phase == models.PhaseBracket
	st.CanAdvance = inPlay && st.RoundStatus == models.RoundCompleted
	return st
}

func (r *run) startRegistration() error {
	if r.t.State.Phase != models.PhaseSetup {
		return notAllowed(StartRegistration, r.t.State.Phase)
	}
	r.t.State.Phase = models.PhaseRegistration
	return nil
}

// closeRegistration seeds the registered players and forms the teams.
func (r *run) closeRegistration() error {
	if r.t.State.Phase != models.PhaseRegistration {
		return notAllowed(CloseRegistration, r.t.State.Phase)
	}
	if r.t.State.RosterLocked {
		return ErrRosterLocked
	}

	players := make([]*models.Player, 0, len(r.t.PlayerIDs))
	for _, id := range r.t.PlayerIDs {
		p := r.players[id]
		if p == nil {
			return fmt.Errorf("%w: id %d", seeding.ErrPlayerNotFound, id)
		}
		players = append(players, p)
	}

	seeds := r.e.seeder.Rank(players, r.t.Format)
	ranks := make([]int, len(seeds))
	for i, s := range seeds {
		ranks[i] = s.Seed
	}
	if err := seeding.CheckPermutation(ranks); err != nil {
		return err
	}

	teams, err := seeding.FormTeams(r.t.ID, seeds, r.t.Format)
	if err != nil {
		return err
	}
	switch {
	case len(teams) < 2:
		return brackets.ErrNotEnoughEntrants
	case len(teams) > brackets.MaxBracketSize:
		return fmt.Errorf("%w (got %d teams)", brackets.ErrTooManyEntrants, len(teams))
	}

	r.t.Teams = teams
	r.t.State.RosterLocked = true
	return nil
}

func (r *run) startCheckIn() error {
	if r.t.State.Phase != models.PhaseRegistration {
		return notAllowed(StartCheckIn, r.t.State.Phase)
	}
	if !r.t.State.RosterLocked {
		return ErrRosterNotLocked
	}
	r.t.State.Phase = models.PhaseCheckIn
	return nil
}

func (r *run) startRoundRobin() error {
	if r.t.BracketType != models.RoundRobinPlayoff {
		return fmt.Errorf("%w: %s", ErrWrongBracketType, r.t.BracketType)
	}
	if r.t.State.Phase != models.PhaseCheckIn {
		return notAllowed(StartRoundRobin, r.t.State.Phase)
	}
	r.withdrawAbsent()

	seq, err := brackets.Sequence(models.RoundRobinPlayoff, 0)
	if err != nil {
		return err
	}
	slots, err := r.generate(r.e.roundRobin, brackets.GenerateBracketParams{
		Entrants:   r.roundRobinEntrants(),
		Round:      seq[0].Round,
		RoundIndex: seq[0].Index,
	})
	if err != nil {
		return err
	}
	return r.enter(seq[0].Round, slots)
}

func (r *run) startBracket() error {
	switch r.t.State.Phase {
	case models.PhaseCheckIn:
		if r.t.BracketType == models.RoundRobinPlayoff {
			return fmt.Errorf("%w: round_robin_playoff starts with %s", ErrWrongBracketType, StartRoundRobin)
		}
		r.withdrawAbsent()
		entrants := make([]brackets.Entrant, 0, len(r.t.Teams))
		for _, t := range r.activeTeams() {
			entrants = append(entrants, brackets.Entrant{TeamID: t.ID, Seed: t.Seed})
		}
		return r.startElimination(entrants)
	case models.PhaseRoundRobin:
		return r.bracketFromRoundRobin()
	}
	return notAllowed(StartBracket, r.t.State.Phase)
}

func (r *run) advanceRound() error {
	switch r.t.State.Phase {
	case models.PhaseRoundRobin, models.PhaseBracket:
		return r.advance()
	}
	return notAllowed(AdvanceRound, r.t.State.Phase)
}

// completeTournament is only valid once the deciding round has been played.
func (r *run) completeTournament() error {
	if r.t.State.Phase != models.PhaseBracket {
		return notAllowed(CompleteTournament, r.t.State.Phase)
	}
	cur := r.t.State.CurrentRound
	if err := r.requireComplete(cur); err != nil {
		return err
	}
	if _, terminal, err := r.nextElimination(cur); err != nil {
		return err
	} else if !terminal {
		return fmt.Errorf("%w: %s", ErrNotTerminalRound, cur)
	}
	adv, err := advancement.ResolveAdvancement(cur, r.input())
	if err != nil {
		return err
	}
	advancement.ApplyToTeams(r.t.Teams, adv)
	r.out.Resolved = append(r.out.Resolved, adv)
	return r.complete(cur)
}

// reset discards everything generated since setup. Registered players stay.
func (r *run) reset(confirmed bool) error {
	if !confirmed {
		return ErrResetNotConfirmed
	}
	r.matches = nil
	r.t.Teams = nil
	r.t.Byes = nil
	r.t.ChampionID = ""
	r.t.FinalistID = ""
	r.t.Placements = nil
	r.t.State = models.ManagementState{Phase: models.PhaseSetup}
	r.out.Reset = true
	return nil
}

func (r *run) setRound(target models.Round) error {
	switch r.t.State.Phase {
	case models.PhaseRoundRobin, models.PhaseBracket:
	default:
		return notAllowed(SetRound, r.t.State.Phase)
	}
	if target == "" {
		return ErrMissingTargetRound
	}
	if !brackets.Contains(r.t.BracketType, r.t.State.BracketSize, target) {
		return fmt.Errorf("%w: %s is not a %s round", brackets.ErrUnknownRound, target, r.t.BracketType)
	}
	if !r.generated(target) {
		return fmt.Errorf("%w: %s", ErrRoundNotGenerated, target)
	}
	r.t.State.CurrentRound = target
	r.t.State.Phase = phaseOf(target)
	return nil
}

func phaseOf(round models.Round) models.Phase {
	if round.IsRoundRobin() {
		return models.PhaseRoundRobin
	}
	return models.PhaseBracket
}
