package progression

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/Dosada05/tournament-engine/advancement"
	"github.com/Dosada05/tournament-engine/brackets"
	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/seeding"
)

// run carries one transition. t and matches are private copies.
type run struct {
	e       *Engine
	t       *models.Tournament
	matches []*models.Match
	players map[int]*models.Player
	out     Outcome
}

func (r *run) generate(g brackets.BracketGenerator, params brackets.GenerateBracketParams) ([]*brackets.BracketMatch, error) {
	slots, err := g.GenerateBracket(context.Background(), params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", g.GetName(), err)
	}
	return slots, nil
}

func (r *run) input() advancement.Input {
	return advancement.Input{
		BracketType: r.t.BracketType,
		Teams:       r.t.Teams,
		Matches:     r.matches,
		Byes:        r.t.Byes,
	}
}

func (r *run) sequence() ([]brackets.RoundSpec, error) {
	return brackets.Sequence(r.t.BracketType, r.t.State.BracketSize)
}

func (r *run) matchesIn(round models.Round) []*models.Match {
	var out []*models.Match
	for _, m := range r.matches {
		if m.Round == round {
			out = append(out, m)
		}
	}
	return out
}

func (r *run) generated(round models.Round) bool {
	if len(r.matchesIn(round)) > 0 {
		return true
	}
	for _, b := range r.t.Byes {
		if b.Round == round {
			return true
		}
	}
	return false
}

func (r *run) requireComplete(round models.Round) error {
	if round == "" || !r.generated(round) {
		return fmt.Errorf("%w: %q", ErrRoundNotGenerated, round)
	}
	ms := r.matchesIn(round)
	if advancement.IsRoundComplete(ms) {
		return nil
	}
	done := 0
	for _, m := range ms {
		if m.Status.Finished() {
			done++
		}
	}
	return fmt.Errorf("%w: %s has %d of %d matches finished", advancement.ErrRoundIncomplete, round, done, len(ms))
}

// withdrawAbsent eliminates teams that did not check in.
func (r *run) withdrawAbsent() {
	for i := range r.t.Teams {
		if !r.t.Teams[i].CheckedIn {
			r.t.Teams[i].Eliminated = true
		}
	}
}

func (r *run) activeTeams() []models.Team {
	var out []models.Team
	for _, t := range r.t.Teams {
		if !t.Eliminated {
			out = append(out, t)
		}
	}
	return out
}

func (r *run) roundRobinEntrants() []brackets.Entrant {
	var out []brackets.Entrant
	for _, t := range r.activeTeams() {
		out = append(out, brackets.Entrant{TeamID: t.ID, Seed: t.CombinedSeed})
	}
	return out
}

// startElimination seeds the entrants 1..N in their current order and generates the
// first elimination round.
func (r *run) startElimination(entrants []brackets.Entrant) error {
	n := len(entrants)
	if n < 2 {
		return brackets.ErrNotEnoughEntrants
	}
	if n > brackets.MaxBracketSize {
		return fmt.Errorf("%w (got %d)", brackets.ErrTooManyEntrants, n)
	}

	seeded := append([]brackets.Entrant(nil), entrants...)
	sort.SliceStable(seeded, func(i, j int) bool { return seeded[i].Seed < seeded[j].Seed })
	ranks := make([]int, n)
	for i := range seeded {
		seeded[i].Seed = i + 1
		ranks[i] = seeded[i].Seed
		if t := r.t.Team(seeded[i].TeamID); t != nil {
			t.Seed = seeded[i].Seed
		}
	}
	if err := seeding.CheckPermutation(ranks); err != nil {
		return err
	}

	size := brackets.BracketSize(n)
	seq, err := brackets.Sequence(r.t.BracketType, size)
	if err != nil {
		return err
	}
	var first brackets.RoundSpec
	for _, spec := range seq {
		if spec.Source == brackets.FromSeeds {
			first = spec
			break
		}
	}
	slots, err := r.generate(r.e.opening, brackets.GenerateBracketParams{Entrants: seeded, Round: first.Round})
	if err != nil {
		return err
	}
	r.t.State.BracketSize = size
	return r.enter(first.Round, slots)
}

// bracketFromRoundRobin seeds the playoff bracket from the round-robin ranking.
func (r *run) bracketFromRoundRobin() error {
	last := models.RoundRobinRounds[len(models.RoundRobinRounds)-1]
	if r.t.State.CurrentRound != last {
		return fmt.Errorf("%w: current round is %s", ErrRoundRobinOpen, r.t.State.CurrentRound)
	}
	if err := r.requireComplete(last); err != nil {
		return err
	}
	adv, err := advancement.ResolveAdvancement(last, r.input())
	if err != nil {
		return err
	}
	adv.Standings = advancement.RankRoundRobin(r.activeTeams(), r.matches)
	r.out.Resolved = append(r.out.Resolved, adv)
	return r.startElimination(advancement.BracketSeeds(adv.Standings))
}

// advance resolves the current round and moves to the next one.
func (r *run) advance() error {
	cur := r.t.State.CurrentRound
	if err := r.requireComplete(cur); err != nil {
		return err
	}

	if cur.IsRoundRobin() {
		seq, err := brackets.Sequence(models.RoundRobinPlayoff, 0)
		if err != nil {
			return err
		}
		next, ok, err := brackets.Next(seq, cur)
		if err != nil {
			return err
		}
		if !ok {
			return r.bracketFromRoundRobin()
		}
		adv, err := advancement.ResolveAdvancement(cur, r.input())
		if err != nil {
			return err
		}
		r.out.Resolved = append(r.out.Resolved, adv)
		slots, err := r.generate(r.e.roundRobin, brackets.GenerateBracketParams{
			Entrants:   r.roundRobinEntrants(),
			Round:      next.Round,
			RoundIndex: next.Index,
		})
		if err != nil {
			return err
		}
		return r.enter(next.Round, slots)
	}

	adv, err := advancement.ResolveAdvancement(cur, r.input())
	if err != nil {
		return err
	}
	advancement.ApplyToTeams(r.t.Teams, adv)
	r.out.Resolved = append(r.out.Resolved, adv)

	next, terminal, err := r.nextElimination(cur)
	if err != nil {
		return err
	}
	if terminal {
		return r.complete(cur)
	}
	slots, err := advancement.PlanRound(next, r.input())
	if err != nil {
		return err
	}
	return r.enter(next.Round, slots)
}

// nextElimination picks the round after cur. The grand final is followed by the reset
// match only when the losers-bracket survivor took the first game from an unbeaten team.
func (r *run) nextElimination(cur models.Round) (brackets.RoundSpec, bool, error) {
	seq, err := r.sequence()
	if err != nil {
		return brackets.RoundSpec{}, false, err
	}
	if cur == models.GrandFinal {
		reset, err := r.input().GrandFinalReset()
		if err != nil {
			return brackets.RoundSpec{}, false, err
		}
		if !reset {
			return brackets.RoundSpec{}, true, nil
		}
		spec, _, ok := brackets.Lookup(seq, models.GrandFinalReset)
		if !ok {
			return brackets.RoundSpec{}, false, fmt.Errorf("%w: no reset round in sequence", models.ErrInvariant)
		}
		return spec, false, nil
	}

	next, ok, err := brackets.Next(seq, cur)
	if err != nil {
		return brackets.RoundSpec{}, false, err
	}
	if !ok || next.Conditional {
		return brackets.RoundSpec{}, true, nil
	}
	return next, false, nil
}

// complete records the champion, finalist and placements. It is the only way into
// the completed phase.
func (r *run) complete(terminal models.Round) error {
	if r.t.ChampionID != "" {
		return fmt.Errorf("%w: champion already recorded for tournament %d", models.ErrInvariant, r.t.ID)
	}
	ms := r.matchesIn(terminal)
	if len(ms) != 1 {
		return fmt.Errorf("%w: %s has %d matches, want 1", models.ErrInvariant, terminal, len(ms))
	}
	champion, finalist, err := advancement.Champion(ms[0])
	if err != nil {
		return err
	}
	seq, err := r.sequence()
	if err != nil {
		return err
	}

	placements := advancement.Placements(seq, r.input(), champion, finalist)
	r.t.ChampionID = champion
	r.t.FinalistID = finalist
	r.t.Placements = placements
	r.t.State.Phase = models.PhaseCompleted
	r.out.CareerUpdates = advancement.CareerUpdates(r.t.Teams, placements, r.players, champion)
	return nil
}

// enter installs a round and points the tournament at it. A round where nobody has to
// play is resolved straight away.
func (r *run) enter(round models.Round, slots []*brackets.BracketMatch) error {
	if err := r.install(round, slots); err != nil {
		return err
	}
	r.t.State.CurrentRound = round
	r.t.State.Phase = phaseOf(round)
	if len(r.matchesIn(round)) == 0 {
		return r.advance()
	}
	return nil
}

// install creates matches and byes for a round. An existing round is left alone when
// the pairings are the same and is never overwritten when they differ.
func (r *run) install(round models.Round, slots []*brackets.BracketMatch) error {
	if r.generated(round) {
		if slices.Equal(r.existingPairings(round), proposedPairings(slots)) {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrRoundAlreadyCreated, round)
	}

	now := r.e.now()
	for _, bm := range slots {
		if bm.Playable() {
			m := &models.Match{
				ID:           r.e.newID(),
				TournamentID: r.t.ID,
				Round:        round,
				MatchNumber:  bm.MatchNumber,
				Slot:         bm.Slot,
				Team1:        models.MatchSide{TeamID: bm.Team1.TeamID},
				Team2:        models.MatchSide{TeamID: bm.Team2.TeamID},
				Status:       models.MatchScheduled,
				Version:      1,
				UpdatedAt:    now,
			}
			r.matches = append(r.matches, m)
			r.out.NewMatches = append(r.out.NewMatches, m)
			r.reach(bm.Team1.TeamID, round)
			r.reach(bm.Team2.TeamID, round)
			continue
		}
		bye := models.Bye{Round: round, Slot: bm.Slot}
		if e := bm.Advancing(); e != nil {
			bye.TeamID = e.TeamID
			r.reach(e.TeamID, round)
		}
		r.t.Byes = append(r.t.Byes, bye)
	}
	return nil
}

func (r *run) reach(teamID string, round models.Round) {
	if t := r.t.Team(teamID); t != nil {
		t.AdvancedTo = round
	}
}

func (r *run) existingPairings(round models.Round) []string {
	var out []pairing
	for _, m := range r.matchesIn(round) {
		out = append(out, pairing{m.Slot, m.Team1.TeamID, m.Team2.TeamID})
	}
	for _, b := range r.t.Byes {
		if b.Round == round {
			out = append(out, pairing{b.Slot, b.TeamID, ""})
		}
	}
	return keys(out)
}

func proposedPairings(slots []*brackets.BracketMatch) []string {
	out := make([]pairing, 0, len(slots))
	for _, bm := range slots {
		p := pairing{slot: bm.Slot}
		if bm.Team1 != nil {
			p.a = bm.Team1.TeamID
		}
		if bm.Team2 != nil {
			p.b = bm.Team2.TeamID
		}
		out = append(out, p)
	}
	return keys(out)
}

type pairing struct {
	slot int
	a, b string
}

func keys(ps []pairing) []string {
	sort.Slice(ps, func(i, j int) bool { return ps[i].slot < ps[j].slot })
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = fmt.Sprintf("%d:%s:%s", p.slot, p.a, p.b)
	}
	return out
}
