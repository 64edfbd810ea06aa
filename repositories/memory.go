package repositories

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Dosada05/tournament-engine/models"
)

// MemoryStore keeps everything in process. It honours the same version and round
// checks as the Postgres repositories and is used for tests and STORE_DRIVER=memory.
type MemoryStore struct {
	mu          sync.RWMutex
	tournaments map[int]*models.Tournament
	matches     map[string]*models.Match
	matchOrder  []string
	players     map[int]*models.Player
	organizers  map[string]*models.Organizer
	nextID      map[string]int
	now         func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tournaments: make(map[int]*models.Tournament),
		matches:     make(map[string]*models.Match),
		players:     make(map[int]*models.Player),
		organizers:  make(map[string]*models.Organizer),
		nextID:      make(map[string]int),
		now:         time.Now,
	}
}

func (s *MemoryStore) Tournaments() TournamentRepository { return memoryTournaments{s} }
func (s *MemoryStore) Matches() MatchRepository          { return memoryMatches{s} }
func (s *MemoryStore) Players() PlayerRepository         { return memoryPlayers{s} }
func (s *MemoryStore) Organizers() OrganizerRepository   { return memoryOrganizers{s} }

func (s *MemoryStore) id(kind string) int {
	s.nextID[kind]++
	return s.nextID[kind]
}

type memoryTournaments struct{ s *MemoryStore }

func (r memoryTournaments) Create(ctx context.Context, t *models.Tournament) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.tournaments {
		if existing.Name == t.Name {
			return ErrTournamentNameConflict
		}
	}
	t.ID = r.s.id("tournament")
	t.Version = 1
	t.CreatedAt = r.s.now()
	t.UpdatedAt = t.CreatedAt
	r.s.tournaments[t.ID] = t.Clone()
	return nil
}

func (r memoryTournaments) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.tournaments[id]
	if !ok {
		return nil, ErrTournamentNotFound
	}
	return t.Clone(), nil
}

func (r memoryTournaments) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.Tournament, 0, len(r.s.tournaments))
	for _, t := range r.s.tournaments {
		if filter.Phase != nil && t.State.Phase != *filter.Phase {
			continue
		}
		out = append(out, *t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []models.Tournament{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r memoryTournaments) SaveProgress(ctx context.Context, p Progress) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t := p.Tournament
	stored, ok := r.s.tournaments[t.ID]
	if !ok {
		return ErrTournamentNotFound
	}
	if stored.Version != t.Version {
		return fmt.Errorf("%w: have version %d, stored %d", ErrVersionConflict, t.Version, stored.Version)
	}
	if p.Guard != nil {
		if err := r.s.checkGuard(t.ID, p.Guard); err != nil {
			return err
		}
	}
	if err := r.s.checkNewMatches(t.ID, p.NewMatches, p.ResetMatches); err != nil {
		return err
	}

	if p.ResetMatches {
		kept := r.s.matchOrder[:0]
		for _, id := range r.s.matchOrder {
			if r.s.matches[id].TournamentID == t.ID {
				delete(r.s.matches, id)
				continue
			}
			kept = append(kept, id)
		}
		r.s.matchOrder = kept
	}
	for _, m := range p.NewMatches {
		r.s.matches[m.ID] = m.Clone()
		r.s.matchOrder = append(r.s.matchOrder, m.ID)
	}

	t.Version++
	t.UpdatedAt = r.s.now()
	r.s.tournaments[t.ID] = t.Clone()
	return nil
}

// checkNewMatches mirrors the unique keys of the matches table: id, and match number
// within a tournament round.
func (s *MemoryStore) checkNewMatches(tournamentID int, matches []*models.Match, reset bool) error {
	type slot struct {
		round  models.Round
		number int
	}
	ids := make(map[string]bool)
	taken := make(map[slot]bool)
	if !reset {
		for _, m := range s.matches {
			ids[m.ID] = true
			if m.TournamentID == tournamentID {
				taken[slot{m.Round, m.MatchNumber}] = true
			}
		}
	}
	for _, m := range matches {
		if ids[m.ID] {
			return fmt.Errorf("%w: duplicate match id %s", ErrMatchNumberConflict, m.ID)
		}
		k := slot{m.Round, m.MatchNumber}
		if taken[k] {
			return fmt.Errorf("%w: %s #%d", ErrMatchNumberConflict, m.Round, m.MatchNumber)
		}
		ids[m.ID] = true
		taken[k] = true
	}
	return nil
}

func (s *MemoryStore) checkGuard(tournamentID int, g *RoundGuard) error {
	seen := 0
	for _, m := range s.matches {
		if m.TournamentID != tournamentID || m.Round != g.Round {
			continue
		}
		want, ok := g.Versions[m.ID]
		if !ok || want != m.Version || !m.Status.Finished() {
			return fmt.Errorf("%w: match %s in %s", ErrRoundChanged, m.ID, g.Round)
		}
		seen++
	}
	if seen != len(g.Versions) {
		return fmt.Errorf("%w: %s has %d matches, expected %d", ErrRoundChanged, g.Round, seen, len(g.Versions))
	}
	return nil
}

type memoryMatches struct{ s *MemoryStore }

func (r memoryMatches) GetByID(ctx context.Context, id string) (*models.Match, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.matches[id]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return m.Clone(), nil
}

func (r memoryMatches) ListByTournament(ctx context.Context, tournamentID int, round *models.Round) ([]*models.Match, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*models.Match, 0)
	for _, id := range r.s.matchOrder {
		m := r.s.matches[id]
		if m.TournamentID != tournamentID || (round != nil && m.Round != *round) {
			continue
		}
		out = append(out, m.Clone())
	}
	return out, nil
}

func (r memoryMatches) SaveMatchResult(ctx context.Context, m *models.Match) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[m.TournamentID]
	if !ok {
		return ErrTournamentNotFound
	}
	if !inPlay(t.State.Phase) || t.State.CurrentRound != m.Round {
		return fmt.Errorf("%w: %s (current %s, phase %s)", ErrRoundNotCurrent, m.Round, t.State.CurrentRound, t.State.Phase)
	}
	stored, ok := r.s.matches[m.ID]
	if !ok {
		return ErrMatchNotFound
	}
	if stored.Version != m.Version {
		return fmt.Errorf("%w: %s", ErrMatchVersionConflict, m.ID)
	}
	m.Version++
	m.UpdatedAt = r.s.now()
	r.s.matches[m.ID] = m.Clone()
	return nil
}

type memoryPlayers struct{ s *MemoryStore }

func (r memoryPlayers) Create(ctx context.Context, p *models.Player) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p.ID = r.s.id("player")
	p.CreatedAt = r.s.now()
	cp := *p
	r.s.players[p.ID] = &cp
	return nil
}

func (r memoryPlayers) GetByIDs(ctx context.Context, ids []int) (map[int]*models.Player, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[int]*models.Player, len(ids))
	for _, id := range ids {
		if p, ok := r.s.players[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

func (r memoryPlayers) List(ctx context.Context, limit, offset int) ([]*models.Player, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*models.Player, 0, len(r.s.players))
	for _, p := range r.s.players {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset > 0 {
		if offset >= len(out) {
			return []*models.Player{}, nil
		}
		out = out[offset:]
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

type memoryOrganizers struct{ s *MemoryStore }

func (r memoryOrganizers) Create(ctx context.Context, o *models.Organizer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := strings.ToLower(o.Email)
	if _, ok := r.s.organizers[key]; ok {
		return ErrOrganizerEmailConflict
	}
	o.ID = r.s.id("organizer")
	o.CreatedAt = r.s.now()
	cp := *o
	r.s.organizers[key] = &cp
	return nil
}

func (r memoryOrganizers) GetByEmail(ctx context.Context, email string) (*models.Organizer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.organizers[strings.ToLower(email)]
	if !ok {
		return nil, ErrOrganizerNotFound
	}
	cp := *o
	return &cp, nil
}
