package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/Dosada05/tournament-engine/metrics"
	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/notify"
	"github.com/Dosada05/tournament-engine/progression"
	"github.com/Dosada05/tournament-engine/repositories"
	"github.com/Dosada05/tournament-engine/scoring"
)

type AdminOverrideInput struct {
	Reason       string `json:"reason"`
	AuthorizedBy string `json:"authorizedBy"`
}

// UpdateMatchInput is a partial update. Nil fields keep their stored value.
// Scores arrive as raw numbers so fractional input can be rejected.
type UpdateMatchInput struct {
	Team1Score        *float64             `json:"team1Score"`
	Team2Score        *float64             `json:"team2Score"`
	Team1PlayerScores []models.PlayerScore `json:"team1PlayerScores"`
	Team2PlayerScores []models.PlayerScore `json:"team2PlayerScores"`
	ScoreOverride     *bool                `json:"scoreOverride"`
	WinnerTeamID      *string              `json:"winnerTeamId"`
	Status            models.MatchStatus   `json:"status"`
	AdminOverride     *AdminOverrideInput  `json:"adminOverride"`
}

type MatchUpdateResult struct {
	Match *models.Match          `json:"match"`
	State models.ManagementState `json:"state"`
}

type MatchService interface {
	GetMatch(ctx context.Context, matchID string) (*models.Match, error)
	UpdateMatch(ctx context.Context, matchID string, input UpdateMatchInput, actor string) (*MatchUpdateResult, error)
	ConfirmMatches(ctx context.Context, tournamentID int, actor string) ([]*models.Match, error)
}

type MatchServiceDeps struct {
	Tournaments repositories.TournamentRepository
	Matches     repositories.MatchRepository
	Notifier    notify.Notifier
	Metrics     *metrics.Recorder
	Logger      *slog.Logger
	RepoTimeout time.Duration
	Now         func() time.Time
}

type matchService struct {
	tournaments repositories.TournamentRepository
	matches     repositories.MatchRepository
	notifier    notify.Notifier
	metrics     *metrics.Recorder
	logger      *slog.Logger
	timeout     time.Duration
	now         func() time.Time
}

func NewMatchService(deps MatchServiceDeps) MatchService {
	s := &matchService{
		tournaments: deps.Tournaments,
		matches:     deps.Matches,
		notifier:    deps.Notifier,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		timeout:     deps.RepoTimeout,
		now:         deps.Now,
	}
	if s.notifier == nil {
		s.notifier = notify.Nop{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *matchService) GetMatch(ctx context.Context, matchID string) (*models.Match, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	return s.matches.GetByID(ctx, matchID)
}

// playable loads the match and its tournament and checks the match belongs to the round in play.
func (s *matchService) playable(ctx context.Context, matchID string) (*models.Match, *models.Tournament, error) {
	m, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		return nil, nil, err
	}
	t, err := s.tournaments.GetByID(ctx, m.TournamentID)
	if err != nil {
		return nil, nil, err
	}
	if err := requireInPlay(t, m.Round); err != nil {
		return nil, nil, err
	}
	return m, t, nil
}

func requireInPlay(t *models.Tournament, round models.Round) error {
	switch t.State.Phase {
	case models.PhaseRoundRobin, models.PhaseBracket:
	default:
		return fmt.Errorf("%w: tournament %d is in %s", ErrNotInPlay, t.ID, t.State.Phase)
	}
	if round != t.State.CurrentRound {
		return fmt.Errorf("%w: %s is not the current round (%s)", ErrNotInPlay, round, t.State.CurrentRound)
	}
	return nil
}

func (s *matchService) UpdateMatch(ctx context.Context, matchID string, input UpdateMatchInput, actor string) (*MatchUpdateResult, error) {
	var (
		saved *models.Match
		t     *models.Tournament
	)
	err := retryOnConflict(s.metrics, "save_match", func() error {
		ctx, cancel := withTimeout(ctx, s.timeout)
		defer cancel()

		m, tour, err := s.playable(ctx, matchID)
		if err != nil {
			return err
		}
		next, err := applyUpdate(m, tour, input, s.now())
		if err != nil {
			return err
		}
		if err := s.matches.SaveMatchResult(ctx, next); err != nil {
			return err
		}
		saved, t = next, tour
		return nil
	})
	if err != nil {
		return nil, err
	}

	overridden := saved.Status.Finished() && saved.AdminOverride != nil &&
		!scoring.Validate(saved.Team1.Score, saved.Team2.Score).Valid
	s.metrics.RecordMatchUpdate(string(saved.Status), overridden)
	if overridden {
		s.logger.WarnContext(ctx, "match completed under admin override",
			slog.String("match_id", saved.ID),
			slog.Int("tournament_id", saved.TournamentID),
			slog.String("score", fmt.Sprintf("%d-%d", saved.Team1.Score, saved.Team2.Score)),
			slog.String("reason", saved.AdminOverride.Reason),
			slog.String("authorized_by", saved.AdminOverride.AuthorizedBy),
			slog.String("actor", actor))
	} else {
		s.logger.InfoContext(ctx, "match updated",
			slog.String("match_id", saved.ID),
			slog.String("status", string(saved.Status)),
			slog.String("actor", actor))
	}

	state := s.roundState(ctx, t)
	ev := notify.NewEvent(notify.MatchUpdated, saved.TournamentID, state)
	ev.Actor = actor
	ev.Matches = []*models.Match{saved}
	s.publish(ctx, ev)

	return &MatchUpdateResult{Match: saved, State: state}, nil
}

// ConfirmMatches marks every completed match of the current round as confirmed.
func (s *matchService) ConfirmMatches(ctx context.Context, tournamentID int, actor string) ([]*models.Match, error) {
	lctx, cancel := withTimeout(ctx, s.timeout)
	t, err := s.tournaments.GetByID(lctx, tournamentID)
	if err != nil {
		cancel()
		return nil, err
	}
	round := t.State.CurrentRound
	if err := requireInPlay(t, round); err != nil {
		cancel()
		return nil, err
	}
	current, err := s.matches.ListByTournament(lctx, tournamentID, &round)
	cancel()
	if err != nil {
		return nil, err
	}

	confirmed := make([]*models.Match, 0, len(current))
	var saveErr error
	for _, m := range current {
		if m.Status != models.MatchCompleted {
			continue
		}
		id := m.ID
		err := retryOnConflict(s.metrics, "save_match", func() error {
			ctx, cancel := withTimeout(ctx, s.timeout)
			defer cancel()
			fresh, _, err := s.playable(ctx, id)
			if err != nil {
				return err
			}
			if fresh.Status != models.MatchCompleted {
				return nil
			}
			next := fresh.Clone()
			next.Status = models.MatchConfirmed
			next.UpdatedAt = s.now()
			if err := s.matches.SaveMatchResult(ctx, next); err != nil {
				return err
			}
			confirmed = append(confirmed, next)
			return nil
		})
		if err != nil {
			saveErr = err
			break
		}
	}
	for _, m := range confirmed {
		s.metrics.RecordMatchUpdate(string(m.Status), false)
	}

	if len(confirmed) > 0 {
		ev := notify.NewEvent(notify.MatchUpdated, tournamentID, s.roundState(ctx, t))
		ev.Actor = actor
		ev.Matches = confirmed
		s.publish(ctx, ev)
	}
	if saveErr != nil {
		s.logger.WarnContext(ctx, "confirmation stopped early",
			slog.Int("tournament_id", tournamentID),
			slog.String("round", string(round)),
			slog.Int("count", len(confirmed)),
			slog.Any("error", saveErr))
		return confirmed, saveErr
	}
	s.logger.InfoContext(ctx, "matches confirmed",
		slog.Int("tournament_id", tournamentID),
		slog.String("round", string(round)),
		slog.Int("count", len(confirmed)))
	return confirmed, nil
}

// roundState recomputes the round counters after a score change.
func (s *matchService) roundState(ctx context.Context, t *models.Tournament) models.ManagementState {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	round := t.State.CurrentRound
	matches, err := s.matches.ListByTournament(ctx, t.ID, &round)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to reload round for state", slog.Int("tournament_id", t.ID), slog.Any("error", err))
		return t.State
	}
	return progression.Derive(t, matches)
}

func (s *matchService) publish(ctx context.Context, ev notify.Event) {
	if err := s.notifier.Publish(ctx, ev.TournamentID, ev); err != nil {
		s.logger.WarnContext(ctx, "match update not delivered to every subscriber",
			slog.Int("tournament_id", ev.TournamentID),
			slog.Any("error", err))
	}
}

var statusTransitions = map[models.MatchStatus][]models.MatchStatus{
	models.MatchScheduled:  {models.MatchScheduled, models.MatchInProgress, models.MatchCompleted, models.MatchPostponed, models.MatchCancelled},
	models.MatchInProgress: {models.MatchInProgress, models.MatchCompleted, models.MatchPostponed, models.MatchCancelled},
	models.MatchPostponed:  {models.MatchPostponed, models.MatchScheduled, models.MatchInProgress, models.MatchCancelled},
	models.MatchCompleted:  {models.MatchCompleted, models.MatchInProgress, models.MatchConfirmed},
	models.MatchCancelled:  {models.MatchCancelled, models.MatchScheduled},
}

func canTransition(from, to models.MatchStatus) bool {
	for _, s := range statusTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// applyUpdate returns the match as it would be after the update. m is not modified.
func applyUpdate(m *models.Match, t *models.Tournament, in UpdateMatchInput, now time.Time) (*models.Match, error) {
	if m.Status == models.MatchConfirmed {
		return nil, ErrMatchConfirmed
	}
	status := in.Status
	if status == "" {
		status = m.Status
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if !canTransition(m.Status, status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, m.Status, status)
	}

	next := m.Clone()
	if in.ScoreOverride != nil {
		next.ScoreOverride = *in.ScoreOverride
	}
	if err := applySide(&next.Team1, t.Team(m.Team1.TeamID), in.Team1Score, in.Team1PlayerScores, next.ScoreOverride); err != nil {
		return nil, err
	}
	if err := applySide(&next.Team2, t.Team(m.Team2.TeamID), in.Team2Score, in.Team2PlayerScores, next.ScoreOverride); err != nil {
		return nil, err
	}

	supplied := in.AdminOverride != nil
	if supplied {
		next.AdminOverride = &models.AdminOverride{
			Reason:       strings.TrimSpace(in.AdminOverride.Reason),
			AuthorizedBy: strings.TrimSpace(in.AdminOverride.AuthorizedBy),
			Timestamp:    now,
		}
	}
	if in.WinnerTeamID != nil {
		w := strings.TrimSpace(*in.WinnerTeamID)
		if w != "" && !next.Involves(w) {
			return nil, fmt.Errorf("%w: %s", ErrWinnerNotInMatch, w)
		}
		next.WinnerID = w
	}

	next.Status = status
	next.UpdatedAt = now
	if !status.Finished() {
		next.WinnerID = ""
		if !supplied {
			next.AdminOverride = nil
		}
		return next, nil
	}
	// A stored override only covers the decision it was given for.
	if !supplied && decisionChanged(m, next) {
		next.AdminOverride = nil
	}

	c := scoring.CanComplete(next.Team1.Score, next.Team2.Score, next.AdminOverride)
	if !c.Allowed {
		return nil, fmt.Errorf("%w: %s", ErrOverrideRequired, c.Reason)
	}
	byScore := ""
	switch {
	case next.Team1.Score > next.Team2.Score:
		byScore = next.Team1.TeamID
	case next.Team2.Score > next.Team1.Score:
		byScore = next.Team2.TeamID
	}
	if next.WinnerID == "" && byScore == "" {
		return nil, ErrWinnerRequired
	}
	if next.WinnerID != "" && byScore != "" && next.WinnerID != byScore {
		if !scoring.Authorized(next.AdminOverride) {
			return nil, fmt.Errorf("%w: winnerTeamId contradicts the score", ErrOverrideRequired)
		}
	}
	return next, nil
}

func decisionChanged(before, after *models.Match) bool {
	return !before.Status.Finished() ||
		before.Team1.Score != after.Team1.Score ||
		before.Team2.Score != after.Team2.Score ||
		before.WinnerID != after.WinnerID
}

// applySide sets one side's player and team scores. Without a team score the sum of the
// player scores is used.
func applySide(side *models.MatchSide, team *models.Team, score *float64, players []models.PlayerScore, override bool) error {
	if players != nil {
		for _, ps := range players {
			if ps.Points < 0 {
				return scoring.ErrNegativeScore
			}
			if team != nil && !slices.Contains(team.PlayerIDs, ps.PlayerID) {
				return fmt.Errorf("%w: player %d, team %s", ErrPlayerNotOnTeam, ps.PlayerID, team.ID)
			}
		}
		side.PlayerScores = append([]models.PlayerScore(nil), players...)
	}
	if score != nil {
		v, err := scoring.WholeScore(*score)
		if err != nil {
			return err
		}
		side.Score = v
	} else if players != nil {
		side.Score = sumPoints(side.PlayerScores)
	}

	if len(side.PlayerScores) > 0 && !override && sumPoints(side.PlayerScores) != side.Score {
		return fmt.Errorf("%w (team %s: %d, players: %d)", ErrPlayerScoreMismatch, side.TeamID, side.Score, sumPoints(side.PlayerScores))
	}
	return nil
}

func sumPoints(ps []models.PlayerScore) int {
	total := 0
	for _, p := range ps {
		total += p.Points
	}
	return total
}
