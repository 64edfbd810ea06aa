// Package notify delivers tournament state changes to live subscribers.
// Delivery is best effort: a slow or missing subscriber never holds up a transition.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Dosada05/tournament-engine/advancement"
	"github.com/Dosada05/tournament-engine/models"
)

type EventType string

const (
	StateChanged EventType = "state_changed"
	MatchUpdated EventType = "match_updated"
)

type Event struct {
	ID            string                    `json:"id"`
	Type          EventType                 `json:"type"`
	TournamentID  int                       `json:"tournament_id"`
	Action        string                    `json:"action,omitempty"`
	Actor         string                    `json:"actor,omitempty"`
	State         models.ManagementState    `json:"state"`
	Matches       []*models.Match           `json:"matches,omitempty"`
	Reset         bool                      `json:"reset,omitempty"`
	Advancement   []advancement.Advancement `json:"advancement,omitempty"`
	ChampionID    string                    `json:"champion_id,omitempty"`
	CareerUpdates []models.CareerUpdate     `json:"career_updates,omitempty"`
	OccurredAt    time.Time                 `json:"occurred_at"`
}

// NewEvent stamps an id and time on an event of the given type.
func NewEvent(typ EventType, tournamentID int, state models.ManagementState) Event {
	return Event{
		ID:           uuid.NewString(),
		Type:         typ,
		TournamentID: tournamentID,
		State:        state,
		OccurredAt:   time.Now().UTC(),
	}
}

type Notifier interface {
	Publish(ctx context.Context, tournamentID int, ev Event) error
}

// Multi publishes to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Publish(ctx context.Context, tournamentID int, ev Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Publish(ctx, tournamentID, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Nop struct{}

func (Nop) Publish(context.Context, int, Event) error { return nil }

// Recorder is the subset of metrics the notifiers report to.
type Recorder interface {
	RecordEventDropped(notifier string)
	RecordEventPublished(notifier string)
}

type nopRecorder struct{}

func (nopRecorder) RecordEventDropped(string)   {}
func (nopRecorder) RecordEventPublished(string) {}
