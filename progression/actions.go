// Package progression owns the tournament lifecycle. Every transition is computed by
// Apply from a snapshot and an action; nothing here touches storage.
package progression

import (
	"fmt"

	"github.com/Dosada05/tournament-engine/models"
)

type ActionName string

const (
	StartRegistration  ActionName = "start_registration"
	CloseRegistration  ActionName = "close_registration"
	StartCheckIn       ActionName = "start_checkin"
	StartRoundRobin    ActionName = "start_round_robin"
	StartBracket       ActionName = "start_bracket"
	AdvanceRound       ActionName = "advance_round"
	CompleteTournament ActionName = "complete_tournament"
	ResetTournament    ActionName = "reset_tournament"
	SetRound           ActionName = "set_round"
)

func (a ActionName) Valid() bool {
	switch a {
	case StartRegistration, CloseRegistration, StartCheckIn, StartRoundRobin, StartBracket,
		AdvanceRound, CompleteTournament, ResetTournament, SetRound:
		return true
	}
	return false
}

// Action is a requested transition. Actor is recorded for audit only.
type Action struct {
	Name         ActionName   `json:"action"`
	TargetRound  models.Round `json:"target_round,omitempty"`
	ConfirmReset bool         `json:"confirm_reset,omitempty"`
	Actor        string       `json:"-"`
}

var (
	ErrUnknownAction       = fmt.Errorf("%w: unknown action", models.ErrValidation)
	ErrResetNotConfirmed   = fmt.Errorf("%w: reset_tournament requires confirmReset=true", models.ErrValidation)
	ErrMissingTargetRound  = fmt.Errorf("%w: set_round requires targetRound", models.ErrValidation)
	ErrActionNotAllowed    = fmt.Errorf("%w: action not allowed in current phase", models.ErrRuleViolation)
	ErrWrongBracketType    = fmt.Errorf("%w: action not available for this bracket type", models.ErrRuleViolation)
	ErrRosterNotLocked     = fmt.Errorf("%w: registration must be closed first", models.ErrRuleViolation)
	ErrRosterLocked        = fmt.Errorf("%w: roster is already locked", models.ErrRuleViolation)
	ErrRoundNotGenerated   = fmt.Errorf("%w: round has not been generated", models.ErrRuleViolation)
	ErrRoundAlreadyCreated = fmt.Errorf("%w: round already generated with different pairings", models.ErrRuleViolation)
	ErrNotTerminalRound    = fmt.Errorf("%w: current round does not decide the tournament", models.ErrRuleViolation)
	ErrRoundRobinOpen      = fmt.Errorf("%w: round robin has rounds left to play", models.ErrRuleViolation)
)

func notAllowed(a ActionName, p models.Phase) error {
	return fmt.Errorf("%w: %s during %s", ErrActionNotAllowed, a, p)
}
