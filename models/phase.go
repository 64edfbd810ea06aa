package models

// Phase is the lifecycle phase of a tournament.
type Phase string

const (
	PhaseSetup        Phase = "setup"
	PhaseRegistration Phase = "registration"
	PhaseCheckIn      Phase = "check_in"
	PhaseRoundRobin   Phase = "round_robin"
	PhaseBracket      Phase = "bracket"
	PhaseCompleted    Phase = "completed"
)

// BracketType is fixed at setup and selects the round sequence and pairing rules.
type BracketType string

const (
	SingleElimination BracketType = "single_elimination"
	DoubleElimination BracketType = "double_elimination"
	RoundRobinPlayoff BracketType = "round_robin_playoff"
)

func (b BracketType) Valid() bool {
	switch b {
	case SingleElimination, DoubleElimination, RoundRobinPlayoff:
		return true
	}
	return false
}

type RoundStatus string

const (
	RoundNotStarted RoundStatus = "not_started"
	RoundInProgress RoundStatus = "in_progress"
	RoundCompleted  RoundStatus = "completed"
)
