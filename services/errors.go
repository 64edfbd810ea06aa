package services

import (
	"fmt"

	"github.com/Dosada05/tournament-engine/models"
)

var (
	ErrTournamentNameRequired = fmt.Errorf("%w: tournament name is required", models.ErrValidation)
	ErrInvalidBracketType     = fmt.Errorf("%w: bracket type must be single_elimination, double_elimination or round_robin_playoff", models.ErrValidation)
	ErrInvalidCapacity        = fmt.Errorf("%w: max players must be between 2 and %d", models.ErrValidation, MaxPlayersLimit)
	ErrNoPlayersGiven         = fmt.Errorf("%w: at least one player id is required", models.ErrValidation)
	ErrPlayerNameRequired     = fmt.Errorf("%w: player name is required", models.ErrValidation)
	ErrInvalidPlayerStats     = fmt.Errorf("%w: player statistics are out of range", models.ErrValidation)

	ErrRegistrationNotOpen = fmt.Errorf("%w: tournament is not accepting registrations", models.ErrRuleViolation)
	ErrTournamentFull      = fmt.Errorf("%w: tournament registration is full", models.ErrRuleViolation)
	ErrAlreadyRegistered   = fmt.Errorf("%w: player is already registered", models.ErrRuleViolation)
	ErrNotCheckingIn       = fmt.Errorf("%w: check-in is not open", models.ErrRuleViolation)
	ErrTeamNotFound        = fmt.Errorf("%w: team", models.ErrNotFound)

	ErrInvalidStatus           = fmt.Errorf("%w: unknown match status", models.ErrValidation)
	ErrInvalidStatusTransition = fmt.Errorf("%w: match status transition is not allowed", models.ErrRuleViolation)
	ErrMatchConfirmed          = fmt.Errorf("%w: confirmed matches cannot be changed", models.ErrRuleViolation)
	ErrOverrideRequired        = fmt.Errorf("%w: admin override required", models.ErrRuleViolation)
	ErrWinnerRequired          = fmt.Errorf("%w: a tied or 0-0 match needs winnerTeamId", models.ErrValidation)
	ErrWinnerNotInMatch        = fmt.Errorf("%w: winnerTeamId does not play in this match", models.ErrValidation)
	ErrPlayerNotOnTeam         = fmt.Errorf("%w: player score given for a player not on the team", models.ErrValidation)
	ErrPlayerScoreMismatch     = fmt.Errorf("%w: team score differs from the sum of player scores; set scoreOverride to keep it", models.ErrValidation)
	ErrNotInPlay               = fmt.Errorf("%w: tournament has no round in play", models.ErrRuleViolation)

	ErrPasswordTooShort   = fmt.Errorf("%w: password must be at least %d characters", models.ErrValidation, minPasswordLength)
	ErrEmailRequired      = fmt.Errorf("%w: email is required", models.ErrValidation)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", models.ErrValidation)
)
