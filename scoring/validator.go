// Package scoring validates match scores for first-to-11 pro sets with win-by-2 after 10-10.
package scoring

import (
	"fmt"
	"math"

	"github.com/Dosada05/tournament-engine/models"
)

const (
	GamePoint   = 11
	DeuceFloor  = 10
	DeuceMargin = 2
)

var (
	ErrNotWholeNumber = fmt.Errorf("%w: Scores must be whole numbers", models.ErrValidation)
	ErrNegativeScore  = fmt.Errorf("%w: Scores cannot be negative", models.ErrValidation)
)

const (
	reasonNegative = "Scores cannot be negative"
	reasonTied     = "Scores cannot be tied - one team must win"
)

type Result struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Completion is the answer to whether a match may be marked completed.
type Completion struct {
	Allowed          bool   `json:"allowed"`
	RequiresOverride bool   `json:"requires_override"`
	Reason           string `json:"reason,omitempty"`
}

// WholeScore converts a raw numeric score into an int.
func WholeScore(v float64) (int, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, ErrNotWholeNumber
	}
	if v < 0 {
		return 0, ErrNegativeScore
	}
	return int(v), nil
}

func Validate(score1, score2 int) Result {
	if score1 < 0 || score2 < 0 {
		return Result{Reason: reasonNegative}
	}
	if score1 == 0 && score2 == 0 {
		return Result{Valid: true}
	}
	if score1 == score2 {
		return Result{Reason: reasonTied}
	}

	hi, lo := max(score1, score2), min(score1, score2)
	if hi == GamePoint && lo <= GamePoint-2 {
		return Result{Valid: true}
	}
	if lo >= DeuceFloor && hi-lo == DeuceMargin {
		return Result{Valid: true}
	}

	return Result{Reason: fmt.Sprintf(
		"Invalid score: %d-%d. Valid scores: 11-0 through 11-9, or win-by-2 after 10-10 (e.g., 12-10, 13-11). Incomplete matches require admin override.",
		score1, score2)}
}

// CanComplete is the only gate between a score and the completed status.
// A nonstandard score needs an override that names both a reason and an authorizer.
func CanComplete(score1, score2 int, override *models.AdminOverride) Completion {
	res := Validate(score1, score2)
	if res.Valid {
		return Completion{Allowed: true}
	}
	return Completion{
		Allowed:          Authorized(override),
		RequiresOverride: true,
		Reason:           res.Reason,
	}
}

// Authorized reports whether an override names both a reason and an authorizer.
func Authorized(override *models.AdminOverride) bool {
	return override != nil && override.Reason != "" && override.AuthorizedBy != ""
}
