package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Dosada05/tournament-engine/models"
)

// Results is the final record of a completed tournament.
type Results struct {
	TournamentID  int                         `json:"tournament_id"`
	Name          string                      `json:"name"`
	Format        string                      `json:"format"`
	BracketType   models.BracketType          `json:"bracket_type"`
	ChampionID    string                      `json:"champion_id"`
	FinalistID    string                      `json:"finalist_id"`
	Placements    []models.Placement          `json:"placements"`
	Teams         []models.Team               `json:"teams"`
	Standings     []models.TournamentStanding `json:"standings"`
	Matches       []*models.Match             `json:"matches"`
	CareerUpdates []models.CareerUpdate       `json:"career_updates"`
	CompletedAt   time.Time                   `json:"completed_at"`
}

func ResultsKey(tournamentID int) string {
	return fmt.Sprintf("tournaments/%d/results.json", tournamentID)
}

// ResultsArchiver writes completed tournament results as JSON objects.
type ResultsArchiver struct {
	uploader FileUploader
}

func NewResultsArchiver(uploader FileUploader) *ResultsArchiver {
	return &ResultsArchiver{uploader: uploader}
}

// Archive uploads the results and returns their public location, which may be empty.
func (a *ResultsArchiver) Archive(ctx context.Context, res Results) (string, error) {
	if a == nil || a.uploader == nil {
		return "", nil
	}
	body, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode results of tournament %d: %w", res.TournamentID, err)
	}
	out, err := a.uploader.Upload(ctx, ResultsKey(res.TournamentID), "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	return out.Location, nil
}

// Remove deletes archived results, used when a completed tournament is reset.
func (a *ResultsArchiver) Remove(ctx context.Context, tournamentID int) error {
	if a == nil || a.uploader == nil {
		return nil
	}
	return a.uploader.Delete(ctx, ResultsKey(tournamentID))
}
