package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Dosada05/tournament-engine/middleware"
	"github.com/Dosada05/tournament-engine/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(ms services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: ms}
}

type updateMatchRequest struct {
	MatchID string `json:"matchId"`
	services.UpdateMatchInput
}

func (h *MatchHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	match, err := h.matchService.GetMatch(r.Context(), chi.URLParam(r, "matchID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateHandler handles PATCH /matches/{matchID}. A matchId in the body must agree with the path.
func (h *MatchHandler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")
	if matchID == "" {
		badRequestResponse(w, r, errors.New("missing matchID in URL path"))
		return
	}
	var req updateMatchRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if req.MatchID != "" && req.MatchID != matchID {
		badRequestResponse(w, r, errors.New("matchId in body does not match the URL"))
		return
	}

	res, err := h.matchService.UpdateMatch(r.Context(), matchID, req.UpdateMatchInput, middleware.Actor(r.Context()))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, res, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ConfirmHandler handles POST /tournaments/{tournamentID}/matches/confirm.
func (h *MatchHandler) ConfirmHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	confirmed, err := h.matchService.ConfirmMatches(r.Context(), id, middleware.Actor(r.Context()))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"confirmed": confirmed}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
