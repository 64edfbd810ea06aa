package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Dosada05/tournament-engine/notify"
	"github.com/Dosada05/tournament-engine/services"
)

type WebSocketHandler struct {
	hub               *notify.Hub
	tournamentService services.TournamentService
	upgrader          websocket.Upgrader
	logger            *slog.Logger
}

// NewWebSocketHandler accepts upgrades from the given origins; an empty list or "*" allows any.
func NewWebSocketHandler(hub *notify.Hub, ts services.TournamentService, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketHandler{
		hub:               hub,
		tournamentService: ts,
		logger:            logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || len(set) == 0 || set[origin]
	}
}

// ServeWs handles GET /ws/tournaments/{tournamentID}. The client first receives the
// current state, then every event of the tournament.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	view, err := h.tournamentService.GetLive(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.WarnContext(r.Context(), "websocket upgrade failed", slog.Int("tournament_id", id), slog.Any("error", err))
		return
	}

	client := notify.NewClient(h.hub, conn, notify.Room(id))
	h.hub.Register(client)

	snapshot := notify.NewEvent(notify.StateChanged, id, view.Tournament.State)
	snapshot.Matches = view.Matches
	snapshot.ChampionID = view.Tournament.ChampionID
	if err := client.SendEvent(snapshot); err != nil {
		h.logger.WarnContext(r.Context(), "failed to queue websocket snapshot", slog.Int("tournament_id", id), slog.Any("error", err))
	}

	go client.WritePump()
	go client.ReadPump()

	h.logger.InfoContext(r.Context(), "websocket client connected", slog.Int("tournament_id", id))
}
