package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Dosada05/tournament-engine/handlers"
	"github.com/Dosada05/tournament-engine/middleware"
	"github.com/Dosada05/tournament-engine/models"
)

type Handlers struct {
	Auth        *handlers.AuthHandler
	Tournaments *handlers.TournamentHandler
	Matches     *handlers.MatchHandler
	Players     *handlers.PlayerHandler
	WebSocket   *handlers.WebSocketHandler
}

type Options struct {
	JWTSecret      []byte
	AllowedOrigins []string
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if opts.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	router.Get("/ws/tournaments/{tournamentID}", h.WebSocket.ServeWs)

	authenticate := middleware.Authenticate(opts.JWTSecret)

	router.Group(func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(30 * time.Second))

		r.Post("/auth/login", h.Auth.Login)
		r.With(authenticate, middleware.RequireRole(models.RoleAdmin)).Post("/auth/organizers", h.Auth.Register)

		r.Get("/seeding/preview", h.Players.PreviewHandler)

		r.Route("/players", func(r chi.Router) {
			r.Get("/", h.Players.ListHandler)
			r.With(authenticate).Post("/", h.Players.CreateHandler)
		})

		r.Route("/tournaments", func(r chi.Router) {
			r.Get("/", h.Tournaments.ListHandler)
			r.With(authenticate).Post("/", h.Tournaments.CreateHandler)

			r.Route("/{tournamentID}", func(r chi.Router) {
				r.Get("/", h.Tournaments.GetLiveHandler)
				r.Get("/standings", h.Tournaments.StandingsHandler)
				r.Get("/matches", h.Tournaments.ListMatchesHandler)

				r.Group(func(r chi.Router) {
					r.Use(authenticate)
					r.Post("/players", h.Tournaments.RegisterPlayersHandler)
					r.Post("/teams/{teamID}/check-in", h.Tournaments.CheckInHandler)
					r.Post("/seeding", h.Tournaments.SeedingHandler)
					r.Post("/actions", h.Tournaments.ActionHandler)
					r.Post("/matches/confirm", h.Matches.ConfirmHandler)
				})
			})
		})

		r.Route("/matches/{matchID}", func(r chi.Router) {
			r.Get("/", h.Matches.GetHandler)
			r.With(authenticate).Patch("/", h.Matches.UpdateHandler)
		})
	})
}
