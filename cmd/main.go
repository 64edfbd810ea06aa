package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/Dosada05/tournament-engine/config"
	"github.com/Dosada05/tournament-engine/db"
	"github.com/Dosada05/tournament-engine/handlers"
	"github.com/Dosada05/tournament-engine/metrics"
	"github.com/Dosada05/tournament-engine/notify"
	"github.com/Dosada05/tournament-engine/repositories"
	api "github.com/Dosada05/tournament-engine/routes"
	"github.com/Dosada05/tournament-engine/seeding"
	"github.com/Dosada05/tournament-engine/services"
	"github.com/Dosada05/tournament-engine/storage"
)

const shutdownTimeout = 15 * time.Second

type stores struct {
	tournaments repositories.TournamentRepository
	matches     repositories.MatchRepository
	players     repositories.PlayerRepository
	organizers  repositories.OrganizerRepository
	close       func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.String("store", cfg.StoreDriver))

	if err := run(cfg, logger); err != nil {
		logger.Error("application stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("application exited")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	recorder := metrics.NewRecorder()

	hub := notify.NewHub(logger, recorder)
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)
	logger.Info("websocket hub started")

	notifiers := notify.Multi{hub}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, cfg.RepositoryTimeout)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
		}

		publisher := notify.NewRedisStreamPublisher(rdb, notify.RedisStreamOptions{MaxLen: cfg.RedisStreamMaxLen}, logger, recorder)
		go publisher.Run()
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := publisher.Close(closeCtx); err != nil {
				logger.Error("redis publisher did not drain", slog.Any("error", err))
			}
		}()
		notifiers = append(notifiers, publisher)
		logger.Info("redis stream publisher started", slog.String("addr", cfg.RedisAddr))
	}

	var archiver *storage.ResultsArchiver
	r2cfg := storage.CloudflareR2UploaderConfig{
		AccountID:       cfg.Archive.AccountID,
		AccessKeyID:     cfg.Archive.AccessKeyID,
		SecretAccessKey: cfg.Archive.SecretAccessKey,
		BucketName:      cfg.Archive.BucketName,
		PublicBaseURL:   cfg.Archive.PublicBaseURL,
	}
	if r2cfg.Enabled() {
		uploader, err := storage.NewCloudflareR2Uploader(ctx, r2cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize results archive: %w", err)
		}
		archiver = storage.NewResultsArchiver(uploader)
		logger.Info("results archive enabled", slog.String("bucket", cfg.Archive.BucketName))
	}

	seeder := seeding.NewCalculator(st.players)
	tournamentService := services.NewTournamentService(services.TournamentServiceDeps{
		Tournaments: st.tournaments,
		Matches:     st.matches,
		Players:     st.players,
		Seeder:      seeder,
		Notifier:    notifiers,
		Archiver:    archiver,
		Metrics:     recorder,
		Logger:      logger,
		RepoTimeout: cfg.RepositoryTimeout,
	})
	matchService := services.NewMatchService(services.MatchServiceDeps{
		Tournaments: st.tournaments,
		Matches:     st.matches,
		Notifier:    notifiers,
		Metrics:     recorder,
		Logger:      logger,
		RepoTimeout: cfg.RepositoryTimeout,
	})
	playerService := services.NewPlayerService(st.players, logger, cfg.RepositoryTimeout)
	authService := services.NewAuthService(st.organizers, logger)

	if err := authService.EnsureAdmin(ctx, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword); err != nil {
		return fmt.Errorf("failed to bootstrap admin account: %w", err)
	}
	logger.Info("services initialized")

	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Auth:        handlers.NewAuthHandler(authService, cfg.JWTSecretKey),
		Tournaments: handlers.NewTournamentHandler(tournamentService),
		Matches:     handlers.NewMatchHandler(matchService),
		Players:     handlers.NewPlayerHandler(playerService),
		WebSocket:   handlers.NewWebSocketHandler(hub, tournamentService, cfg.AllowedOrigins, logger),
	}, api.Options{
		JWTSecret:      []byte(cfg.JWTSecretKey),
		AllowedOrigins: cfg.AllowedOrigins,
		Metrics:        recorder.Handler(),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("failed to force close server", slog.Any("error", closeErr))
		}
		return err
	}
	logger.Info("server shutdown complete")
	return nil
}

func openStores(cfg *config.Config, logger *slog.Logger) (stores, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Warn("using in-memory store; data is lost on restart")
		mem := repositories.NewMemoryStore()
		return stores{
			tournaments: mem.Tournaments(),
			matches:     mem.Matches(),
			players:     mem.Players(),
			organizers:  mem.Organizers(),
			close:       func() {},
		}, nil
	}

	conn, err := db.Connect(cfg.DatabaseURL, 5*time.Second, logger)
	if err != nil {
		return stores{}, fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.Info("database connection established")
	return stores{
		tournaments: repositories.NewPostgresTournamentRepository(conn),
		matches:     repositories.NewPostgresMatchRepository(conn),
		players:     repositories.NewPostgresPlayerRepository(conn),
		organizers:  repositories.NewPostgresOrganizerRepository(conn),
		close: func() {
			if err := conn.Close(); err != nil {
				logger.Error("failed to close database connection", slog.Any("error", err))
			} else {
				logger.Info("database connection closed")
			}
		},
	}, nil
}
