// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/quickmesh/lobby/internal/auth"
	"github.com/quickmesh/lobby/internal/config"
	"github.com/quickmesh/lobby/internal/handlers"
	"github.com/quickmesh/lobby/internal/lobby"
	"github.com/quickmesh/lobby/internal/middleware"
	"github.com/quickmesh/lobby/internal/moderator"
	"github.com/quickmesh/lobby/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	store, err := selectStorage(cfg)
	if err != nil {
		log.Fatalf("failed to initialize storage: %v", err)
	}

	svc := lobby.NewService(
		store,
		auth.NewCodec(cfg.SecretKey),
		moderator.Passthrough{},
		logger,
		lobby.Config{
			MaxLobbyParticipants: cfg.MaxLobbyParticipants,
			EvictAfter:           cfg.EvictAfter,
			PingInterval:         cfg.PingInterval,
		},
	)

	logged := middleware.LogMiddleware(logger)

	mux := http.NewServeMux()
	mux.Handle("/lobbies", logged(handlers.ListLobbiesHandler(svc, logger)))
	mux.Handle("/create", logged(handlers.CreateLobbyHandler(svc, logger)))
	mux.Handle("/join", logged(handlers.JoinLobbyHandler(svc, logger)))
	mux.Handle("/leave", logged(handlers.LeaveLobbyHandler(svc, logger)))
	mux.Handle("/kick", logged(handlers.KickHandler(svc, logger)))
	mux.Handle("/destroy", logged(handlers.DestroyLobbyHandler(svc, logger)))
	mux.Handle("/ping", logged(handlers.PingHandler(svc)))
	mux.Handle("/ws", handlers.LobbyWSHandler(logger, svc))

	logger.Infof("Lobby server running on %s (storage: %s)", cfg.ListenAddr, cfg.StorageBackend)
	if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

func selectStorage(cfg config.Config) (storage.Storage, error) {
	switch cfg.StorageBackend {
	case "redis":
		return storage.ConnectRedis(cfg.RedisAddr, cfg.RedisDB)
	case "postgres":
		return storage.ConnectPostgres(context.Background(), cfg.PostgresDSN)
	default:
		return storage.NewMemory(), nil
	}
}
