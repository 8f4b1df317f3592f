package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/llm-chess-arena/internal/agent"
	"github.com/park285/llm-chess-arena/internal/arena"
	"github.com/park285/llm-chess-arena/internal/config"
	"github.com/park285/llm-chess-arena/internal/obslog"
	"github.com/park285/llm-chess-arena/internal/orchestrator"
	"github.com/park285/llm-chess-arena/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = obslog.L().Sync() }()

	agents, err := agent.LoadConfig(cfg.AgentsConfigPath)
	if err != nil {
		// the mock provider still works without a config file
		obslog.L().Warn("arena_agents_config_missing",
			zap.String("path", cfg.AgentsConfigPath),
			zap.Error(err),
		)
		agents = &agent.Config{}
	}

	opts := orchestrator.Options{
		MaxRetries:       cfg.MaxRetries,
		MaxTurns:         cfg.MaxTurns,
		TurnPacing:       cfg.TurnPacing,
		PausePoll:        cfg.PausePoll,
		AgentBackoff:     cfg.AgentBackoff,
		AgentCallTimeout: cfg.AgentCallTimeout,
	}
	reg := arena.NewRegistry(agents, opts, cfg.MaxConcurrentGames)

	var store *arena.Store
	if cfg.RedisURL != "" {
		store, err = arena.NewStore(cfg.RedisURL, cfg.SnapshotTTL)
		if err != nil {
			log.Fatalf("redis init error: %v", err)
		}
		reg.AttachStore(store)
	}
	if cfg.DatabaseURL != "" {
		repo, err := arena.NewRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db init error: %v", err)
		}
		defer func() { _ = repo.Close() }()
		reg.AttachArchive(repo)
	} else {
		reg.AttachArchive(arena.NewMemoryArchive())
	}

	hub := server.NewHub()
	reg.SetSinks(hub.Sinks())
	srv := server.New(cfg, reg, store, hub)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		obslog.L().Info("arena_shutdown_signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	reg.Shutdown(shutdownCtx)
}
