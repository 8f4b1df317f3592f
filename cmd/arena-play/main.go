// arena-play runs a single game in the foreground and prints the move
// stream. Useful for trying out agent configurations without the server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/park285/llm-chess-arena/internal/agent"
	"github.com/park285/llm-chess-arena/internal/config"
	"github.com/park285/llm-chess-arena/internal/game"
	"github.com/park285/llm-chess-arena/internal/obslog"
	"github.com/park285/llm-chess-arena/internal/orchestrator"
)

func main() {
	whiteProvider := flag.String("white", "mock", "white agent provider")
	whiteModel := flag.String("white-model", "", "white agent model alias")
	blackProvider := flag.String("black", "mock", "black agent provider")
	blackModel := flag.String("black-model", "", "black agent model alias")
	maxTurns := flag.Int("max-turns", 200, "turn ceiling")
	pacingMS := flag.Int("pacing-ms", 500, "delay between turns in milliseconds")
	flag.Parse()

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
		agents = &agent.Config{}
	}

	white, err := agent.New(agents, *whiteProvider, *whiteModel, cfg.AgentCallTimeout)
	if err != nil {
		log.Fatalf("white agent: %v", err)
	}
	black, err := agent.New(agents, *blackProvider, *blackModel, cfg.AgentCallTimeout)
	if err != nil {
		log.Fatalf("black agent: %v", err)
	}

	cb := orchestrator.Callbacks{
		OnMove: func(ev orchestrator.MoveEvent) {
			fmt.Printf("%-5s %-6s (%.1fs)\n", ev.Side, ev.Move, ev.Latency.Seconds())
		},
		OnLog: func(message string, level orchestrator.LogLevel) {
			if level != orchestrator.LevelInfo {
				fmt.Printf("[%s] %s\n", level, message)
			}
		},
	}

	opts := orchestrator.Options{
		MaxRetries:       cfg.MaxRetries,
		MaxTurns:         *maxTurns,
		TurnPacing:       time.Duration(*pacingMS) * time.Millisecond,
		PausePoll:        cfg.PausePoll,
		AgentBackoff:     cfg.AgentBackoff,
		AgentCallTimeout: cfg.AgentCallTimeout,
	}
	session := game.NewSession()
	orch := orchestrator.New("local", session, white, black, cb, opts)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		orch.Stop()
		cancel()
	}()

	fmt.Printf("%s vs %s\n\n", white.Name(), black.Name())
	orch.PlayGame(ctx)

	fmt.Println()
	if res, ok := session.Result(); ok {
		if res.Winner == "draw" {
			fmt.Printf("Result: draw (%s)\n", res.Reason)
		} else {
			fmt.Printf("Result: %s wins (%s)\n", res.Winner, res.Reason)
		}
	} else {
		fmt.Println("Result: unfinished")
	}
	fmt.Printf("Moves: %d\n", session.MoveCount())
	fmt.Printf("Final FEN: %s\n", session.FEN())
}
