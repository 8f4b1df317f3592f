package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	ListenAddr string

	RedisURL    string
	DatabaseURL string

	AgentsConfigPath string

	MaxRetries       int
	MaxTurns         int
	TurnPacing       time.Duration
	PausePoll        time.Duration
	AgentBackoff     time.Duration
	AgentCallTimeout time.Duration // 0 = no per-call timeout

	MaxConcurrentGames int
	SnapshotTTL        time.Duration
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:         ":8080",
		AgentsConfigPath:   "llm_config.yaml",
		MaxRetries:         3,
		MaxTurns:           200,
		TurnPacing:         500 * time.Millisecond,
		PausePoll:          100 * time.Millisecond,
		AgentBackoff:       time.Second,
		MaxConcurrentGames: 32,
		SnapshotTTL:        24 * time.Hour,
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if v := strings.TrimSpace(os.Getenv("AGENTS_CONFIG")); v != "" {
		cfg.AgentsConfigPath = v
	}

	if v := strings.TrimSpace(os.Getenv("MAX_RETRIES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxRetries = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("MAX_TURNS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxTurns = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("TURN_PACING_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.TurnPacing = time.Duration(n) * time.Millisecond
		}
	}
	if v := strings.TrimSpace(os.Getenv("PAUSE_POLL_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PausePoll = time.Duration(n) * time.Millisecond
		}
	}
	if v := strings.TrimSpace(os.Getenv("AGENT_BACKOFF_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.AgentBackoff = time.Duration(n) * time.Millisecond
		}
	}
	if v := strings.TrimSpace(os.Getenv("AGENT_CALL_TIMEOUT_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AgentCallTimeout = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("MAX_CONCURRENT_GAMES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxConcurrentGames = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("SNAPSHOT_TTL_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SnapshotTTL = time.Duration(n) * time.Second
		}
	}

	if cfg.ListenAddr == "" {
		return nil, errors.New("LISTEN_ADDR is required")
	}
	return cfg, nil
}
