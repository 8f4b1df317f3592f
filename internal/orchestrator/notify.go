package orchestrator

import (
	"time"

	"github.com/park285/llm-chess-arena/internal/domain"
	"github.com/park285/llm-chess-arena/internal/game"
)

// LogLevel severities for the log channel.
type LogLevel string

const (
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warning"
	LevelError LogLevel = "error"
)

// MoveEvent is published after each applied move.
type MoveEvent struct {
	Side    domain.Side   `json:"side"`
	Move    string        `json:"move"`
	FEN     string        `json:"fen"`
	Latency time.Duration `json:"latency"`
}

// StateSnapshot is a committed view of the session for observers.
type StateSnapshot struct {
	FEN         string      `json:"fen"`
	Turn        domain.Side `json:"turn"`
	MovesUCI    []string    `json:"moves_uci"`
	MovesSAN    []string    `json:"moves_san"`
	MoveCount   int         `json:"move_count"`
	DrawOffered bool        `json:"draw_offered"`
	GameOver    bool        `json:"game_over"`
	Winner      string      `json:"winner,omitempty"`
	Reason      string      `json:"reason,omitempty"`
}

// Callbacks are the three independent notification channels. Each is
// fire-and-forget from the orchestrator's perspective; delivery semantics
// belong to the subscriber. Nil callbacks are skipped.
type Callbacks struct {
	OnMove  func(MoveEvent)
	OnLog   func(message string, level LogLevel)
	OnState func(StateSnapshot)
}

func snapshotOf(s *game.Session) StateSnapshot {
	snap := StateSnapshot{
		FEN:         s.FEN(),
		Turn:        s.CurrentSide(),
		MovesUCI:    s.MovesUCI(),
		MovesSAN:    s.MovesSAN(),
		DrawOffered: s.DrawOffered(),
		GameOver:    s.IsTerminal(),
	}
	snap.MoveCount = len(snap.MovesUCI)
	if res, ok := s.Result(); ok {
		snap.Winner = res.Winner
		snap.Reason = string(res.Reason)
	}
	return snap
}
