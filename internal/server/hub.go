package server

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/park285/llm-chess-arena/internal/arena"
	"github.com/park285/llm-chess-arena/internal/obslog"
	"github.com/park285/llm-chess-arena/internal/orchestrator"
	"github.com/park285/llm-chess-arena/pkg/arenadto"
)

const subscriberBuffer = 64

// Hub fans frames out to WebSocket subscribers per game. Slow subscribers
// lose frames rather than stalling the game loop.
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]chan arenadto.Frame
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int]chan arenadto.Frame)}
}

func (h *Hub) Subscribe(gameID string) (int, <-chan arenadto.Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	if h.subs[gameID] == nil {
		h.subs[gameID] = make(map[int]chan arenadto.Frame)
	}
	ch := make(chan arenadto.Frame, subscriberBuffer)
	h.subs[gameID][id] = ch
	return id, ch
}

func (h *Hub) Unsubscribe(gameID string, id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if chans, ok := h.subs[gameID]; ok {
		if ch, ok := chans[id]; ok {
			delete(chans, id)
			close(ch)
		}
		if len(chans) == 0 {
			delete(h.subs, gameID)
		}
	}
}

func (h *Hub) Broadcast(gameID string, frame arenadto.Frame) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.subs[gameID] {
		select {
		case ch <- frame:
		default:
			obslog.L().Warn("arena_ws_drop_frame",
				zap.String("game_id", gameID),
				zap.Int("subscriber", id),
				zap.String("type", frame.Type),
			)
		}
	}
}

// Sinks adapts orchestrator notifications into broadcast frames.
func (h *Hub) Sinks() arena.Sinks {
	return arena.Sinks{
		OnMove: func(gameID string, ev orchestrator.MoveEvent) {
			h.Broadcast(gameID, arenadto.Frame{
				Type: "move",
				Move: &arenadto.MoveEvent{
					GameID:    gameID,
					Side:      string(ev.Side),
					Move:      ev.Move,
					FEN:       ev.FEN,
					LatencyMS: ev.Latency.Milliseconds(),
				},
			})
		},
		OnLog: func(gameID string, message string, level orchestrator.LogLevel) {
			h.Broadcast(gameID, arenadto.Frame{
				Type: "log",
				Log: &arenadto.LogEvent{
					GameID:  gameID,
					Message: strings.TrimSpace(message),
					Level:   string(level),
				},
			})
		},
		OnState: func(gameID string, snap orchestrator.StateSnapshot) {
			state := stateFromSnapshot(gameID, snap)
			h.Broadcast(gameID, arenadto.Frame{Type: "game_state", State: &state})
		},
	}
}

func stateFromSnapshot(gameID string, snap orchestrator.StateSnapshot) arenadto.GameState {
	return arenadto.GameState{
		ID:          gameID,
		FEN:         snap.FEN,
		Turn:        string(snap.Turn),
		MovesUCI:    snap.MovesUCI,
		MovesSAN:    snap.MovesSAN,
		MoveCount:   snap.MoveCount,
		DrawOffered: snap.DrawOffered,
		GameOver:    snap.GameOver,
		Winner:      snap.Winner,
		Reason:      snap.Reason,
	}
}
