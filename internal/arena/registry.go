package arena

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/llm-chess-arena/internal/agent"
	"github.com/park285/llm-chess-arena/internal/domain"
	"github.com/park285/llm-chess-arena/internal/game"
	"github.com/park285/llm-chess-arena/internal/obslog"
	"github.com/park285/llm-chess-arena/internal/orchestrator"
)

var (
	ErrGameNotFound = fmt.Errorf("game not found")
	ErrTooManyGames = fmt.Errorf("too many concurrent games")
)

// Sinks receive notifications for every hosted game, tagged with the game ID.
// The transport layer (WebSocket fan-out) subscribes here.
type Sinks struct {
	OnMove  func(gameID string, ev orchestrator.MoveEvent)
	OnLog   func(gameID string, message string, level orchestrator.LogLevel)
	OnState func(gameID string, snap orchestrator.StateSnapshot)
}

type CreateParams struct {
	WhiteProvider string
	WhiteModel    string
	BlackProvider string
	BlackModel    string
}

// LiveGame couples an orchestrator with its background game loop.
type LiveGame struct {
	ID         string
	WhiteName  string
	BlackName  string
	Orch       *orchestrator.Orchestrator
	Done       chan struct{}
	cancelLoop context.CancelFunc
}

// Registry owns the hosted games: creation, lookup, lifecycle, teardown.
// It replaces ambient global maps with an explicit object.
type Registry struct {
	agents   *agent.Config
	opts     orchestrator.Options
	maxGames int

	store   *Store  // optional live snapshots
	archive Archive // optional finished-game archive
	sinks   Sinks

	mu    sync.RWMutex
	games map[string]*LiveGame
}

func NewRegistry(agents *agent.Config, opts orchestrator.Options, maxGames int) *Registry {
	if maxGames <= 0 {
		maxGames = 32
	}
	return &Registry{
		agents:   agents,
		opts:     opts,
		maxGames: maxGames,
		games:    make(map[string]*LiveGame),
	}
}

func (r *Registry) AttachStore(s *Store)    { r.store = s }
func (r *Registry) AttachArchive(a Archive) { r.archive = a }
func (r *Registry) SetSinks(sinks Sinks)    { r.sinks = sinks }

// Create builds both agents, starts the game loop in the background, and
// registers the live game. The loop runs until terminal, stop, or ceiling.
func (r *Registry) Create(ctx context.Context, p CreateParams) (*LiveGame, error) {
	r.mu.RLock()
	active := len(r.games)
	r.mu.RUnlock()
	if active >= r.maxGames {
		return nil, ErrTooManyGames
	}

	white, err := agent.New(r.agents, p.WhiteProvider, p.WhiteModel, r.opts.AgentCallTimeout)
	if err != nil {
		return nil, fmt.Errorf("white agent: %w", err)
	}
	black, err := agent.New(r.agents, p.BlackProvider, p.BlackModel, r.opts.AgentCallTimeout)
	if err != nil {
		return nil, fmt.Errorf("black agent: %w", err)
	}

	id := uuid.NewString()
	session := game.NewSession()

	lg := &LiveGame{
		ID:        id,
		WhiteName: white.Name(),
		BlackName: black.Name(),
		Done:      make(chan struct{}),
	}
	cb := orchestrator.Callbacks{
		OnMove: func(ev orchestrator.MoveEvent) {
			if r.sinks.OnMove != nil {
				r.sinks.OnMove(id, ev)
			}
		},
		OnLog: func(message string, level orchestrator.LogLevel) {
			if r.sinks.OnLog != nil {
				r.sinks.OnLog(id, message, level)
			}
		},
		OnState: func(snap orchestrator.StateSnapshot) {
			r.persistSnapshot(lg)
			if r.sinks.OnState != nil {
				r.sinks.OnState(id, snap)
			}
		},
	}
	lg.Orch = orchestrator.New(id, session, white, black, cb, r.opts)

	r.mu.Lock()
	if len(r.games) >= r.maxGames {
		r.mu.Unlock()
		return nil, ErrTooManyGames
	}
	r.games[id] = lg
	r.mu.Unlock()

	obslog.L().Info("arena_game_create",
		zap.String("game_id", id),
		zap.String("white", lg.WhiteName),
		zap.String("black", lg.BlackName),
	)

	loopCtx, cancel := context.WithCancel(context.Background())
	lg.cancelLoop = cancel
	go func() {
		defer close(lg.Done)
		defer cancel()
		lg.Orch.PlayGame(loopCtx)
		r.persistFinal(lg)
	}()
	return lg, nil
}

func (r *Registry) Get(id string) (*LiveGame, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lg, ok := r.games[id]
	return lg, ok
}

// List returns live games ordered by creation time.
func (r *Registry) List() []*LiveGame {
	r.mu.RLock()
	out := make([]*LiveGame, 0, len(r.games))
	for _, lg := range r.games {
		out = append(out, lg)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].Orch.Session().CreatedAt().Before(out[j].Orch.Session().CreatedAt())
	})
	return out
}

func (r *Registry) Pause(id string) error {
	lg, ok := r.Get(id)
	if !ok {
		return ErrGameNotFound
	}
	lg.Orch.Pause()
	return nil
}

func (r *Registry) Resume(id string) error {
	lg, ok := r.Get(id)
	if !ok {
		return ErrGameNotFound
	}
	lg.Orch.Resume()
	return nil
}

func (r *Registry) Stop(id string) error {
	lg, ok := r.Get(id)
	if !ok {
		return ErrGameNotFound
	}
	lg.Orch.Stop()
	return nil
}

// Remove stops the game if needed and drops it from the registry. The live
// snapshot stays in the store until its TTL expires.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	lg, ok := r.games[id]
	if ok {
		delete(r.games, id)
	}
	r.mu.Unlock()
	if !ok {
		return ErrGameNotFound
	}
	lg.Orch.Stop()
	return nil
}

// Shutdown stops every live game and waits briefly for loops to wind down.
func (r *Registry) Shutdown(ctx context.Context) {
	r.mu.Lock()
	games := make([]*LiveGame, 0, len(r.games))
	for _, lg := range r.games {
		games = append(games, lg)
	}
	r.games = make(map[string]*LiveGame)
	r.mu.Unlock()

	for _, lg := range games {
		lg.Orch.Stop()
	}
	for _, lg := range games {
		select {
		case <-lg.Done:
		case <-ctx.Done():
			return
		}
	}
}

// Record builds the persisted view of a live game.
func (r *Registry) Record(lg *LiveGame) *GameRecord {
	s := lg.Orch.Session()
	timing := lg.Orch.Timing()
	rec := &GameRecord{
		ID:          lg.ID,
		WhiteAgent:  lg.WhiteName,
		BlackAgent:  lg.BlackName,
		FEN:         s.FEN(),
		MovesUCI:    s.MovesUCI(),
		MovesSAN:    s.MovesSAN(),
		Turn:        string(s.CurrentSide()),
		DrawOffered: s.DrawOffered(),
		Status:      statusOf(lg.Orch.State()),
		WhiteAvgMS:  timing.Mean(domain.White).Milliseconds(),
		BlackAvgMS:  timing.Mean(domain.Black).Milliseconds(),
		OverheadMS:  timing.Overhead().Milliseconds(),
		CreatedAt:   s.CreatedAt(),
		UpdatedAt:   s.UpdatedAt(),
	}
	if res, ok := s.Result(); ok {
		rec.Winner = res.Winner
		rec.Reason = string(res.Reason)
	}
	return rec
}

func (r *Registry) persistSnapshot(lg *LiveGame) {
	if r.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.store.Save(ctx, r.Record(lg)); err != nil {
		obslog.L().Error("arena_snapshot_persist_error", zap.String("game_id", lg.ID), zap.Error(err))
	}
}

func (r *Registry) persistFinal(lg *LiveGame) {
	rec := r.Record(lg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if r.store != nil {
		if err := r.store.Save(ctx, rec); err != nil {
			obslog.L().Error("arena_snapshot_persist_error", zap.String("game_id", lg.ID), zap.Error(err))
		}
	}
	if r.archive == nil || rec.Winner == "" {
		return
	}
	if err := r.archive.SaveResult(ctx, rec); err != nil {
		obslog.L().Error("arena_result_persist_error", zap.String("game_id", lg.ID), zap.Error(err))
		return
	}
	obslog.L().Info("arena_result_persist",
		zap.String("game_id", lg.ID),
		zap.String("winner", rec.Winner),
		zap.String("reason", rec.Reason),
	)
}

func statusOf(st orchestrator.State) Status {
	switch st {
	case orchestrator.StatePaused:
		return StatusPaused
	case orchestrator.StateCompleted:
		return StatusCompleted
	case orchestrator.StateStopped:
		return StatusStopped
	default:
		return StatusRunning
	}
}
