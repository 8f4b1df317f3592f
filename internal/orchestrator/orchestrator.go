package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/llm-chess-arena/internal/agent"
	"github.com/park285/llm-chess-arena/internal/domain"
	"github.com/park285/llm-chess-arena/internal/game"
	"github.com/park285/llm-chess-arena/internal/interpret"
	"github.com/park285/llm-chess-arena/internal/obslog"
)

// State is the orchestrator lifecycle: Idle → Running → (Paused ⇄ Running)
// → Stopped | Completed.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateStopped   State = "stopped"
	StateCompleted State = "completed"
)

const (
	DefaultMaxRetries = 3
	DefaultMaxTurns   = 200
)

var errStopped = errors.New("orchestrator stopped")

// Options is the configuration surface consumed, not owned, by the core.
type Options struct {
	MaxRetries       int
	MaxTurns         int
	TurnPacing       time.Duration
	PausePoll        time.Duration
	AgentBackoff     time.Duration
	AgentCallTimeout time.Duration // 0 = unbounded
}

func (o Options) withDefaults() Options {
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.MaxTurns <= 0 {
		o.MaxTurns = DefaultMaxTurns
	}
	if o.PausePoll <= 0 {
		o.PausePoll = 100 * time.Millisecond
	}
	if o.AgentBackoff <= 0 {
		o.AgentBackoff = time.Second
	}
	return o
}

// Orchestrator drives one game between two agents: per-turn retry cycles,
// timing bookkeeping, lifecycle control, and notification dispatch.
// One orchestrator instance drives one game; turns never run concurrently.
type Orchestrator struct {
	gameID  string
	session *game.Session
	agents  map[domain.Side]agent.Agent
	cb      Callbacks
	opts    Options
	timing  *TimingLedger

	mu       sync.Mutex
	state    State
	stopCh   chan struct{}
	stopOnce sync.Once
}

func New(gameID string, session *game.Session, white, black agent.Agent, cb Callbacks, opts Options) *Orchestrator {
	return &Orchestrator{
		gameID:  gameID,
		session: session,
		agents:  map[domain.Side]agent.Agent{domain.White: white, domain.Black: black},
		cb:      cb,
		opts:    opts.withDefaults(),
		timing:  NewTimingLedger(),
		state:   StateIdle,
		stopCh:  make(chan struct{}),
	}
}

func (o *Orchestrator) Session() *game.Session { return o.session }
func (o *Orchestrator) Timing() *TimingLedger  { return o.timing }

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Start transitions Idle → Running. Idempotent while already running or paused.
func (o *Orchestrator) Start() {
	o.mu.Lock()
	if o.state == StateIdle {
		o.state = StateRunning
	}
	o.mu.Unlock()
}

// Pause suspends the loop at the next poll tick. Idempotent.
func (o *Orchestrator) Pause() {
	o.mu.Lock()
	changed := o.state == StateRunning
	if changed {
		o.state = StatePaused
	}
	o.mu.Unlock()
	if changed {
		o.logf(LevelInfo, "Game paused")
	}
}

// Resume leaves the paused state. Idempotent.
func (o *Orchestrator) Resume() {
	o.mu.Lock()
	changed := o.state == StatePaused
	if changed {
		o.state = StateRunning
	}
	o.mu.Unlock()
	if changed {
		o.logf(LevelInfo, "Game resumed")
	}
}

// Stop is terminal from any state. An in-flight agent call is allowed to
// finish; its result is discarded and never applied to the session.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	changed := o.state != StateStopped && o.state != StateCompleted
	if changed {
		o.state = StateStopped
	}
	o.mu.Unlock()
	o.stopOnce.Do(func() { close(o.stopCh) })
	if changed {
		o.logf(LevelInfo, "Game stopped")
	}
}

func (o *Orchestrator) complete() {
	o.mu.Lock()
	if o.state != StateStopped {
		o.state = StateCompleted
	}
	o.mu.Unlock()
}

func (o *Orchestrator) stopped() bool {
	select {
	case <-o.stopCh:
		return true
	default:
		return false
	}
}

// PlayTurn executes exactly one turn to completion, spanning as many
// attempts as the retry budget allows. Returns nil without side effects
// when the game is terminal or the lifecycle is not Running.
func (o *Orchestrator) PlayTurn(ctx context.Context) *domain.TurnOutcome {
	if o.session.IsTerminal() {
		return nil
	}
	if !o.awaitRunning(ctx) {
		return nil
	}

	tc := o.session.Snapshot()
	side := tc.SideToMove
	ag := o.agents[side]
	if ag == nil {
		out := &domain.TurnOutcome{Kind: domain.OutcomeAgentFailure, Side: side, Reason: "no agent configured"}
		o.logf(LevelError, "No agent configured for %s", side.Title())
		return out
	}

	correction := ""
	for attempt := 1; attempt <= o.opts.MaxRetries; attempt++ {
		o.logf(LevelInfo, "%s is thinking...", side.Title())
		attemptStart := time.Now()

		raw, latency, err := o.callAgent(ctx, ag, tc, correction)
		if o.stopped() {
			// Discard whatever came back after stop.
			return nil
		}
		if err != nil {
			o.logf(LevelError, "Error during %s turn: %v", side, err)
			if attempt < o.opts.MaxRetries {
				if !o.sleep(ctx, o.opts.AgentBackoff) {
					return nil
				}
				continue
			}
			return &domain.TurnOutcome{Kind: domain.OutcomeAgentFailure, Side: side, Reason: err.Error()}
		}
		o.timing.AddOverhead(time.Since(attemptStart) - latency)

		act := interpret.Parse(raw)
		switch act.Kind {
		case domain.ActionResign:
			o.session.Resign(side)
			o.complete()
			o.logf(LevelInfo, "%s resigns!", side.Title())
			o.emitState()
			return &domain.TurnOutcome{Kind: domain.OutcomeResigned, Side: side, Latency: latency}

		case domain.ActionOfferDraw:
			o.session.OfferDraw()
			if err := o.session.PassTurn(); err != nil {
				obslog.L().Error("arena_pass_turn", zap.String("game_id", o.gameID), zap.Error(err))
			}
			o.logf(LevelInfo, "%s offers a draw", side.Title())
			o.emitState()
			return &domain.TurnOutcome{Kind: domain.OutcomeDrawOffered, Side: side, Latency: latency}

		case domain.ActionAcceptDraw:
			if !tc.DrawOffered {
				// Accepting a draw nobody offered is malformed.
				break
			}
			o.session.AcceptDraw()
			o.complete()
			o.logf(LevelInfo, "Draw accepted!")
			o.emitState()
			return &domain.TurnOutcome{Kind: domain.OutcomeDrawAccepted, Side: side, Latency: latency}

		case domain.ActionRefuseDraw:
			if !tc.DrawOffered {
				break
			}
			o.session.RefuseDraw()
			o.logf(LevelInfo, "%s refuses the draw", side.Title())
			// Same side must now produce a real move; refresh the context
			// so the agent no longer sees a pending offer.
			tc = o.session.Snapshot()
			correction = ""
			continue

		case domain.ActionMove:
			if !tc.HasLegal(act.Move) {
				break
			}
			if !o.session.ApplyMove(act.Move) {
				// Passed the legal-move filter yet rejected on apply:
				// defensive malformed case, counts against retries.
				obslog.L().Warn("arena_engine_reject",
					zap.String("game_id", o.gameID),
					zap.String("side", string(side)),
					zap.String("move", act.Move),
				)
				break
			}
			o.timing.Append(side, latency)
			o.logf(LevelInfo, "%s plays: %s", side.Title(), act.Move)
			obslog.L().Info("arena_move",
				zap.String("game_id", o.gameID),
				zap.String("side", string(side)),
				zap.String("move", act.Move),
				zap.Duration("latency", latency),
			)
			o.emitMove(MoveEvent{Side: side, Move: act.Move, FEN: o.session.FEN(), Latency: latency})
			o.emitState()
			return &domain.TurnOutcome{Kind: domain.OutcomeMoveApplied, Side: side, Move: act.Move, Latency: latency}
		}

		// Malformed, illegal, or an out-of-protocol draw response.
		o.logf(LevelWarn, "Invalid response from %s: %s", side, truncate(raw, 120))
		if attempt == o.opts.MaxRetries {
			o.logf(LevelError, "%s failed to make a valid move after %d attempts", side.Title(), o.opts.MaxRetries)
			return &domain.TurnOutcome{Kind: domain.OutcomeRetriesExhausted, Side: side}
		}
		correction = raw
	}
	return &domain.TurnOutcome{Kind: domain.OutcomeRetriesExhausted, Side: side}
}

// PlayGame loops PlayTurn until the game resolves, the turn ceiling is hit,
// or the orchestrator is stopped.
func (o *Orchestrator) PlayGame(ctx context.Context) {
	o.Start()
	o.logf(LevelInfo, "Game started!")
	o.emitState()

	turns := 0
	for turns < o.opts.MaxTurns {
		if o.session.IsTerminal() || o.stopped() {
			break
		}
		out := o.PlayTurn(ctx)
		if out == nil {
			break
		}
		if out.IsFailure() {
			o.logf(LevelError, "Game ended due to error: %s (%s)", out.Kind, out.Side)
			o.Stop()
			o.emitState()
			break
		}
		turns++
		if o.session.IsTerminal() {
			break
		}
		if o.opts.TurnPacing > 0 {
			if !o.sleep(ctx, o.opts.TurnPacing) {
				break
			}
		}
	}

	if res, ok := o.session.Result(); ok {
		o.complete()
		if res.Winner == "draw" {
			o.logf(LevelInfo, "Game ended in a draw (%s)", res.Reason)
		} else {
			o.logf(LevelInfo, "Game over! %s wins by %s", domain.Side(res.Winner).Title(), res.Reason)
		}
		o.emitState()
		obslog.L().Info("arena_game_end",
			zap.String("game_id", o.gameID),
			zap.String("winner", res.Winner),
			zap.String("reason", string(res.Reason)),
			zap.Int("moves", o.session.MoveCount()),
		)
	} else if turns >= o.opts.MaxTurns {
		o.logf(LevelWarn, "Turn ceiling reached after %d turns", turns)
		o.Stop()
		snap := snapshotOf(o.session)
		snap.Reason = string(domain.ReasonTurnLimit)
		o.emit(snap)
	}

	o.logf(LevelInfo, "Game completed!")
	o.logf(LevelInfo, "Total moves: %d", o.session.MoveCount())
	o.logf(LevelInfo, "White avg time: %.2fs", o.timing.Mean(domain.White).Seconds())
	o.logf(LevelInfo, "Black avg time: %.2fs", o.timing.Mean(domain.Black).Seconds())
	o.logf(LevelInfo, "Orchestrator total time: %.2fs", o.timing.Overhead().Seconds())
}

// awaitRunning blocks while paused, polling at the configured interval.
// Returns false when the loop should give up (stopped, idle, or ctx done).
func (o *Orchestrator) awaitRunning(ctx context.Context) bool {
	for {
		switch o.State() {
		case StateRunning:
			return true
		case StatePaused:
			select {
			case <-ctx.Done():
				return false
			case <-o.stopCh:
				return false
			case <-time.After(o.opts.PausePoll):
			}
		default:
			return false
		}
	}
}

// callAgent dispatches the only blocking operation of a turn on its own
// goroutine so lifecycle checks stay responsive; on stop the call keeps
// running to completion but the result is abandoned.
func (o *Orchestrator) callAgent(ctx context.Context, ag agent.Agent, tc domain.TurnContext, correction string) (string, time.Duration, error) {
	cctx := ctx
	if o.opts.AgentCallTimeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, o.opts.AgentCallTimeout)
		defer cancel()
	}

	type proposal struct {
		raw     string
		latency time.Duration
		err     error
	}
	ch := make(chan proposal, 1)
	go func() {
		raw, latency, err := ag.Propose(cctx, tc, correction)
		ch <- proposal{raw: raw, latency: latency, err: err}
	}()

	select {
	case p := <-ch:
		return p.raw, p.latency, p.err
	case <-o.stopCh:
		return "", 0, errStopped
	}
}

func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-o.stopCh:
		return false
	case <-t.C:
		return true
	}
}

func (o *Orchestrator) emitMove(ev MoveEvent) {
	if o.cb.OnMove != nil {
		o.cb.OnMove(ev)
	}
}

func (o *Orchestrator) emitState() {
	o.emit(snapshotOf(o.session))
}

func (o *Orchestrator) emit(snap StateSnapshot) {
	if o.cb.OnState != nil {
		o.cb.OnState(snap)
	}
}

func (o *Orchestrator) logf(level LogLevel, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if o.cb.OnLog != nil {
		o.cb.OnLog(msg, level)
	}
	switch level {
	case LevelError:
		obslog.L().Error("arena_log", zap.String("game_id", o.gameID), zap.String("msg", msg))
	case LevelWarn:
		obslog.L().Warn("arena_log", zap.String("game_id", o.gameID), zap.String("msg", msg))
	default:
		obslog.L().Debug("arena_log", zap.String("game_id", o.gameID), zap.String("msg", msg))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
