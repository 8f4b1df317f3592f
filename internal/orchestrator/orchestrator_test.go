package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/park285/llm-chess-arena/internal/domain"
	"github.com/park285/llm-chess-arena/internal/game"
)

// scriptedAgent replays canned responses; the last one repeats.
type scriptedAgent struct {
	mu          sync.Mutex
	responses   []string
	failWith    error
	delay       time.Duration
	calls       int
	corrections []string
}

func (s *scriptedAgent) Name() string { return "scripted" }

func (s *scriptedAgent) Propose(ctx context.Context, tc domain.TurnContext, correction string) (string, time.Duration, error) {
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return "", 0, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.corrections = append(s.corrections, correction)
	if s.failWith != nil {
		return "", 0, s.failWith
	}
	i := s.calls - 1
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	return s.responses[i], 5 * time.Millisecond, nil
}

func (s *scriptedAgent) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func fastOpts() Options {
	return Options{
		MaxRetries:   3,
		MaxTurns:     50,
		TurnPacing:   0,
		PausePoll:    5 * time.Millisecond,
		AgentBackoff: time.Millisecond,
	}
}

func newTestOrchestrator(t *testing.T, white, black *scriptedAgent, cb Callbacks, opts Options) *Orchestrator {
	t.Helper()
	return New("test-game", game.NewSession(), white, black, cb, opts)
}

func TestPlayTurnAppliesLegalMove(t *testing.T) {
	white := &scriptedAgent{responses: []string{"e2e4"}}
	o := newTestOrchestrator(t, white, &scriptedAgent{}, Callbacks{}, fastOpts())
	o.Start()

	out := o.PlayTurn(context.Background())
	if out == nil || out.Kind != domain.OutcomeMoveApplied {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if out.Side != domain.White || out.Move != "e2e4" {
		t.Fatalf("unexpected move outcome: %+v", out)
	}
	if got := o.Session().MovesUCI(); len(got) != 1 || got[0] != "e2e4" {
		t.Fatalf("history = %v", got)
	}
	if white.callCount() != 1 {
		t.Fatalf("expected 1 agent call, got %d", white.callCount())
	}
	if o.Timing().Count(domain.White) != 1 {
		t.Fatalf("timing ledger not updated")
	}
}

func TestPlayTurnRetriesExhausted(t *testing.T) {
	white := &scriptedAgent{responses: []string{"xyz123"}}
	o := newTestOrchestrator(t, white, &scriptedAgent{}, Callbacks{}, fastOpts())
	o.Start()

	out := o.PlayTurn(context.Background())
	if out == nil || out.Kind != domain.OutcomeRetriesExhausted || out.Side != domain.White {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if white.callCount() != 3 {
		t.Fatalf("expected exactly 3 agent calls, got %d", white.callCount())
	}
	if o.Session().MoveCount() != 0 {
		t.Fatalf("history must be unchanged")
	}
	// Attempts after the first carry the previous invalid response.
	if white.corrections[0] != "" || white.corrections[1] == "" || white.corrections[2] == "" {
		t.Fatalf("corrections = %q", white.corrections)
	}
}

func TestDrawOfferAccepted(t *testing.T) {
	white := &scriptedAgent{responses: []string{"REQUEST_DRAW"}}
	black := &scriptedAgent{responses: []string{"DRAW_ACCEPTED"}}
	o := newTestOrchestrator(t, white, black, Callbacks{}, fastOpts())
	o.Start()

	out := o.PlayTurn(context.Background())
	if out == nil || out.Kind != domain.OutcomeDrawOffered || out.Side != domain.White {
		t.Fatalf("first turn: %+v", out)
	}
	if !o.Session().DrawOffered() {
		t.Fatalf("draw offer not pending")
	}
	if o.Session().CurrentSide() != domain.Black {
		t.Fatalf("turn did not pass to black")
	}

	out = o.PlayTurn(context.Background())
	if out == nil || out.Kind != domain.OutcomeDrawAccepted || out.Side != domain.Black {
		t.Fatalf("second turn: %+v", out)
	}
	res, ok := o.Session().Result()
	if !ok || res.Winner != "draw" || res.Reason != domain.ReasonDrawAgreed {
		t.Fatalf("result = %+v ok=%v", res, ok)
	}
	if o.State() != StateCompleted {
		t.Fatalf("state = %s", o.State())
	}
}

func TestDrawRefusalDoesNotConsumeTurn(t *testing.T) {
	white := &scriptedAgent{responses: []string{"REQUEST_DRAW"}}
	black := &scriptedAgent{responses: []string{"DRAW_REFUSED", "e7e5"}}
	o := newTestOrchestrator(t, white, black, Callbacks{}, fastOpts())
	o.Start()

	if out := o.PlayTurn(context.Background()); out == nil || out.Kind != domain.OutcomeDrawOffered {
		t.Fatalf("offer turn: %+v", out)
	}
	out := o.PlayTurn(context.Background())
	if out == nil || out.Kind != domain.OutcomeMoveApplied || out.Move != "e7e5" || out.Side != domain.Black {
		t.Fatalf("refusal turn: %+v", out)
	}
	if black.callCount() != 2 {
		t.Fatalf("black calls = %d", black.callCount())
	}
	if o.Session().DrawOffered() {
		t.Fatalf("offer should be cleared")
	}
	if got := o.Session().MovesUCI(); len(got) != 1 || got[0] != "e7e5" {
		t.Fatalf("history = %v", got)
	}
}

func TestAcceptDrawWithoutOfferIsMalformed(t *testing.T) {
	white := &scriptedAgent{responses: []string{"DRAW_ACCEPTED", "e2e4"}}
	o := newTestOrchestrator(t, white, &scriptedAgent{}, Callbacks{}, fastOpts())
	o.Start()

	out := o.PlayTurn(context.Background())
	if out == nil || out.Kind != domain.OutcomeMoveApplied || out.Move != "e2e4" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if white.callCount() != 2 {
		t.Fatalf("expected a retry after bogus DRAW_ACCEPTED, calls=%d", white.callCount())
	}
	if white.corrections[1] == "" {
		t.Fatalf("second attempt should carry a correction")
	}
}

func TestResignCompletesGame(t *testing.T) {
	white := &scriptedAgent{responses: []string{"RESIGN"}}
	o := newTestOrchestrator(t, white, &scriptedAgent{}, Callbacks{}, fastOpts())
	o.Start()

	out := o.PlayTurn(context.Background())
	if out == nil || out.Kind != domain.OutcomeResigned || out.Side != domain.White {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if o.State() != StateCompleted {
		t.Fatalf("state = %s", o.State())
	}
	res, ok := o.Session().Result()
	if !ok || res.Winner != "black" || res.Reason != domain.ReasonResignation {
		t.Fatalf("result = %+v ok=%v", res, ok)
	}
	// Further turns are no-ops on a terminal game.
	if out := o.PlayTurn(context.Background()); out != nil {
		t.Fatalf("expected nil outcome after completion, got %+v", out)
	}
}

func TestAgentFailureAfterBackoffRetries(t *testing.T) {
	white := &scriptedAgent{failWith: errors.New("provider unreachable")}
	opts := fastOpts()
	opts.MaxRetries = 2
	o := newTestOrchestrator(t, white, &scriptedAgent{}, Callbacks{}, opts)
	o.Start()

	out := o.PlayTurn(context.Background())
	if out == nil || out.Kind != domain.OutcomeAgentFailure || out.Side != domain.White {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if white.callCount() != 2 {
		t.Fatalf("expected 2 attempts, got %d", white.callCount())
	}
	if o.Session().MoveCount() != 0 {
		t.Fatalf("history must be unchanged")
	}
}

func TestPauseResumeIdempotent(t *testing.T) {
	var mu sync.Mutex
	var logs []string
	cb := Callbacks{OnLog: func(msg string, level LogLevel) {
		mu.Lock()
		logs = append(logs, msg)
		mu.Unlock()
	}}
	o := newTestOrchestrator(t, &scriptedAgent{}, &scriptedAgent{}, cb, fastOpts())
	o.Start()

	o.Pause()
	mu.Lock()
	n := len(logs)
	mu.Unlock()
	o.Pause() // no transition, no notification
	if o.State() != StatePaused {
		t.Fatalf("state = %s", o.State())
	}
	mu.Lock()
	if len(logs) != n {
		mu.Unlock()
		t.Fatalf("duplicate pause produced notifications")
	}
	mu.Unlock()

	o.Resume()
	o.Resume()
	if o.State() != StateRunning {
		t.Fatalf("state = %s", o.State())
	}
	mu.Lock()
	if len(logs) != n+1 {
		mu.Unlock()
		t.Fatalf("resume notifications = %d, want %d", len(logs)-n, 1)
	}
	mu.Unlock()
}

func TestPauseSuspendsTurn(t *testing.T) {
	white := &scriptedAgent{responses: []string{"e2e4"}}
	o := newTestOrchestrator(t, white, &scriptedAgent{}, Callbacks{}, fastOpts())
	o.Start()
	o.Pause()

	done := make(chan *domain.TurnOutcome, 1)
	go func() { done <- o.PlayTurn(context.Background()) }()

	select {
	case out := <-done:
		t.Fatalf("turn ran while paused: %+v", out)
	case <-time.After(40 * time.Millisecond):
	}

	o.Resume()
	select {
	case out := <-done:
		if out == nil || out.Kind != domain.OutcomeMoveApplied {
			t.Fatalf("unexpected outcome after resume: %+v", out)
		}
	case <-time.After(time.Second):
		t.Fatalf("turn did not resume")
	}
}

func TestStopWhilePausedReturnsNil(t *testing.T) {
	o := newTestOrchestrator(t, &scriptedAgent{responses: []string{"e2e4"}}, &scriptedAgent{}, Callbacks{}, fastOpts())
	o.Start()
	o.Pause()

	done := make(chan *domain.TurnOutcome, 1)
	go func() { done <- o.PlayTurn(context.Background()) }()
	time.Sleep(20 * time.Millisecond)
	o.Stop()

	select {
	case out := <-done:
		if out != nil {
			t.Fatalf("expected nil outcome after stop, got %+v", out)
		}
	case <-time.After(time.Second):
		t.Fatalf("turn did not unblock on stop")
	}
	if o.Session().MoveCount() != 0 {
		t.Fatalf("no move may be applied after stop")
	}
}

func TestStopDiscardsInFlightResult(t *testing.T) {
	white := &scriptedAgent{responses: []string{"e2e4"}, delay: 200 * time.Millisecond}
	o := newTestOrchestrator(t, white, &scriptedAgent{}, Callbacks{}, fastOpts())
	o.Start()

	done := make(chan *domain.TurnOutcome, 1)
	go func() { done <- o.PlayTurn(context.Background()) }()
	time.Sleep(20 * time.Millisecond)
	o.Stop()

	out := <-done
	if out != nil {
		t.Fatalf("expected nil outcome, got %+v", out)
	}
	if o.Session().MoveCount() != 0 {
		t.Fatalf("in-flight result must be discarded, history = %v", o.Session().MovesUCI())
	}
}

func TestPlayGameFoolsMate(t *testing.T) {
	white := &scriptedAgent{responses: []string{"f2f3", "g2g4"}}
	black := &scriptedAgent{responses: []string{"e7e5", "d8h4"}}

	var mu sync.Mutex
	var moves []MoveEvent
	var finals []StateSnapshot
	cb := Callbacks{
		OnMove: func(ev MoveEvent) {
			mu.Lock()
			moves = append(moves, ev)
			mu.Unlock()
		},
		OnState: func(s StateSnapshot) {
			mu.Lock()
			finals = append(finals, s)
			mu.Unlock()
		},
	}
	o := newTestOrchestrator(t, white, black, cb, fastOpts())
	o.PlayGame(context.Background())

	if o.State() != StateCompleted {
		t.Fatalf("state = %s", o.State())
	}
	res, ok := o.Session().Result()
	if !ok || res.Winner != "black" || res.Reason != domain.ReasonCheckmate {
		t.Fatalf("result = %+v ok=%v", res, ok)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(moves) != 4 {
		t.Fatalf("move events = %d, want 4", len(moves))
	}
	last := finals[len(finals)-1]
	if !last.GameOver || last.Winner != "black" || last.Reason != string(domain.ReasonCheckmate) {
		t.Fatalf("final snapshot = %+v", last)
	}
}

func TestPlayGameStopsOnFailingTurn(t *testing.T) {
	white := &scriptedAgent{responses: []string{"not a move"}}
	o := newTestOrchestrator(t, white, &scriptedAgent{}, Callbacks{}, fastOpts())
	o.PlayGame(context.Background())

	if o.State() != StateStopped {
		t.Fatalf("state = %s", o.State())
	}
	if o.Session().MoveCount() != 0 {
		t.Fatalf("history should be empty")
	}
}

func TestTimingLedgerAccumulates(t *testing.T) {
	l := NewTimingLedger()
	l.Append(domain.White, 100*time.Millisecond)
	l.Append(domain.White, 300*time.Millisecond)
	l.Append(domain.Black, 50*time.Millisecond)
	l.AddOverhead(10 * time.Millisecond)
	l.AddOverhead(-5 * time.Millisecond) // clamped

	if got := l.Mean(domain.White); got != 200*time.Millisecond {
		t.Fatalf("white mean = %v", got)
	}
	if got := l.Total(domain.White); got != 400*time.Millisecond {
		t.Fatalf("white total = %v", got)
	}
	if l.Count(domain.Black) != 1 {
		t.Fatalf("black count = %d", l.Count(domain.Black))
	}
	if got := l.Overhead(); got != 10*time.Millisecond {
		t.Fatalf("overhead = %v", got)
	}
	lat := l.Latencies(domain.White)
	lat[0] = 0 // copy, not the backing slice
	if l.Latencies(domain.White)[0] != 100*time.Millisecond {
		t.Fatalf("Latencies must return a copy")
	}
}
