package agent

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/park285/llm-chess-arena/internal/domain"
	"github.com/park285/llm-chess-arena/internal/interpret"
)

// MockAgent plays random legal moves with a small chance of resigning or
// offering a draw, so games exercise the full action space without API keys.
type MockAgent struct {
	name  string
	delay time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

type MockOption func(*MockAgent)

func WithMockDelay(d time.Duration) MockOption {
	return func(m *MockAgent) { m.delay = d }
}

func WithMockSeed(seed int64) MockOption {
	return func(m *MockAgent) { m.rng = rand.New(rand.NewSource(seed)) }
}

func NewMockAgent(name string, opts ...MockOption) *MockAgent {
	if name == "" {
		name = "mock"
	}
	m := &MockAgent{
		name:  name,
		delay: 50 * time.Millisecond,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MockAgent) Name() string { return m.name }

func (m *MockAgent) Propose(ctx context.Context, tc domain.TurnContext, correction string) (string, time.Duration, error) {
	start := time.Now()
	if m.delay > 0 {
		t := time.NewTimer(m.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return "", time.Since(start), &Error{Provider: m.name, Err: ctx.Err()}
		case <-t.C:
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(tc.LegalMoves) == 0 {
		return interpret.KeywordResign, time.Since(start), nil
	}
	// After a correction just play a legal move so retries resolve.
	if correction == "" {
		if tc.DrawOffered && m.rng.Float64() < 0.5 {
			return interpret.KeywordAcceptDraw, time.Since(start), nil
		}
		if m.rng.Float64() < 0.02 {
			return interpret.KeywordResign, time.Since(start), nil
		}
		if m.rng.Float64() < 0.05 {
			return interpret.KeywordOfferDraw, time.Since(start), nil
		}
	}
	move := tc.LegalMoves[m.rng.Intn(len(tc.LegalMoves))]
	return move, time.Since(start), nil
}
