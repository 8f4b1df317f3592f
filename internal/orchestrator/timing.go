package orchestrator

import (
	"sync"
	"time"

	"github.com/park285/llm-chess-arena/internal/domain"
)

// TimingLedger accumulates per-side agent latencies plus the orchestrator's
// own overhead (wall time minus reported agent latency). Append-only; reset
// only by creating a new ledger with the session.
type TimingLedger struct {
	mu        sync.Mutex
	latencies map[domain.Side][]time.Duration
	overhead  time.Duration
}

func NewTimingLedger() *TimingLedger {
	return &TimingLedger{latencies: map[domain.Side][]time.Duration{}}
}

func (t *TimingLedger) Append(side domain.Side, d time.Duration) {
	t.mu.Lock()
	t.latencies[side] = append(t.latencies[side], d)
	t.mu.Unlock()
}

func (t *TimingLedger) AddOverhead(d time.Duration) {
	if d < 0 {
		d = 0
	}
	t.mu.Lock()
	t.overhead += d
	t.mu.Unlock()
}

func (t *TimingLedger) Count(side domain.Side) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.latencies[side])
}

func (t *TimingLedger) Total(side domain.Side) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	var sum time.Duration
	for _, d := range t.latencies[side] {
		sum += d
	}
	return sum
}

func (t *TimingLedger) Mean(side domain.Side) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.latencies[side])
	if n == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range t.latencies[side] {
		sum += d
	}
	return sum / time.Duration(n)
}

func (t *TimingLedger) Overhead() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.overhead
}

// Latencies returns a copy of the observed latencies for one side.
func (t *TimingLedger) Latencies(side domain.Side) []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]time.Duration(nil), t.latencies[side]...)
}
