package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/park285/llm-chess-arena/internal/domain"
)

// Agent is the move-proposing capability: given a turn context (and an
// optional correction after an invalid attempt) it returns the raw textual
// response plus the provider-reported latency.
type Agent interface {
	Name() string
	Propose(ctx context.Context, tc domain.TurnContext, correction string) (string, time.Duration, error)
}

// Error marks transport/provider-level failures so the orchestrator can
// distinguish them from malformed-but-delivered responses.
type Error struct {
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("agent %s: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Message is one turn of the conversational context sent to a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
