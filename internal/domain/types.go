package domain

import (
	"strings"
	"time"
)

// Side identifies one of the two competing roles.
type Side string

const (
	White Side = "white"
	Black Side = "black"
)

func (s Side) Opponent() Side {
	if s == White {
		return Black
	}
	return White
}

func (s Side) Title() string {
	if s == Black {
		return "Black"
	}
	return "White"
}

func ParseSide(v string) Side {
	if strings.EqualFold(strings.TrimSpace(v), "black") {
		return Black
	}
	return White
}

// ActionKind tags the typed interpretation of a raw agent response.
type ActionKind string

const (
	ActionMove       ActionKind = "move"
	ActionOfferDraw  ActionKind = "offer_draw"
	ActionResign     ActionKind = "resign"
	ActionAcceptDraw ActionKind = "accept_draw"
	ActionRefuseDraw ActionKind = "refuse_draw"
	ActionMalformed  ActionKind = "malformed"
)

// Action is the interpreted form of one agent response.
// Move carries the UCI string; Malformed carries the raw text for correction prompts.
type Action struct {
	Kind ActionKind
	Move string
	Raw  string
}

// OutcomeKind tags the result of one completed turn.
type OutcomeKind string

const (
	OutcomeMoveApplied      OutcomeKind = "move_applied"
	OutcomeDrawOffered      OutcomeKind = "draw_offered"
	OutcomeResigned         OutcomeKind = "resigned"
	OutcomeDrawAccepted     OutcomeKind = "draw_accepted"
	OutcomeRetriesExhausted OutcomeKind = "retries_exhausted"
	OutcomeAgentFailure     OutcomeKind = "agent_failure"
)

// TurnOutcome is the result of one fully resolved turn (possibly several attempts).
type TurnOutcome struct {
	Kind    OutcomeKind
	Side    Side
	Move    string
	Latency time.Duration
	Reason  string
}

// IsFailure reports whether the outcome should end the hosting game loop as an error.
func (o TurnOutcome) IsFailure() bool {
	return o.Kind == OutcomeRetriesExhausted || o.Kind == OutcomeAgentFailure
}

// TurnContext is an immutable per-attempt snapshot handed to an agent.
type TurnContext struct {
	FEN         string
	SideToMove  Side
	LegalMoves  []string
	LastMove    string
	DrawOffered bool
	MoveNumber  int
}

// HasLegal reports membership of a UCI move in the snapshot's legal set.
func (c TurnContext) HasLegal(uci string) bool {
	for _, m := range c.LegalMoves {
		if m == uci {
			return true
		}
	}
	return false
}

// TerminalReason names a game-ending condition, engine-detected or orchestrator-level.
type TerminalReason string

const (
	ReasonCheckmate            TerminalReason = "checkmate"
	ReasonStalemate            TerminalReason = "stalemate"
	ReasonInsufficientMaterial TerminalReason = "insufficient_material"
	ReasonRepetition           TerminalReason = "repetition"
	ReasonMoveRule             TerminalReason = "move_rule"
	ReasonResignation          TerminalReason = "resignation"
	ReasonDrawAgreed           TerminalReason = "draw_agreed"
	ReasonTurnLimit            TerminalReason = "turn_limit"
	ReasonStopped              TerminalReason = "stopped"
	ReasonError                TerminalReason = "error"
)

// IsDraw reports whether the reason resolves the game as a draw.
func (r TerminalReason) IsDraw() bool {
	switch r {
	case ReasonStalemate, ReasonInsufficientMaterial, ReasonRepetition, ReasonMoveRule, ReasonDrawAgreed:
		return true
	}
	return false
}

// GameResult is the resolved end state surfaced to observers and the archive.
// Winner is "white", "black", or "draw"; empty while the game is still running.
type GameResult struct {
	Winner string
	Reason TerminalReason
}
