package game

import (
	"fmt"
	"strings"
	"sync"
	"time"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/llm-chess-arena/internal/domain"
)

// Session owns one board position plus the orchestrator-level end flags
// (resignation, draw offer, draw agreement) the rules engine does not track.
//
// Mutation happens only through the orchestrator's turn cycle; the mutex
// exists so presentation-layer readers always observe a committed state.
type Session struct {
	mu sync.RWMutex

	game     *nchess.Game
	movesUCI []string
	movesSAN []string

	resigned     domain.Side // empty until a side resigns
	drawOffered  bool
	drawAccepted bool

	createdAt time.Time
	updatedAt time.Time
}

func NewSession() *Session {
	now := time.Now()
	return &Session{
		game:      nchess.NewGame(),
		movesUCI:  []string{},
		movesSAN:  []string{},
		createdAt: now,
		updatedAt: now,
	}
}

// Snapshot builds the immutable per-turn context handed to agents.
func (s *Session) Snapshot() domain.TurnContext {
	s.mu.RLock()
	defer s.mu.RUnlock()

	legal := make([]string, 0, 32)
	for _, mv := range s.game.ValidMoves() {
		legal = append(legal, mv.String())
	}
	last := ""
	if n := len(s.movesUCI); n > 0 {
		last = s.movesUCI[n-1]
	}
	return domain.TurnContext{
		FEN:         s.game.FEN(),
		SideToMove:  s.currentSideLocked(),
		LegalMoves:  legal,
		LastMove:    last,
		DrawOffered: s.drawOffered,
		MoveNumber:  len(s.movesUCI) + 1,
	}
}

// ApplyMove pushes a UCI move. Returns false when the engine rejects it.
// A successful move clears any pending draw offer.
func (s *Session) ApplyMove(uci string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	uci = strings.ToLower(strings.TrimSpace(uci))
	if uci == "" {
		return false
	}
	pos := s.game.Position()
	mv, err := nchess.UCINotation{}.Decode(pos, uci)
	if err != nil {
		return false
	}
	san := nchess.AlgebraicNotation{}.Encode(pos, mv)
	if err := s.game.Move(mv, nil); err != nil {
		return false
	}
	s.movesUCI = append(s.movesUCI, uci)
	s.movesSAN = append(s.movesSAN, san)
	s.drawOffered = false
	s.updatedAt = time.Now()
	return true
}

// PassTurn hands the move to the opponent without touching the board,
// used when a draw offer transfers the decision. Implemented by flipping
// the side-to-move field of the FEN and reloading the position.
func (s *Session) PassTurn() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fields := strings.Fields(s.game.FEN())
	if len(fields) != 6 {
		return fmt.Errorf("unexpected fen: %q", s.game.FEN())
	}
	if fields[1] == "w" {
		fields[1] = "b"
	} else {
		fields[1] = "w"
	}
	fields[3] = "-" // en passant no longer applies after a pass
	opt, err := nchess.FEN(strings.Join(fields, " "))
	if err != nil {
		return fmt.Errorf("pass turn: %w", err)
	}
	s.game = nchess.NewGame(opt)
	s.updatedAt = time.Now()
	return nil
}

// OfferDraw marks a pending draw offer from the side to move.
func (s *Session) OfferDraw() {
	s.mu.Lock()
	s.drawOffered = true
	s.updatedAt = time.Now()
	s.mu.Unlock()
}

// RefuseDraw clears a pending offer.
func (s *Session) RefuseDraw() {
	s.mu.Lock()
	s.drawOffered = false
	s.updatedAt = time.Now()
	s.mu.Unlock()
}

// AcceptDraw records draw agreement; the game is terminal afterwards.
func (s *Session) AcceptDraw() {
	s.mu.Lock()
	s.drawOffered = false
	s.drawAccepted = true
	s.updatedAt = time.Now()
	s.mu.Unlock()
}

// Resign records resignation by the given side; the game is terminal afterwards.
func (s *Session) Resign(side domain.Side) {
	s.mu.Lock()
	s.resigned = side
	s.updatedAt = time.Now()
	s.mu.Unlock()
}

func (s *Session) DrawOffered() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.drawOffered
}

func (s *Session) CurrentSide() domain.Side {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentSideLocked()
}

func (s *Session) currentSideLocked() domain.Side {
	if s.game.Position().Turn() == nchess.White {
		return domain.White
	}
	return domain.Black
}

// IsTerminal covers engine end states plus resignation and agreed draws.
func (s *Session) IsTerminal() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isTerminalLocked()
}

func (s *Session) isTerminalLocked() bool {
	if s.resigned != "" || s.drawAccepted {
		return true
	}
	return s.game.Outcome() != nchess.NoOutcome
}

// TerminalReason returns the end condition when the game is over.
func (s *Session) TerminalReason() (domain.TerminalReason, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.terminalReasonLocked()
}

func (s *Session) terminalReasonLocked() (domain.TerminalReason, bool) {
	if s.resigned != "" {
		return domain.ReasonResignation, true
	}
	if s.drawAccepted {
		return domain.ReasonDrawAgreed, true
	}
	switch s.game.Method() {
	case nchess.Checkmate:
		return domain.ReasonCheckmate, true
	case nchess.Stalemate:
		return domain.ReasonStalemate, true
	case nchess.InsufficientMaterial:
		return domain.ReasonInsufficientMaterial, true
	case nchess.ThreefoldRepetition, nchess.FivefoldRepetition:
		return domain.ReasonRepetition, true
	case nchess.FiftyMoveRule, nchess.SeventyFiveMoveRule:
		return domain.ReasonMoveRule, true
	}
	if s.game.Outcome() != nchess.NoOutcome {
		return domain.ReasonMoveRule, true
	}
	return "", false
}

// Result resolves winner and reason. Valid only once terminal.
func (s *Session) Result() (domain.GameResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reason, ok := s.terminalReasonLocked()
	if !ok {
		return domain.GameResult{}, false
	}
	res := domain.GameResult{Reason: reason}
	switch {
	case s.resigned != "":
		res.Winner = string(s.resigned.Opponent())
	case reason == domain.ReasonCheckmate:
		switch s.game.Outcome() {
		case nchess.WhiteWon:
			res.Winner = string(domain.White)
		case nchess.BlackWon:
			res.Winner = string(domain.Black)
		}
	default:
		res.Winner = "draw"
	}
	return res, true
}

func (s *Session) FEN() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.game.FEN()
}

// MovesUCI returns a copy of the applied move history.
func (s *Session) MovesUCI() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.movesUCI...)
}

// MovesSAN returns a copy of the SAN history, aligned with MovesUCI.
func (s *Session) MovesSAN() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.movesSAN...)
}

func (s *Session) MoveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.movesUCI)
}

func (s *Session) CreatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.createdAt
}

func (s *Session) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}
