package interpret

import (
	"regexp"
	"strings"

	"github.com/park285/llm-chess-arena/internal/domain"
)

// Reserved keywords an agent may answer instead of a move.
const (
	KeywordResign     = "RESIGN"
	KeywordOfferDraw  = "REQUEST_DRAW"
	KeywordAcceptDraw = "DRAW_ACCEPTED"
	KeywordRefuseDraw = "DRAW_REFUSED"
)

// uciPattern matches plain and promotion moves, e.g. e2e4, e7e8q.
var uciPattern = regexp.MustCompile(`^[a-h][1-8][a-h][1-8][qrbn]?$`)

// Parse maps a raw agent response to a typed Action. Keyword matches are
// case-insensitive and exact; otherwise the first whitespace-delimited token
// is syntax-checked as a UCI move. Anything else is Malformed.
func Parse(raw string) domain.Action {
	text := strings.TrimSpace(raw)
	switch strings.ToUpper(text) {
	case KeywordResign:
		return domain.Action{Kind: domain.ActionResign, Raw: raw}
	case KeywordOfferDraw:
		return domain.Action{Kind: domain.ActionOfferDraw, Raw: raw}
	case KeywordAcceptDraw:
		return domain.Action{Kind: domain.ActionAcceptDraw, Raw: raw}
	case KeywordRefuseDraw:
		return domain.Action{Kind: domain.ActionRefuseDraw, Raw: raw}
	}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		return domain.Action{Kind: domain.ActionMalformed, Raw: raw}
	}
	move := strings.ToLower(fields[0])
	if !uciPattern.MatchString(move) {
		return domain.Action{Kind: domain.ActionMalformed, Raw: raw}
	}
	return domain.Action{Kind: domain.ActionMove, Move: move, Raw: raw}
}
