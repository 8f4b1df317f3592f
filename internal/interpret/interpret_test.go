package interpret

import (
	"testing"

	"github.com/park285/llm-chess-arena/internal/domain"
)

func TestParseKeywords(t *testing.T) {
	cases := map[string]domain.ActionKind{
		"RESIGN":          domain.ActionResign,
		"resign":          domain.ActionResign,
		"  Resign  ":      domain.ActionResign,
		"REQUEST_DRAW":    domain.ActionOfferDraw,
		"request_draw":    domain.ActionOfferDraw,
		"DRAW_ACCEPTED":   domain.ActionAcceptDraw,
		"DRAW_REFUSED":    domain.ActionRefuseDraw,
		"draw_refused\n":  domain.ActionRefuseDraw,
	}
	for raw, want := range cases {
		if got := Parse(raw); got.Kind != want {
			t.Fatalf("Parse(%q) = %s, want %s", raw, got.Kind, want)
		}
	}
}

func TestParseMoves(t *testing.T) {
	for _, raw := range []string{"e2e4", "E2E4", "g1f3", "e7e8q", "e2e4 best by test", "  a7a8n  "} {
		act := Parse(raw)
		if act.Kind != domain.ActionMove {
			t.Fatalf("Parse(%q) = %s, want move", raw, act.Kind)
		}
		if len(act.Move) < 4 || act.Move[0] < 'a' || act.Move[0] > 'h' {
			t.Fatalf("Parse(%q) move = %q", raw, act.Move)
		}
	}
}

func TestParseMalformed(t *testing.T) {
	for _, raw := range []string{"", "   ", "xyz123", "e2", "e2e9", "i2i4", "e7e8k", "DRAW", "RESIGN NOW"} {
		act := Parse(raw)
		if act.Kind != domain.ActionMalformed {
			t.Fatalf("Parse(%q) = %s, want malformed", raw, act.Kind)
		}
		if act.Raw != raw {
			t.Fatalf("Parse(%q) should keep raw text, got %q", raw, act.Raw)
		}
	}
}
