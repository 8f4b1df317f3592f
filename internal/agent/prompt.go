package agent

import (
	"fmt"
	"strings"

	"github.com/park285/llm-chess-arena/internal/domain"
)

const systemPrompt = `You are a chess grandmaster playing a game of chess. You will receive the current board position in FEN notation and a list of legal moves. Your task is to choose the best move from the legal moves provided.

Respond with ONLY one of the following:
1. A move in UCI format (e.g., "e2e4", "g1f3", "e7e8q")
2. "REQUEST_DRAW" if you want to offer a draw
3. "RESIGN" if you want to resign
4. "DRAW_ACCEPTED" if the opponent offered a draw and you accept
5. "DRAW_REFUSED" if the opponent offered a draw and you refuse

Examples of valid responses: "e2e4", "g1f3", "REQUEST_DRAW", "RESIGN"

Board position is given in FEN notation.
Legal moves are provided as a list of UCI formatted moves.`

// buildMessages composes the conversation for one attempt. A non-empty
// correction embeds the previous invalid response and asks again.
func buildMessages(tc domain.TurnContext, correction string) []Message {
	var b strings.Builder
	if correction != "" {
		fmt.Fprintf(&b, "Your previous response was invalid: %q\n\n", correction)
	}
	fmt.Fprintf(&b, "Current board position (FEN): %s\n", tc.FEN)
	fmt.Fprintf(&b, "You are playing as: %s\n", strings.ToUpper(string(tc.SideToMove)))
	fmt.Fprintf(&b, "Legal moves: %s", strings.Join(tc.LegalMoves, ", "))
	if tc.LastMove != "" {
		fmt.Fprintf(&b, "\nOpponent's last move: %s", tc.LastMove)
	}
	if correction != "" {
		b.WriteString("\n\nPlease provide a valid move in UCI format or one of: REQUEST_DRAW, RESIGN")
	} else {
		if tc.DrawOffered {
			b.WriteString("\n\nYour opponent has offered a draw. You can respond with 'DRAW_ACCEPTED' or 'DRAW_REFUSED', or make a regular move to refuse.")
		}
		b.WriteString("\n\nRespond with your move in UCI format or one of the special commands (REQUEST_DRAW, RESIGN, DRAW_ACCEPTED, DRAW_REFUSED).")
	}

	return []Message{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleUser, Content: b.String()},
	}
}
