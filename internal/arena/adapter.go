package arena

import "github.com/park285/llm-chess-arena/pkg/arenadto"

// ToGameState converts a persisted record into the wire shape.
func ToGameState(rec *GameRecord) arenadto.GameState {
	return arenadto.GameState{
		ID:          rec.ID,
		White:       rec.WhiteAgent,
		Black:       rec.BlackAgent,
		FEN:         rec.FEN,
		Turn:        rec.Turn,
		MovesUCI:    rec.MovesUCI,
		MovesSAN:    rec.MovesSAN,
		MoveCount:   len(rec.MovesUCI),
		DrawOffered: rec.DrawOffered,
		Status:      string(rec.Status),
		GameOver:    rec.Status == StatusCompleted || rec.Status == StatusStopped,
		Winner:      rec.Winner,
		Reason:      rec.Reason,
		WhiteAvgMS:  rec.WhiteAvgMS,
		BlackAvgMS:  rec.BlackAvgMS,
		OverheadMS:  rec.OverheadMS,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}
