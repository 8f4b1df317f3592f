// Package arenadto holds the wire representations shared by the HTTP/WS
// layer and its clients.
package arenadto

import "time"

type CreateGameRequest struct {
	WhiteProvider string `json:"white_provider"`
	WhiteModel    string `json:"white_model"`
	BlackProvider string `json:"black_provider"`
	BlackModel    string `json:"black_model"`
}

type GameState struct {
	ID          string    `json:"id"`
	White       string    `json:"white"`
	Black       string    `json:"black"`
	FEN         string    `json:"fen"`
	Turn        string    `json:"turn"`
	MovesUCI    []string  `json:"moves_uci"`
	MovesSAN    []string  `json:"moves_san"`
	MoveCount   int       `json:"move_count"`
	DrawOffered bool      `json:"draw_offered"`
	Status      string    `json:"status"`
	GameOver    bool      `json:"game_over"`
	Winner      string    `json:"winner,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	WhiteAvgMS  int64     `json:"white_avg_ms"`
	BlackAvgMS  int64     `json:"black_avg_ms"`
	OverheadMS  int64     `json:"overhead_ms"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type MoveEvent struct {
	GameID    string `json:"game_id"`
	Side      string `json:"side"`
	Move      string `json:"move"`
	FEN       string `json:"fen"`
	LatencyMS int64  `json:"latency_ms"`
}

type LogEvent struct {
	GameID  string `json:"game_id"`
	Message string `json:"message"`
	Level   string `json:"level"`
}

// Frame is the envelope for WebSocket fan-out.
// Type is one of "game_state", "move", "log".
type Frame struct {
	Type  string     `json:"type"`
	State *GameState `json:"state,omitempty"`
	Move  *MoveEvent `json:"move,omitempty"`
	Log   *LogEvent  `json:"log,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
