package arena

import (
	"time"
)

// Status mirrors the orchestrator lifecycle for persisted records.
type Status string

const (
	StatusRunning   Status = "RUNNING"
	StatusPaused    Status = "PAUSED"
	StatusCompleted Status = "COMPLETED"
	StatusStopped   Status = "STOPPED"
)

// GameRecord is the persisted view of one arena game: enough to rebuild a
// spectator display and to archive the result.
type GameRecord struct {
	ID          string    `json:"id"`
	WhiteAgent  string    `json:"white_agent"`
	BlackAgent  string    `json:"black_agent"`
	FEN         string    `json:"fen"`
	MovesUCI    []string  `json:"moves_uci"`
	MovesSAN    []string  `json:"moves_san"`
	Turn        string    `json:"turn"`
	DrawOffered bool      `json:"draw_offered"`
	Status      Status    `json:"status"`
	Winner      string    `json:"winner,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	WhiteAvgMS  int64     `json:"white_avg_ms"`
	BlackAvgMS  int64     `json:"black_avg_ms"`
	OverheadMS  int64     `json:"overhead_ms"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
