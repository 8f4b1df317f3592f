package arena

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// Archive persists finished games. The Postgres implementation is used in
// production; an in-memory one serves development and tests.
type Archive interface {
	SaveResult(ctx context.Context, rec *GameRecord) error
	Close() error
}

type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveResult upserts a finished game into the archive table.
func (r *Repository) SaveResult(ctx context.Context, rec *GameRecord) error {
	if r == nil || r.db == nil || rec == nil {
		return nil
	}

	pgnResult := mapResultToPGN(rec.Winner)
	pgn := buildPGN(rec, pgnResult)
	movesUCIRaw, _ := json.Marshal(rec.MovesUCI)
	movesSANRaw, _ := json.Marshal(rec.MovesSAN)
	duration := rec.UpdatedAt.Sub(rec.CreatedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	q := `INSERT INTO arena_games (
        game_id, white_agent, black_agent,
        result, result_reason, moves_uci, moves_san, pgn,
        white_avg_ms, black_avg_ms, overhead_ms,
        started_at, ended_at, duration_ms
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
      ) ON CONFLICT (game_id) DO UPDATE SET
        result=EXCLUDED.result,
        result_reason=EXCLUDED.result_reason,
        moves_uci=EXCLUDED.moves_uci,
        moves_san=EXCLUDED.moves_san,
        pgn=EXCLUDED.pgn,
        white_avg_ms=EXCLUDED.white_avg_ms,
        black_avg_ms=EXCLUDED.black_avg_ms,
        overhead_ms=EXCLUDED.overhead_ms,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms`

	_, err := r.db.ExecContext(ctx, q,
		rec.ID,
		rec.WhiteAgent, rec.BlackAgent,
		rec.Winner, rec.Reason, string(movesUCIRaw), string(movesSANRaw), pgn,
		rec.WhiteAvgMS, rec.BlackAvgMS, rec.OverheadMS,
		rec.CreatedAt, rec.UpdatedAt, duration,
	)
	return err
}

func mapResultToPGN(winner string) string {
	switch strings.ToLower(strings.TrimSpace(winner)) {
	case "white":
		return "1-0"
	case "black":
		return "0-1"
	case "draw":
		return "1/2-1/2"
	default:
		return "*"
	}
}

func buildPGN(rec *GameRecord, pgnResult string) string {
	if rec == nil {
		return ""
	}
	var b strings.Builder
	date := rec.UpdatedAt
	if date.IsZero() {
		date = time.Now()
	}
	b.WriteString("[Event \"LLM Arena\"]\n")
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString(fmt.Sprintf("[White \"%s\"]\n", sanitizePGN(rec.WhiteAgent)))
	b.WriteString(fmt.Sprintf("[Black \"%s\"]\n", sanitizePGN(rec.BlackAgent)))
	if strings.TrimSpace(rec.Reason) != "" {
		b.WriteString(fmt.Sprintf("[Termination \"%s\"]\n", sanitizePGN(strings.ToLower(rec.Reason))))
	}
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n\n", pgnResult))

	for i := 0; i < len(rec.MovesSAN); i += 2 {
		turn := (i / 2) + 1
		b.WriteString(fmt.Sprintf("%d. %s", turn, strings.TrimSpace(rec.MovesSAN[i])))
		if i+1 < len(rec.MovesSAN) {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(rec.MovesSAN[i+1]))
		}
		b.WriteString(" ")
	}
	b.WriteString(pgnResult)
	return b.String()
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
