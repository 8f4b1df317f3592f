// Package server exposes the arena over HTTP: a small JSON API for game
// lifecycle, a PNG board view, and a WebSocket feed of live frames.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/llm-chess-arena/internal/arena"
	"github.com/park285/llm-chess-arena/internal/config"
	"github.com/park285/llm-chess-arena/internal/obslog"
	"github.com/park285/llm-chess-arena/internal/render"
	"github.com/park285/llm-chess-arena/pkg/arenadto"
)

const wsWriteTimeout = 5 * time.Second

type Server struct {
	cfg   *config.AppConfig
	reg   *arena.Registry
	store *arena.Store // optional, serves games evicted from the registry
	hub   *Hub

	httpServer *http.Server
}

func New(cfg *config.AppConfig, reg *arena.Registry, store *arena.Store, hub *Hub) *Server {
	s := &Server{cfg: cfg, reg: reg, store: store, hub: hub}
	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /api/games", s.handleCreate)
	mux.HandleFunc("GET /api/games", s.handleList)
	mux.HandleFunc("GET /api/games/{id}", s.handleGet)
	mux.HandleFunc("POST /api/games/{id}/pause", s.handleLifecycle(s.reg.Pause))
	mux.HandleFunc("POST /api/games/{id}/resume", s.handleLifecycle(s.reg.Resume))
	mux.HandleFunc("POST /api/games/{id}/stop", s.handleLifecycle(s.reg.Stop))
	mux.HandleFunc("DELETE /api/games/{id}", s.handleLifecycle(s.reg.Remove))
	mux.HandleFunc("GET /api/games/{id}/board.png", s.handleBoardPNG)
	mux.HandleFunc("GET /api/games/{id}/ws", s.handleWS)
	return mux
}

func (s *Server) ListenAndServe() error {
	obslog.L().Info("arena_http_listen", zap.String("addr", s.httpServer.Addr))
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req arenadto.CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	lg, err := s.reg.Create(r.Context(), arena.CreateParams{
		WhiteProvider: req.WhiteProvider,
		WhiteModel:    req.WhiteModel,
		BlackProvider: req.BlackProvider,
		BlackModel:    req.BlackModel,
	})
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, arena.ErrTooManyGames) {
			status = http.StatusTooManyRequests
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, arena.ToGameState(s.reg.Record(lg)))
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	live := s.reg.List()
	out := make([]arenadto.GameState, 0, len(live))
	for _, lg := range live {
		out = append(out, arena.ToGameState(s.reg.Record(lg)))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.lookup(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, arena.ToGameState(rec))
}

func (s *Server) handleLifecycle(op func(id string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if err := op(id); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, arena.ErrGameNotFound) {
				status = http.StatusNotFound
			}
			writeError(w, status, err.Error())
			return
		}
		if lg, ok := s.reg.Get(id); ok {
			writeJSON(w, http.StatusOK, arena.ToGameState(s.reg.Record(lg)))
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (s *Server) handleBoardPNG(w http.ResponseWriter, r *http.Request) {
	rec, err := s.lookup(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	opts := render.RenderOptions{
		Header:    fmt.Sprintf("%s vs %s", rec.WhiteAgent, rec.BlackAgent),
		TurnLabel: turnLabel(rec),
	}
	if n := len(rec.MovesUCI); n > 0 {
		opts.Highlight = render.HighlightFromUCI(rec.MovesUCI[n-1])
	}
	data, err := render.RenderFEN(r.Context(), rec.FEN, opts)
	if err != nil {
		obslog.L().Error("arena_board_render_error", zap.String("game_id", rec.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, err := s.lookup(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		obslog.L().Warn("arena_ws_accept_error", zap.String("game_id", id), zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closing")

	subID, frames := s.hub.Subscribe(id)
	defer s.hub.Unsubscribe(id, subID)
	obslog.L().Info("arena_ws_subscribe", zap.String("game_id", id), zap.Int("subscriber", subID))

	// the client only listens; CloseRead surfaces disconnects via ctx
	ctx := conn.CloseRead(r.Context())

	state := arena.ToGameState(rec)
	if err := writeFrame(ctx, conn, arenadto.Frame{Type: "game_state", State: &state}); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "bye")
			return
		case frame, ok := <-frames:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "bye")
				return
			}
			if err := writeFrame(ctx, conn, frame); err != nil {
				obslog.L().Info("arena_ws_unsubscribe", zap.String("game_id", id), zap.Int("subscriber", subID))
				return
			}
		}
	}
}

func writeFrame(ctx context.Context, conn *websocket.Conn, frame arenadto.Frame) error {
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, frame)
}

// lookup prefers the live registry and falls back to the snapshot store.
func (s *Server) lookup(ctx context.Context, id string) (*arena.GameRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, arena.ErrGameNotFound
	}
	if lg, ok := s.reg.Get(id); ok {
		return s.reg.Record(lg), nil
	}
	if s.store != nil {
		rec, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			return rec, nil
		}
	}
	return nil, arena.ErrGameNotFound
}

func turnLabel(rec *arena.GameRecord) string {
	if rec.Winner != "" {
		if rec.Winner == "draw" {
			return "Draw · " + rec.Reason
		}
		return rec.Winner + " wins · " + rec.Reason
	}
	return fmt.Sprintf("Move %d · %s to play", len(rec.MovesUCI)+1, rec.Turn)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		obslog.L().Warn("arena_http_encode_error", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, arenadto.ErrorResponse{Error: msg})
}
