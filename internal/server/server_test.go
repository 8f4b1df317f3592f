package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/llm-chess-arena/internal/agent"
	"github.com/park285/llm-chess-arena/internal/arena"
	"github.com/park285/llm-chess-arena/internal/config"
	"github.com/park285/llm-chess-arena/internal/orchestrator"
	"github.com/park285/llm-chess-arena/pkg/arenadto"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server, *arena.Registry) {
	t.Helper()
	opts := orchestrator.Options{
		MaxRetries:   3,
		MaxTurns:     30,
		TurnPacing:   5 * time.Millisecond,
		PausePoll:    time.Millisecond,
		AgentBackoff: time.Millisecond,
	}
	reg := arena.NewRegistry(&agent.Config{}, opts, 8)
	hub := NewHub()
	reg.SetSinks(hub.Sinks())
	srv := New(&config.AppConfig{ListenAddr: "127.0.0.1:0"}, reg, nil, hub)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		reg.Shutdown(context.Background())
	})
	return srv, ts, reg
}

func createMockGame(t *testing.T, ts *httptest.Server) arenadto.GameState {
	t.Helper()
	body, _ := json.Marshal(arenadto.CreateGameRequest{
		WhiteProvider: "mock",
		BlackProvider: "mock",
	})
	resp, err := http.Post(ts.URL+"/api/games", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var state arenadto.GameState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return state
}

func TestHealth(t *testing.T) {
	_, ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestCreateAndGetGame(t *testing.T) {
	_, ts, _ := newTestServer(t)
	state := createMockGame(t, ts)
	if state.ID == "" || state.White == "" || state.Black == "" {
		t.Fatalf("incomplete state: %+v", state)
	}

	resp, err := http.Get(ts.URL + "/api/games/" + state.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	var got arenadto.GameState
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != state.ID {
		t.Fatalf("id mismatch: %q != %q", got.ID, state.ID)
	}
}

func TestGetUnknownGame(t *testing.T) {
	_, ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/games/nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestLifecycleEndpoints(t *testing.T) {
	_, ts, _ := newTestServer(t)
	state := createMockGame(t, ts)

	for _, op := range []string{"pause", "resume", "stop"} {
		resp, err := http.Post(ts.URL+"/api/games/"+state.ID+"/"+op, "application/json", nil)
		if err != nil {
			t.Fatalf("%s: %v", op, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s status = %d", op, resp.StatusCode)
		}
	}

	resp, err := http.Post(ts.URL+"/api/games/nope/pause", "application/json", nil)
	if err != nil {
		t.Fatalf("pause missing: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("pause missing status = %d", resp.StatusCode)
	}
}

func TestBoardPNG(t *testing.T) {
	_, ts, _ := newTestServer(t)
	state := createMockGame(t, ts)

	resp, err := http.Get(ts.URL + "/api/games/" + state.ID + "/board.png")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type = %q", ct)
	}
}

func TestWebSocketStreamsFrames(t *testing.T) {
	_, ts, _ := newTestServer(t)
	state := createMockGame(t, ts)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wsURL := strings.Replace(ts.URL, "http://", "ws://", 1) + "/api/games/" + state.ID + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	var first arenadto.Frame
	if err := wsjson.Read(ctx, conn, &first); err != nil {
		t.Fatalf("read: %v", err)
	}
	if first.Type != "game_state" || first.State == nil {
		t.Fatalf("expected initial game_state frame, got %+v", first)
	}
	if first.State.ID != state.ID {
		t.Fatalf("frame game id %q != %q", first.State.ID, state.ID)
	}

	// at least one more frame should arrive while the mock game runs
	var second arenadto.Frame
	if err := wsjson.Read(ctx, conn, &second); err != nil {
		t.Fatalf("read second: %v", err)
	}
	if second.Type == "" {
		t.Fatalf("empty frame type: %+v", second)
	}
}

func TestHubDropsSlowSubscribers(t *testing.T) {
	hub := NewHub()
	id, ch := hub.Subscribe("g")
	defer hub.Unsubscribe("g", id)

	for i := 0; i < subscriberBuffer+10; i++ {
		hub.Broadcast("g", arenadto.Frame{Type: "log"})
	}
	if len(ch) != subscriberBuffer {
		t.Fatalf("expected full buffer, got %d", len(ch))
	}
}
