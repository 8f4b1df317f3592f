package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/park285/llm-chess-arena/internal/domain"
)

const testConfigYAML = `
providers:
  openai:
    api_key_env_var: TEST_OPENAI_KEY
    models:
      gpt-4:
        name: gpt-4
        temperature: 0.7
        max_tokens: 200
  anthropic:
    api_key_env_var: TEST_ANTHROPIC_KEY
    models:
      claude:
        name: claude-3-opus-20240229
        max_tokens: 300
  gateway:
    wire: openai
    api_key_env_var: TEST_GATEWAY_KEY
    base_url: http://localhost:9999/v1
    models:
      fast:
        name: fast-model
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "llm_config.yaml")
	if err := os.WriteFile(path, []byte(testConfigYAML), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeTestConfig(t))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	pc, err := cfg.provider("openai")
	if err != nil {
		t.Fatalf("provider: %v", err)
	}
	mc, err := pc.model("openai", "gpt-4")
	if err != nil {
		t.Fatalf("model: %v", err)
	}
	if mc.Name != "gpt-4" || mc.MaxTokens != 200 {
		t.Fatalf("unexpected model config: %+v", mc)
	}
	// wire inferred from provider name, or explicit for gateways
	if w, err := pc.wire("openai"); err != nil || w != "openai" {
		t.Fatalf("wire openai: %q %v", w, err)
	}
	gw, _ := cfg.provider("gateway")
	if w, err := gw.wire("gateway"); err != nil || w != "openai" {
		t.Fatalf("wire gateway: %q %v", w, err)
	}
}

func TestNewLLMAgentRequiresKey(t *testing.T) {
	cfg, err := LoadConfig(writeTestConfig(t))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	os.Unsetenv("TEST_OPENAI_KEY")
	if _, err := NewLLMAgent(cfg, "openai", "gpt-4", 0); err == nil {
		t.Fatalf("expected error without API key")
	}
	t.Setenv("TEST_OPENAI_KEY", "sk-test")
	a, err := NewLLMAgent(cfg, "openai", "gpt-4", 0)
	if err != nil {
		t.Fatalf("NewLLMAgent: %v", err)
	}
	if a.Name() != "openai/gpt-4" {
		t.Fatalf("unexpected name: %s", a.Name())
	}
}

func TestBuildMessages(t *testing.T) {
	tc := domain.TurnContext{
		FEN:        "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		SideToMove: domain.White,
		LegalMoves: []string{"e2e4", "d2d4"},
		LastMove:   "",
	}
	msgs := buildMessages(tc, "")
	if len(msgs) != 2 || msgs[0].Role != RoleSystem || msgs[1].Role != RoleUser {
		t.Fatalf("unexpected message shape: %+v", msgs)
	}
	if !strings.Contains(msgs[1].Content, "WHITE") || !strings.Contains(msgs[1].Content, "e2e4, d2d4") {
		t.Fatalf("user prompt missing fields:\n%s", msgs[1].Content)
	}

	tc.DrawOffered = true
	withDraw := buildMessages(tc, "")
	if !strings.Contains(withDraw[1].Content, "offered a draw") {
		t.Fatalf("draw notice missing:\n%s", withDraw[1].Content)
	}

	corrected := buildMessages(tc, "xyz123")
	if !strings.Contains(corrected[1].Content, `"xyz123"`) || !strings.Contains(corrected[1].Content, "invalid") {
		t.Fatalf("correction missing:\n%s", corrected[1].Content)
	}
}

func TestMockAgentPlaysLegalMoves(t *testing.T) {
	m := NewMockAgent("mock/test", WithMockSeed(42), WithMockDelay(0))
	tc := domain.TurnContext{
		SideToMove: domain.White,
		LegalMoves: []string{"e2e4", "d2d4", "g1f3"},
	}
	legal := map[string]bool{"e2e4": true, "d2d4": true, "g1f3": true}
	special := map[string]bool{"RESIGN": true, "REQUEST_DRAW": true}
	for i := 0; i < 100; i++ {
		raw, _, err := m.Propose(context.Background(), tc, "")
		if err != nil {
			t.Fatalf("Propose: %v", err)
		}
		if !legal[raw] && !special[raw] {
			t.Fatalf("unexpected response %q", raw)
		}
	}
	// After a correction the mock must return a legal move, never a keyword.
	for i := 0; i < 50; i++ {
		raw, _, err := m.Propose(context.Background(), tc, "previous was bad")
		if err != nil {
			t.Fatalf("Propose: %v", err)
		}
		if !legal[raw] {
			t.Fatalf("correction attempt returned %q", raw)
		}
	}
}

func TestMockAgentHonorsContext(t *testing.T) {
	m := NewMockAgent("mock/slow", WithMockDelay(5*time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err := m.Propose(ctx, domain.TurnContext{LegalMoves: []string{"e2e4"}}, "")
	if err == nil {
		t.Fatalf("expected context error")
	}
	var agentErr *Error
	if !errors.As(err, &agentErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
}
