package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/park285/llm-chess-arena/internal/domain"
)

const (
	defaultOpenAIBaseURL    = "https://api.openai.com/v1"
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
)

// LLMAgent speaks either the OpenAI chat-completions wire format or the
// Anthropic messages wire format, selected per provider in the YAML config.
type LLMAgent struct {
	provider string
	wire     string
	apiKey   string
	model    ModelConfig
	client   *httpClient
}

// NewLLMAgent resolves provider/model from cfg and checks the API key up
// front so a misconfigured agent fails at setup, not mid-game.
func NewLLMAgent(cfg *Config, provider, modelAlias string, callTimeout time.Duration) (*LLMAgent, error) {
	pc, err := cfg.provider(provider)
	if err != nil {
		return nil, err
	}
	wire, err := pc.wire(provider)
	if err != nil {
		return nil, err
	}
	mc, err := pc.model(provider, modelAlias)
	if err != nil {
		return nil, err
	}
	key, err := pc.apiKey(provider)
	if err != nil {
		return nil, err
	}
	base := strings.TrimSpace(pc.BaseURL)
	if base == "" {
		if wire == "anthropic" {
			base = defaultAnthropicBaseURL
		} else {
			base = defaultOpenAIBaseURL
		}
	}
	return &LLMAgent{
		provider: strings.ToLower(strings.TrimSpace(provider)),
		wire:     wire,
		apiKey:   key,
		model:    mc,
		client:   newHTTPClient(base, callTimeout),
	}, nil
}

func (a *LLMAgent) Name() string {
	return fmt.Sprintf("%s/%s", a.provider, a.model.Name)
}

func (a *LLMAgent) Propose(ctx context.Context, tc domain.TurnContext, correction string) (string, time.Duration, error) {
	messages := buildMessages(tc, correction)
	start := time.Now()
	var (
		text string
		err  error
	)
	switch a.wire {
	case "anthropic":
		text, err = a.sendAnthropic(ctx, messages)
	default:
		text, err = a.sendOpenAI(ctx, messages)
	}
	latency := time.Since(start)
	if err != nil {
		return "", latency, &Error{Provider: a.Name(), Err: err}
	}
	return strings.TrimSpace(text), latency, nil
}

type openAIRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (a *LLMAgent) sendOpenAI(ctx context.Context, messages []Message) (string, error) {
	req := openAIRequest{
		Model:       a.model.Name,
		Messages:    messages,
		Temperature: a.model.Temperature,
		MaxTokens:   a.model.MaxTokens,
	}
	headers := map[string]string{"Authorization": "Bearer " + a.apiKey}
	var resp openAIResponse
	if err := a.client.postJSON(ctx, "/chat/completions", headers, req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

type anthropicRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (a *LLMAgent) sendAnthropic(ctx context.Context, messages []Message) (string, error) {
	req := anthropicRequest{
		Model:       a.model.Name,
		MaxTokens:   a.model.MaxTokens,
		Temperature: a.model.Temperature,
	}
	for _, m := range messages {
		if m.Role == RoleSystem {
			req.System = m.Content
			continue
		}
		req.Messages = append(req.Messages, m)
	}
	headers := map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": anthropicVersion,
	}
	var resp anthropicResponse
	if err := a.client.postJSON(ctx, "/v1/messages", headers, req, &resp); err != nil {
		return "", err
	}
	for _, block := range resp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text block in response")
}
