package agent

import (
	"strings"
	"time"
)

// New builds the agent for one side. Provider or model "mock" selects the
// offline random-move agent; anything else resolves through the YAML config.
func New(cfg *Config, provider, modelAlias string, callTimeout time.Duration) (Agent, error) {
	p := strings.ToLower(strings.TrimSpace(provider))
	m := strings.ToLower(strings.TrimSpace(modelAlias))
	if p == "" || p == "mock" || m == "mock" {
		return NewMockAgent("mock/" + firstNonEmpty(m, "random")), nil
	}
	return NewLLMAgent(cfg, provider, modelAlias, callTimeout)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
