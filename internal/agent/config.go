package agent

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config mirrors the llm_config.yaml surface: named providers, each with an
// API-key environment variable and a set of model aliases.
type Config struct {
	Providers map[string]ProviderConfig `yaml:"providers"`
}

type ProviderConfig struct {
	// Wire describes the request format: "openai" (chat completions,
	// also used by compatible gateways) or "anthropic" (messages API).
	// Empty means the provider name itself when it is one of the two.
	Wire         string                 `yaml:"wire"`
	APIKeyEnvVar string                 `yaml:"api_key_env_var"`
	BaseURL      string                 `yaml:"base_url"`
	Models       map[string]ModelConfig `yaml:"models"`
}

type ModelConfig struct {
	Name        string  `yaml:"name"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read agents config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse agents config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) provider(name string) (ProviderConfig, error) {
	if c == nil || len(c.Providers) == 0 {
		return ProviderConfig{}, fmt.Errorf("no providers configured")
	}
	pc, ok := c.Providers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return ProviderConfig{}, fmt.Errorf("unknown provider %q", name)
	}
	return pc, nil
}

func (pc ProviderConfig) wire(providerName string) (string, error) {
	w := strings.ToLower(strings.TrimSpace(pc.Wire))
	if w == "" {
		w = strings.ToLower(strings.TrimSpace(providerName))
	}
	switch w {
	case "openai", "anthropic":
		return w, nil
	}
	return "", fmt.Errorf("provider %q: unsupported wire format %q", providerName, pc.Wire)
}

func (pc ProviderConfig) model(providerName, alias string) (ModelConfig, error) {
	mc, ok := pc.Models[strings.TrimSpace(alias)]
	if !ok {
		return ModelConfig{}, fmt.Errorf("provider %q: unknown model %q", providerName, alias)
	}
	if strings.TrimSpace(mc.Name) == "" {
		mc.Name = alias
	}
	if mc.MaxTokens <= 0 {
		mc.MaxTokens = 256
	}
	return mc, nil
}

func (pc ProviderConfig) apiKey(providerName string) (string, error) {
	envVar := strings.TrimSpace(pc.APIKeyEnvVar)
	if envVar == "" {
		return "", fmt.Errorf("provider %q: api_key_env_var not set", providerName)
	}
	key := strings.TrimSpace(os.Getenv(envVar))
	if key == "" {
		return "", fmt.Errorf("provider %q: API key not found in %s", providerName, envVar)
	}
	return key, nil
}
