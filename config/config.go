// Package config supplies per-provider settings (backend URL, timeouts,
// model parameters, credentials) and a change-notification mechanism that
// providers subscribe to.
package config

import (
	"fmt"
	"os"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Provider identifiers accepted in the Providers list.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// OllamaConfig represents configuration for the Ollama backend.
type OllamaConfig struct {
	Host               string `yaml:"host,omitempty"`                 // default: "http://localhost:11434"
	KeepAlive          string `yaml:"keep_alive,omitempty"`           // model keep-alive duration, e.g. "5m"
	ContextWindow      int    `yaml:"context_window,omitempty"`       // num_ctx sent with each request
	MaxConcurrent      int    `yaml:"max_concurrent,omitempty"`       // rate limiter capacity
	LowActivitySeconds int    `yaml:"low_activity_timeout,omitempty"` // streaming stall timeout
}

// OpenAIConfig represents configuration for the OpenAI backend.
type OpenAIConfig struct {
	APIKey             string `yaml:"api_key,omitempty"`
	BaseURL            string `yaml:"base_url,omitempty"` // custom endpoint (default: official API)
	Organization       string `yaml:"organization,omitempty"`
	MaxConcurrent      int    `yaml:"max_concurrent,omitempty"`
	LowActivitySeconds int    `yaml:"low_activity_timeout,omitempty"`
}

// AnthropicConfig represents configuration for the Anthropic backend.
type AnthropicConfig struct {
	APIKey             string `yaml:"api_key,omitempty"`
	MaxConcurrent      int    `yaml:"max_concurrent,omitempty"`
	LowActivitySeconds int    `yaml:"low_activity_timeout,omitempty"`
}

// Config is the root configuration for the model unification layer.
type Config struct {
	// Providers lists enabled providers in registration order.
	Providers []string `yaml:"providers,omitempty"`

	Ollama    OllamaConfig    `yaml:"ollama,omitempty"`
	OpenAI    OpenAIConfig    `yaml:"openai,omitempty"`
	Anthropic AnthropicConfig `yaml:"anthropic,omitempty"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Providers: []string{ProviderOllama},
		Ollama: OllamaConfig{
			Host:               "http://localhost:11434",
			KeepAlive:          "5m",
			ContextWindow:      2048,
			MaxConcurrent:      4,
			LowActivitySeconds: 30,
		},
		OpenAI: OpenAIConfig{
			MaxConcurrent:      4,
			LowActivitySeconds: 30,
		},
		Anthropic: AnthropicConfig{
			MaxConcurrent:      4,
			LowActivitySeconds: 30,
		},
	}
}

// Load reads a YAML config file, merges it over the defaults, and applies
// environment variable overrides. An empty path yields defaults plus env
// overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // G304: user-specified config path is intentional
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := mergo.Merge(cfg, Default()); err != nil {
		return nil, fmt.Errorf("failed to merge default config: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides lets the environment win over file values for the
// settings operators most commonly inject at deploy time.
func applyEnvOverrides(cfg *Config) {
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		cfg.Ollama.Host = host
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.OpenAI.APIKey = key
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		cfg.OpenAI.BaseURL = baseURL
	}
	if org := os.Getenv("OPENAI_ORG_ID"); org != "" {
		cfg.OpenAI.Organization = org
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		cfg.Anthropic.APIKey = key
	}
}

// LowActivityTimeout returns the streaming stall window for the Ollama backend.
func (c OllamaConfig) LowActivityTimeout() time.Duration {
	return time.Duration(c.LowActivitySeconds) * time.Second
}

// KeepAliveDuration parses the keep-alive setting, defaulting to 5 minutes.
func (c OllamaConfig) KeepAliveDuration() time.Duration {
	d, err := time.ParseDuration(c.KeepAlive)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// LowActivityTimeout returns the streaming stall window for the OpenAI backend.
func (c OpenAIConfig) LowActivityTimeout() time.Duration {
	return time.Duration(c.LowActivitySeconds) * time.Second
}

// LowActivityTimeout returns the streaming stall window for the Anthropic backend.
func (c AnthropicConfig) LowActivityTimeout() time.Duration {
	return time.Duration(c.LowActivitySeconds) * time.Second
}
