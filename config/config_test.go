package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if len(cfg.Providers) != 1 || cfg.Providers[0] != ProviderOllama {
		t.Errorf("default providers = %v", cfg.Providers)
	}
	if cfg.Ollama.Host != "http://localhost:11434" {
		t.Errorf("default host = %q", cfg.Ollama.Host)
	}
	if cfg.Ollama.ContextWindow != 2048 {
		t.Errorf("default context window = %d", cfg.Ollama.ContextWindow)
	}
	if cfg.Ollama.MaxConcurrent != 4 {
		t.Errorf("default max concurrent = %d", cfg.Ollama.MaxConcurrent)
	}
	if cfg.Ollama.KeepAliveDuration() != 5*time.Minute {
		t.Errorf("default keep alive = %v", cfg.Ollama.KeepAliveDuration())
	}
	if cfg.Ollama.LowActivityTimeout() != 30*time.Second {
		t.Errorf("default stall window = %v", cfg.Ollama.LowActivityTimeout())
	}
}

func TestLoad_FileMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
providers:
  - ollama
  - openai
ollama:
  host: http://gpu-box:11434
  context_window: 8192
openai:
  api_key: file-key
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Ollama.Host != "http://gpu-box:11434" {
		t.Errorf("host = %q", cfg.Ollama.Host)
	}
	if cfg.Ollama.ContextWindow != 8192 {
		t.Errorf("context window = %d", cfg.Ollama.ContextWindow)
	}
	// Unset fields keep their defaults.
	if cfg.Ollama.MaxConcurrent != 4 {
		t.Errorf("max concurrent = %d, want default 4", cfg.Ollama.MaxConcurrent)
	}
	if cfg.OpenAI.APIKey != "file-key" {
		t.Errorf("api key = %q", cfg.OpenAI.APIKey)
	}
	if len(cfg.Providers) != 2 {
		t.Errorf("providers = %v", cfg.Providers)
	}
}

func TestLoad_EnvOverridesWin(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "http://env-host:11434")
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("ANTHROPIC_API_KEY", "env-anthropic")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Ollama.Host != "http://env-host:11434" {
		t.Errorf("host = %q", cfg.Ollama.Host)
	}
	if cfg.OpenAI.APIKey != "env-key" {
		t.Errorf("openai key = %q", cfg.OpenAI.APIKey)
	}
	if cfg.Anthropic.APIKey != "env-anthropic" {
		t.Errorf("anthropic key = %q", cfg.Anthropic.APIKey)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load of missing file succeeded")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte(":\n  - ["), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load of malformed file succeeded")
	}
}

func TestStore_ReplaceNotifies(t *testing.T) {
	store := NewStore(nil)
	if store.Get() == nil {
		t.Fatal("nil snapshot from fresh store")
	}

	notified := 0
	sub := store.Subscribe(func() { notified++ })
	defer sub.Unsubscribe()

	next := Default()
	next.Ollama.Host = "http://other:11434"
	store.Replace(next)

	if notified != 1 {
		t.Errorf("notified %d times, want 1", notified)
	}
	if store.Get().Ollama.Host != "http://other:11434" {
		t.Errorf("snapshot not replaced: %q", store.Get().Ollama.Host)
	}

	sub.Unsubscribe()
	store.Replace(Default())
	if notified != 1 {
		t.Errorf("unsubscribed callback still called: %d", notified)
	}
}

func TestKeepAliveDuration_Invalid(t *testing.T) {
	cfg := OllamaConfig{KeepAlive: "not-a-duration"}
	if got := cfg.KeepAliveDuration(); got != 5*time.Minute {
		t.Errorf("invalid keep alive = %v, want 5m fallback", got)
	}
}
