package ollama

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/samber/lo"

	"github.com/aschepis/backscratcher/modelhub/llm"
)

func TestModel_ToChatRequest(t *testing.T) {
	m := &Model{
		name:          "llama3",
		contextWindow: 2048,
		keepAlive:     5 * time.Minute,
	}

	req := &llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "be terse"},
			{Role: llm.RoleUser, Content: "hello"},
			{Role: llm.RoleAssistant, Content: "hi"},
		},
		Stop:        []string{"\n\n"},
		Temperature: lo.ToPtr(0.2),
	}

	chatReq := m.toChatRequest(req)

	if chatReq.Model != "llama3" {
		t.Errorf("model = %q", chatReq.Model)
	}
	if chatReq.Stream == nil || !*chatReq.Stream {
		t.Error("streaming not requested")
	}
	if chatReq.KeepAlive == nil || chatReq.KeepAlive.Duration != 5*time.Minute {
		t.Errorf("keep alive = %v", chatReq.KeepAlive)
	}

	wantRoles := []string{"system", "user", "assistant"}
	if len(chatReq.Messages) != len(wantRoles) {
		t.Fatalf("got %d messages, want %d", len(chatReq.Messages), len(wantRoles))
	}
	for i, msg := range chatReq.Messages {
		if msg.Role != wantRoles[i] {
			t.Errorf("message[%d].Role = %q, want %q", i, msg.Role, wantRoles[i])
		}
	}

	if chatReq.Options["num_ctx"] != 2048 {
		t.Errorf("num_ctx = %v", chatReq.Options["num_ctx"])
	}
	if chatReq.Options["temperature"] != 0.2 {
		t.Errorf("temperature = %v", chatReq.Options["temperature"])
	}
	stop, ok := chatReq.Options["stop"].([]string)
	if !ok || len(stop) != 1 || stop[0] != "\n\n" {
		t.Errorf("stop = %v", chatReq.Options["stop"])
	}
}

func TestModel_ToChatRequestTemperatureBounds(t *testing.T) {
	m := &Model{name: "llama3", contextWindow: 2048}

	chatReq := m.toChatRequest(llm.NewTextRequest(llm.RoleUser, "hello"))
	if _, ok := chatReq.Options["temperature"]; ok {
		t.Errorf("unset temperature sent as %v", chatReq.Options["temperature"])
	}

	chatReq = m.toChatRequest(&llm.Request{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: "hello"}},
		Temperature: lo.ToPtr(0.0),
	})
	if chatReq.Options["temperature"] != 0.0 {
		t.Errorf("zero temperature = %v, want 0", chatReq.Options["temperature"])
	}
}

func TestModel_CountTokensUsesHeuristic(t *testing.T) {
	m := &Model{name: "llama3", contextWindow: 2048}

	req := llm.NewTextRequest(llm.RoleUser, strings.Repeat("a", 4000))
	got, err := m.CountTokens(context.Background(), req)
	if err != nil {
		t.Fatalf("CountTokens: %v", err)
	}
	if got != 1000 {
		t.Errorf("CountTokens = %d, want 1000", got)
	}
}

func TestModel_Identity(t *testing.T) {
	m := &Model{name: "llama3:8b", contextWindow: 4096}

	if m.ID() != "llama3:8b" || m.Name() != "llama3:8b" {
		t.Errorf("identity = %s / %s", m.ID(), m.Name())
	}
	if m.TelemetryID() != "ollama/llama3:8b" {
		t.Errorf("telemetry ID = %q", m.TelemetryID())
	}
	if m.MaxTokenCount() != 4096 {
		t.Errorf("max tokens = %d", m.MaxTokenCount())
	}
	if m.ProviderID() != ProviderID || m.ProviderName() != ProviderName {
		t.Error("provider identity mismatch")
	}
}

func TestModel_StreamFailsFastWhenUnauthenticated(t *testing.T) {
	p := newTestProvider(&fakeAPI{})
	defer p.Close()
	p.newClient = func(string) (apiClient, error) {
		t.Fatal("client constructed for unauthenticated stream")
		return nil, nil
	}

	m := &Model{provider: p, name: "llama3"}
	_, err := m.StreamCompletion(context.Background(), llm.NewTextRequest(llm.RoleUser, "hi"))
	if !llm.IsAuthenticationRequired(err) {
		t.Errorf("err = %v, want authentication required", err)
	}
}

func TestModel_UseAnyToolUnsupported(t *testing.T) {
	m := &Model{name: "llama3"}

	_, err := m.UseAnyTool(context.Background(), llm.NewTextRequest(llm.RoleUser, "hi"), "tool", "desc", nil)
	if !llm.IsUnsupportedOperation(err) {
		t.Errorf("err = %v, want unsupported operation", err)
	}
}
