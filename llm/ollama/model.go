package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/samber/lo"

	"github.com/aschepis/backscratcher/modelhub/llm"
)

// Model is one chat-capable model served by the local Ollama instance. It is
// a cheap handle: all state lives on the provider, so callers may construct
// and discard handles freely.
type Model struct {
	provider      *Provider
	name          string
	contextWindow int
	keepAlive     time.Duration
}

func (m *Model) ID() llm.ModelID {
	return llm.ModelID(m.name)
}

func (m *Model) Name() llm.ModelName {
	return llm.ModelName(m.name)
}

func (m *Model) ProviderID() llm.ProviderID {
	return ProviderID
}

func (m *Model) ProviderName() llm.ProviderName {
	return ProviderName
}

func (m *Model) TelemetryID() string {
	return fmt.Sprintf("ollama/%s", m.name)
}

func (m *Model) MaxTokenCount() int {
	return m.contextWindow
}

// CountTokens estimates the request size. Ollama exposes no tokenization
// endpoint, so the estimate is the chars/4 heuristic.
func (m *Model) CountTokens(_ context.Context, req *llm.Request) (int, error) {
	return llm.EstimateTokens(req), nil
}

// StreamCompletion sends req to the backend and returns a stream of text
// deltas. The provider's concurrency permit is held until the stream is
// drained or closed.
func (m *Model) StreamCompletion(ctx context.Context, req *llm.Request) (llm.CompletionStream, error) {
	if !m.provider.IsAuthenticated() {
		return nil, llm.NewAuthenticationRequiredError(ProviderName)
	}

	cfg := m.provider.store.Get().Ollama
	client, err := m.provider.newClient(cfg.Host)
	if err != nil {
		return nil, llm.NewBackendUnreachableError("invalid ollama host", err)
	}

	chatReq := m.toChatRequest(req)
	return m.provider.limiter.Stream(ctx, func(ctx context.Context) (llm.CompletionStream, error) {
		return newChatStream(ctx, client, chatReq), nil
	})
}

// UseAnyTool implements llm.Model. Tool calling is not supported on this
// backend.
func (m *Model) UseAnyTool(context.Context, *llm.Request, string, string, map[string]any) (json.RawMessage, error) {
	return nil, llm.NewUnsupportedOperationError(ProviderName, "tool calling")
}

// toChatRequest translates a request into the Ollama chat wire format.
// Streaming is always requested; the context window, stop sequences and
// temperature (when set) travel in the options map.
func (m *Model) toChatRequest(req *llm.Request) *api.ChatRequest {
	stream := true
	messages := lo.Map(req.Messages, func(msg llm.Message, _ int) api.Message {
		return api.Message{Role: toOllamaRole(msg.Role), Content: msg.Content}
	})

	chatReq := &api.ChatRequest{
		Model:     m.name,
		Messages:  messages,
		Stream:    &stream,
		KeepAlive: &api.Duration{Duration: m.keepAlive},
		Options: map[string]any{
			"num_ctx": m.contextWindow,
			"stop":    req.Stop,
		},
	}
	if req.Temperature != nil {
		chatReq.Options["temperature"] = *req.Temperature
	}
	return chatReq
}

func toOllamaRole(role llm.Role) string {
	switch role {
	case llm.RoleSystem:
		return "system"
	case llm.RoleAssistant:
		return "assistant"
	default:
		return "user"
	}
}

var _ llm.Model = (*Model)(nil)
