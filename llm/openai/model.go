package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/samber/lo"
	openai "github.com/sashabaranov/go-openai"

	"github.com/aschepis/backscratcher/modelhub/llm"
)

// contextWindows maps model-ID prefixes to context sizes, longest prefix
// first. Unlisted models get defaultContextWindow.
var contextWindows = []struct {
	prefix string
	tokens int
}{
	{"gpt-4o", 128000},
	{"gpt-4.1", 1047576},
	{"gpt-4-turbo", 128000},
	{"gpt-4-32k", 32768},
	{"gpt-4", 8192},
	{"gpt-3.5-turbo", 16385},
	{"o1", 200000},
	{"o3", 200000},
	{"o4", 200000},
}

const defaultContextWindow = 128000

// Model is one chat model on the OpenAI API.
type Model struct {
	provider *Provider
	id       string

	encoderOnce sync.Once
	encoder     *tiktoken.Tiktoken
}

func newModel(provider *Provider, id string) *Model {
	return &Model{provider: provider, id: id}
}

func (m *Model) ID() llm.ModelID {
	return llm.ModelID(m.id)
}

func (m *Model) Name() llm.ModelName {
	return llm.ModelName(m.id)
}

func (m *Model) ProviderID() llm.ProviderID {
	return ProviderID
}

func (m *Model) ProviderName() llm.ProviderName {
	return ProviderName
}

func (m *Model) TelemetryID() string {
	return fmt.Sprintf("openai/%s", m.id)
}

func (m *Model) MaxTokenCount() int {
	for _, entry := range contextWindows {
		if strings.HasPrefix(m.id, entry.prefix) {
			return entry.tokens
		}
	}
	return defaultContextWindow
}

// CountTokens counts the request locally with the model's tiktoken encoding.
// When no encoding is available (new model families, missing BPE data) it
// falls back to the chars/4 heuristic.
func (m *Model) CountTokens(_ context.Context, req *llm.Request) (int, error) {
	m.encoderOnce.Do(func() {
		enc, err := tiktoken.EncodingForModel(m.id)
		if err != nil {
			enc, err = tiktoken.GetEncoding("cl100k_base")
		}
		if err == nil {
			m.encoder = enc
		}
	})

	if m.encoder == nil {
		return llm.EstimateTokens(req), nil
	}

	total := 0
	for _, msg := range req.Messages {
		total += len(m.encoder.Encode(msg.Content, nil, nil))
	}
	return total, nil
}

// StreamCompletion sends req to the chat completions endpoint and returns a
// stream of text deltas.
func (m *Model) StreamCompletion(ctx context.Context, req *llm.Request) (llm.CompletionStream, error) {
	if !m.provider.IsAuthenticated() {
		return nil, llm.NewAuthenticationRequiredError(ProviderName)
	}

	client := m.provider.newClient(m.provider.store.Get().OpenAI)
	chatReq := m.toChatRequest(req)
	chatReq.Stream = true

	return m.provider.limiter.Stream(ctx, func(ctx context.Context) (llm.CompletionStream, error) {
		stream, err := client.CreateChatCompletionStream(ctx, chatReq)
		if err != nil {
			return nil, convertError(err)
		}
		return newChatStream(stream), nil
	})
}

// UseAnyTool forces a single function call and returns its raw JSON
// arguments. The response is not parsed here; callers validate it against
// their own schema.
func (m *Model) UseAnyTool(ctx context.Context, req *llm.Request, name, description string, schema map[string]any) (json.RawMessage, error) {
	if !m.provider.IsAuthenticated() {
		return nil, llm.NewAuthenticationRequiredError(ProviderName)
	}

	client := m.provider.newClient(m.provider.store.Get().OpenAI)
	chatReq := m.toChatRequest(req)
	chatReq.Tools = []openai.Tool{{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        name,
			Description: description,
			Parameters:  schema,
		},
	}}
	chatReq.ToolChoice = openai.ToolChoice{
		Type:     openai.ToolTypeFunction,
		Function: openai.ToolFunction{Name: name},
	}

	var arguments json.RawMessage
	err := m.provider.limiter.Run(ctx, func(ctx context.Context) error {
		resp, err := client.CreateChatCompletion(ctx, chatReq)
		if err != nil {
			return convertError(err)
		}
		if len(resp.Choices) == 0 {
			return llm.NewInvalidResponseError("openai returned no choices", nil)
		}

		call, found := lo.Find(resp.Choices[0].Message.ToolCalls, func(c openai.ToolCall) bool {
			return c.Function.Name == name
		})
		if !found {
			return llm.NewInvalidResponseError(fmt.Sprintf("openai did not call tool %q", name), nil)
		}
		arguments = json.RawMessage(call.Function.Arguments)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return arguments, nil
}

func (m *Model) toChatRequest(req *llm.Request) openai.ChatCompletionRequest {
	messages := lo.Map(req.Messages, func(msg llm.Message, _ int) openai.ChatCompletionMessage {
		return openai.ChatCompletionMessage{
			Role:    toOpenAIRole(msg.Role),
			Content: msg.Content,
		}
	})
	chatReq := openai.ChatCompletionRequest{
		Model:    m.id,
		Messages: messages,
		Stop:     req.Stop,
	}
	if req.Temperature != nil {
		chatReq.Temperature = float32(*req.Temperature)
		if chatReq.Temperature == 0 {
			// The SDK tags Temperature with omitempty, which would drop an
			// explicit 0 and let the backend default to 1.0. Send the
			// smallest representable value instead.
			chatReq.Temperature = math.SmallestNonzeroFloat32
		}
	}
	return chatReq
}

func toOpenAIRole(role llm.Role) string {
	switch role {
	case llm.RoleSystem:
		return openai.ChatMessageRoleSystem
	case llm.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}

var _ llm.Model = (*Model)(nil)
