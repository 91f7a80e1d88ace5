package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/pkoukk/tiktoken-go"

	"github.com/aschepis/backscratcher/modelhub/llm"
)

// All current Claude generations share a 200k context window.
const contextWindow = 200000

// maxOutputTokens caps each completion. The Messages API requires an
// explicit limit on every request.
const maxOutputTokens = 8192

// Model is one model family on the Anthropic API.
type Model struct {
	provider    *Provider
	id          string
	displayName string

	encoderOnce sync.Once
	encoder     *tiktoken.Tiktoken
}

func newModel(provider *Provider, id, displayName string) *Model {
	if displayName == "" {
		displayName = id
	}
	return &Model{provider: provider, id: id, displayName: displayName}
}

func (m *Model) ID() llm.ModelID {
	return llm.ModelID(m.id)
}

func (m *Model) Name() llm.ModelName {
	return llm.ModelName(m.displayName)
}

func (m *Model) ProviderID() llm.ProviderID {
	return ProviderID
}

func (m *Model) ProviderName() llm.ProviderName {
	return ProviderName
}

func (m *Model) TelemetryID() string {
	return fmt.Sprintf("anthropic/%s", m.id)
}

func (m *Model) MaxTokenCount() int {
	return contextWindow
}

// CountTokens approximates the request size with a general-purpose BPE
// encoding; Claude's own tokenizer is not published. Falls back to the
// chars/4 heuristic when the encoding data is unavailable.
func (m *Model) CountTokens(_ context.Context, req *llm.Request) (int, error) {
	m.encoderOnce.Do(func() {
		if enc, err := tiktoken.GetEncoding("cl100k_base"); err == nil {
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

// StreamCompletion sends req to the Messages API and returns a stream of
// text deltas.
func (m *Model) StreamCompletion(ctx context.Context, req *llm.Request) (llm.CompletionStream, error) {
	if !m.provider.IsAuthenticated() {
		return nil, llm.NewAuthenticationRequiredError(ProviderName)
	}

	client := m.provider.newClient(m.provider.store.Get().Anthropic)
	params := m.toMessageParams(req)

	return m.provider.limiter.Stream(ctx, func(ctx context.Context) (llm.CompletionStream, error) {
		return newMessageStream(client.Messages.NewStreaming(ctx, params)), nil
	})
}

// UseAnyTool forces a single tool invocation and returns the tool input the
// model produced, as raw JSON.
func (m *Model) UseAnyTool(ctx context.Context, req *llm.Request, name, description string, schema map[string]any) (json.RawMessage, error) {
	if !m.provider.IsAuthenticated() {
		return nil, llm.NewAuthenticationRequiredError(ProviderName)
	}

	client := m.provider.newClient(m.provider.store.Get().Anthropic)
	params := m.toMessageParams(req)

	properties, _ := schema["properties"].(map[string]any)
	params.Tools = []anthropic.ToolUnionParam{{
		OfTool: &anthropic.ToolParam{
			Name:        name,
			Description: anthropic.String(description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Type:       "object",
				Properties: properties,
				Required:   requiredFields(schema["required"]),
			},
		},
	}}
	params.ToolChoice = anthropic.ToolChoiceUnionParam{
		OfTool: &anthropic.ToolChoiceToolParam{Name: name},
	}

	var input json.RawMessage
	err := m.provider.limiter.Run(ctx, func(ctx context.Context) error {
		message, err := client.Messages.New(ctx, params)
		if err != nil {
			return convertError(err)
		}

		for _, blockUnion := range message.Content {
			block, ok := blockUnion.AsAny().(anthropic.ToolUseBlock)
			if !ok || block.Name != name {
				continue
			}
			raw, err := json.Marshal(block.Input)
			if err != nil {
				return llm.NewInvalidResponseError("anthropic returned unserializable tool input", err)
			}
			input = raw
			return nil
		}
		return llm.NewInvalidResponseError(fmt.Sprintf("anthropic did not call tool %q", name), nil)
	})
	if err != nil {
		return nil, err
	}
	return input, nil
}

// requiredFields extracts a schema's required-field list. Schemas built in
// process carry []string; schemas deserialized from JSON carry []any.
func requiredFields(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		fields := make([]string, 0, len(list))
		for _, entry := range list {
			if name, ok := entry.(string); ok {
				fields = append(fields, name)
			}
		}
		return fields
	default:
		return nil
	}
}

// toMessageParams translates a request into Messages API parameters. System
// messages move into the dedicated system field; the remainder keeps its
// order in the message list.
func (m *Model) toMessageParams(req *llm.Request) anthropic.MessageNewParams {
	var system []anthropic.TextBlockParam
	var messages []anthropic.MessageParam

	for _, msg := range req.Messages {
		switch msg.Role {
		case llm.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: msg.Content})
		case llm.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.id),
		MaxTokens: maxOutputTokens,
		Messages:  messages,
		System:    system,
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	if len(req.Stop) > 0 {
		params.StopSequences = req.Stop
	}
	return params
}

var _ llm.Model = (*Model)(nil)
