package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/samber/lo"

	"github.com/aschepis/backscratcher/modelhub/llm"
)

func TestModel_ToMessageParams(t *testing.T) {
	m := newModel(nil, "claude-opus-4-20250514", "Claude Opus 4")

	req := &llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "be terse"},
			{Role: llm.RoleUser, Content: "hello"},
			{Role: llm.RoleAssistant, Content: "hi"},
			{Role: llm.RoleUser, Content: "more"},
		},
		Stop:        []string{"END"},
		Temperature: lo.ToPtr(0.5),
	}

	params := m.toMessageParams(req)

	if params.Model != "claude-opus-4-20250514" {
		t.Errorf("model = %q", params.Model)
	}
	if params.MaxTokens != maxOutputTokens {
		t.Errorf("max tokens = %d", params.MaxTokens)
	}

	// System messages move out of the message list.
	if len(params.System) != 1 || params.System[0].Text != "be terse" {
		t.Errorf("system blocks = %+v", params.System)
	}
	if len(params.Messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(params.Messages))
	}
	wantRoles := []anthropic.MessageParamRole{
		anthropic.MessageParamRoleUser,
		anthropic.MessageParamRoleAssistant,
		anthropic.MessageParamRoleUser,
	}
	for i, msg := range params.Messages {
		if msg.Role != wantRoles[i] {
			t.Errorf("message[%d].Role = %q, want %q", i, msg.Role, wantRoles[i])
		}
	}

	if len(params.StopSequences) != 1 || params.StopSequences[0] != "END" {
		t.Errorf("stop sequences = %v", params.StopSequences)
	}
	if !params.Temperature.Valid() || params.Temperature.Value != 0.5 {
		t.Errorf("temperature = %+v", params.Temperature)
	}
}

func TestModel_ToMessageParamsTemperatureBounds(t *testing.T) {
	m := newModel(nil, "claude-opus-4-20250514", "Claude Opus 4")

	params := m.toMessageParams(llm.NewTextRequest(llm.RoleUser, "hello"))
	if params.Temperature.Valid() {
		t.Errorf("unset temperature sent as %+v", params.Temperature)
	}

	params = m.toMessageParams(&llm.Request{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: "hello"}},
		Temperature: lo.ToPtr(0.0),
	})
	if !params.Temperature.Valid() || params.Temperature.Value != 0 {
		t.Errorf("zero temperature = %+v", params.Temperature)
	}
}

func TestRequiredFields(t *testing.T) {
	schema := map[string]any{
		"type":     "object",
		"required": []string{"city"},
	}
	if got := requiredFields(schema["required"]); len(got) != 1 || got[0] != "city" {
		t.Errorf("requiredFields = %v", got)
	}

	// A schema round-tripped through JSON carries []any, not []string.
	data, err := json.Marshal(schema)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if got := requiredFields(decoded["required"]); len(got) != 1 || got[0] != "city" {
		t.Errorf("requiredFields after round trip = %v", got)
	}

	if got := requiredFields(nil); got != nil {
		t.Errorf("requiredFields(nil) = %v", got)
	}
}

func TestModel_Identity(t *testing.T) {
	m := newModel(nil, "claude-3-5-haiku-20241022", "Claude Haiku 3.5")

	if m.ID() != "claude-3-5-haiku-20241022" {
		t.Errorf("ID = %s", m.ID())
	}
	if m.Name() != "Claude Haiku 3.5" {
		t.Errorf("Name = %s", m.Name())
	}
	if m.TelemetryID() != "anthropic/claude-3-5-haiku-20241022" {
		t.Errorf("TelemetryID = %q", m.TelemetryID())
	}
	if m.MaxTokenCount() != contextWindow {
		t.Errorf("MaxTokenCount = %d", m.MaxTokenCount())
	}

	// Missing display name falls back to the wire ID.
	fallback := newModel(nil, "claude-x", "")
	if fallback.Name() != "claude-x" {
		t.Errorf("fallback Name = %s", fallback.Name())
	}
}

func TestModel_CountTokensNeverFails(t *testing.T) {
	m := newModel(nil, "claude-opus-4-20250514", "Claude Opus 4")

	got, err := m.CountTokens(context.Background(), llm.NewTextRequest(llm.RoleUser, "hello world"))
	if err != nil {
		t.Fatalf("CountTokens: %v", err)
	}
	if got <= 0 {
		t.Errorf("CountTokens = %d, want positive", got)
	}
}

func TestConvertError(t *testing.T) {
	if !llm.IsAuthenticationRequired(convertError(&anthropic.Error{StatusCode: http.StatusUnauthorized})) {
		t.Error("401 not mapped to authentication required")
	}

	overloaded := convertError(&anthropic.Error{StatusCode: http.StatusTooManyRequests})
	if llm.KindOf(overloaded) != llm.ErrorKindBackendUnreachable {
		t.Errorf("429 mapped to %v", llm.KindOf(overloaded))
	}
	if llm.ExtractRetryAfter(overloaded) == nil {
		t.Error("rate limit error carries no retry hint")
	}

	if llm.KindOf(convertError(&anthropic.Error{StatusCode: http.StatusServiceUnavailable})) != llm.ErrorKindBackendUnreachable {
		t.Error("503 not mapped to backend unreachable")
	}
	if llm.KindOf(convertError(&anthropic.Error{StatusCode: http.StatusBadRequest})) != llm.ErrorKindInvalidResponse {
		t.Error("400 not mapped to invalid response")
	}
	if llm.KindOf(convertError(errors.New("dial tcp: refused"))) != llm.ErrorKindBackendUnreachable {
		t.Error("transport failure not mapped to backend unreachable")
	}

	inner := llm.NewTimeoutError("stalled", nil)
	if convertError(fmt.Errorf("wrapped: %w", inner)) != error(inner) {
		t.Error("typed error not passed through")
	}
}
