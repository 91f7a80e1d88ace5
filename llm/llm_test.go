package llm

import (
	"context"
	"encoding/json"
	"sort"
)

// Shared fakes for the package tests.

// fakeStream replays a fixed sequence of deltas, optionally terminating with
// an error once the deltas are exhausted.
type fakeStream struct {
	deltas      []string
	terminalErr error

	idx    int
	closed bool
}

func (s *fakeStream) Next() bool {
	if s.closed || s.idx >= len(s.deltas) {
		return false
	}
	s.idx++
	return true
}

func (s *fakeStream) Delta() string {
	if s.idx < 1 || s.idx > len(s.deltas) {
		return ""
	}
	return s.deltas[s.idx-1]
}

func (s *fakeStream) Err() error {
	if s.idx >= len(s.deltas) {
		return s.terminalErr
	}
	return nil
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

// fakeModel is a minimal Model with pluggable behavior.
type fakeModel struct {
	id       ModelID
	provider ProviderID

	streamFn func(ctx context.Context, req *Request) (CompletionStream, error)
	toolFn   func(ctx context.Context, req *Request, name, description string, schema map[string]any) (json.RawMessage, error)
}

func (m *fakeModel) ID() ModelID                { return m.id }
func (m *fakeModel) Name() ModelName            { return ModelName(m.id) }
func (m *fakeModel) ProviderID() ProviderID     { return m.provider }
func (m *fakeModel) ProviderName() ProviderName { return ProviderName(m.provider) }
func (m *fakeModel) TelemetryID() string        { return string(m.provider) + "/" + string(m.id) }
func (m *fakeModel) MaxTokenCount() int         { return 4096 }

func (m *fakeModel) CountTokens(_ context.Context, req *Request) (int, error) {
	return EstimateTokens(req), nil
}

func (m *fakeModel) StreamCompletion(ctx context.Context, req *Request) (CompletionStream, error) {
	if m.streamFn != nil {
		return m.streamFn(ctx, req)
	}
	return &fakeStream{}, nil
}

func (m *fakeModel) UseAnyTool(ctx context.Context, req *Request, name, description string, schema map[string]any) (json.RawMessage, error) {
	if m.toolFn != nil {
		return m.toolFn(ctx, req, name, description, schema)
	}
	return nil, NewUnsupportedOperationError(m.ProviderName(), "tool calling")
}

// fakeProvider exposes a mutable model list behind the Provider interface.
// Authenticate copies pending into the live snapshot, sorted by name.
type fakeProvider struct {
	id      ProviderID
	pending []string
	authErr error

	models    []Model
	authCalls int
	notifier  Notifier
}

func (p *fakeProvider) ID() ProviderID     { return p.id }
func (p *fakeProvider) Name() ProviderName { return ProviderName(p.id) }

func (p *fakeProvider) ProvidedModels() []Model { return p.models }

func (p *fakeProvider) LoadModel(context.Context, Model) {}

func (p *fakeProvider) IsAuthenticated() bool { return len(p.models) > 0 }

func (p *fakeProvider) Authenticate(context.Context) error {
	p.authCalls++
	if p.authErr != nil {
		return p.authErr
	}
	names := append([]string(nil), p.pending...)
	sort.Strings(names)
	p.models = nil
	for _, name := range names {
		p.models = append(p.models, &fakeModel{id: ModelID(name), provider: p.id})
	}
	p.notifier.Notify()
	return nil
}

func (p *fakeProvider) ResetCredentials(ctx context.Context) error {
	p.models = nil
	return p.Authenticate(ctx)
}

func (p *fakeProvider) ConfigurationView() ConfigurationView {
	return ConfigurationView{Authenticated: p.IsAuthenticated()}
}

func (p *fakeProvider) Subscribe(fn func()) *Subscription {
	return p.notifier.Subscribe(fn)
}
