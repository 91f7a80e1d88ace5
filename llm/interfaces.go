package llm

import (
	"context"
	"encoding/json"
)

// Model is the capability interface for one usable backend model instance.
// Handles are constructed fresh per lookup from a provider's current state
// snapshot and may be shared among any number of concurrent callers.
type Model interface {
	// ID returns the model's identifier, unique within its provider.
	ID() ModelID

	// Name returns the model's display name.
	Name() ModelName

	// ProviderID returns the id of the provider that produced this handle.
	ProviderID() ProviderID

	// ProviderName returns the display name of the producing provider.
	ProviderName() ProviderName

	// TelemetryID returns a stable "provider/model" identifier for metrics.
	TelemetryID() string

	// MaxTokenCount returns the backend-declared context window size.
	MaxTokenCount() int

	// CountTokens returns an estimate of token usage for the request.
	// Backends without a native endpoint use EstimateTokens rather than
	// failing.
	CountTokens(ctx context.Context, req *Request) (int, error)

	// StreamCompletion translates the request to the backend wire format,
	// issues it, and normalizes the backend's event stream into an ordered
	// sequence of text deltas. Setup failures are returned synchronously;
	// mid-stream failures become the stream's terminal error. The call passes
	// through the model's RateLimiter, whose permit is held for the full
	// stream lifetime.
	StreamCompletion(ctx context.Context, req *Request) (CompletionStream, error)

	// UseAnyTool asks the backend to produce a single JSON value conforming
	// to schema. Backends lacking tool-calling support return an
	// UnsupportedOperation error promptly, never hang.
	UseAnyTool(ctx context.Context, req *Request, name, description string, schema map[string]any) (json.RawMessage, error)
}

// ConfigurationView is a renderable snapshot of a provider's configuration
// surface. Consumers (a settings UI, a CLI status command) may display it;
// the core attaches no behavior to it.
type ConfigurationView struct {
	Authenticated bool
	Summary       string
	SetupURL      string
}

// Provider is the capability interface for a family of models belonging to
// one backend service. Providers are created once at application startup and
// live for the process. Their state snapshot (available models, auth status)
// is replaced atomically on refresh; readers never observe a partial update.
type Provider interface {
	// ID returns the provider's identifier, unique within a Registry.
	ID() ProviderID

	// Name returns the provider's display name.
	Name() ProviderName

	// ProvidedModels returns model handles for the current state snapshot,
	// sorted by name for determinism.
	ProvidedModels() []Model

	// LoadModel performs a best-effort warm-up of the model (for example,
	// preloading it into backend memory). Failures are logged, never
	// propagated, and never change authentication state.
	LoadModel(ctx context.Context, model Model)

	// IsAuthenticated reports whether the provider can serve completions:
	// a non-empty model snapshot for self-hosted backends, or valid
	// credentials for hosted ones.
	IsAuthenticated() bool

	// Authenticate probes the backend and replaces the state snapshot.
	// Idempotent: calling it when already authenticated is a no-op success.
	// Overlapping probes are coalesced into one in-flight request.
	Authenticate(ctx context.Context) error

	// ResetCredentials discards any cached snapshot and forces a fresh probe.
	ResetCredentials(ctx context.Context) error

	// ConfigurationView returns the provider's renderable configuration
	// status.
	ConfigurationView() ConfigurationView

	// Subscribe registers fn to run after each state snapshot replacement.
	// Releasing the returned subscription unsubscribes.
	Subscribe(fn func()) *Subscription
}
