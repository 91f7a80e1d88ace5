// Package ollama implements the llm capability interfaces for a self-hosted
// Ollama backend using the official Ollama API client.
//
// There is no credential on a local Ollama server; the provider treats a
// successful model listing as "authenticated". The listing, minus embedding
// variants, becomes the provider's state snapshot.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/ollama/ollama/api"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/singleflight"

	"github.com/aschepis/backscratcher/modelhub/config"
	"github.com/aschepis/backscratcher/modelhub/llm"
)

const (
	ProviderID   llm.ProviderID   = "ollama"
	ProviderName llm.ProviderName = "Ollama"

	// DownloadURL is surfaced in the configuration view when no backend is
	// reachable.
	DownloadURL = "https://ollama.com/download"
)

// apiClient is the narrow slice of the Ollama SDK the provider uses.
// Kept as an interface so tests can substitute a fake backend.
type apiClient interface {
	Chat(ctx context.Context, req *api.ChatRequest, fn api.ChatResponseFunc) error
	List(ctx context.Context) (*api.ListResponse, error)
	Generate(ctx context.Context, req *api.GenerateRequest, fn api.GenerateResponseFunc) error
}

// Provider manages model discovery and health probing for one Ollama server.
type Provider struct {
	store     *config.Store
	logger    zerolog.Logger
	limiter   *llm.RateLimiter
	newClient func(host string) (apiClient, error)

	mu        sync.RWMutex
	available []string // model names, sorted

	notifier  llm.Notifier
	probe     singleflight.Group
	configSub *llm.Subscription
}

// NewProvider creates a provider reading its settings from store and issuing
// requests through httpClient. The provider subscribes to configuration
// changes and re-probes the backend in the background when one arrives.
func NewProvider(store *config.Store, httpClient *http.Client, logger zerolog.Logger) *Provider {
	p := &Provider{
		store:   store,
		logger:  logger.With().Str("component", "ollama").Logger(),
		limiter: llm.NewRateLimiter(store.Get().Ollama.MaxConcurrent),
		newClient: func(host string) (apiClient, error) {
			base, err := parseHost(host)
			if err != nil {
				return nil, fmt.Errorf("invalid host: %w", err)
			}
			return api.NewClient(base, httpClient), nil
		},
	}
	p.configSub = store.Subscribe(func() {
		go func() {
			if err := p.refresh(context.Background()); err != nil {
				p.logger.Warn().Err(err).Msg("Model refresh after config change failed")
			}
		}()
	})
	return p
}

// parseHost parses a host string into a URL, assuming http when no scheme is
// given.
func parseHost(host string) (*url.URL, error) {
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return url.Parse(host)
}

// ID implements llm.Provider.
func (p *Provider) ID() llm.ProviderID {
	return ProviderID
}

// Name implements llm.Provider.
func (p *Provider) Name() llm.ProviderName {
	return ProviderName
}

// ProvidedModels returns handles for the current snapshot, sorted by name.
func (p *Provider) ProvidedModels() []llm.Model {
	cfg := p.store.Get().Ollama

	p.mu.RLock()
	names := p.available
	p.mu.RUnlock()

	return lo.Map(names, func(name string, _ int) llm.Model {
		return &Model{
			provider:      p,
			name:          name,
			contextWindow: cfg.ContextWindow,
			keepAlive:     cfg.KeepAliveDuration(),
		}
	})
}

// IsAuthenticated reports whether the last probe found at least one model.
func (p *Provider) IsAuthenticated() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.available) > 0
}

// Authenticate probes the backend by listing models. Idempotent: a provider
// that already has a snapshot returns immediately.
func (p *Provider) Authenticate(ctx context.Context) error {
	if p.IsAuthenticated() {
		return nil
	}
	return p.refresh(ctx)
}

// ResetCredentials discards the cached snapshot and forces a fresh probe.
func (p *Provider) ResetCredentials(ctx context.Context) error {
	p.mu.Lock()
	p.available = nil
	p.mu.Unlock()
	return p.refresh(ctx)
}

// LoadModel asks the backend to load the model into memory by issuing an
// empty generate request with the configured keep-alive. Best effort:
// failures are logged and never propagated.
func (p *Provider) LoadModel(ctx context.Context, model llm.Model) {
	cfg := p.store.Get().Ollama
	client, err := p.newClient(cfg.Host)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Model preload skipped")
		return
	}

	req := &api.GenerateRequest{
		Model:     model.ID().String(),
		KeepAlive: &api.Duration{Duration: cfg.KeepAliveDuration()},
	}
	if err := client.Generate(ctx, req, func(api.GenerateResponse) error { return nil }); err != nil {
		p.logger.Warn().Err(err).Str("model", model.ID().String()).Msg("Model preload failed")
	}
}

// ConfigurationView implements llm.Provider.
func (p *Provider) ConfigurationView() llm.ConfigurationView {
	cfg := p.store.Get().Ollama
	view := llm.ConfigurationView{
		Authenticated: p.IsAuthenticated(),
		SetupURL:      DownloadURL,
	}
	if view.Authenticated {
		view.Summary = fmt.Sprintf("Ollama configured at %s", cfg.Host)
	} else {
		view.Summary = "Ollama must be running on your machine with at least one model downloaded"
	}
	return view
}

// Subscribe registers fn to run after each snapshot replacement.
func (p *Provider) Subscribe(fn func()) *llm.Subscription {
	return p.notifier.Subscribe(fn)
}

// Close releases the provider's configuration subscription.
func (p *Provider) Close() {
	p.configSub.Unsubscribe()
}

// refresh re-probes the backend and atomically swaps in a new snapshot,
// notifying subscribers after the swap. Overlapping calls are coalesced into
// a single in-flight probe; later callers receive the same result.
func (p *Provider) refresh(ctx context.Context) error {
	_, err, _ := p.probe.Do("fetch-models", func() (any, error) {
		cfg := p.store.Get().Ollama
		client, err := p.newClient(cfg.Host)
		if err != nil {
			return nil, err
		}

		resp, err := client.List(ctx)
		if err != nil {
			return nil, convertError(err)
		}

		// The Ollama API carries no metadata marking embedding models, so
		// filter out the "-embed" variants by name.
		names := lo.FilterMap(resp.Models, func(m api.ListModelResponse, _ int) (string, bool) {
			return m.Name, !strings.Contains(m.Name, "-embed")
		})
		sort.Strings(names)

		p.mu.Lock()
		p.available = names
		p.mu.Unlock()

		p.notifier.Notify()
		return nil, nil
	})
	return err
}

var _ llm.Provider = (*Provider)(nil)
