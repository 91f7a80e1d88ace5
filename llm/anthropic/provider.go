// Package anthropic implements the llm capability interfaces for Anthropic's
// hosted Messages API using the official Go SDK.
package anthropic

import (
	"context"
	"net/http"
	"sort"
	"sync"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/singleflight"

	"github.com/aschepis/backscratcher/modelhub/config"
	"github.com/aschepis/backscratcher/modelhub/llm"
)

const (
	ProviderID   llm.ProviderID   = "anthropic"
	ProviderName llm.ProviderName = "Anthropic"

	// SetupURL points at the console page where API keys are minted.
	SetupURL = "https://console.anthropic.com/settings/keys"
)

// modelEntry is one row of the provider snapshot: the wire ID plus the
// human-readable display name returned by the models endpoint.
type modelEntry struct {
	id   string
	name string
}

// Provider manages credentials and model discovery for the Anthropic API.
type Provider struct {
	store     *config.Store
	logger    zerolog.Logger
	limiter   *llm.RateLimiter
	newClient func(cfg config.AnthropicConfig) *anthropic.Client

	mu        sync.RWMutex
	available []modelEntry // sorted by display name

	notifier  llm.Notifier
	probe     singleflight.Group
	configSub *llm.Subscription
}

// NewProvider creates a provider reading its settings from store and issuing
// requests through httpClient.
func NewProvider(store *config.Store, httpClient *http.Client, logger zerolog.Logger) *Provider {
	p := &Provider{
		store:   store,
		logger:  logger.With().Str("component", "anthropic").Logger(),
		limiter: llm.NewRateLimiter(store.Get().Anthropic.MaxConcurrent),
		newClient: func(cfg config.AnthropicConfig) *anthropic.Client {
			client := anthropic.NewClient(
				option.WithAPIKey(cfg.APIKey),
				option.WithHTTPClient(httpClient),
			)
			return &client
		},
	}
	p.configSub = store.Subscribe(func() {
		go func() {
			if err := p.refresh(context.Background()); err != nil {
				p.logger.Debug().Err(err).Msg("Model refresh after config change failed")
			}
		}()
	})
	return p
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
	p.mu.RLock()
	entries := p.available
	p.mu.RUnlock()

	return lo.Map(entries, func(entry modelEntry, _ int) llm.Model {
		return newModel(p, entry.id, entry.name)
	})
}

// IsAuthenticated reports whether the last probe succeeded.
func (p *Provider) IsAuthenticated() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.available) > 0
}

// Authenticate verifies the API key by listing models. Idempotent.
func (p *Provider) Authenticate(ctx context.Context) error {
	if p.IsAuthenticated() {
		return nil
	}
	return p.refresh(ctx)
}

// ResetCredentials discards the cached snapshot and re-probes with whatever
// credentials the configuration now holds.
func (p *Provider) ResetCredentials(ctx context.Context) error {
	p.mu.Lock()
	p.available = nil
	p.mu.Unlock()
	return p.refresh(ctx)
}

// LoadModel is a no-op: the hosted API has no preload concept.
func (p *Provider) LoadModel(context.Context, llm.Model) {}

// ConfigurationView implements llm.Provider.
func (p *Provider) ConfigurationView() llm.ConfigurationView {
	view := llm.ConfigurationView{
		Authenticated: p.IsAuthenticated(),
		SetupURL:      SetupURL,
	}
	if view.Authenticated {
		view.Summary = "Anthropic API key verified"
	} else if p.store.Get().Anthropic.APIKey == "" {
		view.Summary = "Set ANTHROPIC_API_KEY or add an api_key to the anthropic section of the config"
	} else {
		view.Summary = "Anthropic API key present but not yet verified"
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

// refresh lists the account's models and swaps in a new sorted snapshot.
// Overlapping calls share a single in-flight probe. When no API key is
// configured the probe fails fast without touching the network.
func (p *Provider) refresh(ctx context.Context) error {
	_, err, _ := p.probe.Do("fetch-models", func() (any, error) {
		cfg := p.store.Get().Anthropic
		if cfg.APIKey == "" {
			return nil, llm.NewAuthenticationRequiredError(ProviderName)
		}

		listing, err := p.newClient(cfg).Models.List(ctx, anthropic.ModelListParams{})
		if err != nil {
			return nil, convertError(err)
		}

		entries := lo.Map(listing.Data, func(info anthropic.ModelInfo, _ int) modelEntry {
			return modelEntry{id: string(info.ID), name: info.DisplayName}
		})
		sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

		p.mu.Lock()
		p.available = entries
		p.mu.Unlock()

		p.notifier.Notify()
		return nil, nil
	})
	return err
}

var _ llm.Provider = (*Provider)(nil)
