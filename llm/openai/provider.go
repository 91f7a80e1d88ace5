// Package openai implements the llm capability interfaces for OpenAI's
// hosted chat API using the sashabaranov/go-openai client.
package openai

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/singleflight"

	"github.com/aschepis/backscratcher/modelhub/config"
	"github.com/aschepis/backscratcher/modelhub/llm"
)

const (
	ProviderID   llm.ProviderID   = "openai"
	ProviderName llm.ProviderName = "OpenAI"

	// SetupURL points at the API key management page.
	SetupURL = "https://platform.openai.com/api-keys"
)

// chatModelPrefixes marks the model families usable through the chat
// completions endpoint. Everything else in the listing (embeddings, audio,
// moderation) is filtered out.
var chatModelPrefixes = []string{"gpt-", "o1", "o3", "o4", "chatgpt-"}

// Provider manages credentials and model discovery for the OpenAI API.
type Provider struct {
	store     *config.Store
	logger    zerolog.Logger
	limiter   *llm.RateLimiter
	newClient func(cfg config.OpenAIConfig) *openai.Client

	mu        sync.RWMutex
	available []string // model IDs, sorted

	notifier  llm.Notifier
	probe     singleflight.Group
	configSub *llm.Subscription
}

// NewProvider creates a provider reading its settings from store and issuing
// requests through httpClient.
func NewProvider(store *config.Store, httpClient *http.Client, logger zerolog.Logger) *Provider {
	p := &Provider{
		store:   store,
		logger:  logger.With().Str("component", "openai").Logger(),
		limiter: llm.NewRateLimiter(store.Get().OpenAI.MaxConcurrent),
		newClient: func(cfg config.OpenAIConfig) *openai.Client {
			clientCfg := openai.DefaultConfig(cfg.APIKey)
			if cfg.BaseURL != "" {
				clientCfg.BaseURL = cfg.BaseURL
			}
			if cfg.Organization != "" {
				clientCfg.OrgID = cfg.Organization
			}
			clientCfg.HTTPClient = httpClient
			return openai.NewClientWithConfig(clientCfg)
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
	ids := p.available
	p.mu.RUnlock()

	return lo.Map(ids, func(id string, _ int) llm.Model {
		return newModel(p, id)
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
		view.Summary = "OpenAI API key verified"
	} else if p.store.Get().OpenAI.APIKey == "" {
		view.Summary = "Set OPENAI_API_KEY or add an api_key to the openai section of the config"
	} else {
		view.Summary = "OpenAI API key present but not yet verified"
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
		cfg := p.store.Get().OpenAI
		if cfg.APIKey == "" {
			return nil, llm.NewAuthenticationRequiredError(ProviderName)
		}

		listing, err := p.newClient(cfg).ListModels(ctx)
		if err != nil {
			return nil, convertError(err)
		}

		ids := lo.FilterMap(listing.Models, func(m openai.Model, _ int) (string, bool) {
			return m.ID, isChatModel(m.ID)
		})
		sort.Strings(ids)

		p.mu.Lock()
		p.available = ids
		p.mu.Unlock()

		p.notifier.Notify()
		return nil, nil
	})
	return err
}

func isChatModel(id string) bool {
	return lo.SomeBy(chatModelPrefixes, func(prefix string) bool {
		return strings.HasPrefix(id, prefix)
	})
}

var _ llm.Provider = (*Provider)(nil)
