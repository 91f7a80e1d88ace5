package llm

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Registry is the process-wide mapping from provider id to provider instance
// and the entry point callers use to enumerate and select models.
//
// It is an explicit, single-owner object created at startup and passed to
// consumers rather than an ambient global, keeping construction and teardown
// order testable. Iteration order is insertion-stable; re-registering an id
// replaces the prior entry in place (last-writer-wins); callers should avoid
// relying on this.
type Registry struct {
	mu        sync.RWMutex
	providers map[ProviderID]Provider
	order     []ProviderID
	logger    zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		providers: make(map[ProviderID]Provider),
		logger:    logger.With().Str("component", "registry").Logger(),
	}
}

// Register adds a provider under its own id. Registration is expected once at
// startup per provider id; a duplicate id replaces the prior entry, keeping
// its position in iteration order.
func (r *Registry) Register(provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := provider.ID()
	if _, exists := r.providers[id]; exists {
		r.logger.Warn().Str("provider_id", id.String()).Msg("Replacing previously registered provider")
	} else {
		r.order = append(r.order, id)
	}
	r.providers[id] = provider
}

// Lookup returns the provider registered under id, if any.
func (r *Registry) Lookup(id ProviderID) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, ok := r.providers[id]
	return provider, ok
}

// Providers returns all registered providers in insertion order.
func (r *Registry) Providers() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Provider, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.providers[id])
	}
	return result
}

// AvailableModels returns every model currently provided by every registered
// provider, grouped in provider insertion order.
func (r *Registry) AvailableModels() []Model {
	var models []Model
	for _, provider := range r.Providers() {
		models = append(models, provider.ProvidedModels()...)
	}
	return models
}

// SelectModel returns the model with the given id from the given provider's
// current snapshot.
func (r *Registry) SelectModel(providerID ProviderID, modelID ModelID) (Model, error) {
	provider, ok := r.Lookup(providerID)
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", providerID)
	}
	for _, model := range provider.ProvidedModels() {
		if model.ID() == modelID {
			return model, nil
		}
	}
	if !provider.IsAuthenticated() {
		return nil, NewAuthenticationRequiredError(provider.Name())
	}
	return nil, fmt.Errorf("provider %s has no model %s", providerID, modelID)
}
