package config

import (
	"sync"

	"github.com/aschepis/backscratcher/modelhub/llm"
)

// Store holds the current configuration and notifies subscribers when it is
// replaced. Providers subscribe so a settings change triggers a background
// state refresh. The held Config is treated as immutable; Replace swaps the
// whole snapshot atomically.
type Store struct {
	mu       sync.RWMutex
	current  *Config
	notifier llm.Notifier
}

// NewStore creates a store seeded with cfg. A nil cfg yields the defaults.
func NewStore(cfg *Config) *Store {
	if cfg == nil {
		cfg = Default()
	}
	return &Store{current: cfg}
}

// Get returns the current configuration snapshot. Callers must not mutate it.
func (s *Store) Get() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Replace swaps in a new configuration and notifies subscribers after the
// swap. A nil cfg is ignored.
func (s *Store) Replace(cfg *Config) {
	if cfg == nil {
		return
	}
	s.mu.Lock()
	s.current = cfg
	s.mu.Unlock()

	s.notifier.Notify()
}

// Subscribe registers fn to run after every Replace. Releasing the returned
// subscription unsubscribes.
func (s *Store) Subscribe(fn func()) *llm.Subscription {
	return s.notifier.Subscribe(fn)
}
