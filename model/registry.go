package model

import (
	"fmt"
	"sync"
)

// Factory creates a Model for a model id. An empty id selects the provider
// default.
type Factory func(modelID string) (Model, error)

// Registry maps provider names to factories. The first registered provider
// is the default. Resolved models are cached per (provider, model id).
// It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	order     []string
	cache     map[string]Model
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: map[string]Factory{},
		cache:     map[string]Model{},
	}
}

// Register adds a provider. Registering a name twice is an error.
func (r *Registry) Register(provider string, factory Factory) error {
	if provider == "" {
		return fmt.Errorf("provider name must not be empty")
	}

	if factory == nil {
		return fmt.Errorf("provider %q: factory must not be nil", provider)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[provider]; exists {
		return fmt.Errorf("provider %q already registered", provider)
	}

	r.factories[provider] = factory
	r.order = append(r.order, provider)

	return nil
}

// RegisterModel registers a provider that always returns m.
func (r *Registry) RegisterModel(provider string, m Model) error {
	return r.Register(provider, func(string) (Model, error) { return m, nil })
}

// Resolve returns the model for provider and modelID. An empty provider
// selects the default provider. Failures are *ProviderError values.
func (r *Registry) Resolve(provider, modelID string) (Model, error) {
	r.mu.RLock()
	if provider == "" && len(r.order) > 0 {
		provider = r.order[0]
	}

	key := provider + "\x00" + modelID
	if m, ok := r.cache[key]; ok {
		r.mu.RUnlock()
		return m, nil
	}

	factory, ok := r.factories[provider]
	r.mu.RUnlock()

	if !ok {
		if provider == "" {
			return nil, &ProviderError{Provider: "none", Model: modelID, Err: fmt.Errorf("no providers registered")}
		}

		return nil, &ProviderError{Provider: provider, Model: modelID, Err: fmt.Errorf("provider not registered")}
	}

	m, err := factory(modelID)
	if err != nil {
		return nil, &ProviderError{Provider: provider, Model: modelID, Err: err}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.cache[key]; ok {
		return cached, nil
	}

	r.cache[key] = m

	return m, nil
}

// Providers returns provider names in registration order.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)

	return out
}
