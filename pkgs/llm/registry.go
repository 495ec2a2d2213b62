package llm

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry manages registered LLM providers.
//
// The registry is thread-safe. Providers are usually registered from init().
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// globalRegistry is the default registry used by package-level functions.
var globalRegistry = NewRegistry()

// Register registers a provider in the global registry, replacing any
// provider with the same name.
//
//	func init() {
//	    llm.Register(&Provider{})
//	}
func Register(provider Provider) {
	globalRegistry.Register(provider)
}

// Get retrieves a provider by name from the global registry.
func Get(name string) (Provider, error) {
	return globalRegistry.Get(name)
}

// List returns the sorted names of the providers in the global registry.
func List() []string {
	return globalRegistry.List()
}

// Chat performs a chat completion with the named provider from the global
// registry.
func Chat(ctx context.Context, providerName string, opts *Options) (*StandardResult, error) {
	return globalRegistry.Chat(ctx, providerName, opts)
}

// Register adds provider to this registry.
func (r *Registry) Register(provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[provider.Name()] = provider
}

// Get retrieves a provider by name from this registry.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider '%s' not found", name)
	}
	return provider, nil
}

// List returns the sorted provider names in this registry.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Chat validates a copy of opts and runs the completion. The caller's
// options are never modified, so one Options value can be shared by
// concurrent calls.
func (r *Registry) Chat(ctx context.Context, providerName string, opts *Options) (*StandardResult, error) {
	provider, err := r.Get(providerName)
	if err != nil {
		return nil, err
	}
	if opts == nil {
		return nil, &ValidationError{Field: "Options", Message: "options are required"}
	}

	o := *opts
	if err := o.Validate(); err != nil {
		return nil, err
	}

	result, err := provider.Chat(ctx, &o)
	if err != nil {
		return nil, fmt.Errorf("chat failed: %w", err)
	}

	return result, nil
}
