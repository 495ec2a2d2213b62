package asr

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry manages registered ASR providers.
//
// The registry is safe for concurrent use.
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

// Register registers a provider in the global registry.
//
// Providers call this from init():
//
//	func init() {
//	    asr.Register(&Provider{})
//	}
//
// A provider with the same name is replaced.
func Register(provider Provider) {
	globalRegistry.Register(provider)
}

// Get retrieves a provider by name from the global registry.
func Get(name string) (Provider, error) {
	return globalRegistry.Get(name)
}

// List returns the registered provider names in sorted order.
func List() []string {
	return globalRegistry.List()
}

// Register adds provider to this registry, replacing any provider with the
// same name.
func (r *Registry) Register(provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[provider.Name()] = provider
}

// Get retrieves a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider '%s' not found", name)
	}
	return provider, nil
}

// List returns the registered provider names in sorted order.
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

// Transcribe performs Fetch and Parse with the named provider.
func (r *Registry) Transcribe(ctx context.Context, providerName string, req *Request, opts FetchOptions) (*StandardResult, error) {
	provider, err := r.Get(providerName)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	raw, err := provider.Fetch(ctx, req, opts)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}

	result, err := provider.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse failed: %w", err)
	}

	return result, nil
}

// Transcribe performs Fetch and Parse with a provider from the global
// registry.
//
// Example:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
//	defer cancel()
//
//	result, err := asr.Transcribe(ctx, "openai", req, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Text)
func Transcribe(ctx context.Context, providerName string, req *Request, opts FetchOptions) (*StandardResult, error) {
	return globalRegistry.Transcribe(ctx, providerName, req, opts)
}
