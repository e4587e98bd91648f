package services

import (
	"fmt"
	"sort"
	"sync"

	"github.com/lborres/fumble/core"
)

// ProviderRegistry holds the SSO providers available for sign-in. It is safe for concurrent use.
type ProviderRegistry struct {
	mu        sync.RWMutex
	providers map[string]core.SSOProvider
}

func NewProviderRegistry(providers ...core.SSOProvider) (*ProviderRegistry, error) {
	r := &ProviderRegistry{providers: make(map[string]core.SSOProvider)}
	for _, p := range providers {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds p under p.Name(). A name can only be registered once.
func (r *ProviderRegistry) Register(p core.SSOProvider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("%w: %s", core.ErrProviderExists, name)
	}
	r.providers[name] = p
	return nil
}

// Unregister removes the provider and reports whether it was present
func (r *ProviderRegistry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.providers[name]
	delete(r.providers, name)
	return ok
}

func (r *ProviderRegistry) Get(name string) (core.SSOProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	return p, ok
}

// Names returns the registered provider names in sorted order
func (r *ProviderRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
