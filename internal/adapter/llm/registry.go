package llm

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/xiaot623/gogo/chatbot/internal/apperr"
)

// Registry maps provider identifiers to implementations.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider under its ID.
func (r *Registry) Register(p Provider) error {
	if p == nil {
		return fmt.Errorf("provider is required")
	}
	id := p.ID()
	if id == "" {
		return fmt.Errorf("provider id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[id]; exists {
		return fmt.Errorf("provider already registered for %s", id)
	}
	r.providers[id] = p
	return nil
}

// MustRegister adds a provider or panics.
func (r *Registry) MustRegister(p Provider) {
	if err := r.Register(p); err != nil {
		panic(err)
	}
}

// Get returns the provider for id, or a ConfigError when none is registered.
func (r *Registry) Get(id string) (Provider, error) {
	r.mu.RLock()
	p := r.providers[id]
	r.mu.RUnlock()
	if p == nil {
		return nil, &apperr.ConfigError{Provider: id, Message: "unsupported provider"}
	}
	return p, nil
}

// IDs lists registered providers in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Complete dispatches req to the provider registered under providerID.
func (r *Registry) Complete(ctx context.Context, providerID string, req CompletionRequest) (*Completion, error) {
	p, err := r.Get(providerID)
	if err != nil {
		return nil, err
	}
	return p.Complete(ctx, req)
}
