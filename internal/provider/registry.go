package provider

import "sync"

// Registry is a thread-safe registry of statement providers held in
// consultation priority order: index 0 is the primary provider, index 1
// the secondary, and so on. The same order drives the fallback resolver.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]StatementProvider
	order     []string
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]StatementProvider),
	}
}

// Register appends a provider at the end of the priority order.
// Re-registering a name replaces the provider but keeps its position.
func (r *Registry) Register(p StatementProvider) {
	name := p.Name()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; !exists {
		r.order = append(r.order, name)
	}
	r.providers[name] = p
}

// Get returns a provider by name, or an error if not found.
func (r *Registry) Get(name string) (StatementProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}
	return p, nil
}

// Order returns the provider names in priority order.
func (r *Registry) Order() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// InOrder returns the registered providers in priority order.
func (r *Registry) InOrder() []StatementProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]StatementProvider, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.providers[name])
	}
	return out
}
