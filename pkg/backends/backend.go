package backends

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Backend is the core interface a model tier adapter must implement.
// It abstracts a single network round-trip to one model backend.
//
// All methods accept a context.Context for cancellation and timeout control.
// Implementations must respect context cancellation and return promptly when
// the context is cancelled.
//
// Generate must be safe to retry: the caller may invoke it again after a
// transient failure and expects no backend-side side effects beyond billing.
type Backend interface {
	// Generate sends a completion request to the backend and returns the
	// normalized response, including token usage and (when supported)
	// per-token log-probabilities.
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

	// StreamGenerate sends a streaming completion request. It returns a
	// channel that yields incremental chunks as they arrive. The caller must
	// read until the channel closes; a failed stream sets Err on the final
	// chunk. Cancelling the context closes the stream.
	StreamGenerate(ctx context.Context, req *GenerateRequest) (<-chan *StreamChunk, error)

	// Name returns the backend's configured name (e.g., "openai", "ollama").
	Name() string

	// Close releases any resources held by the backend (HTTP connections etc.).
	Close() error
}

// Registry is an explicit table of named backends, passed into the cascade
// orchestrator at construction. It replaces the usual global constructor
// registry so that wiring stays visible and testable.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
}

// NewRegistry creates a registry pre-populated with the given backends,
// keyed by Backend.Name().
func NewRegistry(bs ...Backend) *Registry {
	r := &Registry{backends: make(map[string]Backend, len(bs))}
	for _, b := range bs {
		r.backends[b.Name()] = b
	}
	return r
}

// Register adds or replaces a backend under its own name.
func (r *Registry) Register(b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[b.Name()] = b
}

// Get returns the backend registered under name.
// Returns an error if no backend is registered under that name.
func (r *Registry) Get(name string) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.backends[name]
	if !ok {
		return nil, fmt.Errorf("backend %q is not registered", name)
	}
	return b, nil
}

// Names returns the sorted names of all registered backends.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes every registered backend, returning the first error encountered.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for _, b := range r.backends {
		if err := b.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
