package dataloader

import (
	"context"
	"sync"
)

// Registry holds the loaders of one request so they can be dispatched
// together.
type Registry struct {
	mu      sync.Mutex
	loaders map[string]*Loader
	order   []*Loader

	// Serializes DispatchAll.
	dispatchMu sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{loaders: make(map[string]*Loader)}
}

// GetOrCreate returns the loader registered under name, creating it with
// create on first use.
func (r *Registry) GetOrCreate(name string, create func() *Loader) *Loader {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.loaders[name]; ok {
		return l
	}
	l := create()
	r.loaders[name] = l
	r.order = append(r.order, l)
	return l
}

// Pending returns the number of queued keys across all loaders.
func (r *Registry) Pending() int {
	n := 0
	for _, l := range r.snapshot() {
		n += l.Pending()
	}
	return n
}

// DispatchAll dispatches every loader once, in registration order, and
// returns the number of keys dispatched.
func (r *Registry) DispatchAll(ctx context.Context) int {
	r.dispatchMu.Lock()
	defer r.dispatchMu.Unlock()
	n := 0
	for _, l := range r.snapshot() {
		n += l.Dispatch(ctx)
	}
	return n
}

func (r *Registry) snapshot() []*Loader {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Loader(nil), r.order...)
}

type registryKey struct{}

// WithRegistry attaches r to ctx.
func WithRegistry(ctx context.Context, r *Registry) context.Context {
	return context.WithValue(ctx, registryKey{}, r)
}

// RegistryFromContext returns the registry attached to ctx, or nil.
func RegistryFromContext(ctx context.Context) *Registry {
	r, _ := ctx.Value(registryKey{}).(*Registry)
	return r
}

// For returns the request-scoped loader named name, creating it on first
// use. Without a registry in ctx it returns a fresh loader, whose thunks
// dispatch themselves when awaited.
func For(ctx context.Context, name string, batch BatchFunc, opts ...Option) *Loader {
	opts = append([]Option{WithName(name)}, opts...)
	r := RegistryFromContext(ctx)
	if r == nil {
		return New(batch, opts...)
	}
	return r.GetOrCreate(name, func() *Loader { return New(batch, opts...) })
}
