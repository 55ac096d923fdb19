// Package dataloader batches and caches key lookups made by resolvers within
// one request.
//
// Load does not fetch anything. It queues the key and returns a Thunk, which
// implements schema.Deferred. The executor parks deferred results until all
// resolvers at the same depth have run, dispatches every pending batch
// through the request's Registry, then awaits the thunks.
package dataloader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hanpama/gqlexec/internal/eventbus"
	"github.com/hanpama/gqlexec/internal/events"
)

// Result is the outcome of loading one key.
type Result struct {
	Value any
	Err   error
}

// BatchFunc loads keys in one round trip. It must return exactly one Result
// per key, in key order.
type BatchFunc func(ctx context.Context, keys []any) []Result

type options struct {
	name     string
	maxBatch int
	noCache  bool
}

// Option configures a Loader.
type Option func(*options)

// WithMaxBatch limits the number of keys passed to one BatchFunc call. Zero
// means unlimited.
func WithMaxBatch(n int) Option { return func(o *options) { o.maxBatch = n } }

// WithoutCache disables per-key memoization. Every Load queues a new lookup.
func WithoutCache() Option { return func(o *options) { o.noCache = true } }

// WithName names the loader in events and errors.
func WithName(name string) Option { return func(o *options) { o.name = name } }

// Loader coalesces Load calls into batches. Keys must be comparable.
type Loader struct {
	opts  options
	batch BatchFunc

	mu      sync.Mutex
	pending []*Thunk
	cache   map[any]*Thunk
}

// New creates a Loader that fetches with batch.
func New(batch BatchFunc, opts ...Option) *Loader {
	l := &Loader{batch: batch, cache: make(map[any]*Thunk)}
	for _, opt := range opts {
		opt(&l.opts)
	}
	if l.opts.name == "" {
		l.opts.name = "dataloader"
	}
	return l
}

// Name returns the loader name.
func (l *Loader) Name() string { return l.opts.name }

// Load queues key and returns its thunk. A cached key returns the thunk of
// the first Load.
func (l *Loader) Load(key any) *Thunk {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.opts.noCache {
		if t, ok := l.cache[key]; ok {
			return t
		}
	}
	t := &Thunk{loader: l, key: key, done: make(chan struct{})}
	if !l.opts.noCache {
		l.cache[key] = t
	}
	l.pending = append(l.pending, t)
	return t
}

// LoadMany queues every key and returns a thunk for all values.
func (l *Loader) LoadMany(keys []any) *ManyThunk {
	m := &ManyThunk{thunks: make([]*Thunk, len(keys))}
	for i, k := range keys {
		m.thunks[i] = l.Load(k)
	}
	return m
}

// Prime stores value for key unless the key is already cached.
func (l *Loader) Prime(key, value any) {
	if l.opts.noCache {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.cache[key]; ok {
		return
	}
	t := &Thunk{loader: l, key: key, done: make(chan struct{}), value: value}
	t.dispatched.Store(true)
	close(t.done)
	l.cache[key] = t
}

// Clear removes key from the cache.
func (l *Loader) Clear(key any) {
	l.mu.Lock()
	delete(l.cache, key)
	l.mu.Unlock()
}

// ClearAll empties the cache.
func (l *Loader) ClearAll() {
	l.mu.Lock()
	l.cache = make(map[any]*Thunk)
	l.mu.Unlock()
}

// Pending returns the number of queued keys.
func (l *Loader) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// Dispatch runs the queued keys through the batch function in the calling
// goroutine and returns the number of keys dispatched. Keys queued while
// the batch runs wait for the next Dispatch.
func (l *Loader) Dispatch(ctx context.Context) int {
	l.mu.Lock()
	queue := l.pending
	l.pending = nil
	for _, t := range queue {
		t.dispatched.Store(true)
	}
	l.mu.Unlock()

	size := l.opts.maxBatch
	if size <= 0 {
		size = len(queue)
	}
	for start := 0; start < len(queue); start += size {
		end := min(start+size, len(queue))
		l.run(ctx, queue[start:end])
	}
	return len(queue)
}

func (l *Loader) run(ctx context.Context, thunks []*Thunk) {
	keys := make([]any, len(thunks))
	for i, t := range thunks {
		keys[i] = t.key
	}
	started := time.Now()
	results, err := l.call(ctx, keys)
	if err == nil && len(results) != len(keys) {
		err = fmt.Errorf("%s: batch function returned %d results for %d keys", l.opts.name, len(results), len(keys))
	}
	eventbus.Publish(ctx, events.BatchDispatch{
		Loader:   l.opts.name,
		Keys:     len(keys),
		Err:      err,
		Duration: time.Since(started),
	})

	if err != nil {
		// A failed batch is not cached so a later request may retry.
		l.mu.Lock()
		for _, t := range thunks {
			if l.cache[t.key] == t {
				delete(l.cache, t.key)
			}
		}
		l.mu.Unlock()
		for _, t := range thunks {
			t.complete(nil, err)
		}
		return
	}
	for i, t := range thunks {
		t.complete(results[i].Value, results[i].Err)
	}
}

func (l *Loader) call(ctx context.Context, keys []any) (results []Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: batch function panicked: %v", l.opts.name, r)
		}
	}()
	return l.batch(ctx, keys), nil
}

// Thunk is the pending value of one key.
type Thunk struct {
	loader     *Loader
	key        any
	dispatched atomic.Bool
	done       chan struct{}
	value      any
	err        error
}

// Dispatched reports whether the key has been handed to the batch function.
func (t *Thunk) Dispatched() bool { return t.dispatched.Load() }

// Await blocks until the value is loaded. A thunk awaited before any
// dispatch dispatches its loader itself.
func (t *Thunk) Await(ctx context.Context) (any, error) {
	if !t.dispatched.Load() {
		t.loader.Dispatch(ctx)
	}
	select {
	case <-t.done:
		return t.value, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *Thunk) complete(value any, err error) {
	t.value, t.err = value, err
	close(t.done)
}

// ManyThunk is the pending values of several keys.
type ManyThunk struct {
	thunks []*Thunk
}

// Dispatched reports whether every key has been dispatched.
func (m *ManyThunk) Dispatched() bool {
	for _, t := range m.thunks {
		if !t.Dispatched() {
			return false
		}
	}
	return true
}

// Await returns the values in key order. Per-key errors are joined; values
// of failed keys are nil.
func (m *ManyThunk) Await(ctx context.Context) (any, error) {
	values := make([]any, len(m.thunks))
	var errs []error
	for i, t := range m.thunks {
		v, err := t.Await(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			errs = append(errs, err)
			continue
		}
		values[i] = v
	}
	return values, errors.Join(errs...)
}
