package executor

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Strategy decides how the root fields of an operation are scheduled. Nested
// fields always run wave by wave: all nodes at one depth are resolved before
// the batches they registered are dispatched and the next depth starts.
type Strategy interface {
	execute(ctx context.Context, ec *executionContext, roots []*node)
}

// SerialStrategy resolves root fields one at a time in document order. Each
// root field is completed, including all nested work, before the next one
// starts.
type SerialStrategy struct{}

func (SerialStrategy) execute(ctx context.Context, ec *executionContext, roots []*node) {
	for _, n := range roots {
		if ec.stopped(ctx) {
			return
		}
		ec.process(ctx, []*node{n})
	}
}

// ParallelStrategy resolves root fields concurrently.
type ParallelStrategy struct{}

func (ParallelStrategy) execute(ctx context.Context, ec *executionContext, roots []*node) {
	ec.process(ctx, roots)
}

// wave collects the work discovered while resolving one depth.
type wave struct {
	mu     sync.Mutex
	next   []*node
	parked []*node
}

func (w *wave) schedule(nodes ...*node) {
	w.mu.Lock()
	w.next = append(w.next, nodes...)
	w.mu.Unlock()
}

func (w *wave) park(n *node) {
	w.mu.Lock()
	w.parked = append(w.parked, n)
	w.mu.Unlock()
}

func (w *wave) takeParked() []*node {
	w.mu.Lock()
	defer w.mu.Unlock()
	parked := w.parked
	w.parked = nil
	return parked
}

// process resolves nodes and everything below them. Each iteration resolves
// one depth, then drains deferred results: pending batches are dispatched
// and parked nodes awaited until none remain, so siblings at a depth share
// one batch per loader.
func (ec *executionContext) process(ctx context.Context, nodes []*node) {
	for len(nodes) > 0 {
		if ec.stopped(ctx) {
			return
		}
		w := &wave{}
		ec.runAll(nodes, func(n *node) { ec.resolveNode(ctx, n, w) })

		for parked := w.takeParked(); len(parked) > 0; parked = w.takeParked() {
			if ec.stopped(ctx) {
				return
			}
			ec.registry.DispatchAll(ctx)
			ec.runAll(parked, func(n *node) { ec.resumeNode(ctx, n, w) })
		}
		nodes = w.next
	}
}

// runAll calls fn for every live node, concurrently when there is more than
// one.
func (ec *executionContext) runAll(nodes []*node, fn func(*node)) {
	live := nodes[:0:0]
	for _, n := range nodes {
		if !n.doomed() {
			live = append(live, n)
		}
	}
	if len(live) == 1 {
		fn(live[0])
		return
	}
	var g errgroup.Group
	if ec.opts.maxConcurrency > 0 {
		g.SetLimit(ec.opts.maxConcurrency)
	}
	for _, n := range live {
		g.Go(func() error {
			fn(n)
			return nil
		})
	}
	_ = g.Wait()
}

// stopped reports whether the request was aborted or its data already
// nulled at the root.
func (ec *executionContext) stopped(ctx context.Context) bool {
	if ec.aborted() != nil || ec.dataNulled.Load() {
		return true
	}
	if err := ctx.Err(); err != nil {
		ec.abort(context.Cause(ctx))
		return true
	}
	return false
}
