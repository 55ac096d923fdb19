package executor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	schema "github.com/hanpama/gqlexec/internal/schema"
	"github.com/hanpama/gqlexec/internal/values"
	"go.uber.org/zap"
)

// panicError is a recovered resolver panic.
type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.value) }

func (e *panicError) Unwrap() error {
	err, _ := e.value.(error)
	return err
}

// resolveNode runs the resolver of a field node and completes its value.
func (ec *executionContext) resolveNode(ctx context.Context, n *node, w *wave) {
	defer ec.recoverNode(ctx, n)

	if n.group.def == nil {
		if n.group.name() == typenameField {
			n.state, n.value = stateLeaf, n.parentType.Name
			return
		}
		// Unknown fields only reach the executor in unvalidated documents.
		n.err = &ExecutionError{
			Message:   fmt.Sprintf("Cannot query field %q on type %q.", n.group.name(), n.parentType.Name),
			Path:      n.path(),
			Locations: n.locations(),
		}
		n.state = stateNull
		return
	}

	raw, err := ec.resolveField(ctx, n)
	ec.settle(ctx, n, raw, err, w)
}

// resumeNode awaits a parked result after its batch was dispatched.
func (ec *executionContext) resumeNode(ctx context.Context, n *node, w *wave) {
	defer ec.recoverNode(ctx, n)
	d := n.pending
	n.pending = nil
	raw, err := d.Await(ctx)
	ec.settle(ctx, n, raw, err, w)
}

func (ec *executionContext) resolveField(ctx context.Context, n *node) (any, error) {
	def := n.group.def
	first := n.group.fields[0]

	args, err := values.ArgumentValues(ec.schema, def.Arguments, first.Arguments, ec.vars)
	if err != nil {
		return nil, err
	}
	directives, err := values.DirectivesInfo(ec.schema, first.Directives, ec.vars)
	if err != nil {
		return nil, err
	}

	n.info = &schema.ResolveInfo{
		FieldName:       def.Name,
		FieldNodes:      n.group.fields,
		Field:           def,
		ReturnType:      def.Type,
		ParentType:      n.parentType,
		Path:            n.path(),
		Schema:          ec.schema,
		Operation:       ec.operation,
		Fragments:       ec.document.Fragments,
		RootValue:       ec.rootValue,
		Variables:       ec.vars.Values,
		ArgumentSources: args.Sources,
		Directives:      directives,
	}
	return ec.schema.ResolveField(ctx, schema.ResolveParams{
		Source: n.source,
		Args:   args.Values,
		Info:   n.info,
	})
}

// settle normalizes a resolver result and completes it. Futures are awaited
// in place; a Deferred whose batch has not been dispatched parks the node
// until the end of the wave.
func (ec *executionContext) settle(ctx context.Context, n *node, raw any, err error, w *wave) {
	for err == nil {
		switch v := raw.(type) {
		case schema.Deferred:
			if !v.Dispatched() {
				n.pending = v
				w.park(n)
				return
			}
			raw, err = v.Await(ctx)
			continue
		case schema.Future:
			raw, err = v.Await(ctx)
			continue
		}
		break
	}
	if err != nil {
		ec.handleError(ctx, n, err)
		return
	}
	ec.complete(ctx, n, raw, w)
}

// handleError records err as the node's failure. Cancellation of the
// request aborts it instead.
func (ec *executionContext) handleError(ctx context.Context, n *node, err error) {
	if (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) && ctx.Err() != nil {
		ec.abort(context.Cause(ctx))
		return
	}
	var pe *panicError
	if errors.As(err, &pe) {
		ec.handleUnhandled(ctx, n, pe)
		return
	}
	ec.fail(n, locate(err, n.path(), n.locations()))
}

func (ec *executionContext) handleUnhandled(ctx context.Context, n *node, pe *panicError) {
	path := n.path()
	ec.logger.Error("resolver panicked",
		zap.String("field", n.parentType.Name+"."+n.fieldName()),
		zap.Any("path", path),
		zap.Any("panic", pe.value),
		zap.ByteString("stack", pe.stack),
	)
	ee := &ExecutionError{
		Message:   fmt.Sprintf("Error trying to resolve field %q.", n.fieldName()),
		Path:      path,
		Locations: n.locations(),
		Cause:     pe,
	}
	if ec.opts.unhandled != nil {
		if rewritten := ec.opts.unhandled(ctx, ee); rewritten != nil {
			ee = rewritten
		}
	}
	if ec.opts.throwOnUnhandled {
		ec.abort(ee)
		return
	}
	ec.fail(n, ee)
}

func (ec *executionContext) recoverNode(ctx context.Context, n *node) {
	if r := recover(); r != nil {
		ec.handleError(ctx, n, &panicError{value: r, stack: debug.Stack()})
	}
}

// fail records err on n, nulls it and marks every ancestor the null bubbles
// into. A node keeps its first error only. Descendants already scheduled
// under n are dropped.
func (ec *executionContext) fail(n *node, err *ExecutionError) {
	if n.err == nil {
		n.err = err
	}
	n.state = stateNull
	if n.children != nil {
		n.nulled.Store(true)
		n.children = nil
	}
	ec.propagate(n)
}

func (ec *executionContext) propagate(n *node) {
	for cur := n; cur.typ.IsNonNull(); {
		if cur.parent == nil {
			ec.dataNulled.Store(true)
			return
		}
		cur = cur.parent
		cur.nulled.Store(true)
	}
}
