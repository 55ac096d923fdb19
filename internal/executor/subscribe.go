package executor

import (
	"context"
	"errors"
	"fmt"

	language "github.com/hanpama/gqlexec/internal/language"
	schema "github.com/hanpama/gqlexec/internal/schema"
	"github.com/hanpama/gqlexec/internal/values"
)

// Subscribe starts a subscription. The root field's Subscribe function
// yields the source stream; every event is executed against the selection
// set with the event as root value, and the results are sent on the
// returned channel until the stream or ctx ends.
//
// Request errors are reported as a result without data. The error is
// non-nil only when ctx was cancelled while creating the source stream.
func (e *Executor) Subscribe(ctx context.Context, req Request) (<-chan *ExecutionResult, *ExecutionResult, error) {
	if err := e.schema.Initialize(); err != nil {
		return nil, nil, err
	}
	ec, res := e.prepare(req)
	if res != nil {
		return nil, res, nil
	}
	if ec.operation.Operation != language.Subscription {
		return nil, NewErrorResult(&ExecutionError{
			Message:   fmt.Sprintf("Cannot subscribe to a %s operation.", ec.operation.Operation),
			Locations: operationLocations(ec.operation),
		}), nil
	}

	stream, err := ec.sourceStream(ctx)
	if err != nil {
		if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			return nil, nil, ctx.Err()
		}
		return nil, NewErrorResult(locate(err, nil, nil)), nil
	}

	out := make(chan *ExecutionResult)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-stream:
				if !ok {
					return
				}
				res, err := e.execute(ctx, ec.fork(event))
				if err != nil {
					ec.logger.Debug("subscription event aborted")
					return
				}
				select {
				case out <- res:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil, nil
}

func (ec *executionContext) sourceStream(ctx context.Context) (<-chan any, error) {
	groups, err := ec.collectFields(ec.rootType, ec.operation.SelectionSet)
	if err != nil {
		return nil, err
	}
	if len(groups) != 1 {
		return nil, errors.New("Subscription must select only one top level field.")
	}
	g := groups[0]
	n := newFieldNode(nil, ec.rootType, g, ec.rootValue)
	if g.def == nil {
		return nil, locate(fmt.Errorf("The subscription field %q is not defined.", g.name()), n.path(), n.locations())
	}
	if g.def.Subscribe == nil {
		return nil, locate(fmt.Errorf("Subscription field %q has no subscribe function.", g.name()), n.path(), n.locations())
	}

	first := g.fields[0]
	args, err := values.ArgumentValues(ec.schema, g.def.Arguments, first.Arguments, ec.vars)
	if err != nil {
		return nil, locate(err, n.path(), n.locations())
	}
	info := &schema.ResolveInfo{
		FieldName:       g.def.Name,
		FieldNodes:      g.fields,
		Field:           g.def,
		ReturnType:      g.def.Type,
		ParentType:      ec.rootType,
		Path:            n.path(),
		Schema:          ec.schema,
		Operation:       ec.operation,
		Fragments:       ec.document.Fragments,
		RootValue:       ec.rootValue,
		Variables:       ec.vars.Values,
		ArgumentSources: args.Sources,
	}
	stream, err := g.def.Subscribe(ctx, schema.ResolveParams{Source: ec.rootValue, Args: args.Values, Info: info})
	if err != nil {
		return nil, locate(err, n.path(), n.locations())
	}
	return stream, nil
}
