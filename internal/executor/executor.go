package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hanpama/gqlexec/internal/dataloader"
	"github.com/hanpama/gqlexec/internal/eventbus"
	"github.com/hanpama/gqlexec/internal/events"
	language "github.com/hanpama/gqlexec/internal/language"
	schema "github.com/hanpama/gqlexec/internal/schema"
	"github.com/hanpama/gqlexec/internal/values"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"go.uber.org/zap"
)

// Request is one operation to execute.
type Request struct {
	Document      *language.QueryDocument
	OperationName string
	// Variables are JSON-decoded variable inputs.
	Variables map[string]any
	RootValue any
	// ValidationErrors from an upstream validator. When non-empty the
	// operation is not executed.
	ValidationErrors gqlerror.List
}

type Executor struct {
	schema *schema.Schema
	opts   *options
}

func NewExecutor(s *schema.Schema, opts ...Option) *Executor {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Executor{schema: s, opts: o}
}

// Schema returns the schema the executor runs against.
func (e *Executor) Schema() *schema.Schema { return e.schema }

// executionContext holds the state of one request. Node errors live on the
// nodes themselves; only the subfield cache and the abort state are shared
// between concurrently resolving nodes.
type executionContext struct {
	schema    *schema.Schema
	opts      *options
	logger    *zap.Logger
	document  *language.QueryDocument
	operation *language.OperationDefinition
	vars      values.VariableValues
	rootValue any
	rootType  *schema.Type
	registry  *dataloader.Registry
	strategy  Strategy

	// subfields caches collected sub-selections by field group and type.
	subfields sync.Map

	mu sync.Mutex

	// dataNulled is set when null propagation reached the operation root.
	dataNulled atomic.Bool

	abortOnce sync.Once
	abortErr  error
	cancel    context.CancelCauseFunc
}

// ExecuteRequest runs req and returns its result. The error is non-nil only
// when the request was aborted: the context was cancelled, or a resolver
// panicked while WithThrowOnUnhandled is set.
func (e *Executor) ExecuteRequest(ctx context.Context, req Request) (*ExecutionResult, error) {
	if err := e.schema.Initialize(); err != nil {
		return nil, err
	}
	ec, res := e.prepare(req)
	if res != nil {
		return res, nil
	}
	return e.execute(ctx, ec)
}

func (e *Executor) execute(ctx context.Context, ec *executionContext) (*ExecutionResult, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	ec.cancel = cancel
	if dataloader.RegistryFromContext(ctx) == nil {
		ctx = dataloader.WithRegistry(ctx, ec.registry)
	} else {
		ec.registry = dataloader.RegistryFromContext(ctx)
	}

	query := ""
	if pos := ec.operation.Position; pos != nil && pos.Src != nil {
		query = pos.Src.Input
	}
	opType := string(ec.operation.Operation)
	eventbus.Publish(ctx, events.OperationStart{
		Query:         query,
		OperationName: ec.operation.Name,
		OperationType: opType,
	})
	start := time.Now()

	res, err := ec.run(ctx)

	finish := events.OperationFinish{
		Query:         query,
		OperationName: ec.operation.Name,
		OperationType: opType,
		Err:           err,
		Duration:      time.Since(start),
	}
	if res != nil {
		for _, e := range res.Errors {
			finish.Errors = append(finish.Errors, e)
		}
	}
	eventbus.Publish(ctx, finish)
	return res, err
}

func (ec *executionContext) run(ctx context.Context) (*ExecutionResult, error) {
	groups, err := ec.collectFields(ec.rootType, ec.operation.SelectionSet)
	if err != nil {
		return &ExecutionResult{Errors: []*ExecutionError{locate(err, nil, nil)}}, nil
	}
	roots := make([]*node, 0, len(groups))
	for _, g := range groups {
		roots = append(roots, newFieldNode(nil, ec.rootType, g, ec.rootValue))
	}

	ec.strategy.execute(ctx, ec, roots)

	if err := ec.aborted(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, context.Cause(ctx)
	}
	return ec.assemble(roots), nil
}

func (e *Executor) prepare(req Request) (*executionContext, *ExecutionResult) {
	if len(req.ValidationErrors) > 0 {
		return nil, NewErrorResult(ErrorsOf(req.ValidationErrors)...)
	}
	if req.Document == nil {
		return nil, NewErrorResult(&ExecutionError{Message: "Must provide document."})
	}
	operation, err := getOperation(req.Document, req.OperationName)
	if err != nil {
		return nil, NewErrorResult(&ExecutionError{Message: err.Error()})
	}

	var rootType *schema.Type
	var strategy Strategy
	switch operation.Operation {
	case language.Query, "":
		rootType, strategy = e.schema.GetQueryType(), e.opts.queryStrategy
	case language.Mutation:
		rootType, strategy = e.schema.GetMutationType(), e.opts.mutationStrategy
	case language.Subscription:
		rootType, strategy = e.schema.GetSubscriptionType(), e.opts.queryStrategy
	}
	if rootType == nil {
		return nil, NewErrorResult(&ExecutionError{
			Message:   fmt.Sprintf("Schema is not configured to execute %s operation.", operation.Operation),
			Locations: operationLocations(operation),
		})
	}

	vars, errs := values.CoerceVariableValues(e.schema, operation, req.Variables)
	if len(errs) > 0 {
		res := NewErrorResult()
		for _, err := range errs {
			res.Errors = append(res.Errors, locate(err, nil, nil))
		}
		return nil, res
	}

	return &executionContext{
		schema:    e.schema,
		opts:      e.opts,
		logger:    e.opts.logger,
		document:  req.Document,
		operation: operation,
		vars:      vars,
		rootValue: req.RootValue,
		rootType:  rootType,
		registry:  dataloader.NewRegistry(),
		strategy:  strategy,
	}, nil
}

// fork returns a fresh context for the same operation with another root
// value.
func (ec *executionContext) fork(rootValue any) *executionContext {
	return &executionContext{
		schema:    ec.schema,
		opts:      ec.opts,
		logger:    ec.logger,
		document:  ec.document,
		operation: ec.operation,
		vars:      ec.vars,
		rootValue: rootValue,
		rootType:  ec.rootType,
		registry:  dataloader.NewRegistry(),
		strategy:  ec.strategy,
	}
}

// getOperation picks the operation to execute: the named one, or the only
// one in the document.
func getOperation(document *language.QueryDocument, operationName string) (*language.OperationDefinition, error) {
	if operationName == "" {
		switch len(document.Operations) {
		case 0:
			return nil, errors.New("Must provide an operation.")
		case 1:
			return document.Operations[0], nil
		default:
			return nil, errors.New("Must provide operation name if query contains multiple operations.")
		}
	}
	if op := document.Operations.ForName(operationName); op != nil {
		return op, nil
	}
	return nil, fmt.Errorf("Unknown operation named %q.", operationName)
}

func operationLocations(op *language.OperationDefinition) []Location {
	if op.Position == nil {
		return nil
	}
	return []Location{{Line: op.Position.Line, Column: op.Position.Column}}
}

// abort stops the request. The first cause wins.
func (ec *executionContext) abort(err error) {
	ec.abortOnce.Do(func() {
		ec.mu.Lock()
		ec.abortErr = err
		ec.mu.Unlock()
		if ec.cancel != nil {
			ec.cancel(err)
		}
	})
}

func (ec *executionContext) aborted() error {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.abortErr
}
