package executor

import (
	"context"

	"go.uber.org/zap"
)

// UnhandledErrorHandler may rewrite the error recorded for a resolver panic.
// It runs before the throw-on-unhandled policy is applied.
type UnhandledErrorHandler func(ctx context.Context, err *ExecutionError) *ExecutionError

type options struct {
	queryStrategy    Strategy
	mutationStrategy Strategy
	maxConcurrency   int
	throwOnUnhandled bool
	unhandled        UnhandledErrorHandler
	logger           *zap.Logger
}

// Option configures an Executor.
type Option func(*options)

// WithQueryStrategy sets the strategy for query operations and subscription
// events. The default is ParallelStrategy.
func WithQueryStrategy(s Strategy) Option {
	return func(o *options) { o.queryStrategy = s }
}

// WithMutationStrategy sets the strategy for mutations. The default is
// SerialStrategy.
func WithMutationStrategy(s Strategy) Option {
	return func(o *options) { o.mutationStrategy = s }
}

// WithMaxConcurrency bounds the number of nodes resolved at once within a
// wave. Zero or a negative value means no limit.
func WithMaxConcurrency(n int) Option {
	return func(o *options) { o.maxConcurrency = n }
}

// WithThrowOnUnhandled makes ExecuteRequest return recovered resolver panics
// as an error instead of recording them as field errors.
func WithThrowOnUnhandled(enabled bool) Option {
	return func(o *options) { o.throwOnUnhandled = enabled }
}

// WithUnhandledErrorHandler installs h for recovered resolver panics.
func WithUnhandledErrorHandler(h UnhandledErrorHandler) Option {
	return func(o *options) { o.unhandled = h }
}

// WithLogger sets the logger for recovered panics. A nil logger is ignored.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func defaultOptions() *options {
	return &options{
		queryStrategy:    ParallelStrategy{},
		mutationStrategy: SerialStrategy{},
		logger:           zap.NewNop(),
	}
}
