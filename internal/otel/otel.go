package otel

import (
	"context"
	"fmt"
	"sync"
	"time"

	eventbus "github.com/hanpama/gqlexec/internal/eventbus"
	events "github.com/hanpama/gqlexec/internal/events"
	reqid "github.com/hanpama/gqlexec/internal/reqid"
	schema "github.com/hanpama/gqlexec/internal/schema"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const instrumentation = "github.com/hanpama/gqlexec"

// Setup configures the global tracer provider with an OTLP gRPC exporter and
// attaches the event subscriber. If endpoint is empty, no telemetry is
// configured and the returned subscriber is nil.
func Setup(ctx context.Context, endpoint, service string) (*Subscriber, func(context.Context) error, error) {
	if endpoint == "" {
		return nil, func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	if err != nil {
		return nil, nil, fmt.Errorf("otlp exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	sub := Subscribe(tp)
	shutdown := func(ctx context.Context) error {
		sub.Close()
		return tp.Shutdown(ctx)
	}
	return sub, shutdown, nil
}

// Subscriber turns lifecycle events of the global event bus into spans.
// Spans of one request are correlated by the request id in the context.
type Subscriber struct {
	tracer trace.Tracer

	mu        sync.Mutex
	httpSpans map[string]trace.Span
	opSpans   map[string][]trace.Span

	unsubscribe []func()
}

// Subscribe registers a Subscriber on the global event bus.
func Subscribe(tp trace.TracerProvider) *Subscriber {
	s := &Subscriber{
		tracer:    tp.Tracer(instrumentation),
		httpSpans: make(map[string]trace.Span),
		opSpans:   make(map[string][]trace.Span),
	}
	s.register()
	return s
}

// Close detaches s from the event bus.
func (s *Subscriber) Close() {
	for _, fn := range s.unsubscribe {
		fn()
	}
	s.unsubscribe = nil
}

func (s *Subscriber) register() {
	s.unsubscribe = append(s.unsubscribe,
		eventbus.Subscribe(s.onHTTPStart),
		eventbus.Subscribe(s.onHTTPFinish),
		eventbus.Subscribe(s.onOperationStart),
		eventbus.Subscribe(s.onOperationFinish),
		eventbus.Subscribe(s.onBatchDispatch),
	)
}

func (s *Subscriber) onHTTPStart(ctx context.Context, e events.HTTPStart) {
	rid := e.RequestID
	if rid == "" {
		return
	}
	_, span := s.tracer.Start(ctx, "http.request", trace.WithSpanKind(trace.SpanKindServer))
	span.SetAttributes(
		semconv.HTTPMethodKey.String(e.Request.Method),
		attribute.String("http.target", e.Request.URL.Path),
		attribute.String("request.id", rid),
	)
	s.mu.Lock()
	s.httpSpans[rid] = span
	s.mu.Unlock()
}

func (s *Subscriber) onHTTPFinish(ctx context.Context, e events.HTTPFinish) {
	s.mu.Lock()
	span, ok := s.httpSpans[e.RequestID]
	delete(s.httpSpans, e.RequestID)
	s.mu.Unlock()
	if !ok {
		return
	}
	span.SetAttributes(semconv.HTTPStatusCodeKey.Int(e.Status))
	if e.Status >= 500 {
		span.SetStatus(codes.Error, "")
	}
	span.End()
}

func (s *Subscriber) onOperationStart(ctx context.Context, e events.OperationStart) {
	rid, ok := reqid.FromContext(ctx)
	if !ok {
		return
	}
	_, span := s.tracer.Start(s.parent(ctx, rid), "graphql.operation")
	span.SetAttributes(
		attribute.String("graphql.operation.name", e.OperationName),
		attribute.String("graphql.operation.type", e.OperationType),
		attribute.String("graphql.document", e.Query),
	)
	s.mu.Lock()
	s.opSpans[rid] = append(s.opSpans[rid], span)
	s.mu.Unlock()
}

func (s *Subscriber) onOperationFinish(ctx context.Context, e events.OperationFinish) {
	rid, _ := reqid.FromContext(ctx)
	s.mu.Lock()
	stack := s.opSpans[rid]
	if len(stack) == 0 {
		s.mu.Unlock()
		return
	}
	span := stack[len(stack)-1]
	if len(stack) == 1 {
		delete(s.opSpans, rid)
	} else {
		s.opSpans[rid] = stack[:len(stack)-1]
	}
	s.mu.Unlock()

	span.SetAttributes(attribute.Int("graphql.error_count", len(e.Errors)))
	if e.Err != nil {
		span.RecordError(e.Err)
		span.SetStatus(codes.Error, e.Err.Error())
	}
	span.End()
}

// onBatchDispatch records a finished batch as a span that started Duration
// ago.
func (s *Subscriber) onBatchDispatch(ctx context.Context, e events.BatchDispatch) {
	rid, _ := reqid.FromContext(ctx)
	end := time.Now()
	_, span := s.tracer.Start(s.parent(ctx, rid), "dataloader.batch", trace.WithTimestamp(end.Add(-e.Duration)))
	span.SetAttributes(
		attribute.String("dataloader.name", e.Loader),
		attribute.Int("dataloader.keys", e.Keys),
	)
	if e.Err != nil {
		span.RecordError(e.Err)
		span.SetStatus(codes.Error, e.Err.Error())
	}
	span.End(trace.WithTimestamp(end))
}

// parent returns ctx carrying the innermost open span of request rid.
func (s *Subscriber) parent(ctx context.Context, rid string) context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stack := s.opSpans[rid]; len(stack) > 0 {
		return trace.ContextWithSpan(ctx, stack[len(stack)-1])
	}
	if span, ok := s.httpSpans[rid]; ok {
		return trace.ContextWithSpan(ctx, span)
	}
	return ctx
}

// Middleware returns a schema middleware that opens one span per resolver
// call, as a child of the request's operation span. Fields served by the
// default resolver are not traced. The span covers the resolver call only;
// a returned Future or Deferred completes outside of it.
func (s *Subscriber) Middleware() schema.Middleware {
	return func(next schema.FieldResolveFn) schema.FieldResolveFn {
		return func(ctx context.Context, p schema.ResolveParams) (any, error) {
			if p.Info.Field == nil || p.Info.Field.Resolve == nil {
				return next(ctx, p)
			}
			rid, _ := reqid.FromContext(ctx)
			_, span := s.tracer.Start(s.parent(ctx, rid), "graphql.resolve")
			span.SetAttributes(
				attribute.String("graphql.field.name", p.Info.FieldName),
				attribute.String("graphql.field.parent", p.Info.ParentType.Name),
				attribute.String("graphql.field.path", fmt.Sprint(p.Info.Path)),
			)
			defer span.End()

			v, err := next(ctx, p)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return v, err
		}
	}
}
