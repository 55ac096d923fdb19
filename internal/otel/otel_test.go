package otel

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	eventbus "github.com/hanpama/gqlexec/internal/eventbus"
	events "github.com/hanpama/gqlexec/internal/events"
	executor "github.com/hanpama/gqlexec/internal/executor"
	language "github.com/hanpama/gqlexec/internal/language"
	reqid "github.com/hanpama/gqlexec/internal/reqid"
	schema "github.com/hanpama/gqlexec/internal/schema"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setup(t *testing.T) (*Subscriber, *tracetest.SpanRecorder) {
	t.Helper()
	eventbus.Use(eventbus.New())
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	sub := Subscribe(tp)
	t.Cleanup(func() {
		sub.Close()
		eventbus.Use(nil)
		_ = tp.Shutdown(context.Background())
	})
	return sub, rec
}

func spanNames(spans []sdktrace.ReadOnlySpan) []string {
	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = s.Name()
	}
	return out
}

func TestRequestSpansNest(t *testing.T) {
	_, rec := setup(t)
	ctx, rid := reqid.NewContext(context.Background())
	req := httptest.NewRequest("POST", "/graphql", nil)

	eventbus.Publish(ctx, events.HTTPStart{Request: req, RequestID: rid})
	eventbus.Publish(ctx, events.OperationStart{OperationName: "Q", OperationType: "query"})
	eventbus.Publish(ctx, events.BatchDispatch{Loader: "users", Keys: 3, Duration: time.Millisecond})
	eventbus.Publish(ctx, events.OperationFinish{OperationName: "Q", Errors: []error{errors.New("x")}})
	eventbus.Publish(ctx, events.HTTPFinish{Request: req, RequestID: rid, Status: 200})

	spans := rec.Ended()
	require.Equal(t, []string{"dataloader.batch", "graphql.operation", "http.request"}, spanNames(spans))
	batch, op, http := spans[0], spans[1], spans[2]
	require.Equal(t, op.SpanContext().SpanID(), batch.Parent().SpanID())
	require.Equal(t, http.SpanContext().SpanID(), op.Parent().SpanID())
	require.Equal(t, http.SpanContext().TraceID(), batch.SpanContext().TraceID())
}

func TestEventsWithoutRequestIDAreIgnored(t *testing.T) {
	_, rec := setup(t)
	ctx := context.Background()
	eventbus.Publish(ctx, events.OperationStart{OperationName: "Q"})
	eventbus.Publish(ctx, events.OperationFinish{OperationName: "Q"})
	require.Empty(t, rec.Ended())
}

func TestAbortedOperationIsError(t *testing.T) {
	_, rec := setup(t)
	ctx, _ := reqid.NewContext(context.Background())
	eventbus.Publish(ctx, events.OperationStart{OperationName: "Q"})
	eventbus.Publish(ctx, events.OperationFinish{Err: context.Canceled})

	spans := rec.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestMiddlewareTracesResolvers(t *testing.T) {
	sub, rec := setup(t)
	s, err := schema.BuildFromSDL(`type Query { hello: String fail: String plain: String }`)
	require.NoError(t, err)
	require.NoError(t, s.SetResolver("Query", "hello", func(ctx context.Context, p schema.ResolveParams) (any, error) {
		return "world", nil
	}))
	require.NoError(t, s.SetResolver("Query", "fail", func(ctx context.Context, p schema.ResolveParams) (any, error) {
		return nil, errors.New("nope")
	}))
	s.Use(sub.Middleware())

	doc, err := language.ParseQuery("{ hello fail plain }")
	require.NoError(t, err)
	ctx, _ := reqid.NewContext(context.Background())
	res, err := executor.NewExecutor(s).ExecuteRequest(ctx, executor.Request{Document: doc})
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)

	var resolves, ops int
	for _, span := range rec.Ended() {
		switch span.Name() {
		case "graphql.resolve":
			resolves++
		case "graphql.operation":
			ops++
		}
		if strings.HasPrefix(span.Name(), "graphql.resolve") && span.Status().Code == codes.Error {
			require.Equal(t, "nope", span.Status().Description)
		}
	}
	require.Equal(t, 2, resolves)
	require.Equal(t, 1, ops)
}

func TestSetupWithoutEndpoint(t *testing.T) {
	sub, shutdown, err := Setup(context.Background(), "", "svc")
	require.NoError(t, err)
	require.Nil(t, sub)
	require.NoError(t, shutdown(context.Background()))
}
