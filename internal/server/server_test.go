package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	executor "github.com/hanpama/gqlexec/internal/executor"
	introspection "github.com/hanpama/gqlexec/internal/introspection"
	reqid "github.com/hanpama/gqlexec/internal/reqid"
	schema "github.com/hanpama/gqlexec/internal/schema"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const testSDL = `
type Query {
  hello(name: String = "world"): String
  count(n: Int!): Int
  slow: String
}

type Mutation {
  bump: Int
}

type Subscription {
  ticks(n: Int!): Int
}
`

type fixture struct {
	bumps     atomic.Int32
	requestID atomic.Value
}

func newSchema(t *testing.T, f *fixture) *schema.Schema {
	t.Helper()
	s, err := schema.BuildFromSDL(testSDL)
	require.NoError(t, err)
	require.NoError(t, introspection.Install(s))
	set := func(typ, field string, fn schema.FieldResolveFn) {
		require.NoError(t, s.SetResolver(typ, field, fn))
	}
	set("Query", "hello", func(ctx context.Context, p schema.ResolveParams) (any, error) {
		if id, ok := reqid.FromContext(ctx); ok {
			f.requestID.Store(id)
		}
		return "hello " + p.Args["name"].(string), nil
	})
	set("Query", "count", func(ctx context.Context, p schema.ResolveParams) (any, error) {
		return p.Args["n"], nil
	})
	set("Query", "slow", func(ctx context.Context, p schema.ResolveParams) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	set("Mutation", "bump", func(ctx context.Context, p schema.ResolveParams) (any, error) {
		return int(f.bumps.Add(1)), nil
	})
	set("Subscription", "ticks", func(ctx context.Context, p schema.ResolveParams) (any, error) {
		return p.Source, nil
	})
	s.Type("Subscription").Field("ticks").SetSubscribe(func(ctx context.Context, p schema.ResolveParams) (<-chan any, error) {
		n := p.Args["n"].(int)
		ch := make(chan any)
		go func() {
			defer close(ch)
			for i := 1; i <= n; i++ {
				select {
				case ch <- i:
				case <-ctx.Done():
					return
				}
			}
		}()
		return ch, nil
	})
	return s
}

func newTestHandler(t *testing.T, f *fixture, opts ...Option) *Handler {
	t.Helper()
	if f == nil {
		f = &fixture{}
	}
	h, err := New(newSchema(t, f), opts...)
	require.NoError(t, err)
	return h
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/graphql", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestPostQuery(t *testing.T) {
	h := newTestHandler(t, nil)
	w := post(t, h, `{"query":"query ($n: Int!) { hello count(n: $n) }","variables":{"n":3}}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	require.JSONEq(t, `{"data":{"hello":"hello world","count":3}}`, w.Body.String())
}

func TestGetQuery(t *testing.T) {
	h := newTestHandler(t, nil)
	q := url.Values{"query": {`query Greet($who: String) { hello(name: $who) }`}, "variables": {`{"who":"gopher"}`}}
	req := httptest.NewRequest("GET", "/graphql?"+q.Encode(), nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"data":{"hello":"hello gopher"}}`, w.Body.String())
}

func TestMutationRequiresPost(t *testing.T) {
	f := &fixture{}
	h := newTestHandler(t, f)
	req := httptest.NewRequest("GET", "/graphql?"+url.Values{"query": {"mutation { bump }"}}.Encode(), nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.JSONEq(t, `{"errors":[{"message":"Can only perform a mutation operation from a POST request."}]}`, w.Body.String())
	require.Equal(t, int32(0), f.bumps.Load())

	w = post(t, h, `{"query":"mutation { bump }"}`)
	require.JSONEq(t, `{"data":{"bump":1}}`, w.Body.String())
}

func TestSyntaxAndValidationErrorsOmitData(t *testing.T) {
	h := newTestHandler(t, nil)

	w := post(t, h, `{"query":"{ hello "}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotContains(t, w.Body.String(), `"data"`)
	require.Contains(t, w.Body.String(), `"locations"`)

	w = post(t, h, `{"query":"{ nope }"}`)
	require.NotContains(t, w.Body.String(), `"data"`)
	require.Contains(t, w.Body.String(), `Cannot query field \"nope\" on type \"Query\".`)
}

func TestBatch(t *testing.T) {
	h := newTestHandler(t, nil, WithBatchConcurrency(2))
	w := post(t, h, `[{"query":"{ hello }"},{"query":"{ count(n: 2) }"},{"query":"{ nope }"}]`)
	require.Equal(t, http.StatusOK, w.Code)
	var got []map[string]any
	require.NoError(t, encoder.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 3)
	require.Equal(t, map[string]any{"hello": "hello world"}, got[0]["data"])
	require.Equal(t, map[string]any{"count": float64(2)}, got[1]["data"])
	require.NotContains(t, got[2], "data")
	require.Contains(t, got[2], "errors")
}

func TestBadRequests(t *testing.T) {
	h := newTestHandler(t, nil, WithMaxBodyBytes(64))
	cases := []struct {
		name   string
		method string
		ctype  string
		body   string
		status int
	}{
		{"invalid json", "POST", "application/json", `{"query":`, http.StatusBadRequest},
		{"missing query", "POST", "application/json", `{}`, http.StatusBadRequest},
		{"empty batch", "POST", "application/json", `[]`, http.StatusBadRequest},
		{"too large", "POST", "application/json", `{"query":"` + strings.Repeat("a", 100) + `"}`, http.StatusRequestEntityTooLarge},
		{"content type", "POST", "text/plain", `{ hello }`, http.StatusUnsupportedMediaType},
		{"method", "PUT", "application/json", `{}`, http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/graphql", bytes.NewBufferString(tc.body))
			req.Header.Set("Content-Type", tc.ctype)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			require.Equal(t, tc.status, w.Code)
			require.Contains(t, w.Body.String(), `"errors"`)
			require.NotContains(t, w.Body.String(), `"data"`)
		})
	}
}

func TestCORSAndPreflight(t *testing.T) {
	h := newTestHandler(t, nil, WithCORS("*"))

	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"query":"{ hello }"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	pre := httptest.NewRequest("OPTIONS", "/", nil)
	pre.Header.Set("Origin", "http://example.com")
	pre.Header.Set("Access-Control-Request-Headers", "X-Test")
	pw := httptest.NewRecorder()
	h.ServeHTTP(pw, pre)
	require.Equal(t, http.StatusNoContent, pw.Code)
	require.Equal(t, "*", pw.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "X-Test", pw.Header().Get("Access-Control-Allow-Headers"))
}

func TestCORSSpecificOrigin(t *testing.T) {
	h := newTestHandler(t, nil, WithCORS("http://allowed.example"))
	for origin, want := range map[string]string{"http://allowed.example": "http://allowed.example", "http://other.example": ""} {
		req := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"query":"{ hello }"}`))
		req.Header.Set("Origin", origin)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		require.Equal(t, want, w.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestRequestID(t *testing.T) {
	f := &fixture{}
	h := newTestHandler(t, f)

	w := post(t, h, `{"query":"{ hello }"}`)
	generated := w.Header().Get(reqid.Header)
	require.NotEmpty(t, generated)
	require.Equal(t, generated, f.requestID.Load())

	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"query":"{ hello }"}`))
	req.Header.Set(reqid.Header, "upstream-42")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, "upstream-42", w.Header().Get(reqid.Header))
	require.Equal(t, "upstream-42", f.requestID.Load())
}

func TestTimeoutAbortsOperation(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	h := newTestHandler(t, nil, WithTimeout(20*time.Millisecond), WithLogger(zap.New(core)))
	w := post(t, h, `{"query":"{ slow }"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"data":null,"errors":[{"message":"Request timed out."}]}`, w.Body.String())
	require.Equal(t, 1, logs.FilterMessage("graphql operation aborted").Len())
}

func TestPretty(t *testing.T) {
	h := newTestHandler(t, nil, WithPretty())
	w := post(t, h, `{"query":"{ hello }"}`)
	require.Equal(t, "{\n  \"data\": {\n    \"hello\": \"hello world\"\n  }\n}\n", w.Body.String())
}

func TestGraphiQL(t *testing.T) {
	h := newTestHandler(t, nil)
	req := httptest.NewRequest("GET", "/graphql", nil)
	req.Header.Set("Accept", "text/html")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	require.Contains(t, w.Body.String(), "GraphiQL")
}

func TestIntrospectionPassesValidation(t *testing.T) {
	h := newTestHandler(t, nil)
	w := post(t, h, `{"query":"{ __schema { queryType { name } } __type(name: \"Mutation\") { fields { name } } }"}`)
	require.JSONEq(t, `{"data":{"__schema":{"queryType":{"name":"Query"}},"__type":{"fields":[{"name":"bump"}]}}}`, w.Body.String())
}

func TestDocumentCache(t *testing.T) {
	h := newTestHandler(t, nil, WithDocumentCache(2))
	for i := 0; i < 3; i++ {
		post(t, h, `{"query":"{ hello }"}`)
	}
	require.Equal(t, 1, h.docs.len())
	post(t, h, `{"query":"{ nope }"}`)
	post(t, h, `{"query":"{ count(n: 1) }"}`)
	require.Equal(t, 2, h.docs.len())

	// Cached validation errors are reported again.
	w := post(t, h, `{"query":"{ nope }"}`)
	require.Contains(t, w.Body.String(), "Cannot query field")

	uncached := newTestHandler(t, nil, WithDocumentCache(0))
	post(t, uncached, `{"query":"{ hello }"}`)
	require.Equal(t, 0, uncached.docs.len())
}

func TestExecutorOptions(t *testing.T) {
	h := newTestHandler(t, nil, WithExecutor(executor.WithMaxConcurrency(1)))
	w := post(t, h, `{"query":"{ a: hello b: hello }"}`)
	require.JSONEq(t, `{"data":{"a":"hello world","b":"hello world"}}`, w.Body.String())
}

func TestSubscriptionOverHTTPIsRejected(t *testing.T) {
	h := newTestHandler(t, nil)
	w := post(t, h, `{"query":"subscription { ticks(n: 1) }"}`)
	require.JSONEq(t, `{"errors":[{"message":"Subscriptions are only served over WebSocket."}]}`, w.Body.String())
}
