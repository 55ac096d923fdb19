package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	eventbus "github.com/hanpama/gqlexec/internal/eventbus"
	events "github.com/hanpama/gqlexec/internal/events"
	executor "github.com/hanpama/gqlexec/internal/executor"
	language "github.com/hanpama/gqlexec/internal/language"
	reqid "github.com/hanpama/gqlexec/internal/reqid"
	schema "github.com/hanpama/gqlexec/internal/schema"

	"github.com/gorilla/websocket"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// Handler is an http.Handler that serves a GraphQL endpoint.
// It parses and validates requests, runs the executor, and writes
// {data, errors} responses. Subscriptions are served over WebSocket.
type Handler struct {
	exec      *executor.Executor
	validator *language.Validator
	docs      *documentCache
	logger    *zap.Logger
	upgrader  websocket.Upgrader
	opt       Options
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout. WebSocket connections are not limited.
	Timeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions

	// GraphiQL enables the in-browser IDE when true.
	GraphiQL bool

	// DocumentCacheSize is the number of parsed and validated documents kept.
	// 0 disables caching.
	DocumentCacheSize int

	// BatchConcurrency bounds how many operations of a batched request run at
	// once. 0 or less runs them one after another.
	BatchConcurrency int

	// Logger receives one line per request. Defaults to a no-op logger.
	Logger *zap.Logger

	// Executor options applied to the underlying executor.
	Executor []executor.Option

	// RootValue is the source value of every root field.
	RootValue any
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}
func WithGraphiQL(enable bool) Option   { return func(o *Options) { o.GraphiQL = enable } }
func WithDocumentCache(size int) Option { return func(o *Options) { o.DocumentCacheSize = size } }
func WithBatchConcurrency(n int) Option { return func(o *Options) { o.BatchConcurrency = n } }
func WithLogger(l *zap.Logger) Option   { return func(o *Options) { o.Logger = l } }
func WithExecutor(opts ...executor.Option) Option {
	return func(o *Options) { o.Executor = append(o.Executor, opts...) }
}
func WithRootValue(v any) Option { return func(o *Options) { o.RootValue = v } }

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

// New initializes s and creates a GraphQL HTTP handler serving it.
func New(s *schema.Schema, opts ...Option) (*Handler, error) {
	op := Options{Timeout: 10 * time.Second, GraphiQL: true, DocumentCacheSize: 256, BatchConcurrency: 4}
	for _, f := range opts {
		f(&op)
	}
	if op.Logger == nil {
		op.Logger = zap.NewNop()
	}
	if err := s.Initialize(); err != nil {
		return nil, err
	}
	v, err := language.NewValidator("schema.graphql", schema.Render(s))
	if err != nil {
		return nil, err
	}
	docs, err := newDocumentCache(op.DocumentCacheSize)
	if err != nil {
		return nil, err
	}
	h := &Handler{
		exec:      executor.NewExecutor(s, append([]executor.Option{executor.WithLogger(op.Logger)}, op.Executor...)...),
		validator: v,
		docs:      docs,
		logger:    op.Logger,
		opt:       op,
	}
	h.upgrader = websocket.Upgrader{
		Subprotocols: []string{subprotocol},
		CheckOrigin:  h.checkOrigin,
	}
	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, rid := reqid.WithID(r.Context(), r.Header.Get(reqid.Header))
	w.Header().Set(reqid.Header, rid)
	r = r.WithContext(ctx)

	if websocket.IsWebSocketUpgrade(r) {
		h.serveWebSocket(w, r)
		return
	}

	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	status := http.StatusOK
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r, RequestID: rid})
	defer func() {
		d := time.Since(start)
		eventbus.Publish(ctx, events.HTTPFinish{Request: r, RequestID: rid, Status: status, Duration: d})
		h.logger.Info("graphql request",
			zap.String("request_id", rid),
			zap.String("method", r.Method),
			zap.Int("status", status),
			zap.Duration("duration", d))
	}()

	if len(h.opt.CORS.AllowedOrigins) > 0 {
		setCORSHeaders(w, r, h.opt.CORS)
	}

	if r.Method == http.MethodOptions {
		status = http.StatusNoContent
		w.WriteHeader(status)
		return
	}

	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		status = http.StatusMethodNotAllowed
		w.Header().Set("Allow", "GET, POST, OPTIONS")
		h.writeJSON(w, status, requestError("GraphQL only supports GET and POST requests."))
		return
	}

	// Serve GraphiQL IDE when enabled and the client expects HTML.
	if r.Method == http.MethodGet && h.opt.GraphiQL && acceptsHTML(r.Header.Get("Accept")) && r.URL.Query().Get("query") == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(graphiqlPage))
		return
	}

	req, batch, perr := parseRequest(r, h.opt.MaxBodyBytes)
	if perr != nil {
		status = perr.status
		h.writeJSON(w, status, requestError(perr.message))
		return
	}

	if batch != nil {
		h.writeJSON(w, status, h.executeBatch(ctx, r.Method, batch))
		return
	}
	h.writeJSON(w, status, h.executeOne(ctx, r.Method, req))
}

func (h *Handler) executeBatch(ctx context.Context, method string, batch []GraphQLRequest) []*executor.ExecutionResult {
	out := make([]*executor.ExecutionResult, len(batch))
	p := pool.New().WithMaxGoroutines(max(h.opt.BatchConcurrency, 1))
	for i := range batch {
		p.Go(func() { out[i] = h.executeOne(ctx, method, batch[i]) })
	}
	p.Wait()
	return out
}

func (h *Handler) executeOne(ctx context.Context, method string, req GraphQLRequest) *executor.ExecutionResult {
	doc, errs := h.document(req.Query)
	if len(errs) > 0 {
		return executor.NewErrorResult(executor.ErrorsOf(errs)...)
	}

	op := selectOperation(doc, req.OperationName)
	if op != nil {
		switch {
		case op.Operation == language.Mutation && method == http.MethodGet:
			return executor.NewErrorResult(&executor.ExecutionError{
				Message: "Can only perform a mutation operation from a POST request.",
			})
		case op.Operation == language.Subscription:
			return executor.NewErrorResult(&executor.ExecutionError{
				Message: "Subscriptions are only served over WebSocket.",
			})
		}
	}

	res, err := h.exec.ExecuteRequest(ctx, executor.Request{
		Document:      doc,
		OperationName: req.OperationName,
		Variables:     req.Variables,
		RootValue:     h.opt.RootValue,
	})
	if err != nil {
		return h.aborted(ctx, err)
	}
	return res
}

// aborted reports an execution that produced no result.
func (h *Handler) aborted(ctx context.Context, err error) *executor.ExecutionResult {
	rid, _ := reqid.FromContext(ctx)
	h.logger.Warn("graphql operation aborted", zap.String("request_id", rid), zap.Error(err))
	msg := "Internal server error."
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		msg = "Request timed out."
	case errors.Is(err, context.Canceled):
		msg = "Request cancelled."
	}
	return &executor.ExecutionResult{Errors: []*executor.ExecutionError{{Message: msg, Cause: err}}}
}

// document parses and validates query, consulting the document cache.
func (h *Handler) document(query string) (*language.QueryDocument, language.ErrorList) {
	if doc, errs, ok := h.docs.get(query); ok {
		return doc, errs
	}
	doc, errs := h.validator.ParseAndValidate(query)
	h.docs.add(query, doc, errs)
	return doc, errs
}

func selectOperation(doc *language.QueryDocument, name string) *language.OperationDefinition {
	if name == "" {
		if len(doc.Operations) == 1 {
			return doc.Operations[0]
		}
		return nil
	}
	return doc.Operations.ForName(name)
}

func setCORSHeaders(w http.ResponseWriter, r *http.Request, opts CORSOptions) {
	origin := r.Header.Get("Origin")
	if origin == "" || !originAllowed(opts.AllowedOrigins, origin) {
		return
	}
	if contains(opts.AllowedOrigins, "*") {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	}
}

func originAllowed(allowed []string, origin string) bool {
	for _, o := range allowed {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func acceptsHTML(accept string) bool {
	for _, p := range strings.Split(accept, ",") {
		p = strings.TrimSpace(p)
		if strings.HasPrefix(p, "text/html") || p == "*/*" {
			return true
		}
	}
	return false
}
