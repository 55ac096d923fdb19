package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	eventbus "github.com/hanpama/gqlexec/internal/eventbus"
	otel "github.com/hanpama/gqlexec/internal/otel"
	schema "github.com/hanpama/gqlexec/internal/schema"
	server "github.com/hanpama/gqlexec/internal/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the schema over HTTP and WebSocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := commandConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	fs := cmd.Flags()
	fs.Bool("introspection", true, "enable __schema and __type")
	fs.String("addr", ":8080", "HTTP listen address")
	fs.String("path", "/graphql", "HTTP path of the endpoint")
	fs.Duration("timeout", 10*time.Second, "per-request timeout")
	fs.Bool("pretty", false, "pretty-print JSON responses")
	fs.Int64("max-body-bytes", 0, "maximum request body size, 0 for unlimited")
	fs.StringSlice("cors", nil, "allowed CORS origins")
	fs.Bool("graphiql", true, "serve GraphiQL to browsers")
	fs.Int("max-concurrency", 0, "maximum number of concurrent resolvers per wave")
	fs.String("otel-endpoint", "", "OTLP gRPC collector endpoint")
	fs.String("otel-service", "gqlexec", "OpenTelemetry service name")
	fs.String("log-level", "info", "log level")
	return cmd
}

// newHandler builds the GraphQL handler described by cfg. When sub is
// non-nil every resolver call is traced.
func newHandler(cfg Config, logger *zap.Logger, sub *otel.Subscriber) (*server.Handler, error) {
	s, root, err := buildRuntime(cfg, func(s *schema.Schema) {
		if sub != nil {
			s.Use(sub.Middleware())
		}
	})
	if err != nil {
		return nil, err
	}
	opts := []server.Option{
		server.WithTimeout(cfg.Server.Timeout),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		server.WithGraphiQL(cfg.Server.GraphiQL),
		server.WithDocumentCache(cfg.Server.DocumentCacheSize),
		server.WithBatchConcurrency(cfg.Server.BatchConcurrency),
		server.WithLogger(logger),
		server.WithRootValue(root),
		server.WithExecutor(executorOptions(cfg)...),
	}
	if cfg.Server.Pretty {
		opts = append(opts, server.WithPretty())
	}
	if len(cfg.Server.CORS) > 0 {
		opts = append(opts, server.WithCORS(cfg.Server.CORS...))
	}
	return server.New(s, opts...)
}

func serve(ctx context.Context, cfg Config) error {
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	eventbus.Use(eventbus.New())
	sub, shutdownOTel, err := otel.Setup(ctx, cfg.OTel.Endpoint, cfg.OTel.Service)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdownOTel(context.Background()) }()

	h, err := newHandler(cfg, logger, sub)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Server.Path, h)
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	logger.Info("GraphQL server listening", zap.String("addr", cfg.Server.Addr), zap.String("path", cfg.Server.Path))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
