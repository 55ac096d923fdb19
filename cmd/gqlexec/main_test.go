package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	executor "github.com/hanpama/gqlexec/internal/executor"
	language "github.com/hanpama/gqlexec/internal/language"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func runCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCheckSDL(t *testing.T) {
	out, err := runCmd(t, "", "check-sdl", "testdata/schema.graphql")
	require.NoError(t, err)
	require.Contains(t, out, "type Book implements Item {")
	require.Contains(t, out, "type Subscription {")
	require.NotContains(t, out, "__Schema")
}

func TestCheckSDLWritesFile(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.graphql")
	_, err := runCmd(t, "", "check-sdl", "--schema", "testdata/schema.graphql", "-o", dst)
	require.NoError(t, err)
	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Contains(t, string(b), "interface Item {")
}

func TestCheckSDLInvalid(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.graphql")
	require.NoError(t, os.WriteFile(bad, []byte("type Query { a: Missing }"), 0o644))
	_, err := runCmd(t, "", "check-sdl", bad)
	require.Error(t, err)
}

func TestExec(t *testing.T) {
	out, err := runCmd(t, "", "exec", "--schema", "testdata/schema.graphql", "--fixture", "testdata/fixture.json", "testdata/shop.graphql")
	require.NoError(t, err)
	require.JSONEq(t, `{"data":{"shop":{"name":"Corner Shop","items":[
		{"__typename":"Book","id":"b1","author":"Donovan"},
		{"__typename":"Album","id":"a1","tracks":5}
	]}}}`, out)
}

func TestExecFromStdinWithIntrospection(t *testing.T) {
	out, err := runCmd(t, `{ __type(name: "Item") { kind possibleTypes { name } } }`,
		"exec", "--schema", "testdata/schema.graphql", "-")
	require.NoError(t, err)
	require.JSONEq(t, `{"data":{"__type":{"kind":"INTERFACE","possibleTypes":[{"name":"Album"},{"name":"Book"}]}}}`, out)
}

func TestExecValidationError(t *testing.T) {
	out, err := runCmd(t, `{ nope }`, "exec", "--schema", "testdata/schema.graphql", "-")
	require.NoError(t, err)
	require.Contains(t, out, `Cannot query field \"nope\" on type \"Query\".`)
	require.NotContains(t, out, `"data"`)
}

func TestExecMissingSchema(t *testing.T) {
	_, err := runCmd(t, `{ shop { name } }`, "exec", "-")
	require.EqualError(t, err, "no schema file given")
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig("testdata/config.yaml")
	require.NoError(t, err)
	require.Equal(t, "testdata/schema.graphql", cfg.Schema)
	require.False(t, cfg.Introspection)
	require.Equal(t, "127.0.0.1:9090", cfg.Server.Addr)
	require.Equal(t, 2*time.Second, cfg.Server.Timeout)
	require.True(t, cfg.Server.Pretty)
	require.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORS)
	require.Equal(t, 8, cfg.Executor.MaxConcurrency)
	require.True(t, cfg.Executor.SerialQueries)
	require.Equal(t, "debug", cfg.Log.Level)

	// Unset keys keep their defaults.
	require.Equal(t, "/graphql", cfg.Server.Path)
	require.Equal(t, 256, cfg.Server.DocumentCacheSize)
	require.Equal(t, "gqlexec", cfg.OTel.Service)
}

func TestFlagsOverrideConfig(t *testing.T) {
	cmd, _, err := newRootCmd().Find([]string{"serve"})
	require.NoError(t, err)
	require.NoError(t, cmd.ParseFlags([]string{"--config", "testdata/config.yaml", "--addr", ":7000", "--cors", "a,b", "--introspection"}))

	cfg, err := commandConfig(cmd)
	require.NoError(t, err)
	require.Equal(t, ":7000", cfg.Server.Addr)
	require.Equal(t, []string{"a", "b"}, cfg.Server.CORS)
	require.True(t, cfg.Introspection)
	require.True(t, cfg.Server.Pretty)
}

func TestNewLogger(t *testing.T) {
	l, err := newLogger(LogConfig{Level: "warn"})
	require.NoError(t, err)
	require.False(t, l.Core().Enabled(zap.InfoLevel))
	require.True(t, l.Core().Enabled(zap.WarnLevel))

	_, err = newLogger(LogConfig{Level: "loud"})
	require.Error(t, err)
}

func TestHandlerServesFixture(t *testing.T) {
	cfg := defaultConfig()
	cfg.Schema = "testdata/schema.graphql"
	cfg.Fixture = "testdata/fixture.json"
	h, err := newHandler(cfg, zap.NewNop(), nil)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(`{"query":"{ shop { name } }"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"data":{"shop":{"name":"Corner Shop"}}}`, w.Body.String())
}

func TestFixtureSubscription(t *testing.T) {
	cfg := defaultConfig()
	cfg.Schema = "testdata/schema.graphql"
	cfg.Fixture = "testdata/fixture.json"
	s, root, err := buildRuntime(cfg)
	require.NoError(t, err)

	doc, err := language.ParseQuery(`subscription { restocked { __typename title } }`)
	require.NoError(t, err)
	stream, res, err := executor.NewExecutor(s).Subscribe(context.Background(), executor.Request{Document: doc, RootValue: root})
	require.NoError(t, err)
	require.Nil(t, res)

	var got []string
	for r := range stream {
		b, err := fixtureJSON.Marshal(r)
		require.NoError(t, err)
		got = append(got, string(b))
	}
	require.Equal(t, []string{
		`{"data":{"restocked":{"__typename":"Book","title":"The Go Programming Language"}}}`,
		`{"data":{"restocked":{"__typename":"Album","title":"Kind of Blue"}}}`,
	}, got)
}
