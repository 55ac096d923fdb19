package executor

import (
	"context"
	"errors"
	"testing"

	schema "github.com/hanpama/gqlexec/internal/schema"
	"github.com/stretchr/testify/require"
)

const ticksSDL = `
type Query {
  noop: String
}

type Tick {
  n: Int
  label: String
}

type Subscription {
  tick(upTo: Int!): Tick
  other: Int
}
`

func ticksSchema(t *testing.T) *schema.Schema {
	s := mustBuildSchema(t, ticksSDL, resolvers{
		"Subscription.tick": func(ctx context.Context, p schema.ResolveParams) (any, error) {
			return p.Source, nil
		},
		"Tick.label": func(ctx context.Context, p schema.ResolveParams) (any, error) {
			n := p.Source.(map[string]any)["n"].(int)
			if n == 2 {
				return nil, errors.New("no label for 2")
			}
			return "tick", nil
		},
	})
	s.Type("Subscription").Field("tick").SetSubscribe(func(ctx context.Context, p schema.ResolveParams) (<-chan any, error) {
		upTo := p.Args["upTo"].(int)
		ch := make(chan any)
		go func() {
			defer close(ch)
			for i := 1; i <= upTo; i++ {
				select {
				case ch <- map[string]any{"n": i}:
				case <-ctx.Done():
					return
				}
			}
		}()
		return ch, nil
	})
	return s
}

func TestSubscribeExecutesEveryEvent(t *testing.T) {
	stream, res, err := NewExecutor(ticksSchema(t)).Subscribe(context.Background(), Request{
		Document: mustParseQuery(t, "subscription { tick(upTo: 3) { n label } }"),
	})
	require.NoError(t, err)
	require.Nil(t, res)

	var got []string
	var errs [][]string
	for r := range stream {
		got = append(got, mustJSON(t, r.Data))
		errs = append(errs, messages(r))
	}
	require.Equal(t, []string{
		`{"tick":{"n":1,"label":"tick"}}`,
		`{"tick":{"n":2,"label":null}}`,
		`{"tick":{"n":3,"label":"tick"}}`,
	}, got)
	require.Equal(t, [][]string{{}, {"no label for 2"}, {}}, errs)
}

func TestSubscribeStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stream, _, err := NewExecutor(ticksSchema(t)).Subscribe(ctx, Request{
		Document: mustParseQuery(t, "subscription { tick(upTo: 1000000) { n } }"),
	})
	require.NoError(t, err)

	first := <-stream
	require.Equal(t, `{"tick":{"n":1}}`, mustJSON(t, first.Data))
	cancel()
	for range stream {
	}
}

func TestSubscribeRequestErrors(t *testing.T) {
	s := ticksSchema(t)
	cases := []struct {
		name  string
		query string
		want  string
	}{
		{"not a subscription", "{ noop }", "Cannot subscribe to a query operation."},
		{"more than one root field", "subscription { tick(upTo: 1) { n } other }", "Subscription must select only one top level field."},
		{"no subscribe function", "subscription { other }", `Subscription field "other" has no subscribe function.`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stream, res, err := NewExecutor(s).Subscribe(context.Background(), Request{Document: mustParseQuery(t, tc.query)})
			require.NoError(t, err)
			require.Nil(t, stream)
			require.NotNil(t, res)
			require.Equal(t, []string{tc.want}, messages(res))
			require.NotContains(t, mustJSON(t, res), `"data"`)
		})
	}
}
