package executor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/hanpama/gqlexec/internal/dataloader"
	schema "github.com/hanpama/gqlexec/internal/schema"
	"github.com/stretchr/testify/require"
)

const usersSDL = `
type User {
  id: ID
  name: String
  friend: User
  bestFriendName: String
}

type Query {
  users: [User]
  slow: String
}
`

// batchLog records the keys of every batch per loader.
type batchLog struct {
	mu      sync.Mutex
	batches map[string][][]string
}

func (l *batchLog) batch(name string, fn func(key string) any) dataloader.BatchFunc {
	return func(ctx context.Context, keys []any) []dataloader.Result {
		sorted := make([]string, len(keys))
		out := make([]dataloader.Result, len(keys))
		for i, k := range keys {
			sorted[i] = k.(string)
			out[i] = dataloader.Result{Value: fn(k.(string))}
		}
		sort.Strings(sorted)
		l.mu.Lock()
		if l.batches == nil {
			l.batches = make(map[string][][]string)
		}
		l.batches[name] = append(l.batches[name], sorted)
		l.mu.Unlock()
		return out
	}
}

func usersSchema(t *testing.T, log *batchLog) *schema.Schema {
	names := log.batch("names", func(id string) any { return "user-" + id })
	users := log.batch("users", func(id string) any { return map[string]any{"id": "1" + id} })
	return mustBuildSchema(t, usersSDL, resolvers{
		"Query.users": value([]any{
			map[string]any{"id": "1"},
			map[string]any{"id": "2"},
			map[string]any{"id": "3"},
		}),
		"User.name": func(ctx context.Context, p schema.ResolveParams) (any, error) {
			return dataloader.For(ctx, "names", names).Load(p.Source.(map[string]any)["id"]), nil
		},
		"User.friend": func(ctx context.Context, p schema.ResolveParams) (any, error) {
			return dataloader.For(ctx, "users", users).Load(p.Source.(map[string]any)["id"]), nil
		},
		// Chains two loaders within one field.
		"User.bestFriendName": func(ctx context.Context, p schema.ResolveParams) (any, error) {
			friend := dataloader.For(ctx, "users", users).Load(p.Source.(map[string]any)["id"])
			return schema.Async(ctx, func(ctx context.Context) (any, error) {
				v, err := friend.Await(ctx)
				if err != nil {
					return nil, err
				}
				return dataloader.For(ctx, "names", names).Load(v.(map[string]any)["id"]).Await(ctx)
			}), nil
		},
	})
}

func TestDeferredResultsBatchPerDepth(t *testing.T) {
	log := &batchLog{}
	res := execute(t, usersSchema(t, log), "{ users { name friend { name } } }")

	require.Empty(t, res.Errors)
	require.Equal(t,
		`{"users":[{"name":"user-1","friend":{"name":"user-11"}},{"name":"user-2","friend":{"name":"user-12"}},{"name":"user-3","friend":{"name":"user-13"}}]}`,
		mustJSON(t, res.Data))

	want := map[string][][]string{
		"names": {{"1", "2", "3"}, {"11", "12", "13"}},
		"users": {{"1", "2", "3"}},
	}
	if diff := cmp.Diff(want, log.batches); diff != "" {
		t.Fatalf("batches mismatch (-want +got):\n%s", diff)
	}
}

func TestDeferredResultsWithLimitedConcurrency(t *testing.T) {
	log := &batchLog{}
	res := execute(t, usersSchema(t, log), "{ users { name } }", WithMaxConcurrency(1))

	require.Empty(t, res.Errors)
	require.Equal(t, [][]string{{"1", "2", "3"}}, log.batches["names"])
}

func TestFutureAwaitedInPlace(t *testing.T) {
	log := &batchLog{}
	res := execute(t, usersSchema(t, log), "{ users { bestFriendName } }")

	require.Empty(t, res.Errors)
	require.Equal(t,
		`{"users":[{"bestFriendName":"user-11"},{"bestFriendName":"user-12"},{"bestFriendName":"user-13"}]}`,
		mustJSON(t, res.Data))
}

func TestDeferredListElements(t *testing.T) {
	log := &batchLog{}
	names := log.batch("names", func(id string) any { return "user-" + id })
	s := mustBuildSchema(t, `type Query { names: [String!] }`, resolvers{
		"Query.names": func(ctx context.Context, p schema.ResolveParams) (any, error) {
			l := dataloader.For(ctx, "names", names)
			return []any{l.Load("a"), l.Load("b")}, nil
		},
	})
	res := execute(t, s, "{ names }")

	require.Empty(t, res.Errors)
	require.Equal(t, `{"names":["user-a","user-b"]}`, mustJSON(t, res.Data))
	require.Equal(t, [][]string{{"a", "b"}}, log.batches["names"])
}

func TestDeferredErrorsAreFieldErrors(t *testing.T) {
	failing := dataloader.New(func(ctx context.Context, keys []any) []dataloader.Result {
		out := make([]dataloader.Result, len(keys))
		for i, k := range keys {
			out[i] = dataloader.Result{Err: fmt.Errorf("no user %v", k)}
		}
		return out
	})
	s := mustBuildSchema(t, usersSDL, resolvers{
		"Query.users": value([]any{map[string]any{"id": "1"}}),
		"User.name": func(ctx context.Context, p schema.ResolveParams) (any, error) {
			return failing.Load(p.Source.(map[string]any)["id"]), nil
		},
	})
	res := execute(t, s, "{ users { id name } }")

	require.Equal(t, `{"users":[{"id":"1","name":null}]}`, mustJSON(t, res.Data))
	require.Equal(t, []string{"no user 1"}, messages(res))
	require.Equal(t, []any{"users", 0, "name"}, res.Errors[0].Path)
}

func TestRegistryFromContextIsUsed(t *testing.T) {
	log := &batchLog{}
	reg := dataloader.NewRegistry()
	ctx := dataloader.WithRegistry(context.Background(), reg)

	res, err := NewExecutor(usersSchema(t, log)).ExecuteRequest(ctx, Request{Document: mustParseQuery(t, "{ users { name } }")})
	require.NoError(t, err)
	require.Empty(t, res.Errors)
	require.Equal(t, 0, reg.Pending())

	// The loader, and its cache, outlive the request.
	l := reg.GetOrCreate("names", func() *dataloader.Loader { t.Fatal("loader not registered"); return nil })
	v, err := l.Load("1").Await(ctx)
	require.NoError(t, err)
	require.Equal(t, "user-1", v)
	require.Len(t, log.batches["names"], 1)
}

func TestAsyncResolversRunConcurrently(t *testing.T) {
	started := make(chan struct{})
	s := mustBuildSchema(t, usersSDL, resolvers{
		"Query.users": func(ctx context.Context, p schema.ResolveParams) (any, error) {
			return schema.Async(ctx, func(ctx context.Context) (any, error) {
				close(started)
				return []any{}, nil
			}), nil
		},
		"Query.slow": func(ctx context.Context, p schema.ResolveParams) (any, error) {
			select {
			case <-started:
				return "after users", nil
			case <-time.After(5 * time.Second):
				return nil, fmt.Errorf("users did not start")
			}
		},
	})
	res := execute(t, s, "{ slow users { id } }")
	require.Empty(t, res.Errors)
	require.Equal(t, `{"slow":"after users","users":[]}`, mustJSON(t, res.Data))
}
