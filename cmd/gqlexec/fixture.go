package main

import (
	"context"
	"fmt"
	"os"

	schema "github.com/hanpama/gqlexec/internal/schema"

	jsoniter "github.com/json-iterator/go"
)

var fixtureJSON = jsoniter.Config{UseNumber: true}.Froze()

// loadSchema builds a schema from an SDL file.
func loadSchema(path string) (*schema.Schema, error) {
	if path == "" {
		return nil, fmt.Errorf("no schema file given")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := schema.BuildFromSDL(string(b))
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}
	return s, nil
}

// loadFixture reads the JSON root value served by the default resolvers.
// Objects of abstract types name their concrete type with a "__typename"
// key. An empty path yields an empty root.
func loadFixture(path string) (map[string]any, error) {
	root := map[string]any{}
	if path == "" {
		return root, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := fixtureJSON.Unmarshal(b, &root); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return root, nil
}

// streamFixtures makes every subscription field without a subscribe function
// emit the items of the fixture list stored under its name, one event each.
// The root field then resolves to the event itself.
func streamFixtures(s *schema.Schema) {
	sub := s.GetSubscriptionType()
	if sub == nil {
		return
	}
	for _, f := range sub.Fields {
		if f.Subscribe != nil {
			continue
		}
		f.SetSubscribe(subscribeFixture)
		if f.Resolve == nil {
			f.SetResolve(func(ctx context.Context, p schema.ResolveParams) (any, error) {
				return p.Source, nil
			})
		}
	}
}

func subscribeFixture(ctx context.Context, p schema.ResolveParams) (<-chan any, error) {
	root, _ := p.Source.(map[string]any)
	items, ok := root[p.Info.FieldName].([]any)
	if !ok {
		return nil, fmt.Errorf("fixture has no event list for %q", p.Info.FieldName)
	}
	ch := make(chan any)
	go func() {
		defer close(ch)
		for _, item := range items {
			select {
			case ch <- item:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}
