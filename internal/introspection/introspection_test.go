package introspection

import (
	"context"
	"testing"

	executor "github.com/hanpama/gqlexec/internal/executor"
	language "github.com/hanpama/gqlexec/internal/language"
	schema "github.com/hanpama/gqlexec/internal/schema"
	"github.com/stretchr/testify/require"
)

const sdl = `
"""The root."""
type Query {
  hello(name: String = "world", style: Style = LOUD): String
  old: String @deprecated(reason: "use hello")
  pet: Pet
}

interface Pet {
  name: String
}

type Dog implements Pet {
  name: String
  tags: [String!]!
}

enum Style {
  LOUD
  QUIET @deprecated
}

input Filter {
  limit: Int = 10
}
`

func buildSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.BuildFromSDL(sdl)
	require.NoError(t, err)
	require.NoError(t, Install(s))
	return s
}

func run(t *testing.T, s *schema.Schema, query string) string {
	t.Helper()
	doc, err := language.ParseQuery(query)
	require.NoError(t, err)
	res, err := executor.NewExecutor(s).ExecuteRequest(context.Background(), executor.Request{Document: doc})
	require.NoError(t, err)
	require.Empty(t, res.Errors)
	b, err := res.MarshalJSON()
	require.NoError(t, err)
	return string(b)
}

func TestSchemaRoots(t *testing.T) {
	got := run(t, buildSchema(t), `{ __schema { queryType { name } mutationType { name } } }`)
	require.JSONEq(t, `{"data":{"__schema":{"queryType":{"name":"Query"},"mutationType":null}}}`, got)
}

func TestTypeFields(t *testing.T) {
	got := run(t, buildSchema(t), `{
	  __type(name: "Query") {
	    kind
	    description
	    fields { name args { name defaultValue } }
	    all: fields(includeDeprecated: true) { name isDeprecated deprecationReason }
	  }
	}`)
	require.JSONEq(t, `{"data":{"__type":{
	  "kind":"OBJECT",
	  "description":"The root.",
	  "fields":[
	    {"name":"hello","args":[{"name":"name","defaultValue":"\"world\""},{"name":"style","defaultValue":"LOUD"}]},
	    {"name":"pet","args":[]}
	  ],
	  "all":[
	    {"name":"hello","isDeprecated":false,"deprecationReason":null},
	    {"name":"old","isDeprecated":true,"deprecationReason":"use hello"},
	    {"name":"pet","isDeprecated":false,"deprecationReason":null}
	  ]
	}}}`, got)
}

func TestWrappedTypes(t *testing.T) {
	got := run(t, buildSchema(t), `{
	  __type(name: "Dog") {
	    interfaces { name }
	    fields { name type { kind name ofType { kind name ofType { kind name ofType { name } } } } }
	  }
	}`)
	require.JSONEq(t, `{"data":{"__type":{
	  "interfaces":[{"name":"Pet"}],
	  "fields":[
	    {"name":"name","type":{"kind":"SCALAR","name":"String","ofType":null}},
	    {"name":"tags","type":{"kind":"NON_NULL","name":null,"ofType":{"kind":"LIST","name":null,"ofType":{"kind":"NON_NULL","name":null,"ofType":{"name":"String"}}}}}
	  ]
	}}}`, got)
}

func TestAbstractEnumAndInputTypes(t *testing.T) {
	got := run(t, buildSchema(t), `{
	  pet: __type(name: "Pet") { kind possibleTypes { name } }
	  style: __type(name: "Style") { enumValues { name } all: enumValues(includeDeprecated: true) { name isDeprecated } }
	  filter: __type(name: "Filter") { kind isOneOf inputFields { name defaultValue type { name } } }
	  missing: __type(name: "Nope") { name }
	}`)
	require.JSONEq(t, `{"data":{
	  "pet":{"kind":"INTERFACE","possibleTypes":[{"name":"Dog"}]},
	  "style":{"enumValues":[{"name":"LOUD"}],"all":[{"name":"LOUD","isDeprecated":false},{"name":"QUIET","isDeprecated":true}]},
	  "filter":{"kind":"INPUT_OBJECT","isOneOf":false,"inputFields":[{"name":"limit","defaultValue":"10","type":{"name":"Int"}}]},
	  "missing":null
	}}`, got)
}

func TestDirectivesAndMetaTypes(t *testing.T) {
	got := run(t, buildSchema(t), `{
	  __schema {
	    directives { name locations args { name } }
	  }
	}`)
	require.Contains(t, got, `{"name":"skip","locations":["FIELD","FRAGMENT_SPREAD","INLINE_FRAGMENT"],"args":[{"name":"if"}]}`)

	types := run(t, buildSchema(t), `{ __schema { types { name } } }`)
	require.Contains(t, types, `{"name":"__Type"}`)
	require.Contains(t, types, `{"name":"Dog"}`)
}

func TestMetaFieldsAreNotRendered(t *testing.T) {
	sdl := schema.Render(buildSchema(t))
	require.NotContains(t, sdl, "__schema")
	require.NotContains(t, sdl, "__Type")
}

func TestInstallTwice(t *testing.T) {
	s := buildSchema(t)
	require.Error(t, Install(s))
	require.Error(t, Install(schema.NewSchema("Query")))
}

func TestTypename(t *testing.T) {
	got := run(t, buildSchema(t), `{ __typename __schema { __typename } }`)
	require.JSONEq(t, `{"data":{"__typename":"Query","__schema":{"__typename":"__Schema"}}}`, got)
}
