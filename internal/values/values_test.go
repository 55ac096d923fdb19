package values

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hanpama/gqlexec/internal/language"
	"github.com/hanpama/gqlexec/internal/schema"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	color := schema.NewEnum("Color").
		AddEnumValue(schema.NewEnumValue("RED", "")).
		AddEnumValue(schema.NewEnumValue("GREEN", "").SetValue(1)).
		AddEnumValue(schema.NewEnumValue("BLUE", "").SetValue(3))
	filter := schema.NewInputObject("Filter",
		schema.NewInputValue("name", "", schema.NamedType("String")).SetKey("Name"),
		schema.NewInputValue("limit", "", schema.NamedType("Int")).SetDefault(10),
		schema.NewInputValue("color", "", schema.NonNullType(schema.NamedType("Color"))),
		schema.NewInputValue("tags", "", schema.ListType(schema.NonNullType(schema.NamedType("String")))),
	)
	search := schema.NewField("search", "", schema.NamedType("String")).
		AddArgument(schema.NewInputValue("filter", "", schema.NamedType("Filter"))).
		AddArgument(schema.NewInputValue("first", "", schema.NamedType("Int")).SetDefault(5)).
		AddArgument(schema.NewInputValue("after", "", schema.NamedType("String"))).
		AddArgument(schema.NewInputValue("id", "", schema.NonNullType(schema.NamedType("ID"))))
	s := schema.NewSchema("Query").
		AddType(color).
		AddType(filter).
		AddType(schema.NewObject("Query", search))
	require.NoError(t, s.Initialize())
	return s
}

func nestedIntList() *schema.TypeRef {
	return schema.ListType(schema.ListType(schema.NamedType("Int")))
}

func TestCoerceValueListPromotion(t *testing.T) {
	s := testSchema(t)
	tests := []struct {
		name string
		in   any
		want any
	}{
		{name: "scalar", in: 1, want: []any{[]any{1}}},
		{name: "single list", in: []any{1}, want: []any{[]any{1}}},
		{name: "two items", in: []any{1, 2}, want: []any{[]any{1}, []any{2}}},
		{name: "already nested", in: []any{[]any{1, 2}}, want: []any{[]any{1, 2}}},
		{name: "null", in: nil, want: nil},
		{name: "null item", in: []any{nil}, want: []any{nil}},
		{name: "typed slice", in: []int{4, 5}, want: []any{[]any{4}, []any{5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CoerceValue(s, tt.in, nestedIntList())
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("coerced value mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValueFromASTListPromotion(t *testing.T) {
	s := testSchema(t)
	tests := []struct {
		literal string
		want    any
	}{
		{literal: "1", want: []any{[]any{1}}},
		{literal: "[1]", want: []any{[]any{1}}},
		{literal: "[1, 2]", want: []any{[]any{1}, []any{2}}},
		{literal: "null", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.literal, func(t *testing.T) {
			got, err := ValueFromAST(s, mustParseValue(t, tt.literal), nestedIntList(), NewVariableValues(nil))
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("coerced literal mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCoerceNonNull(t *testing.T) {
	s := testSchema(t)
	_, err := CoerceValue(s, nil, schema.NonNullType(schema.NamedType("Int")))
	var ce *CoercionError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "Int!", ce.TypeName)

	_, err = ValueFromAST(s, mustParseValue(t, "[1, null]"), schema.ListType(schema.NonNullType(schema.NamedType("Int"))), NewVariableValues(nil))
	require.ErrorAs(t, err, &ce)
	require.Equal(t, []any{1}, ce.Path)
}

func TestEnumCoercion(t *testing.T) {
	s := testSchema(t)
	color := schema.NamedType("Color")

	tests := []struct {
		name    string
		in      any
		want    any
		wantErr string
	}{
		{name: "name", in: "RED", want: "RED"},
		{name: "name of valued member", in: "GREEN", want: 1},
		{name: "backing value", in: 3, want: 3},
		{name: "decoded json number", in: float64(1), want: 1},
		{name: "json.Number", in: json.Number("3"), want: 3},
		{name: "unknown integer", in: 2, wantErr: `Value 2 does not exist in "Color" enum.`},
		{name: "wrong case", in: "red", wantErr: `Value "red" does not exist in "Color" enum.`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CoerceValue(s, tt.in, color)
			if tt.wantErr != "" {
				var ce *CoercionError
				require.ErrorAs(t, err, &ce)
				require.Equal(t, "Color", ce.TypeName)
				require.Equal(t, tt.wantErr, ce.Error())
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	t.Run("literal", func(t *testing.T) {
		got, err := ValueFromAST(s, mustParseValue(t, "BLUE"), color, NewVariableValues(nil))
		require.NoError(t, err)
		require.Equal(t, 3, got)

		_, err = ValueFromAST(s, mustParseValue(t, "2"), color, NewVariableValues(nil))
		require.EqualError(t, err, `Value 2 does not exist in "Color" enum.`)

		_, err = ValueFromAST(s, mustParseValue(t, `"RED"`), color, NewVariableValues(nil))
		require.Error(t, err, "string literals are not enum tokens")
	})
}

func TestInputObjectCoercion(t *testing.T) {
	s := testSchema(t)
	filter := schema.NamedType("Filter")

	got, err := CoerceValue(s, map[string]any{"name": "go", "color": "BLUE", "tags": "x"}, filter)
	require.NoError(t, err)
	want := map[string]any{"Name": "go", "limit": 10, "color": 3, "tags": []any{"x"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("input object mismatch (-want +got):\n%s", diff)
	}

	got, err = CoerceValue(s, map[string]any{"color": "RED", "limit": nil}, filter)
	require.NoError(t, err)
	want = map[string]any{"limit": nil, "color": "RED"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("explicit null mismatch (-want +got):\n%s", diff)
	}

	_, err = CoerceValue(s, map[string]any{"color": "RED", "bogus": 1}, filter)
	require.EqualError(t, err, `Field "bogus" is not defined by type "Filter".`)

	_, err = CoerceValue(s, map[string]any{"name": "go"}, filter)
	require.EqualError(t, err, `Field "Filter.color" of required type "Color!" was not provided.`)

	_, err = CoerceValue(s, map[string]any{"color": "RED", "tags": []any{"a", 7}}, filter)
	var ce *CoercionError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, []any{"tags", 1}, ce.Path)
	require.Contains(t, ce.Error(), `At "tags[1]".`)
}

func TestInputObjectLiteral(t *testing.T) {
	s := testSchema(t)
	vars := VariableValues{
		Values:  map[string]any{"tag": "v", "nothing": nil},
		Sources: map[string]schema.ArgumentSource{},
	}
	got, err := ValueFromAST(s, mustParseValue(t, `{color: GREEN, tags: [$tag], name: $missing, limit: $nothing}`), schema.NamedType("Filter"), vars)
	require.NoError(t, err)
	want := map[string]any{"color": 1, "tags": []any{"v"}, "limit": nil}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("literal mismatch (-want +got):\n%s", diff)
	}
}

func TestCoerceVariableValues(t *testing.T) {
	s := testSchema(t)
	op := mustParseOperation(t, `query($id: ID!, $first: Int = 3, $after: String, $color: Color = GREEN) { search(id: $id) }`)

	vars, errs := CoerceVariableValues(s, op, map[string]any{"id": 7})
	require.Empty(t, errs)
	if diff := cmp.Diff(map[string]any{"id": "7", "first": 3, "color": 1}, vars.Values); diff != "" {
		t.Fatalf("variables mismatch (-want +got):\n%s", diff)
	}
	_, src, ok := vars.Lookup("first")
	require.True(t, ok)
	require.Equal(t, schema.ArgumentSourceVariableDefault, src)
	_, _, ok = vars.Lookup("after")
	require.False(t, ok)

	_, errs = CoerceVariableValues(s, op, map[string]any{"first": "x"})
	require.Len(t, errs, 2)
	require.EqualError(t, errs[0], `Variable "$id" of required type "ID!" was not provided.`)
	require.Contains(t, errs[1].Error(), `Variable "$first" got invalid value "x"; Expected type "Int"`)

	_, errs = CoerceVariableValues(s, op, map[string]any{"id": nil})
	require.Len(t, errs, 1)
	require.EqualError(t, errs[0], `Variable "$id" of non-null type "ID!" must not be null.`)
}

func TestArgumentValues(t *testing.T) {
	s := testSchema(t)
	defs := s.GetQueryType().Field("search").Arguments
	vars := VariableValues{
		Values:  map[string]any{"id": "1", "after": nil, "none": nil},
		Sources: map[string]schema.ArgumentSource{"id": schema.ArgumentSourceVariableDefault},
	}

	args, err := ArgumentValues(s, defs, mustParseArgs(t, `search(id: $id, after: $after, first: $unset)`), vars)
	require.NoError(t, err)
	if diff := cmp.Diff(map[string]any{"id": "1", "after": nil, "first": 5}, args.Values); diff != "" {
		t.Fatalf("arguments mismatch (-want +got):\n%s", diff)
	}
	wantSources := map[string]schema.ArgumentSource{
		"id":    schema.ArgumentSourceVariableDefault,
		"after": schema.ArgumentSourceVariable,
		"first": schema.ArgumentSourceDefault,
	}
	if diff := cmp.Diff(wantSources, args.Sources); diff != "" {
		t.Fatalf("sources mismatch (-want +got):\n%s", diff)
	}
	_, hasFilter := args.Values["filter"]
	require.False(t, hasFilter, "omitted nullable arguments are absent")

	args, err = ArgumentValues(s, defs, mustParseArgs(t, `search(id: 4, after: null, filter: {color: RED})`), vars)
	require.NoError(t, err)
	require.Equal(t, "4", args.Values["id"])
	require.Contains(t, args.Values, "after")
	require.Nil(t, args.Values["after"])
	require.Equal(t, schema.ArgumentSourceLiteral, args.Sources["filter"])

	_, err = ArgumentValues(s, defs, mustParseArgs(t, `search(first: 1)`), vars)
	require.EqualError(t, err, `Argument "id" of required type "ID!" was not provided.`)

	_, err = ArgumentValues(s, defs, mustParseArgs(t, `search(id: $none)`), vars)
	require.EqualError(t, err, `Argument "id" of non-null type "ID!" must not be null; variable "$none" is null.`)

	_, err = ArgumentValues(s, defs, mustParseArgs(t, `search(id: 1, first: "x")`), vars)
	require.Error(t, err)
	require.Contains(t, err.Error(), `Argument "first" has invalid value: Expected type "Int", found "x"`)
}

func TestShouldInclude(t *testing.T) {
	s := testSchema(t)
	vars := NewVariableValues(map[string]any{"yes": true, "no": false})
	tests := []struct {
		query string
		want  bool
	}{
		{query: `a`, want: true},
		{query: `a @skip(if: true)`, want: false},
		{query: `a @skip(if: false)`, want: true},
		{query: `a @include(if: false)`, want: false},
		{query: `a @include(if: $yes)`, want: true},
		{query: `a @include(if: $yes) @skip(if: $yes)`, want: false},
		{query: `a @include(if: $no) @skip(if: false)`, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := ShouldInclude(s, mustParseField(t, tt.query).Directives, vars)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := ShouldInclude(s, mustParseField(t, `a @skip(if: $missing)`).Directives, vars)
	require.Error(t, err)
}

func TestDirectivesInfoRecordsSources(t *testing.T) {
	s := testSchema(t)
	vars := VariableValues{
		Values:  map[string]any{"flag": true},
		Sources: map[string]schema.ArgumentSource{"flag": schema.ArgumentSourceVariableDefault},
	}
	infos, err := DirectivesInfo(s, mustParseField(t, `a @include(if: $flag) @unknown`).Directives, vars)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	require.Equal(t, true, infos["include"].Arguments["if"])
	require.Equal(t, schema.ArgumentSourceVariableDefault, infos["include"].Sources["if"])
}

func TestCoercionErrorUnwrap(t *testing.T) {
	s := testSchema(t)
	_, err := CoerceValue(s, "x", schema.NamedType("Int"))
	var ce *CoercionError
	require.True(t, errors.As(err, &ce))
	require.NotNil(t, errors.Unwrap(err))
}

func mustParseOperation(t *testing.T, q string) *ast.OperationDefinition {
	t.Helper()
	doc, err := language.ParseQuery(q)
	require.NoError(t, err)
	return doc.Operations[0]
}

func mustParseField(t *testing.T, selection string) *ast.Field {
	t.Helper()
	op := mustParseOperation(t, "{ "+selection+" }")
	return op.SelectionSet[0].(*ast.Field)
}

func mustParseArgs(t *testing.T, selection string) ast.ArgumentList {
	return mustParseField(t, selection).Arguments
}

// mustParseValue parses a literal by embedding it as an argument.
func mustParseValue(t *testing.T, literal string) *ast.Value {
	t.Helper()
	return mustParseField(t, "f(v: "+literal+")").Arguments[0].Value
}
