package schema

import (
	"context"
	"reflect"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
)

// FieldResolveFn produces the raw value of a field. The returned value may be
// a plain Go value, a Future, or a Deferred.
type FieldResolveFn func(ctx context.Context, p ResolveParams) (any, error)

// Middleware wraps field resolution. The first middleware passed to Use is the
// outermost one.
type Middleware func(next FieldResolveFn) FieldResolveFn

// SubscribeFn produces the source event stream of a subscription root field.
// The stream ends when the channel is closed.
type SubscribeFn func(ctx context.Context, p ResolveParams) (<-chan any, error)

// TypeResolveFn returns the name of the concrete object type of value.
type TypeResolveFn func(ctx context.Context, value any, info *ResolveInfo) (string, error)

// IsTypeOfFn reports whether value belongs to an object type.
type IsTypeOfFn func(ctx context.Context, value any, info *ResolveInfo) bool

// ResolveParams is passed to every resolver invocation.
type ResolveParams struct {
	// Source is the parent object value (the root value for root fields).
	Source any
	// Args holds coerced argument values. Arguments that were neither given
	// nor defaulted are absent, which is distinct from an explicit null.
	Args map[string]any
	Info *ResolveInfo
}

// ResolveInfo describes the field being resolved.
type ResolveInfo struct {
	FieldName       string
	FieldNodes      []*ast.Field
	Field           *Field
	ReturnType      *TypeRef
	ParentType      *Type
	Path            []any
	Schema          *Schema
	Operation       *ast.OperationDefinition
	Fragments       ast.FragmentDefinitionList
	RootValue       any
	Variables       map[string]any
	ArgumentSources map[string]ArgumentSource
	Directives      map[string]*DirectiveInfo
}

// ArgumentSource tells where a coerced argument value came from.
type ArgumentSource int

const (
	ArgumentSourceLiteral ArgumentSource = iota + 1
	ArgumentSourceVariable
	ArgumentSourceVariableDefault
	ArgumentSourceDefault
)

func (s ArgumentSource) String() string {
	switch s {
	case ArgumentSourceLiteral:
		return "literal"
	case ArgumentSourceVariable:
		return "variable"
	case ArgumentSourceVariableDefault:
		return "variable-default"
	case ArgumentSourceDefault:
		return "default"
	}
	return "unknown"
}

// DirectiveInfo is a directive applied to a field, with coerced arguments.
type DirectiveInfo struct {
	Name       string
	Definition *Directive
	Arguments  map[string]any
	Sources    map[string]ArgumentSource
}

// Future is a resolver result that becomes available later. The executor
// awaits it in the goroutine that invoked the resolver.
type Future interface {
	Await(ctx context.Context) (any, error)
}

// Deferred is a Future whose value is produced by a batch dispatch. The
// executor parks deferred results until every sibling at the same depth has
// registered its keys, dispatches the pending batches, then awaits them.
type Deferred interface {
	Future
	Dispatched() bool
}

type asyncResult struct {
	done  chan struct{}
	value any
	err   error
}

// Async runs fn in a new goroutine and returns a Future for its result.
func Async(ctx context.Context, fn func(ctx context.Context) (any, error)) Future {
	r := &asyncResult{done: make(chan struct{})}
	go func() {
		defer close(r.done)
		r.value, r.err = fn(ctx)
	}()
	return r
}

func (r *asyncResult) Await(ctx context.Context) (any, error) {
	select {
	case <-r.done:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// DefaultResolve is used for fields without a resolver. It reads the field
// from a map, a struct field (matching the json tag or the exported name), or
// a method without arguments.
func DefaultResolve(ctx context.Context, p ResolveParams) (any, error) {
	name := p.Info.FieldName
	switch src := p.Source.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return src[name], nil
	}

	rv := reflect.ValueOf(p.Source)
	if m, ok := findMethod(rv, name); ok {
		return callMethod(ctx, m)
	}
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		if fv, ok := findStructField(rv, name); ok {
			return fv.Interface(), nil
		}
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			v := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
			if v.IsValid() {
				return v.Interface(), nil
			}
		}
	}
	return nil, nil
}

func exportedName(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func findStructField(rv reflect.Value, name string) (reflect.Value, bool) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		if tag, ok := sf.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == name {
				return rv.Field(i), true
			}
		}
	}
	if fv := rv.FieldByName(exportedName(name)); fv.IsValid() {
		return fv, true
	}
	return reflect.Value{}, false
}

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

func findMethod(rv reflect.Value, name string) (reflect.Value, bool) {
	if !rv.IsValid() {
		return reflect.Value{}, false
	}
	m := rv.MethodByName(exportedName(name))
	if !m.IsValid() {
		return reflect.Value{}, false
	}
	mt := m.Type()
	switch {
	case mt.NumIn() == 0:
	case mt.NumIn() == 1 && mt.In(0) == contextType:
	default:
		return reflect.Value{}, false
	}
	switch {
	case mt.NumOut() == 1:
	case mt.NumOut() == 2 && mt.Out(1) == errorType:
	default:
		return reflect.Value{}, false
	}
	return m, true
}

func callMethod(ctx context.Context, m reflect.Value) (any, error) {
	var in []reflect.Value
	if m.Type().NumIn() == 1 {
		in = []reflect.Value{reflect.ValueOf(ctx)}
	}
	out := m.Call(in)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}
