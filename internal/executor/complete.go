package executor

import (
	"context"
	"fmt"
	"reflect"

	schema "github.com/hanpama/gqlexec/internal/schema"
)

// complete turns the raw value of n into its response shape. Object values
// schedule their fields for the next wave; list elements are completed in
// place.
func (ec *executionContext) complete(ctx context.Context, n *node, raw any, w *wave) {
	if isNullish(raw) {
		ec.completeNull(n)
		return
	}

	typ := n.typ.Nullable()
	switch typ.Kind {
	case schema.TypeRefKindList:
		ec.completeList(ctx, n, typ.OfType, raw, w)
	case schema.TypeRefKindNamed:
		t := ec.schema.Type(typ.Named)
		if t == nil {
			ec.fail(n, ec.fieldError(n, fmt.Sprintf("Unknown type %q.", typ.Named)))
			return
		}
		switch t.Kind {
		case schema.TypeKindScalar:
			ec.completeScalar(n, t, raw)
		case schema.TypeKindEnum:
			ec.completeEnum(n, t, raw)
		case schema.TypeKindObject:
			ec.completeObject(ctx, n, t, raw, w)
		case schema.TypeKindInterface, schema.TypeKindUnion:
			ot, err := ec.resolveAbstractType(ctx, n, t, raw)
			if err != nil {
				ec.fail(n, err)
				return
			}
			ec.completeObject(ctx, n, ot, raw, w)
		default:
			ec.fail(n, ec.fieldError(n, fmt.Sprintf("Type %q is not an output type.", t.Name)))
		}
	}
}

func (ec *executionContext) completeNull(n *node) {
	if n.typ.IsNonNull() {
		ec.fail(n, ec.nonNullError(n))
		return
	}
	n.state = stateNull
}

func (ec *executionContext) completeList(ctx context.Context, n *node, itemType *schema.TypeRef, raw any, w *wave) {
	items, ok := toSlice(raw)
	if !ok {
		ec.fail(n, ec.fieldError(n, fmt.Sprintf(
			"Expected Iterable, but did not find one for field \"%s.%s\".", n.parentType.Name, n.fieldName())))
		return
	}
	n.state = stateList
	n.children = make([]*node, len(items))
	for i := range items {
		n.children[i] = newItemNode(n, i, itemType)
	}
	for i, item := range items {
		if n.nulled.Load() || n.doomed() {
			return
		}
		ec.completeItem(ctx, n.children[i], item, w)
	}
}

// completeItem completes one list element. A panic fails only that element.
func (ec *executionContext) completeItem(ctx context.Context, c *node, item any, w *wave) {
	defer ec.recoverNode(ctx, c)
	ec.settle(ctx, c, item, nil, w)
}

func (ec *executionContext) completeScalar(n *node, t *schema.Type, raw any) {
	if t.Serialize == nil {
		n.state, n.value = stateLeaf, raw
		return
	}
	v, err := t.Serialize(raw)
	if err != nil {
		ec.fail(n, ec.fieldError(n, err.Error()))
		return
	}
	if v == nil {
		ec.completeNull(n)
		return
	}
	n.state, n.value = stateLeaf, v
}

func (ec *executionContext) completeEnum(n *node, t *schema.Type, raw any) {
	if ev := t.EnumValueByValue(raw); ev != nil {
		n.state, n.value = stateLeaf, ev.Name
		return
	}
	ec.fail(n, ec.fieldError(n, fmt.Sprintf("Enum %q cannot represent value: %s", t.Name, schema.Inspect(raw))))
}

func (ec *executionContext) completeObject(ctx context.Context, n *node, ot *schema.Type, raw any, w *wave) {
	if ot.IsTypeOf != nil && !ot.IsTypeOf(ctx, raw, n.info) {
		ec.fail(n, ec.fieldError(n, fmt.Sprintf("Expected value of type %q but got: %s.", ot.Name, schema.Inspect(raw))))
		return
	}
	groups, err := ec.collectSubfields(ot, n.group)
	if err != nil {
		ec.fail(n, locate(err, n.path(), n.locations()))
		return
	}
	n.state, n.objectType = stateObject, ot
	n.children = make([]*node, len(groups))
	for i, g := range groups {
		n.children[i] = newFieldNode(n, ot, g, raw)
	}
	w.schedule(n.children...)
}

// resolveAbstractType finds the runtime object type of an interface or union
// value: the abstract type's ResolveType, then the IsTypeOf predicates of its
// possible types, then a "__typename" key in a map value.
func (ec *executionContext) resolveAbstractType(ctx context.Context, n *node, abstract *schema.Type, raw any) (*schema.Type, *ExecutionError) {
	field := fmt.Sprintf("%s.%s", n.parentType.Name, n.fieldName())
	var name string
	switch {
	case abstract.ResolveType != nil:
		resolved, err := abstract.ResolveType(ctx, raw, n.info)
		if err != nil {
			return nil, locate(err, n.path(), n.locations())
		}
		name = resolved
	default:
		for _, pt := range ec.schema.PossibleTypes(abstract) {
			if pt.IsTypeOf != nil && pt.IsTypeOf(ctx, raw, n.info) {
				return pt, nil
			}
		}
		if m, ok := raw.(map[string]any); ok {
			name, _ = m[typenameField].(string)
		}
	}

	if name == "" {
		return nil, ec.fieldError(n, fmt.Sprintf(
			"Abstract type %q must resolve to an Object type at runtime for field %q. Could not determine the type of value %T.",
			abstract.Name, field, raw))
	}
	ot := ec.schema.Type(name)
	if ot == nil || ot.Kind != schema.TypeKindObject {
		return nil, ec.fieldError(n, fmt.Sprintf(
			"Abstract type %q must resolve to an Object type at runtime for field %q. Received %q for value %T.",
			abstract.Name, field, name, raw))
	}
	if !ec.schema.IsPossibleType(abstract, ot) {
		return nil, ec.fieldError(n, fmt.Sprintf(
			"Runtime Object type %q is not a possible type for %q. Received value %T for field %q.",
			ot.Name, abstract.Name, raw, field))
	}
	return ot, nil
}

func (ec *executionContext) nonNullError(n *node) *ExecutionError {
	return ec.fieldError(n, fmt.Sprintf("Cannot return null for non-nullable field %s.%s.", n.parentType.Name, n.fieldName()))
}

func (ec *executionContext) fieldError(n *node, message string) *ExecutionError {
	return &ExecutionError{Message: message, Path: n.path(), Locations: n.locations()}
}

func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// toSlice returns the elements of a slice or array value. Byte slices are not
// lists.
func toSlice(v any) ([]any, bool) {
	if l, ok := v.([]any); ok {
		return l, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
