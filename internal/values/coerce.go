// Package values implements input coercion: runtime (JSON-decoded) values
// and query literals are converted into values of their declared input
// types, and field and directive arguments are resolved from literals,
// variables and defaults.
package values

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/hanpama/gqlexec/internal/schema"
)

// CoerceValue coerces a runtime value, such as a decoded JSON variable or a
// declared default, to typ.
//
// A non-list value given for a list type is promoted to a list of one item,
// recursively. Input object fields are stored under their storage key; a
// nullable field that is absent and has no default is omitted.
func CoerceValue(s *schema.Schema, value any, typ *schema.TypeRef) (any, error) {
	v, err := coerceValue(s, value, typ, nil)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func coerceValue(s *schema.Schema, value any, typ *schema.TypeRef, path []any) (any, error) {
	switch typ.Kind {
	case schema.TypeRefKindNonNull:
		if value == nil {
			return nil, &CoercionError{
				TypeName: typ.String(),
				Path:     path,
				Message:  fmt.Sprintf("Expected non-nullable type %q not to be null.", typ.String()),
			}
		}
		return coerceValue(s, value, typ.OfType, path)

	case schema.TypeRefKindList:
		if value == nil {
			return nil, nil
		}
		items, ok := asList(value)
		if !ok {
			item, err := coerceValue(s, value, typ.OfType, path)
			if err != nil {
				return nil, err
			}
			return []any{item}, nil
		}
		out := make([]any, len(items))
		for i, item := range items {
			v, err := coerceValue(s, item, typ.OfType, appendPath(path, i))
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil

	case schema.TypeRefKindNamed:
		if value == nil {
			return nil, nil
		}
		t := s.Type(typ.Named)
		if t == nil {
			return nil, &CoercionError{TypeName: typ.Named, Value: value, Path: path, Message: fmt.Sprintf("Unknown type %q.", typ.Named)}
		}
		return coerceNamed(s, t, value, path)
	}
	panic(fmt.Sprintf("values: unknown type reference kind %q", typ.Kind))
}

func coerceNamed(s *schema.Schema, t *schema.Type, value any, path []any) (any, error) {
	switch t.Kind {
	case schema.TypeKindScalar:
		if t.ParseValue == nil {
			return value, nil
		}
		v, err := t.ParseValue(value)
		if err != nil {
			return nil, &CoercionError{
				TypeName: t.Name,
				Value:    value,
				Path:     path,
				Message:  fmt.Sprintf("Expected type %q, found %s; %s", t.Name, schema.Inspect(value), err.Error()),
				Cause:    err,
			}
		}
		return v, nil

	case schema.TypeKindEnum:
		if name, ok := value.(string); ok {
			if ev := t.EnumValueByName(name); ev != nil {
				return ev.Internal(), nil
			}
		}
		if ev := t.EnumValueByValue(value); ev != nil {
			return ev.Internal(), nil
		}
		return nil, enumError(t, value, schema.Inspect(value), path)

	case schema.TypeKindInputObject:
		fields, ok := value.(map[string]any)
		if !ok {
			return nil, &CoercionError{
				TypeName: t.Name,
				Value:    value,
				Path:     path,
				Message:  fmt.Sprintf("Expected type %q to be an object, found %s.", t.Name, schema.Inspect(value)),
			}
		}
		for _, name := range sortedKeys(fields) {
			if t.InputField(name) == nil {
				return nil, &CoercionError{
					TypeName: t.Name,
					Value:    value,
					Path:     path,
					Message:  fmt.Sprintf("Field %q is not defined by type %q.", name, t.Name),
				}
			}
		}
		out := make(map[string]any, len(t.InputFields))
		for _, f := range t.InputFields {
			fieldPath := appendPath(path, f.Name)
			raw, present := fields[f.Name]
			if !present {
				if f.HasDefault {
					v, err := coerceValue(s, f.DefaultValue, f.Type, fieldPath)
					if err != nil {
						return nil, err
					}
					out[f.StorageKey()] = v
				} else if f.Type.IsNonNull() {
					return nil, missingFieldError(t, f, path)
				}
				continue
			}
			v, err := coerceValue(s, raw, f.Type, fieldPath)
			if err != nil {
				return nil, err
			}
			out[f.StorageKey()] = v
		}
		return out, nil
	}
	return nil, &CoercionError{
		TypeName: t.Name,
		Value:    value,
		Path:     path,
		Message:  fmt.Sprintf("Type %q is not an input type.", t.Name),
	}
}

func enumError(t *schema.Type, value any, rendered string, path []any) *CoercionError {
	return &CoercionError{
		TypeName: t.Name,
		Value:    value,
		Path:     path,
		Message:  fmt.Sprintf("Value %s does not exist in %q enum.", rendered, t.Name),
	}
}

func missingFieldError(t *schema.Type, f *schema.InputValue, path []any) *CoercionError {
	return &CoercionError{
		TypeName: f.Type.String(),
		Path:     path,
		Message:  fmt.Sprintf("Field %q of required type %q was not provided.", t.Name+"."+f.Name, f.Type.String()),
	}
}

// asList reports whether value is a list input. Strings and byte slices are
// scalars.
func asList(value any) ([]any, bool) {
	if l, ok := value.([]any); ok {
		return l, true
	}
	rv := reflect.ValueOf(value)
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

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
