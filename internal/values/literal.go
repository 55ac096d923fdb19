package values

import (
	"fmt"
	"strconv"

	"github.com/hanpama/gqlexec/internal/schema"
	"github.com/vektah/gqlparser/v2/ast"
)

// ValueFromAST coerces a query literal to typ, substituting variables.
//
// A variable that was not provided (and has no default) yields nil; callers
// that must distinguish an absent variable from an explicit null inspect the
// literal before calling.
func ValueFromAST(s *schema.Schema, v *ast.Value, typ *schema.TypeRef, vars VariableValues) (any, error) {
	out, _, err := valueFromAST(s, v, typ, vars, nil)
	return out, err
}

// valueFromAST returns present=false when v is a reference to a variable that
// was not provided.
func valueFromAST(s *schema.Schema, v *ast.Value, typ *schema.TypeRef, vars VariableValues, path []any) (any, bool, error) {
	if v == nil {
		return nil, false, nil
	}
	if v.Kind == ast.Variable {
		val, _, ok := vars.Lookup(v.Raw)
		if !ok {
			return nil, false, nil
		}
		if val == nil && typ.IsNonNull() {
			return nil, true, &CoercionError{
				TypeName: typ.String(),
				Path:     path,
				Message:  fmt.Sprintf("Variable \"$%s\" of non-null type %q must not be null.", v.Raw, typ.String()),
			}
		}
		return val, true, nil
	}

	switch typ.Kind {
	case schema.TypeRefKindNonNull:
		if v.Kind == ast.NullValue {
			return nil, true, &CoercionError{
				TypeName: typ.String(),
				Value:    nil,
				Path:     path,
				Message:  fmt.Sprintf("Expected value of non-null type %q, found null.", typ.String()),
			}
		}
		return valueFromAST(s, v, typ.OfType, vars, path)

	case schema.TypeRefKindList:
		if v.Kind == ast.NullValue {
			return nil, true, nil
		}
		if v.Kind != ast.ListValue {
			item, _, err := valueFromAST(s, v, typ.OfType, vars, path)
			if err != nil {
				return nil, true, err
			}
			return []any{item}, true, nil
		}
		out := make([]any, len(v.Children))
		for i, child := range v.Children {
			itemPath := appendPath(path, i)
			item, present, err := valueFromAST(s, child.Value, typ.OfType, vars, itemPath)
			if err != nil {
				return nil, true, err
			}
			if !present && typ.OfType.IsNonNull() {
				return nil, true, &CoercionError{
					TypeName: typ.OfType.String(),
					Path:     itemPath,
					Message:  fmt.Sprintf("Expected value of non-null type %q, found an unset variable.", typ.OfType.String()),
				}
			}
			out[i] = item
		}
		return out, true, nil

	case schema.TypeRefKindNamed:
		if v.Kind == ast.NullValue {
			return nil, true, nil
		}
		t := s.Type(typ.Named)
		if t == nil {
			return nil, true, &CoercionError{TypeName: typ.Named, Value: v.String(), Path: path, Message: fmt.Sprintf("Unknown type %q.", typ.Named)}
		}
		out, err := namedFromAST(s, t, v, vars, path)
		return out, true, err
	}
	panic(fmt.Sprintf("values: unknown type reference kind %q", typ.Kind))
}

func namedFromAST(s *schema.Schema, t *schema.Type, v *ast.Value, vars VariableValues, path []any) (any, error) {
	switch t.Kind {
	case schema.TypeKindScalar:
		if t.ParseLiteral != nil {
			out, err := t.ParseLiteral(v)
			if err != nil {
				return nil, &CoercionError{
					TypeName: t.Name,
					Value:    v.String(),
					Path:     path,
					Message:  fmt.Sprintf("Expected type %q, found %s; %s", t.Name, v.String(), err.Error()),
					Cause:    err,
				}
			}
			return out, nil
		}
		raw := literalToGo(v, vars)
		if t.ParseValue == nil {
			return raw, nil
		}
		return coerceNamed(s, t, raw, path)

	case schema.TypeKindEnum:
		if v.Kind == ast.EnumValue {
			if ev := t.EnumValueByName(v.Raw); ev != nil {
				return ev.Internal(), nil
			}
		}
		return nil, enumError(t, v.String(), v.String(), path)

	case schema.TypeKindInputObject:
		if v.Kind != ast.ObjectValue {
			return nil, &CoercionError{
				TypeName: t.Name,
				Value:    v.String(),
				Path:     path,
				Message:  fmt.Sprintf("Expected type %q to be an object, found %s.", t.Name, v.String()),
			}
		}
		for _, child := range v.Children {
			if t.InputField(child.Name) == nil {
				return nil, &CoercionError{
					TypeName: t.Name,
					Value:    v.String(),
					Path:     path,
					Message:  fmt.Sprintf("Field %q is not defined by type %q.", child.Name, t.Name),
				}
			}
		}
		out := make(map[string]any, len(t.InputFields))
		for _, f := range t.InputFields {
			fieldPath := appendPath(path, f.Name)
			var (
				val     any
				present bool
				err     error
			)
			if child := childByName(v.Children, f.Name); child != nil {
				val, present, err = valueFromAST(s, child, f.Type, vars, fieldPath)
				if err != nil {
					return nil, err
				}
			}
			if !present {
				if f.HasDefault {
					val, err = coerceValue(s, f.DefaultValue, f.Type, fieldPath)
					if err != nil {
						return nil, err
					}
				} else if f.Type.IsNonNull() {
					return nil, missingFieldError(t, f, path)
				} else {
					continue
				}
			}
			out[f.StorageKey()] = val
		}
		return out, nil
	}
	return nil, &CoercionError{
		TypeName: t.Name,
		Value:    v.String(),
		Path:     path,
		Message:  fmt.Sprintf("Type %q is not an input type.", t.Name),
	}
}

func childByName(children ast.ChildValueList, name string) *ast.Value {
	for _, c := range children {
		if c.Name == name {
			return c.Value
		}
	}
	return nil
}

// literalToGo converts a literal into its untyped runtime form. Custom
// scalars without a literal parser receive this form.
func literalToGo(value *ast.Value, vars VariableValues) any {
	if value == nil {
		return nil
	}
	switch value.Kind {
	case ast.Variable:
		v, _, _ := vars.Lookup(value.Raw)
		return v
	case ast.IntValue:
		if iv, err := strconv.ParseInt(value.Raw, 10, 64); err == nil {
			return int(iv)
		}
		fv, _ := strconv.ParseFloat(value.Raw, 64)
		return fv
	case ast.FloatValue:
		fv, _ := strconv.ParseFloat(value.Raw, 64)
		return fv
	case ast.StringValue, ast.BlockValue, ast.EnumValue:
		return value.Raw
	case ast.BooleanValue:
		return value.Raw == "true"
	case ast.ListValue:
		out := make([]any, len(value.Children))
		for i, c := range value.Children {
			out[i] = literalToGo(c.Value, vars)
		}
		return out
	case ast.ObjectValue:
		m := make(map[string]any, len(value.Children))
		for _, f := range value.Children {
			m[f.Name] = literalToGo(f.Value, vars)
		}
		return m
	default:
		return nil
	}
}
