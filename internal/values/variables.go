package values

import (
	"fmt"

	"github.com/hanpama/gqlexec/internal/schema"
	"github.com/vektah/gqlparser/v2/ast"
)

// VariableValues holds coerced operation variables. A variable that was
// neither provided nor defaulted is absent.
type VariableValues struct {
	Values  map[string]any
	Sources map[string]schema.ArgumentSource
}

// Lookup returns the coerced value of the named variable, and whether it came
// from the request or from the variable's default.
func (v VariableValues) Lookup(name string) (any, schema.ArgumentSource, bool) {
	val, ok := v.Values[name]
	if !ok {
		return nil, 0, false
	}
	src := v.Sources[name]
	if src == 0 {
		src = schema.ArgumentSourceVariable
	}
	return val, src, true
}

// NewVariableValues wraps already-coerced values.
func NewVariableValues(values map[string]any) VariableValues {
	if values == nil {
		values = map[string]any{}
	}
	return VariableValues{Values: values, Sources: map[string]schema.ArgumentSource{}}
}

// CoerceVariableValues coerces request inputs against the variable
// definitions of op. Every invalid variable is reported; when errors are
// returned the operation must not execute.
func CoerceVariableValues(s *schema.Schema, op *ast.OperationDefinition, inputs map[string]any) (VariableValues, []error) {
	out := NewVariableValues(nil)
	var errs []error
	for _, def := range op.VariableDefinitions {
		name := def.Variable
		typ := schema.TypeRefFromAST(def.Type)
		if t := s.Type(typ.GetNamedType()); t == nil || !t.IsInputType() {
			errs = append(errs, &CoercionError{
				TypeName: typ.String(),
				Message:  fmt.Sprintf("Variable \"$%s\" expected value of type %q which cannot be used as an input type.", name, typ.String()),
			})
			continue
		}

		raw, provided := inputs[name]
		if !provided {
			if def.DefaultValue != nil {
				v, err := ValueFromAST(s, def.DefaultValue, typ, NewVariableValues(nil))
				if err != nil {
					errs = append(errs, variableError(name, err))
					continue
				}
				out.Values[name] = v
				out.Sources[name] = schema.ArgumentSourceVariableDefault
			} else if typ.IsNonNull() {
				errs = append(errs, &CoercionError{
					TypeName: typ.String(),
					Message:  fmt.Sprintf("Variable \"$%s\" of required type %q was not provided.", name, typ.String()),
				})
			}
			continue
		}
		if raw == nil && typ.IsNonNull() {
			errs = append(errs, &CoercionError{
				TypeName: typ.String(),
				Message:  fmt.Sprintf("Variable \"$%s\" of non-null type %q must not be null.", name, typ.String()),
			})
			continue
		}
		v, err := CoerceValue(s, raw, typ)
		if err != nil {
			errs = append(errs, variableError(name, err).withPrefix(fmt.Sprintf("Variable \"$%s\" got invalid value %s; ", name, schema.Inspect(raw))))
			continue
		}
		out.Values[name] = v
		out.Sources[name] = schema.ArgumentSourceVariable
	}
	return out, errs
}

func variableError(name string, err error) *CoercionError {
	if ce, ok := err.(*CoercionError); ok {
		return ce
	}
	return &CoercionError{Message: fmt.Sprintf("Variable \"$%s\": %s", name, err.Error()), Cause: err}
}
