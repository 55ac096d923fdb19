package values

import (
	"fmt"

	"github.com/hanpama/gqlexec/internal/schema"
	"github.com/vektah/gqlparser/v2/ast"
)

// Arguments is the resolved argument map of one field or directive
// invocation. An argument that was omitted and has no default is absent
// from Values, which differs from an explicit null.
type Arguments struct {
	Values  map[string]any
	Sources map[string]schema.ArgumentSource
}

// ArgumentValues resolves declared arguments. For each definition the value
// comes from, in order: the literal in the query (including null), the
// referenced variable, the declared default. Values are keyed by the
// definition's storage key.
func ArgumentValues(s *schema.Schema, defs []*schema.InputValue, args ast.ArgumentList, vars VariableValues) (Arguments, error) {
	out := Arguments{
		Values:  make(map[string]any, len(defs)),
		Sources: make(map[string]schema.ArgumentSource, len(defs)),
	}
	for _, def := range defs {
		key := def.StorageKey()
		if arg := args.ForName(def.Name); arg != nil && arg.Value != nil {
			if arg.Value.Kind == ast.Variable {
				if val, src, ok := vars.Lookup(arg.Value.Raw); ok {
					if val == nil && def.Type.IsNonNull() {
						return Arguments{}, &CoercionError{
							TypeName: def.Type.String(),
							Path:     []any{def.Name},
							Message: fmt.Sprintf("Argument %q of non-null type %q must not be null; variable \"$%s\" is null.",
								def.Name, def.Type.String(), arg.Value.Raw),
						}
					}
					out.Values[key] = val
					out.Sources[key] = src
					continue
				}
			} else {
				val, _, err := valueFromAST(s, arg.Value, def.Type, vars, nil)
				if err != nil {
					return Arguments{}, argumentError(def, err)
				}
				out.Values[key] = val
				out.Sources[key] = schema.ArgumentSourceLiteral
				continue
			}
		}
		if def.HasDefault {
			val, err := CoerceValue(s, def.DefaultValue, def.Type)
			if err != nil {
				return Arguments{}, argumentError(def, err)
			}
			out.Values[key] = val
			out.Sources[key] = schema.ArgumentSourceDefault
			continue
		}
		if def.Type.IsNonNull() {
			return Arguments{}, &CoercionError{
				TypeName: def.Type.String(),
				Path:     []any{def.Name},
				Message:  fmt.Sprintf("Argument %q of required type %q was not provided.", def.Name, def.Type.String()),
			}
		}
	}
	return out, nil
}

func argumentError(def *schema.InputValue, err error) error {
	ce, ok := err.(*CoercionError)
	if !ok {
		return fmt.Errorf("argument %q: %w", def.Name, err)
	}
	return ce.withPrefix(fmt.Sprintf("Argument %q has invalid value: ", def.Name))
}

// DirectiveValues resolves the arguments of an applied directive.
func DirectiveValues(s *schema.Schema, def *schema.Directive, node *ast.Directive, vars VariableValues) (*schema.DirectiveInfo, error) {
	args, err := ArgumentValues(s, def.Arguments, node.Arguments, vars)
	if err != nil {
		return nil, fmt.Errorf("directive @%s: %w", def.Name, err)
	}
	return &schema.DirectiveInfo{
		Name:       def.Name,
		Definition: def,
		Arguments:  args.Values,
		Sources:    args.Sources,
	}, nil
}

// DirectivesInfo resolves every applied directive that the schema declares.
// Unknown directives are ignored.
func DirectivesInfo(s *schema.Schema, directives ast.DirectiveList, vars VariableValues) (map[string]*schema.DirectiveInfo, error) {
	if len(directives) == 0 {
		return nil, nil
	}
	out := make(map[string]*schema.DirectiveInfo, len(directives))
	for _, d := range directives {
		def := s.Directive(d.Name)
		if def == nil {
			continue
		}
		info, err := DirectiveValues(s, def, d, vars)
		if err != nil {
			return nil, err
		}
		out[d.Name] = info
	}
	return out, nil
}

// ShouldInclude evaluates @skip and @include. A selection is excluded when
// @skip(if: true) or @include(if: false) is present.
func ShouldInclude(s *schema.Schema, directives ast.DirectiveList, vars VariableValues) (bool, error) {
	for _, name := range [...]string{"skip", "include"} {
		node := directives.ForName(name)
		if node == nil {
			continue
		}
		def := s.Directive(name)
		if def == nil {
			return false, fmt.Errorf("directive @%s is not defined", name)
		}
		info, err := DirectiveValues(s, def, node, vars)
		if err != nil {
			return false, err
		}
		cond, _ := info.Arguments["if"].(bool)
		if name == "skip" && cond {
			return false, nil
		}
		if name == "include" && !cond {
			return false, nil
		}
	}
	return true, nil
}
