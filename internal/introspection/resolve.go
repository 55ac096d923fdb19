package introspection

import (
	"context"
	"sort"

	schema "github.com/hanpama/gqlexec/internal/schema"
)

func resolveSchema(ctx context.Context, p schema.ResolveParams) (any, error) {
	return p.Info.Schema, nil
}

func resolveTypeByName(ctx context.Context, p schema.ResolveParams) (any, error) {
	name, _ := p.Args["name"].(string)
	if t := p.Info.Schema.Type(name); t != nil {
		return t, nil
	}
	return nil, nil
}

// --- source adapters ---

func schemaField(fn func(s *schema.Schema) any) schema.FieldResolveFn {
	return func(ctx context.Context, p schema.ResolveParams) (any, error) {
		s, _ := p.Source.(*schema.Schema)
		if s == nil {
			return nil, nil
		}
		return fn(s), nil
	}
}

// namedTypeField resolves a __Type field that only named types carry. List and
// non-null wrappers yield null.
func namedTypeField(fn func(s *schema.Schema, t *schema.Type, args map[string]any) any) schema.FieldResolveFn {
	return func(ctx context.Context, p schema.ResolveParams) (any, error) {
		t := namedType(p.Info.Schema, p.Source)
		if t == nil {
			return nil, nil
		}
		return fn(p.Info.Schema, t, p.Args), nil
	}
}

func namedType(s *schema.Schema, source any) *schema.Type {
	switch src := source.(type) {
	case *schema.Type:
		return src
	case *schema.TypeRef:
		if src.Kind == schema.TypeRefKindNamed {
			return s.Type(src.Named)
		}
	}
	return nil
}

func fieldField(fn func(f *schema.Field, args map[string]any) any) schema.FieldResolveFn {
	return func(ctx context.Context, p schema.ResolveParams) (any, error) {
		f, _ := p.Source.(*schema.Field)
		if f == nil {
			return nil, nil
		}
		return fn(f, p.Args), nil
	}
}

func inputValueField(fn func(s *schema.Schema, v *schema.InputValue) any) schema.FieldResolveFn {
	return func(ctx context.Context, p schema.ResolveParams) (any, error) {
		v, _ := p.Source.(*schema.InputValue)
		if v == nil {
			return nil, nil
		}
		return fn(p.Info.Schema, v), nil
	}
}

func enumValueField(fn func(v *schema.EnumValue) any) schema.FieldResolveFn {
	return func(ctx context.Context, p schema.ResolveParams) (any, error) {
		v, _ := p.Source.(*schema.EnumValue)
		if v == nil {
			return nil, nil
		}
		return fn(v), nil
	}
}

func directiveField(fn func(d *schema.Directive, args map[string]any) any) schema.FieldResolveFn {
	return func(ctx context.Context, p schema.ResolveParams) (any, error) {
		d, _ := p.Source.(*schema.Directive)
		if d == nil {
			return nil, nil
		}
		return fn(d, p.Args), nil
	}
}

// --- __Schema ---

func schemaTypes(s *schema.Schema) any {
	out := make([]*schema.Type, 0, len(s.Types))
	for _, t := range s.Types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func schemaDirectives(s *schema.Schema) any {
	out := make([]*schema.Directive, 0, len(s.Directives))
	for _, d := range s.Directives {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// --- __Type ---

func resolveTypeKind(ctx context.Context, p schema.ResolveParams) (any, error) {
	switch src := p.Source.(type) {
	case *schema.Type:
		return string(src.Kind), nil
	case *schema.TypeRef:
		if src.Kind != schema.TypeRefKindNamed {
			return string(src.Kind), nil
		}
		if t := p.Info.Schema.Type(src.Named); t != nil {
			return string(t.Kind), nil
		}
	}
	return nil, nil
}

func resolveTypeName(ctx context.Context, p schema.ResolveParams) (any, error) {
	if t := namedType(p.Info.Schema, p.Source); t != nil {
		return t.Name, nil
	}
	return nil, nil
}

func resolveOfType(ctx context.Context, p schema.ResolveParams) (any, error) {
	if ref, ok := p.Source.(*schema.TypeRef); ok && ref.Kind != schema.TypeRefKindNamed {
		return ref.OfType, nil
	}
	return nil, nil
}

func typeDescription(_ *schema.Schema, t *schema.Type, _ map[string]any) any {
	return nullable(t.Description)
}

func typeFields(_ *schema.Schema, t *schema.Type, args map[string]any) any {
	if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
		return nil
	}
	includeDeprecated := boolArg(args, "includeDeprecated")
	out := []*schema.Field{}
	for _, f := range t.Fields {
		if schema.IsMetaName(f.Name) || (!includeDeprecated && f.IsDeprecated) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func typeInterfaces(s *schema.Schema, t *schema.Type, _ map[string]any) any {
	if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
		return nil
	}
	return lookup(s, t.Interfaces)
}

func typePossibleTypes(s *schema.Schema, t *schema.Type, _ map[string]any) any {
	if !t.IsAbstract() {
		return nil
	}
	return s.PossibleTypes(t)
}

func typeEnumValues(_ *schema.Schema, t *schema.Type, args map[string]any) any {
	if t.Kind != schema.TypeKindEnum {
		return nil
	}
	includeDeprecated := boolArg(args, "includeDeprecated")
	out := []*schema.EnumValue{}
	for _, ev := range t.EnumValues {
		if !includeDeprecated && ev.IsDeprecated {
			continue
		}
		out = append(out, ev)
	}
	return out
}

func typeInputFields(_ *schema.Schema, t *schema.Type, args map[string]any) any {
	if t.Kind != schema.TypeKindInputObject {
		return nil
	}
	return filterInputValues(t.InputFields, args)
}

func typeIsOneOf(_ *schema.Schema, t *schema.Type, _ map[string]any) any {
	if t.Kind != schema.TypeKindInputObject {
		return nil
	}
	return false
}

// --- __Field, __InputValue, __Directive ---

func fieldArgs(f *schema.Field, args map[string]any) any {
	return filterInputValues(f.Arguments, args)
}

func directiveArgs(d *schema.Directive, args map[string]any) any {
	return filterInputValues(d.Arguments, args)
}

func inputDefaultValue(s *schema.Schema, v *schema.InputValue) any {
	if !v.HasDefault {
		return nil
	}
	return schema.ValueLiteral(s, v.Type, v.DefaultValue)
}

// --- helpers ---

func filterInputValues(values []*schema.InputValue, args map[string]any) []*schema.InputValue {
	includeDeprecated := boolArg(args, "includeDeprecated")
	out := []*schema.InputValue{}
	for _, v := range values {
		if !includeDeprecated && v.IsDeprecated {
			continue
		}
		out = append(out, v)
	}
	return out
}

func lookup(s *schema.Schema, names []string) []*schema.Type {
	out := make([]*schema.Type, 0, len(names))
	for _, name := range names {
		if t := s.Type(name); t != nil {
			out = append(out, t)
		}
	}
	return out
}

func deprecationReason(deprecated bool, reason string) any {
	if !deprecated {
		return nil
	}
	return reason
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolArg(args map[string]any, name string) bool {
	b, _ := args[name].(bool)
	return b
}
