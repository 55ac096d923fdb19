package schema

import (
	"sort"

	"github.com/hanpama/gqlexec/internal/language"
	"github.com/vektah/gqlparser/v2/ast"
)

// BuildFromSDL parses SDL and returns the corresponding, uninitialized
// Schema. Extensions are merged into their base definitions. Resolvers are
// attached afterwards with SetResolver or by editing the returned types.
func BuildFromSDL(sdl string) (*Schema, error) {
	doc, err := language.LoadSchema("schema.graphql", sdl)
	if err != nil {
		return nil, err
	}
	s := NewSchema("")
	if doc.Query != nil {
		s.QueryType = doc.Query.Name
	}
	if doc.Mutation != nil {
		s.MutationType = doc.Mutation.Name
	}
	if doc.Subscription != nil {
		s.SubscriptionType = doc.Subscription.Name
	}

	names := make([]string, 0, len(doc.Types))
	for name := range doc.Types {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		def := doc.Types[name]
		if def.BuiltIn {
			continue
		}
		t, err := buildDefinition(def)
		if err != nil {
			return nil, err
		}
		s.AddType(t)
	}

	dnames := make([]string, 0, len(doc.Directives))
	for name := range doc.Directives {
		dnames = append(dnames, name)
	}
	sort.Strings(dnames)
	for _, name := range dnames {
		def := doc.Directives[name]
		if def.Position != nil && def.Position.Src != nil && def.Position.Src.BuiltIn {
			continue
		}
		d, err := buildDirective(def)
		if err != nil {
			return nil, err
		}
		s.AddDirective(d)
	}
	return s, nil
}

func buildDefinition(def *ast.Definition) (*Type, error) {
	var kind TypeKind
	switch def.Kind {
	case ast.Object:
		kind = TypeKindObject
	case ast.Interface:
		kind = TypeKindInterface
	case ast.Union:
		kind = TypeKindUnion
	case ast.Enum:
		kind = TypeKindEnum
	case ast.InputObject:
		kind = TypeKindInputObject
	default:
		kind = TypeKindScalar
	}
	t := NewType(def.Name, kind, def.Description)
	t.Interfaces = append(t.Interfaces, def.Interfaces...)
	if kind == TypeKindUnion {
		t.PossibleTypes = append(t.PossibleTypes, def.Types...)
	}
	for _, ev := range def.EnumValues {
		v := NewEnumValue(ev.Name, ev.Description)
		if reason, ok := deprecation(ev.Directives); ok {
			v.Deprecate(reason)
		}
		t.AddEnumValue(v)
	}
	for _, fd := range def.Fields {
		if kind == TypeKindInputObject {
			in, err := buildInputValue(fd.Name, fd.Description, fd.Type, fd.DefaultValue, fd.Directives)
			if err != nil {
				return nil, err
			}
			t.AddInputField(in)
			continue
		}
		// Introspection meta fields are installed separately.
		if IsMetaName(fd.Name) {
			continue
		}
		f := NewField(fd.Name, fd.Description, TypeRefFromAST(fd.Type))
		if reason, ok := deprecation(fd.Directives); ok {
			f.Deprecate(reason)
		}
		for _, ad := range fd.Arguments {
			in, err := buildInputValue(ad.Name, ad.Description, ad.Type, ad.DefaultValue, ad.Directives)
			if err != nil {
				return nil, err
			}
			f.AddArgument(in)
		}
		t.AddField(f)
	}
	return t, nil
}

func buildInputValue(name, desc string, typ *ast.Type, def *ast.Value, dirs ast.DirectiveList) (*InputValue, error) {
	in := NewInputValue(name, desc, TypeRefFromAST(typ))
	if def != nil {
		v, err := def.Value(nil)
		if err != nil {
			return nil, err
		}
		in.SetDefault(v)
	}
	if reason, ok := deprecation(dirs); ok {
		in.Deprecate(reason)
	}
	return in, nil
}

func buildDirective(def *ast.DirectiveDefinition) (*Directive, error) {
	d := NewDirective(def.Name, def.Description).SetRepeatable(def.IsRepeatable)
	for _, loc := range def.Locations {
		d.AddLocation(string(loc))
	}
	for _, ad := range def.Arguments {
		in, err := buildInputValue(ad.Name, ad.Description, ad.Type, ad.DefaultValue, ad.Directives)
		if err != nil {
			return nil, err
		}
		d.AddArgument(in)
	}
	return d, nil
}

func deprecation(dirs ast.DirectiveList) (string, bool) {
	d := dirs.ForName("deprecated")
	if d == nil {
		return "", false
	}
	if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
		return arg.Value.Raw, true
	}
	return deprecatedDirective.Arguments[0].DefaultValue.(string), true
}
