package introspection

import (
	"errors"
	"fmt"

	schema "github.com/hanpama/gqlexec/internal/schema"
)

// Install adds the introspection types and the __schema and __type fields of
// the query root to s. It must be called before s is initialized.
func Install(s *schema.Schema) error {
	query := s.GetQueryType()
	if query == nil {
		return errors.New("introspection: schema has no query type")
	}
	if query.Field("__schema") != nil {
		return fmt.Errorf("introspection: %s already has a __schema field", query.Name)
	}
	for _, t := range metaTypes() {
		s.AddType(t)
	}
	query.AddField(&schema.Field{
		Name:        "__schema",
		Description: "Access the current type schema of this server.",
		Type:        schema.NonNullType(schema.NamedType("__Schema")),
		Resolve:     resolveSchema,
	})
	query.AddField(&schema.Field{
		Name:        "__type",
		Description: "Request the type information of a single type.",
		Arguments: []*schema.InputValue{{
			Name: "name",
			Type: schema.NonNullType(schema.NamedType("String")),
		}},
		Type:    schema.NamedType("__Type"),
		Resolve: resolveTypeByName,
	})
	return nil
}

func metaTypes() []*schema.Type {
	return []*schema.Type{
		schemaType(),
		typeType(),
		fieldType(),
		inputValueType(),
		enumValueType(),
		directiveType(),
		typeKindEnum(),
		directiveLocationEnum(),
	}
}

func includeDeprecatedArg() []*schema.InputValue {
	return []*schema.InputValue{{
		Name:         "includeDeprecated",
		Type:         schema.NamedType("Boolean"),
		DefaultValue: false,
		HasDefault:   true,
	}}
}

func listOf(name string) *schema.TypeRef {
	return schema.ListType(schema.NonNullType(schema.NamedType(name)))
}

func schemaType() *schema.Type {
	return &schema.Type{
		Name:        "__Schema",
		Kind:        schema.TypeKindObject,
		Description: "A GraphQL Schema defines the capabilities of a GraphQL server. It exposes all available types and directives on the server, as well as the entry points for query, mutation, and subscription operations.",
		Fields: []*schema.Field{
			{Name: "description", Type: schema.NamedType("String"), Resolve: schemaField(func(s *schema.Schema) any { return nullable(s.Description) })},
			{
				Name:        "types",
				Description: "A list of all types supported by this server.",
				Type:        schema.NonNullType(listOf("__Type")),
				Resolve:     schemaField(schemaTypes),
			},
			{
				Name:        "queryType",
				Description: "The type that query operations will be rooted at.",
				Type:        schema.NonNullType(schema.NamedType("__Type")),
				Resolve:     schemaField(func(s *schema.Schema) any { return s.GetQueryType() }),
			},
			{
				Name:        "mutationType",
				Description: "If this server supports mutation, the type that mutation operations will be rooted at.",
				Type:        schema.NamedType("__Type"),
				Resolve:     schemaField(func(s *schema.Schema) any { return s.GetMutationType() }),
			},
			{
				Name:        "subscriptionType",
				Description: "If this server support subscription, the type that subscription operations will be rooted at.",
				Type:        schema.NamedType("__Type"),
				Resolve:     schemaField(func(s *schema.Schema) any { return s.GetSubscriptionType() }),
			},
			{
				Name:        "directives",
				Description: "A list of all directives supported by this server.",
				Type:        schema.NonNullType(listOf("__Directive")),
				Resolve:     schemaField(schemaDirectives),
			},
		},
	}
}

func typeType() *schema.Type {
	return &schema.Type{
		Name:        "__Type",
		Kind:        schema.TypeKindObject,
		Description: "The fundamental unit of any GraphQL Schema is the type. There are many kinds of types in GraphQL as represented by the `__TypeKind` enum.",
		Fields: []*schema.Field{
			{Name: "kind", Type: schema.NonNullType(schema.NamedType("__TypeKind")), Resolve: resolveTypeKind},
			{Name: "name", Type: schema.NamedType("String"), Resolve: resolveTypeName},
			{Name: "description", Type: schema.NamedType("String"), Resolve: namedTypeField(typeDescription)},
			{Name: "specifiedByURL", Type: schema.NamedType("String"), Resolve: namedTypeField(func(*schema.Schema, *schema.Type, map[string]any) any { return nil })},
			{Name: "fields", Arguments: includeDeprecatedArg(), Type: listOf("__Field"), Resolve: namedTypeField(typeFields)},
			{Name: "interfaces", Type: listOf("__Type"), Resolve: namedTypeField(typeInterfaces)},
			{Name: "possibleTypes", Type: listOf("__Type"), Resolve: namedTypeField(typePossibleTypes)},
			{Name: "enumValues", Arguments: includeDeprecatedArg(), Type: listOf("__EnumValue"), Resolve: namedTypeField(typeEnumValues)},
			{Name: "inputFields", Arguments: includeDeprecatedArg(), Type: listOf("__InputValue"), Resolve: namedTypeField(typeInputFields)},
			{Name: "ofType", Type: schema.NamedType("__Type"), Resolve: resolveOfType},
			{Name: "isOneOf", Type: schema.NamedType("Boolean"), Resolve: namedTypeField(typeIsOneOf)},
		},
	}
}

func fieldType() *schema.Type {
	return &schema.Type{
		Name:        "__Field",
		Kind:        schema.TypeKindObject,
		Description: "Object and Interface types are described by a list of Fields, each of which has a name, potentially a list of arguments, and a return type.",
		Fields: []*schema.Field{
			{Name: "name", Type: schema.NonNullType(schema.NamedType("String")), Resolve: fieldField(func(f *schema.Field, _ map[string]any) any { return f.Name })},
			{Name: "description", Type: schema.NamedType("String"), Resolve: fieldField(func(f *schema.Field, _ map[string]any) any { return nullable(f.Description) })},
			{Name: "args", Arguments: includeDeprecatedArg(), Type: schema.NonNullType(listOf("__InputValue")), Resolve: fieldField(fieldArgs)},
			{Name: "type", Type: schema.NonNullType(schema.NamedType("__Type")), Resolve: fieldField(func(f *schema.Field, _ map[string]any) any { return f.Type })},
			{Name: "isDeprecated", Type: schema.NonNullType(schema.NamedType("Boolean")), Resolve: fieldField(func(f *schema.Field, _ map[string]any) any { return f.IsDeprecated })},
			{Name: "deprecationReason", Type: schema.NamedType("String"), Resolve: fieldField(func(f *schema.Field, _ map[string]any) any {
				return deprecationReason(f.IsDeprecated, f.DeprecationReason)
			})},
		},
	}
}

func inputValueType() *schema.Type {
	return &schema.Type{
		Name:        "__InputValue",
		Kind:        schema.TypeKindObject,
		Description: "Arguments provided to Fields or Directives and the input fields of an InputObject are represented as Input Values which describe their type and optionally a default value.",
		Fields: []*schema.Field{
			{Name: "name", Type: schema.NonNullType(schema.NamedType("String")), Resolve: inputValueField(func(_ *schema.Schema, v *schema.InputValue) any { return v.Name })},
			{Name: "description", Type: schema.NamedType("String"), Resolve: inputValueField(func(_ *schema.Schema, v *schema.InputValue) any { return nullable(v.Description) })},
			{Name: "type", Type: schema.NonNullType(schema.NamedType("__Type")), Resolve: inputValueField(func(_ *schema.Schema, v *schema.InputValue) any { return v.Type })},
			{
				Name:        "defaultValue",
				Description: "A GraphQL-formatted string representing the default value for this input value.",
				Type:        schema.NamedType("String"),
				Resolve:     inputValueField(inputDefaultValue),
			},
			{Name: "isDeprecated", Type: schema.NonNullType(schema.NamedType("Boolean")), Resolve: inputValueField(func(_ *schema.Schema, v *schema.InputValue) any { return v.IsDeprecated })},
			{Name: "deprecationReason", Type: schema.NamedType("String"), Resolve: inputValueField(func(_ *schema.Schema, v *schema.InputValue) any {
				return deprecationReason(v.IsDeprecated, v.DeprecationReason)
			})},
		},
	}
}

func enumValueType() *schema.Type {
	return &schema.Type{
		Name:        "__EnumValue",
		Kind:        schema.TypeKindObject,
		Description: "One possible value for a given Enum. Enum values are unique values, not a placeholder for a string or numeric value.",
		Fields: []*schema.Field{
			{Name: "name", Type: schema.NonNullType(schema.NamedType("String")), Resolve: enumValueField(func(v *schema.EnumValue) any { return v.Name })},
			{Name: "description", Type: schema.NamedType("String"), Resolve: enumValueField(func(v *schema.EnumValue) any { return nullable(v.Description) })},
			{Name: "isDeprecated", Type: schema.NonNullType(schema.NamedType("Boolean")), Resolve: enumValueField(func(v *schema.EnumValue) any { return v.IsDeprecated })},
			{Name: "deprecationReason", Type: schema.NamedType("String"), Resolve: enumValueField(func(v *schema.EnumValue) any {
				return deprecationReason(v.IsDeprecated, v.DeprecationReason)
			})},
		},
	}
}

func directiveType() *schema.Type {
	return &schema.Type{
		Name:        "__Directive",
		Kind:        schema.TypeKindObject,
		Description: "A Directive provides a way to describe alternate runtime execution and type validation behavior in a GraphQL document.",
		Fields: []*schema.Field{
			{Name: "name", Type: schema.NonNullType(schema.NamedType("String")), Resolve: directiveField(func(d *schema.Directive, _ map[string]any) any { return d.Name })},
			{Name: "description", Type: schema.NamedType("String"), Resolve: directiveField(func(d *schema.Directive, _ map[string]any) any { return nullable(d.Description) })},
			{Name: "isRepeatable", Type: schema.NonNullType(schema.NamedType("Boolean")), Resolve: directiveField(func(d *schema.Directive, _ map[string]any) any { return d.IsRepeatable })},
			{Name: "locations", Type: schema.NonNullType(listOf("__DirectiveLocation")), Resolve: directiveField(func(d *schema.Directive, _ map[string]any) any { return d.Locations })},
			{Name: "args", Arguments: includeDeprecatedArg(), Type: schema.NonNullType(listOf("__InputValue")), Resolve: directiveField(directiveArgs)},
		},
	}
}

func typeKindEnum() *schema.Type {
	return schema.NewEnum("__TypeKind",
		"SCALAR", "OBJECT", "INTERFACE", "UNION", "ENUM", "INPUT_OBJECT", "LIST", "NON_NULL")
}

func directiveLocationEnum() *schema.Type {
	return schema.NewEnum("__DirectiveLocation",
		"QUERY", "MUTATION", "SUBSCRIPTION", "FIELD", "FRAGMENT_DEFINITION", "FRAGMENT_SPREAD",
		"INLINE_FRAGMENT", "VARIABLE_DEFINITION", "SCHEMA", "SCALAR", "OBJECT", "FIELD_DEFINITION",
		"ARGUMENT_DEFINITION", "INTERFACE", "UNION", "ENUM", "ENUM_VALUE", "INPUT_OBJECT",
		"INPUT_FIELD_DEFINITION")
}
