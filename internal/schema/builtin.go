package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/vektah/gqlparser/v2/ast"
)

var stringType = &Type{
	Name:        "String",
	Kind:        TypeKindScalar,
	Description: "The `String` scalar type represents textual data, represented as UTF-8 character sequences.",
	Serialize:   serializeString,
	ParseValue: func(v any) (any, error) {
		if s, ok := v.(string); ok {
			return s, nil
		}
		return nil, fmt.Errorf("String cannot represent a non string value: %s", Inspect(v))
	},
	ParseLiteral: func(v *ast.Value) (any, error) {
		if v.Kind == ast.StringValue || v.Kind == ast.BlockValue {
			return v.Raw, nil
		}
		return nil, fmt.Errorf("String cannot represent a non string value: %s", v.String())
	},
}

var intType = &Type{
	Name:        "Int",
	Kind:        TypeKindScalar,
	Description: "The `Int` scalar type represents non-fractional signed whole numeric values.",
	Serialize:   serializeInt,
	ParseValue: func(v any) (any, error) {
		if _, ok := v.(bool); ok {
			return nil, fmt.Errorf("Int cannot represent non-integer value: %s", Inspect(v))
		}
		if _, ok := v.(string); ok {
			return nil, fmt.Errorf("Int cannot represent non-integer value: %s", Inspect(v))
		}
		return toInt32(v)
	},
	ParseLiteral: func(v *ast.Value) (any, error) {
		if v.Kind != ast.IntValue {
			return nil, fmt.Errorf("Int cannot represent non-integer value: %s", v.String())
		}
		n, err := strconv.ParseInt(v.Raw, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("Int cannot represent non 32-bit signed integer value: %s", v.Raw)
		}
		return int(n), nil
	},
}

var floatType = &Type{
	Name:        "Float",
	Kind:        TypeKindScalar,
	Description: "The `Float` scalar type represents signed double-precision fractional values.",
	Serialize:   serializeFloat,
	ParseValue: func(v any) (any, error) {
		switch v.(type) {
		case bool, string:
			return nil, fmt.Errorf("Float cannot represent non numeric value: %s", Inspect(v))
		}
		return toFloat(v)
	},
	ParseLiteral: func(v *ast.Value) (any, error) {
		if v.Kind != ast.IntValue && v.Kind != ast.FloatValue {
			return nil, fmt.Errorf("Float cannot represent non numeric value: %s", v.String())
		}
		return strconv.ParseFloat(v.Raw, 64)
	},
}

var booleanType = &Type{
	Name:        "Boolean",
	Kind:        TypeKindScalar,
	Description: "The `Boolean` scalar type represents `true` or `false`.",
	Serialize:   serializeBoolean,
	ParseValue: func(v any) (any, error) {
		if b, ok := v.(bool); ok {
			return b, nil
		}
		return nil, fmt.Errorf("Boolean cannot represent a non boolean value: %s", Inspect(v))
	},
	ParseLiteral: func(v *ast.Value) (any, error) {
		if v.Kind != ast.BooleanValue {
			return nil, fmt.Errorf("Boolean cannot represent a non boolean value: %s", v.String())
		}
		return v.Raw == "true", nil
	},
}

var idType = &Type{
	Name:        "ID",
	Kind:        TypeKindScalar,
	Description: "The `ID` scalar type represents a unique identifier, often used to refetch an object or as a key for caching.",
	Serialize:   serializeID,
	ParseValue: func(v any) (any, error) {
		if s, ok := v.(string); ok {
			return s, nil
		}
		if n, err := toInt64(v); err == nil {
			return strconv.FormatInt(n, 10), nil
		}
		return nil, fmt.Errorf("ID cannot represent value: %s", Inspect(v))
	},
	ParseLiteral: func(v *ast.Value) (any, error) {
		if v.Kind == ast.StringValue || v.Kind == ast.IntValue {
			return v.Raw, nil
		}
		return nil, fmt.Errorf("ID cannot represent a non-string and non-integer value: %s", v.String())
	},
}

var includeDirective = &Directive{
	Name:        "include",
	Description: "Directs the executor to include this field or fragment only when the `if` argument is true.",
	Arguments: []*InputValue{
		{
			Name:        "if",
			Description: "Included when true.",
			Type:        &TypeRef{Kind: TypeRefKindNonNull, OfType: &TypeRef{Kind: TypeRefKindNamed, Named: "Boolean"}},
		},
	},
	Locations:    []string{"FIELD", "FRAGMENT_SPREAD", "INLINE_FRAGMENT"},
	IsRepeatable: false,
}

var skipDirective = &Directive{
	Name:        "skip",
	Description: "Directs the executor to skip this field or fragment when the `if` argument is true.",
	Arguments: []*InputValue{
		{
			Name:        "if",
			Description: "Skipped when true.",
			Type:        &TypeRef{Kind: TypeRefKindNonNull, OfType: &TypeRef{Kind: TypeRefKindNamed, Named: "Boolean"}},
		},
	},
	Locations:    []string{"FIELD", "FRAGMENT_SPREAD", "INLINE_FRAGMENT"},
	IsRepeatable: false,
}

var deprecatedDirective = &Directive{
	Name:        "deprecated",
	Description: "Marks an element of a GraphQL schema as no longer supported.",
	Arguments: []*InputValue{
		{
			Name:         "reason",
			Description:  "Explains why this element was deprecated.",
			Type:         NamedType("String"),
			DefaultValue: "No longer supported",
			HasDefault:   true,
		},
	},
	Locations: []string{"FIELD_DEFINITION", "ARGUMENT_DEFINITION", "INPUT_FIELD_DEFINITION", "ENUM_VALUE"},
}

var builtinTypes = []*Type{stringType, intType, floatType, booleanType, idType}

var builtinDirectives = []*Directive{includeDirective, skipDirective, deprecatedDirective}

// IsBuiltin reports whether t is one of the specified scalars shared by every schema.
func IsBuiltin(t *Type) bool {
	for _, b := range builtinTypes {
		if b == t {
			return true
		}
	}
	return false
}

func serializeString(v any) (any, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case fmt.Stringer:
		return x.String(), nil
	}
	if n, err := toInt64(v); err == nil {
		return strconv.FormatInt(n, 10), nil
	}
	if f, err := toFloat(v); err == nil {
		return strconv.FormatFloat(f.(float64), 'g', -1, 64), nil
	}
	return nil, fmt.Errorf("String cannot represent value: %s", Inspect(v))
}

func serializeInt(v any) (any, error) {
	switch x := v.(type) {
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		n, err := strconv.ParseInt(x, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("Int cannot represent non-integer value: %s", Inspect(v))
		}
		return int(n), nil
	}
	return toInt32(v)
}

func serializeFloat(v any) (any, error) {
	switch x := v.(type) {
	case bool:
		if x {
			return 1.0, nil
		}
		return 0.0, nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return nil, fmt.Errorf("Float cannot represent non numeric value: %s", Inspect(v))
		}
		return f, nil
	}
	return toFloat(v)
}

func serializeBoolean(v any) (any, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	if f, err := toFloat(v); err == nil {
		return f.(float64) != 0, nil
	}
	return nil, fmt.Errorf("Boolean cannot represent a non boolean value: %s", Inspect(v))
}

func serializeID(v any) (any, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	if n, err := toInt64(v); err == nil {
		return strconv.FormatInt(n, 10), nil
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String(), nil
	}
	return nil, fmt.Errorf("ID cannot represent value: %s", Inspect(v))
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			break
		}
		return int64(x), nil
	case float32:
		if float32(int64(x)) == x {
			return int64(x), nil
		}
	case float64:
		if !math.IsInf(x, 0) && float64(int64(x)) == x {
			return int64(x), nil
		}
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, nil
		}
		if f, err := x.Float64(); err == nil && float64(int64(f)) == f {
			return int64(f), nil
		}
	}
	return 0, fmt.Errorf("Int cannot represent non-integer value: %s", Inspect(v))
}

func toInt32(v any) (any, error) {
	n, err := toInt64(v)
	if err != nil {
		return nil, err
	}
	if n > math.MaxInt32 || n < math.MinInt32 {
		return nil, fmt.Errorf("Int cannot represent non 32-bit signed integer value: %s", Inspect(v))
	}
	return int(n), nil
}

func toFloat(v any) (any, error) {
	switch x := v.(type) {
	case float64:
		if !math.IsInf(x, 0) && !math.IsNaN(x) {
			return x, nil
		}
	case float32:
		return float64(x), nil
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f, nil
		}
	default:
		if n, err := toInt64(v); err == nil {
			return float64(n), nil
		}
	}
	return nil, fmt.Errorf("Float cannot represent non numeric value: %s", Inspect(v))
}

// Inspect formats a value for error messages.
func Inspect(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(x)
	case json.Number:
		return x.String()
	}
	return fmt.Sprintf("%v", v)
}

