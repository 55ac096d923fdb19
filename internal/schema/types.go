package schema

import (
	"reflect"

	"github.com/vektah/gqlparser/v2/ast"
)

// TypeKind represents the kind of GraphQL type
type TypeKind string

const (
	TypeKindScalar      TypeKind = "SCALAR"
	TypeKindObject      TypeKind = "OBJECT"
	TypeKindInterface   TypeKind = "INTERFACE"
	TypeKindUnion       TypeKind = "UNION"
	TypeKindEnum        TypeKind = "ENUM"
	TypeKindInputObject TypeKind = "INPUT_OBJECT"
)

// Type is a named GraphQL type (object, interface, union, scalar, enum, input).
//
// Only the members relevant to Kind are consulted. Wrapping types (lists and
// non-null) are expressed with TypeRef.
type Type struct {
	Name          string
	Kind          TypeKind
	Description   string
	Fields        []*Field      // For OBJECT and INTERFACE
	Interfaces    []string      // For OBJECT and INTERFACE (implemented/extended)
	PossibleTypes []string      // Declared members for UNION; computed by Initialize for INTERFACE
	EnumValues    []*EnumValue  // For ENUM
	InputFields   []*InputValue // For INPUT_OBJECT

	// Serialize, ParseValue and ParseLiteral implement SCALAR coercion. A
	// custom scalar that leaves them nil passes values through unchanged.
	Serialize    func(value any) (any, error)
	ParseValue   func(value any) (any, error)
	ParseLiteral func(value *ast.Value) (any, error)

	// ResolveType picks the concrete object type of an INTERFACE or UNION value.
	ResolveType TypeResolveFn

	// IsTypeOf reports whether a value belongs to this OBJECT type. It is probed
	// when the abstract type has no ResolveType.
	IsTypeOf IsTypeOfFn

	fieldIndex      map[string]*Field
	inputFieldIndex map[string]*InputValue
	enumIndex       map[string]*EnumValue
}

// IsLeaf reports whether values of t serialize directly (scalars and enums).
func (t *Type) IsLeaf() bool {
	return t.Kind == TypeKindScalar || t.Kind == TypeKindEnum
}

// IsAbstract reports whether t is an interface or a union.
func (t *Type) IsAbstract() bool {
	return t.Kind == TypeKindInterface || t.Kind == TypeKindUnion
}

// IsInputType reports whether t may be used as an argument or variable type.
func (t *Type) IsInputType() bool {
	switch t.Kind {
	case TypeKindScalar, TypeKindEnum, TypeKindInputObject:
		return true
	}
	return false
}

// IsOutputType reports whether t may be used as a field type.
func (t *Type) IsOutputType() bool {
	return t.Kind != TypeKindInputObject
}

// Field returns the field named name, or nil.
func (t *Type) Field(name string) *Field {
	if t.fieldIndex != nil {
		return t.fieldIndex[name]
	}
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// InputField returns the input field named name, or nil.
func (t *Type) InputField(name string) *InputValue {
	if t.inputFieldIndex != nil {
		return t.inputFieldIndex[name]
	}
	for _, f := range t.InputFields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// EnumValueByName returns the enum value whose GraphQL name is name, or nil.
// Matching is case-sensitive.
func (t *Type) EnumValueByName(name string) *EnumValue {
	if t.enumIndex != nil {
		return t.enumIndex[name]
	}
	for _, v := range t.EnumValues {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// EnumValueByValue returns the enum value backed by value, or nil. Numbers
// compare by value so decoded JSON matches integer-backed members.
func (t *Type) EnumValueByValue(value any) *EnumValue {
	for _, v := range t.EnumValues {
		if sameValue(v.Internal(), value) {
			return v
		}
	}
	return nil
}

func sameValue(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	fa, errA := toFloat(a)
	fb, errB := toFloat(b)
	return errA == nil && errB == nil && fa == fb
}

func (t *Type) buildIndexes() {
	switch t.Kind {
	case TypeKindObject, TypeKindInterface:
		t.fieldIndex = make(map[string]*Field, len(t.Fields))
		for _, f := range t.Fields {
			t.fieldIndex[f.Name] = f
		}
	case TypeKindInputObject:
		t.inputFieldIndex = make(map[string]*InputValue, len(t.InputFields))
		for _, f := range t.InputFields {
			t.inputFieldIndex[f.Name] = f
		}
	case TypeKindEnum:
		t.enumIndex = make(map[string]*EnumValue, len(t.EnumValues))
		for _, v := range t.EnumValues {
			t.enumIndex[v.Name] = v
		}
	}
}

// Field represents a field on an object or interface
type Field struct {
	Name              string
	Description       string
	Type              *TypeRef
	Arguments         []*InputValue
	Resolve           FieldResolveFn
	Subscribe         SubscribeFn
	IsDeprecated      bool
	DeprecationReason string
}

// Argument returns the argument definition named name, or nil.
func (f *Field) Argument(name string) *InputValue {
	for _, a := range f.Arguments {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// TypeRef represents a reference to a type (can be wrapped)
type TypeRef struct {
	Kind   TypeRefKind
	OfType *TypeRef // For List and NonNull
	Named  string   // For named types
}

type TypeRefKind string

const (
	TypeRefKindNamed   TypeRefKind = "NAMED"
	TypeRefKindList    TypeRefKind = "LIST"
	TypeRefKindNonNull TypeRefKind = "NON_NULL"
)

// Helper functions for TypeRef
func (t *TypeRef) IsNonNull() bool {
	return t != nil && t.Kind == TypeRefKindNonNull
}

func (t *TypeRef) IsList() bool {
	if t.Kind == TypeRefKindList {
		return true
	}
	if t.Kind == TypeRefKindNonNull && t.OfType != nil {
		return t.OfType.Kind == TypeRefKindList
	}
	return false
}

// Nullable strips a Non-Null wrapper, if any.
func (t *TypeRef) Nullable() *TypeRef {
	if t.IsNonNull() {
		return t.OfType
	}
	return t
}

func (t *TypeRef) Unwrap() *TypeRef {
	if t.Kind == TypeRefKindNonNull || t.Kind == TypeRefKindList {
		return t.OfType
	}
	return t
}

func (t *TypeRef) GetNamedType() string {
	current := t
	for current != nil {
		if current.Named != "" {
			return current.Named
		}
		current = current.OfType
	}
	return ""
}

// String renders t in SDL notation, e.g. "[Int!]!".
func (t *TypeRef) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case TypeRefKindNonNull:
		return t.OfType.String() + "!"
	case TypeRefKindList:
		return "[" + t.OfType.String() + "]"
	default:
		return t.Named
	}
}

type EnumValue struct {
	Name              string
	Description       string
	Value             any // Internal value; the name is used when nil
	IsDeprecated      bool
	DeprecationReason string
}

// Internal returns the value resolvers receive for this enum member.
func (v *EnumValue) Internal() any {
	if v.Value == nil {
		return v.Name
	}
	return v.Value
}

type InputValue struct {
	Name        string
	Description string
	Type        *TypeRef
	// Key is the map key a coerced input object stores this field under.
	// Empty means Name.
	Key string
	// DefaultValue is an external (JSON-shaped) value, coerced on use.
	// HasDefault distinguishes a null default from no default.
	DefaultValue      any
	HasDefault        bool
	IsDeprecated      bool
	DeprecationReason string
}

// StorageKey returns the key a coerced input object uses for this field.
func (v *InputValue) StorageKey() string {
	if v.Key != "" {
		return v.Key
	}
	return v.Name
}

type Directive struct {
	Name         string
	Description  string
	Locations    []string
	Arguments    []*InputValue
	IsRepeatable bool
}

func NonNullType(t *TypeRef) *TypeRef { return &TypeRef{Kind: TypeRefKindNonNull, OfType: t} }
func ListType(t *TypeRef) *TypeRef    { return &TypeRef{Kind: TypeRefKindList, OfType: t} }
func NamedType(name string) *TypeRef  { return &TypeRef{Kind: TypeRefKindNamed, Named: name} }

// IsNonNull reports whether the type is wrapped with Non-Null.
func IsNonNull(t *TypeRef) bool { return t != nil && t.IsNonNull() }

// IsList reports whether the type is (or is wrapped by) a list type.
func IsList(t *TypeRef) bool { return t != nil && t.IsList() }

// Unwrap removes one layer of Non-Null or List wrapping and returns the inner type.
func Unwrap(t *TypeRef) *TypeRef { return t.Unwrap() }

// GetNamedType returns the innermost named type for the given reference.
func GetNamedType(t *TypeRef) string { return t.GetNamedType() }

// TypeRefFromAST converts a parsed type reference.
func TypeRefFromAST(t *ast.Type) *TypeRef {
	if t == nil {
		return nil
	}
	if t.NonNull {
		return NonNullType(TypeRefFromAST(&ast.Type{NamedType: t.NamedType, Elem: t.Elem}))
	}
	if t.NamedType != "" {
		return NamedType(t.NamedType)
	}
	if t.Elem != nil {
		return ListType(TypeRefFromAST(t.Elem))
	}
	return nil
}
