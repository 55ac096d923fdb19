package schema

import "fmt"

// NewSchema returns an empty schema whose query root is queryType.
func NewSchema(queryType string) *Schema {
	return &Schema{
		QueryType:  queryType,
		Types:      make(map[string]*Type),
		Directives: make(map[string]*Directive),
	}
}

// AddType registers t. Registering a different type under a name already in
// use is reported by Initialize.
func (s *Schema) AddType(t *Type) *Schema {
	s.mustBeMutable("AddType")
	if prev, ok := s.Types[t.Name]; ok && prev != t {
		s.conflicts = append(s.conflicts, fmt.Errorf("type %q is defined more than once", t.Name))
		return s
	}
	s.Types[t.Name] = t
	return s
}

// AddDirective registers a directive definition.
func (s *Schema) AddDirective(d *Directive) *Schema {
	s.mustBeMutable("AddDirective")
	if prev, ok := s.Directives[d.Name]; ok && prev != d {
		s.conflicts = append(s.conflicts, fmt.Errorf("directive @%s is defined more than once", d.Name))
		return s
	}
	s.Directives[d.Name] = d
	return s
}

func (s *Schema) SetQueryType(name string) *Schema {
	s.mustBeMutable("SetQueryType")
	s.QueryType = name
	return s
}

func (s *Schema) SetMutationType(name string) *Schema {
	s.mustBeMutable("SetMutationType")
	s.MutationType = name
	return s
}

func (s *Schema) SetSubscriptionType(name string) *Schema {
	s.mustBeMutable("SetSubscriptionType")
	s.SubscriptionType = name
	return s
}

func (s *Schema) SetDescription(desc string) *Schema {
	s.Description = desc
	return s
}

func NewType(name string, kind TypeKind, description string) *Type {
	return &Type{Name: name, Kind: kind, Description: description}
}

// NewObject returns an object type with the given fields.
func NewObject(name string, fields ...*Field) *Type {
	return &Type{Name: name, Kind: TypeKindObject, Fields: fields}
}

// NewInterface returns an interface type with the given fields.
func NewInterface(name string, fields ...*Field) *Type {
	return &Type{Name: name, Kind: TypeKindInterface, Fields: fields}
}

// NewUnion returns a union over the named object types.
func NewUnion(name string, members ...string) *Type {
	return &Type{Name: name, Kind: TypeKindUnion, PossibleTypes: members}
}

// NewEnum returns an enum type whose values are backed by their names.
func NewEnum(name string, values ...string) *Type {
	t := &Type{Name: name, Kind: TypeKindEnum}
	for _, v := range values {
		t.EnumValues = append(t.EnumValues, &EnumValue{Name: v})
	}
	return t
}

// NewInputObject returns an input object type with the given fields.
func NewInputObject(name string, fields ...*InputValue) *Type {
	return &Type{Name: name, Kind: TypeKindInputObject, InputFields: fields}
}

// NewScalar returns a custom scalar. Nil coercion functions pass values
// through unchanged.
func NewScalar(name string, serialize, parseValue func(any) (any, error)) *Type {
	return &Type{Name: name, Kind: TypeKindScalar, Serialize: serialize, ParseValue: parseValue}
}

func (t *Type) AddField(f *Field) *Type {
	t.Fields = append(t.Fields, f)
	return t
}

func (t *Type) AddInterface(name string) *Type {
	t.Interfaces = append(t.Interfaces, name)
	return t
}

func (t *Type) AddPossibleType(name string) *Type {
	t.PossibleTypes = append(t.PossibleTypes, name)
	return t
}

func (t *Type) AddEnumValue(v *EnumValue) *Type {
	t.EnumValues = append(t.EnumValues, v)
	return t
}

func (t *Type) AddInputField(v *InputValue) *Type {
	t.InputFields = append(t.InputFields, v)
	return t
}

func (t *Type) SetResolveType(fn TypeResolveFn) *Type {
	t.ResolveType = fn
	return t
}

func (t *Type) SetIsTypeOf(fn IsTypeOfFn) *Type {
	t.IsTypeOf = fn
	return t
}

func NewField(name, description string, typ *TypeRef) *Field {
	return &Field{Name: name, Description: description, Type: typ}
}

func (f *Field) AddArgument(arg *InputValue) *Field {
	f.Arguments = append(f.Arguments, arg)
	return f
}

func (f *Field) SetResolve(fn FieldResolveFn) *Field {
	f.Resolve = fn
	return f
}

func (f *Field) SetSubscribe(fn SubscribeFn) *Field {
	f.Subscribe = fn
	return f
}

func (f *Field) Deprecate(reason string) *Field {
	f.IsDeprecated = true
	f.DeprecationReason = reason
	return f
}

func NewInputValue(name, description string, typ *TypeRef) *InputValue {
	return &InputValue{Name: name, Description: description, Type: typ}
}

// SetDefault sets an external (JSON-shaped) default value. A nil v is an
// explicit null default.
func (v *InputValue) SetDefault(value any) *InputValue {
	v.DefaultValue = value
	v.HasDefault = true
	return v
}

// SetKey stores the coerced value under key instead of the field name.
func (v *InputValue) SetKey(key string) *InputValue {
	v.Key = key
	return v
}

func (v *InputValue) Deprecate(reason string) *InputValue {
	v.IsDeprecated = true
	v.DeprecationReason = reason
	return v
}

func NewEnumValue(name, description string) *EnumValue {
	return &EnumValue{Name: name, Description: description}
}

// SetValue sets the value resolvers receive for this member.
func (e *EnumValue) SetValue(value any) *EnumValue {
	e.Value = value
	return e
}

func (e *EnumValue) Deprecate(reason string) *EnumValue {
	e.IsDeprecated = true
	e.DeprecationReason = reason
	return e
}

func NewDirective(name, description string) *Directive {
	return &Directive{Name: name, Description: description}
}

func (d *Directive) SetRepeatable(repeatable bool) *Directive {
	d.IsRepeatable = repeatable
	return d
}

func (d *Directive) AddLocation(locations ...string) *Directive {
	d.Locations = append(d.Locations, locations...)
	return d
}

func (d *Directive) AddArgument(arg *InputValue) *Directive {
	d.Arguments = append(d.Arguments, arg)
	return d
}
