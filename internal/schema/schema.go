package schema

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

const (
	stateNew uint32 = iota
	stateReady
)

// Schema represents the complete GraphQL schema.
//
// A schema is assembled with the Add*/Set*/Use methods and then sealed by
// Initialize. After Initialize it is read-only and safe for concurrent use by
// any number of executions.
type Schema struct {
	QueryType        string
	MutationType     string
	SubscriptionType string
	Types            map[string]*Type // All named types keyed by name
	Directives       map[string]*Directive
	Description      string

	middleware []Middleware
	conflicts  []error
	resolve    FieldResolveFn

	initMu    sync.Mutex
	initState atomic.Uint32
	initErr   error
	initRuns  int
}

// GetQueryType returns the root query type (may be nil if absent)
func (s *Schema) GetQueryType() *Type { return s.Types[s.QueryType] }

// GetMutationType returns the root mutation type (may be nil if absent)
func (s *Schema) GetMutationType() *Type {
	if s.MutationType == "" {
		return nil
	}
	return s.Types[s.MutationType]
}

// GetSubscriptionType returns the root subscription type (may be nil if absent)
func (s *Schema) GetSubscriptionType() *Type {
	if s.SubscriptionType == "" {
		return nil
	}
	return s.Types[s.SubscriptionType]
}

// Type returns the named type, or nil.
func (s *Schema) Type(name string) *Type { return s.Types[name] }

// Directive returns the named directive definition, or nil.
func (s *Schema) Directive(name string) *Directive { return s.Directives[name] }

// Initialized reports whether Initialize has completed (successfully or not).
func (s *Schema) Initialized() bool { return s.initState.Load() == stateReady }

func (s *Schema) mustBeMutable(op string) {
	if s.Initialized() {
		panic(fmt.Sprintf("schema: %s called after Initialize", op))
	}
}

// Use appends resolver middleware. The chain is composed once by Initialize.
func (s *Schema) Use(mw ...Middleware) *Schema {
	s.mustBeMutable("Use")
	s.middleware = append(s.middleware, mw...)
	return s
}

// SetResolver attaches a resolver to typeName.fieldName.
func (s *Schema) SetResolver(typeName, fieldName string, fn FieldResolveFn) error {
	s.mustBeMutable("SetResolver")
	t := s.Types[typeName]
	if t == nil {
		return fmt.Errorf("unknown type %q", typeName)
	}
	f := t.Field(fieldName)
	if f == nil {
		return fmt.Errorf("type %q has no field %q", typeName, fieldName)
	}
	f.Resolve = fn
	return nil
}

// Initialize seals the schema. The first call registers the specified scalars
// and directives, indexes fields, computes interface implementations,
// validates that the type graph is closed and consistent, and composes the
// middleware chain. Later calls return the cached outcome of the first one;
// a failure is never retried.
func (s *Schema) Initialize() error {
	if s.initState.Load() == stateReady {
		return s.initErr
	}
	s.initMu.Lock()
	defer s.initMu.Unlock()
	if s.initState.Load() == stateReady {
		return s.initErr
	}
	s.initRuns++
	s.initErr = s.initialize()
	s.initState.Store(stateReady)
	return s.initErr
}

func (s *Schema) initialize() error {
	if s.Types == nil {
		s.Types = make(map[string]*Type)
	}
	if s.Directives == nil {
		s.Directives = make(map[string]*Directive)
	}
	for _, t := range builtinTypes {
		if _, ok := s.Types[t.Name]; !ok {
			s.Types[t.Name] = t
		}
	}
	for _, d := range builtinDirectives {
		if _, ok := s.Directives[d.Name]; !ok {
			s.Directives[d.Name] = d
		}
	}

	errs := append([]error(nil), s.conflicts...)
	for _, name := range s.typeNames() {
		t := s.Types[name]
		if t.Name != name {
			errs = append(errs, fmt.Errorf("type registered as %q is named %q", name, t.Name))
		}
		if !IsBuiltin(t) {
			t.buildIndexes()
		}
	}

	errs = append(errs, s.validateRoots()...)
	implementations := map[string][]string{}
	for _, name := range s.typeNames() {
		t := s.Types[name]
		switch t.Kind {
		case TypeKindObject, TypeKindInterface:
			errs = append(errs, s.validateFields(t)...)
			for _, iname := range t.Interfaces {
				iface := s.Types[iname]
				if iface == nil || iface.Kind != TypeKindInterface {
					errs = append(errs, fmt.Errorf("type %s can only implement interfaces, %q is not an interface type", t.Name, iname))
					continue
				}
				errs = append(errs, s.validateImplementation(t, iface)...)
				if t.Kind == TypeKindObject {
					implementations[iname] = append(implementations[iname], t.Name)
				}
			}
		case TypeKindUnion:
			if len(t.PossibleTypes) == 0 {
				errs = append(errs, fmt.Errorf("union %s must define one or more member types", t.Name))
			}
			for _, member := range t.PossibleTypes {
				mt := s.Types[member]
				if mt == nil || mt.Kind != TypeKindObject {
					errs = append(errs, fmt.Errorf("union %s can only include object types, it cannot include %q", t.Name, member))
				}
			}
		case TypeKindInputObject:
			for _, f := range t.InputFields {
				errs = append(errs, s.validateTypeRef(t.Name+"."+f.Name, f.Type, true)...)
			}
		case TypeKindEnum:
			if len(t.EnumValues) == 0 {
				errs = append(errs, fmt.Errorf("enum %s must define one or more values", t.Name))
			}
		case TypeKindScalar:
		default:
			errs = append(errs, fmt.Errorf("type %s has unknown kind %q", t.Name, t.Kind))
		}
	}
	for _, name := range s.typeNames() {
		if t := s.Types[name]; t.Kind == TypeKindInterface {
			t.PossibleTypes = implementations[name]
		}
	}
	for _, d := range s.Directives {
		for _, a := range d.Arguments {
			errs = append(errs, s.validateTypeRef("@"+d.Name+"("+a.Name+":)", a.Type, true)...)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid schema: %w", errors.Join(errs...))
	}

	resolve := FieldResolveFn(baseResolve)
	for i := len(s.middleware) - 1; i >= 0; i-- {
		resolve = s.middleware[i](resolve)
	}
	s.resolve = resolve
	return nil
}

func (s *Schema) typeNames() []string {
	names := make([]string, 0, len(s.Types))
	for name := range s.Types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Schema) validateRoots() []error {
	var errs []error
	check := func(op, name string, required bool) {
		if name == "" {
			if required {
				errs = append(errs, fmt.Errorf("%s root type must be provided", op))
			}
			return
		}
		t := s.Types[name]
		if t == nil {
			errs = append(errs, fmt.Errorf("%s root type %q is not defined", op, name))
		} else if t.Kind != TypeKindObject {
			errs = append(errs, fmt.Errorf("%s root type must be Object type, it cannot be %s", op, name))
		}
	}
	check("query", s.QueryType, true)
	check("mutation", s.MutationType, false)
	check("subscription", s.SubscriptionType, false)
	return errs
}

func (s *Schema) validateFields(t *Type) []error {
	var errs []error
	if len(t.Fields) == 0 {
		errs = append(errs, fmt.Errorf("type %s must define one or more fields", t.Name))
	}
	seen := map[string]bool{}
	for _, f := range t.Fields {
		if seen[f.Name] {
			errs = append(errs, fmt.Errorf("field %s.%s can only be defined once", t.Name, f.Name))
		}
		seen[f.Name] = true
		errs = append(errs, s.validateTypeRef(t.Name+"."+f.Name, f.Type, false)...)
		for _, a := range f.Arguments {
			errs = append(errs, s.validateTypeRef(t.Name+"."+f.Name+"("+a.Name+":)", a.Type, true)...)
		}
	}
	return errs
}

func (s *Schema) validateTypeRef(where string, ref *TypeRef, input bool) []error {
	if ref == nil {
		return []error{fmt.Errorf("%s has no type", where)}
	}
	for cur := ref; cur != nil; cur = cur.OfType {
		switch cur.Kind {
		case TypeRefKindNonNull:
			if cur.OfType == nil || cur.OfType.Kind == TypeRefKindNonNull {
				return []error{fmt.Errorf("%s: non-null cannot wrap %s", where, cur.OfType)}
			}
		case TypeRefKindList:
			if cur.OfType == nil {
				return []error{fmt.Errorf("%s: list has no item type", where)}
			}
		default:
			t := s.Types[cur.Named]
			if t == nil {
				return []error{fmt.Errorf("%s references unknown type %q", where, cur.Named)}
			}
			if input && !t.IsInputType() {
				return []error{fmt.Errorf("%s must be an input type, got %s", where, t.Name)}
			}
			if !input && !t.IsOutputType() {
				return []error{fmt.Errorf("%s must be an output type, got %s", where, t.Name)}
			}
			return nil
		}
	}
	return nil
}

func (s *Schema) validateImplementation(t, iface *Type) []error {
	var errs []error
	for _, ifield := range iface.Fields {
		f := t.Field(ifield.Name)
		if f == nil {
			errs = append(errs, fmt.Errorf("interface field %s.%s expected but %s does not provide it", iface.Name, ifield.Name, t.Name))
			continue
		}
		if f.Type != nil && ifield.Type != nil && !s.IsSubType(f.Type, ifield.Type) {
			errs = append(errs, fmt.Errorf("interface field %s.%s expects type %s but %s.%s is type %s",
				iface.Name, ifield.Name, ifield.Type, t.Name, f.Name, f.Type))
		}
		for _, iarg := range ifield.Arguments {
			arg := f.Argument(iarg.Name)
			if arg == nil {
				errs = append(errs, fmt.Errorf("interface field argument %s.%s(%s:) expected but %s.%s does not provide it",
					iface.Name, ifield.Name, iarg.Name, t.Name, f.Name))
				continue
			}
			if arg.Type.String() != iarg.Type.String() {
				errs = append(errs, fmt.Errorf("interface field argument %s.%s(%s:) expects type %s but %s.%s(%s:) is type %s",
					iface.Name, ifield.Name, iarg.Name, iarg.Type, t.Name, f.Name, arg.Name, arg.Type))
			}
		}
	}
	return errs
}

// IsSubType reports whether maybeSub may be used where super is expected
// (covariant output types).
func (s *Schema) IsSubType(maybeSub, super *TypeRef) bool {
	if maybeSub.String() == super.String() {
		return true
	}
	if super.IsNonNull() {
		if maybeSub.IsNonNull() {
			return s.IsSubType(maybeSub.OfType, super.OfType)
		}
		return false
	}
	if maybeSub.IsNonNull() {
		return s.IsSubType(maybeSub.OfType, super)
	}
	if super.Kind == TypeRefKindList {
		return maybeSub.Kind == TypeRefKindList && s.IsSubType(maybeSub.OfType, super.OfType)
	}
	if maybeSub.Kind == TypeRefKindList {
		return false
	}
	abstract := s.Types[super.Named]
	object := s.Types[maybeSub.Named]
	return abstract != nil && object != nil && abstract.IsAbstract() && s.implementsOrMember(abstract, object)
}

func (s *Schema) implementsOrMember(abstract, t *Type) bool {
	if abstract.Kind == TypeKindUnion {
		for _, m := range abstract.PossibleTypes {
			if m == t.Name {
				return true
			}
		}
		return false
	}
	for _, i := range t.Interfaces {
		if i == abstract.Name {
			return true
		}
	}
	return false
}

// PossibleTypes returns the object types an abstract type may resolve to.
func (s *Schema) PossibleTypes(abstract *Type) []*Type {
	out := make([]*Type, 0, len(abstract.PossibleTypes))
	for _, name := range abstract.PossibleTypes {
		if t := s.Types[name]; t != nil {
			out = append(out, t)
		}
	}
	return out
}

// IsPossibleType reports whether object is a possible type of abstract.
func (s *Schema) IsPossibleType(abstract, object *Type) bool {
	if object == nil || object.Kind != TypeKindObject {
		return false
	}
	return s.implementsOrMember(abstract, object)
}

// ResolveField runs the composed middleware chain and the field resolver.
func (s *Schema) ResolveField(ctx context.Context, p ResolveParams) (any, error) {
	if s.resolve == nil {
		return baseResolve(ctx, p)
	}
	return s.resolve(ctx, p)
}

func baseResolve(ctx context.Context, p ResolveParams) (any, error) {
	if p.Info.Field != nil && p.Info.Field.Resolve != nil {
		return p.Info.Field.Resolve(ctx, p)
	}
	return DefaultResolve(ctx, p)
}
