package executor

import (
	"fmt"

	language "github.com/hanpama/gqlexec/internal/language"
	schema "github.com/hanpama/gqlexec/internal/schema"
	"github.com/hanpama/gqlexec/internal/values"
)

const typenameField = "__typename"

var typenameType = schema.NonNullType(schema.NamedType("String"))

// fieldGroup is the set of field nodes merged under one response key.
type fieldGroup struct {
	key    string
	fields []*language.Field
	def    *schema.Field // nil for __typename and unknown fields
}

func (g *fieldGroup) name() string { return g.fields[0].Name }

// collectedFieldMap preserves field order from the original query
type collectedFieldMap struct {
	groups []*fieldGroup
	index  map[string]*fieldGroup
}

func newCollectedFieldMap() *collectedFieldMap {
	return &collectedFieldMap{index: make(map[string]*fieldGroup)}
}

func (cfm *collectedFieldMap) add(responseName string, field *language.Field) {
	if g, exists := cfm.index[responseName]; exists {
		g.fields = append(g.fields, field)
		return
	}
	g := &fieldGroup{key: responseName, fields: []*language.Field{field}}
	cfm.index[responseName] = g
	cfm.groups = append(cfm.groups, g)
}

type subfieldKey struct {
	group      *fieldGroup
	objectType *schema.Type
}

// collectFields groups the selections that apply to objectType by response
// key, in first-occurrence order.
func (ec *executionContext) collectFields(objectType *schema.Type, selectionSet language.SelectionSet) ([]*fieldGroup, error) {
	grouped := newCollectedFieldMap()
	visited := make(map[string]bool)
	if err := ec.collectFieldsImpl(objectType, selectionSet, grouped, visited); err != nil {
		return nil, err
	}
	for _, g := range grouped.groups {
		if g.name() != typenameField {
			g.def = objectType.Field(g.name())
		}
	}
	return grouped.groups, nil
}

// collectSubfields merges the sub-selections of every node in g. Results are
// cached per group and runtime type, so elements of one list share the work.
func (ec *executionContext) collectSubfields(objectType *schema.Type, g *fieldGroup) ([]*fieldGroup, error) {
	key := subfieldKey{group: g, objectType: objectType}
	if cached, ok := ec.subfields.Load(key); ok {
		return cached.([]*fieldGroup), nil
	}
	var selections language.SelectionSet
	for _, f := range g.fields {
		selections = append(selections, f.SelectionSet...)
	}
	groups, err := ec.collectFields(objectType, selections)
	if err != nil {
		return nil, err
	}
	actual, _ := ec.subfields.LoadOrStore(key, groups)
	return actual.([]*fieldGroup), nil
}

func (ec *executionContext) collectFieldsImpl(objectType *schema.Type, selectionSet language.SelectionSet, grouped *collectedFieldMap, visited map[string]bool) error {
	for _, selection := range selectionSet {
		switch sel := selection.(type) {
		case *language.Field:
			ok, err := values.ShouldInclude(ec.schema, sel.Directives, ec.vars)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			responseName := sel.Alias
			if responseName == "" {
				responseName = sel.Name
			}
			grouped.add(responseName, sel)

		case *language.InlineFragment:
			ok, err := values.ShouldInclude(ec.schema, sel.Directives, ec.vars)
			if err != nil {
				return err
			}
			if !ok || !ec.doesFragmentTypeApply(objectType, sel.TypeCondition) {
				continue
			}
			if err := ec.collectFieldsImpl(objectType, sel.SelectionSet, grouped, visited); err != nil {
				return err
			}

		case *language.FragmentSpread:
			ok, err := values.ShouldInclude(ec.schema, sel.Directives, ec.vars)
			if err != nil {
				return err
			}
			if !ok || visited[sel.Name] {
				continue
			}
			visited[sel.Name] = true

			fragment := ec.document.Fragments.ForName(sel.Name)
			if fragment == nil {
				return fmt.Errorf("Unknown fragment %q.", sel.Name)
			}
			if !ec.doesFragmentTypeApply(objectType, fragment.TypeCondition) {
				continue
			}
			if err := ec.collectFieldsImpl(objectType, fragment.SelectionSet, grouped, visited); err != nil {
				return err
			}
		}
	}
	return nil
}

// doesFragmentTypeApply matches a type condition against the runtime object
// type directly, through an implemented interface, or through union
// membership.
func (ec *executionContext) doesFragmentTypeApply(objectType *schema.Type, condition string) bool {
	if condition == "" || condition == objectType.Name {
		return true
	}
	t := ec.schema.Type(condition)
	if t == nil || !t.IsAbstract() {
		return false
	}
	return ec.schema.IsPossibleType(t, objectType)
}
