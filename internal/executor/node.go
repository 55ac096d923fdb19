package executor

import (
	"sync/atomic"

	"github.com/hanpama/gqlexec/internal/schema"
)

type nodeState uint8

const (
	statePending nodeState = iota
	stateLeaf
	stateObject
	stateList
	stateNull
)

// node is one field or list element being computed. Children keep a pointer
// to their parent for path computation; the parent owns its children.
//
// A node is written only by the goroutine currently resolving it. Parents
// learn about failing descendants through the atomic nulled flag.
type node struct {
	parent *node
	key    string // response key; empty for list elements
	index  int    // element index; -1 for fields
	typ    *schema.TypeRef

	parentType *schema.Type
	group      *fieldGroup // owning field group, shared by list elements
	source     any
	info       *schema.ResolveInfo

	// pending holds a parked Deferred.
	pending schema.Deferred

	state      nodeState
	value      any // serialized leaf
	objectType *schema.Type
	children   []*node
	err        *ExecutionError

	// nulled is set when a non-null descendant failed and the null bubbled
	// into this node.
	nulled atomic.Bool
}

func newFieldNode(parent *node, parentType *schema.Type, g *fieldGroup, source any) *node {
	n := &node{
		parent:     parent,
		key:        g.key,
		index:      -1,
		parentType: parentType,
		group:      g,
		source:     source,
	}
	if g.def != nil {
		n.typ = g.def.Type
	} else if g.name() == typenameField {
		n.typ = typenameType
	}
	return n
}

func newItemNode(list *node, index int, typ *schema.TypeRef) *node {
	return &node{
		parent:     list,
		index:      index,
		typ:        typ,
		parentType: list.parentType,
		group:      list.group,
		info:       list.info,
	}
}

func (n *node) isField() bool { return n.index < 0 }

func (n *node) path() []any {
	depth := 0
	for cur := n; cur != nil; cur = cur.parent {
		depth++
	}
	path := make([]any, depth)
	for cur := n; cur != nil; cur = cur.parent {
		depth--
		if cur.isField() {
			path[depth] = cur.key
		} else {
			path[depth] = cur.index
		}
	}
	return path
}

func (n *node) locations() []Location {
	if n.group == nil {
		return nil
	}
	var locs []Location
	for _, f := range n.group.fields[:1] {
		if f.Position != nil {
			locs = append(locs, Location{Line: f.Position.Line, Column: f.Position.Column})
		}
	}
	return locs
}

// doomed reports whether an ancestor has already been nulled, in which case
// the node's value can no longer appear in the response.
func (n *node) doomed() bool {
	for p := n.parent; p != nil; p = p.parent {
		if p.nulled.Load() {
			return true
		}
	}
	return false
}

func (n *node) fieldName() string {
	return n.group.name()
}
