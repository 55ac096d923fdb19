package executor

// assemble folds the completed node tree into the response. Nulls bubble up
// from failed non-null nodes to the nearest nullable ancestor. Errors are
// gathered depth-first in document order, so the list does not depend on
// the order in which resolvers finished.
func (ec *executionContext) assemble(roots []*node) *ExecutionResult {
	res := &ExecutionResult{}
	for _, n := range roots {
		res.Errors = collectErrors(n, res.Errors)
	}

	data := &ResultMap{}
	for _, n := range roots {
		if n.group.def == nil && n.group.name() != typenameField {
			continue
		}
		v, isNull := build(n)
		if isNull && n.typ.IsNonNull() {
			return res
		}
		data.set(n.key, v)
	}
	res.Data = data
	return res
}

// build returns the response value of n, or reports null.
func build(n *node) (any, bool) {
	if n.nulled.Load() {
		return nil, true
	}
	switch n.state {
	case stateLeaf:
		return n.value, false
	case stateList:
		items := make([]any, len(n.children))
		for i, c := range n.children {
			v, isNull := build(c)
			if isNull && c.typ.IsNonNull() {
				return nil, true
			}
			items[i] = v
		}
		return items, false
	case stateObject:
		m := &ResultMap{Fields: make([]ResultField, 0, len(n.children))}
		for _, c := range n.children {
			if c.group.def == nil && c.group.name() != typenameField {
				continue
			}
			v, isNull := build(c)
			if isNull && c.typ.IsNonNull() {
				return nil, true
			}
			m.set(c.key, v)
		}
		return m, false
	}
	return nil, true
}

func collectErrors(n *node, errs []*ExecutionError) []*ExecutionError {
	if n.err != nil {
		errs = append(errs, n.err)
	}
	for _, c := range n.children {
		errs = collectErrors(c, errs)
	}
	return errs
}
