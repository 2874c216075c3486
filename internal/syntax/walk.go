package syntax

// Visitor is called by Walk for every expression node. Returning false skips
// the node's children.
type Visitor func(e *Expr) bool

// Walk visits e and its descendants in source order, iteratively so deep
// bodies cannot exhaust the stack.
func Walk(e *Expr, visit Visitor) {
	if e == nil {
		return
	}
	stack := []*Expr{e}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !visit(n) {
			continue
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			if n.Children[i] != nil {
				stack = append(stack, n.Children[i])
			}
		}
	}
}

// References returns every reference in the body in source order, ignoring
// scoping. The call graph builder applies scoping itself; this is used by
// tooling and tests.
func References(body *Expr) []Reference {
	type item struct {
		e      *Expr
		callee bool
	}
	var refs []Reference
	if body == nil {
		return refs
	}
	stack := []item{{e: body}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !it.callee {
			if r, ok := it.e.Reference(); ok {
				refs = append(refs, r)
			}
		}
		for i := len(it.e.Children) - 1; i >= 0; i-- {
			if c := it.e.Children[i]; c != nil {
				stack = append(stack, item{e: c, callee: it.e.IsCallee(i)})
			}
		}
	}
	return refs
}

// AllFunctions returns the module's functions, impl methods, trait default
// methods and, recursively, functions nested in their bodies.
func (m *Module) AllFunctions() []*Function {
	var out []*Function
	var add func(fs []*Function)
	add = func(fs []*Function) {
		for _, f := range fs {
			out = append(out, f)
			add(f.Nested)
		}
	}
	add(m.Items.Functions)
	for _, impl := range m.Items.Impls {
		add(impl.Methods)
	}
	for _, t := range m.Items.Traits {
		add(t.Methods)
	}
	return out
}
