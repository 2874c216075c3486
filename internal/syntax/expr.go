package syntax

// ExprKind classifies a lowered expression node.
type ExprKind int

const (
	// ExprNode is any construct with no naming semantics of its own; only its
	// children matter. Each ExprNode opens a binding scope.
	ExprNode ExprKind = iota
	// ExprPath names something by path (a variable, a function, a constant...).
	ExprPath
	// ExprCall is a call; Children[0] is the callee, the rest are arguments.
	ExprCall
	// ExprMethodCall is `receiver.Name(args)`; Children[0] is the receiver.
	ExprMethodCall
	// ExprLet evaluates Children, then binds Bindings in the enclosing scope.
	ExprLet
	// ExprScope binds Bindings before evaluating Children (closures, for loops,
	// match arms).
	ExprScope
)

var exprKindNames = map[ExprKind]string{
	ExprNode:       "node",
	ExprPath:       "path",
	ExprCall:       "call",
	ExprMethodCall: "method-call",
	ExprLet:        "let",
	ExprScope:      "scope",
}

func (k ExprKind) String() string {
	if s, ok := exprKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Expr is a node of a lowered function body.
type Expr struct {
	Kind ExprKind
	Span Span
	// Path is set for ExprPath. A nil Path on an ExprPath means the path could
	// not be expressed statically (for example `<T as Trait>::f`).
	Path Path
	// Name is the method name for ExprMethodCall.
	Name string
	// Bindings are the names introduced by ExprLet and ExprScope.
	Bindings []string
	Children []*Expr
}

// ReferenceKind says how a function name is used.
type ReferenceKind int

const (
	// RefValue is a name used as a value: passed, returned, stored.
	RefValue ReferenceKind = iota
	// RefCall is a name used as the callee of a call.
	RefCall
	// RefMethod is a method name used in method-call syntax.
	RefMethod
)

func (k ReferenceKind) String() string {
	switch k {
	case RefCall:
		return "call"
	case RefMethod:
		return "method"
	default:
		return "value"
	}
}

// Reference is a name use that may denote a function.
type Reference struct {
	Kind ReferenceKind
	Path Path // for RefMethod, a single segment holding the method name
	Span Span
}

// Reference reports whether the node names something that could be a function.
// Callee paths are reported by the ExprCall node (as RefCall), not by the
// ExprPath child, so a walker visiting every node sees each use once.
func (e *Expr) Reference() (Reference, bool) {
	switch e.Kind {
	case ExprPath:
		return Reference{Kind: RefValue, Path: e.Path, Span: e.Span}, true
	case ExprCall:
		if len(e.Children) > 0 && e.Children[0].Kind == ExprPath {
			return Reference{Kind: RefCall, Path: e.Children[0].Path, Span: e.Children[0].Span}, true
		}
	case ExprMethodCall:
		return Reference{Kind: RefMethod, Path: Path{e.Name}, Span: e.Span}, true
	}
	return Reference{}, false
}

// IsCallee reports whether child i of e is a callee already reported by e.
func (e *Expr) IsCallee(i int) bool {
	return e.Kind == ExprCall && i == 0 && len(e.Children) > 0 && e.Children[0].Kind == ExprPath
}
