package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/mvp-joe/noir-analyzer/internal/syntax"
)

// Fields whose subtrees never name a value.
var skippedFields = map[string]bool{
	"type":            true,
	"type_arguments":  true,
	"type_parameters": true,
	"return_type":     true,
	"trait":           true,
	"label":           true,
	"field":           true,
	"name":            true,
}

// Node kinds that carry no references.
var inertKinds = map[string]bool{
	"line_comment":            true,
	"block_comment":           true,
	"attribute_item":          true,
	"inner_attribute_item":    true,
	"string_literal":          true,
	"raw_string_literal":      true,
	"char_literal":            true,
	"integer_literal":         true,
	"float_literal":           true,
	"boolean_literal":         true,
	"field_identifier":        true,
	"type_identifier":         true,
	"primitive_type":          true,
	"label":                   true,
	"lifetime":                true,
	"struct_item":             true,
	"enum_item":               true,
	"type_item":               true,
	"use_declaration":         true,
	"mod_item":                true,
	"impl_item":               true,
	"trait_item":              true,
	"function_signature_item": true,
}

// expr lowers an expression subtree. It returns nil for subtrees that cannot
// contain a reference.
func (l *lowerer) expr(node *sitter.Node) *syntax.Expr {
	if node == nil {
		return nil
	}
	kind := node.Kind()
	if inertKinds[kind] || strings.HasSuffix(kind, "_type") {
		return nil
	}

	switch kind {
	case "identifier", "self", "scoped_identifier":
		return &syntax.Expr{Kind: syntax.ExprPath, Span: l.span(node), Path: l.path(node)}

	case "generic_function":
		return l.expr(node.ChildByFieldName("function"))

	case "call_expression":
		return l.call(node)

	case "field_expression":
		return l.node(node, l.expr(node.ChildByFieldName("value")))

	case "function_item":
		if l.nested != nil {
			*l.nested = append(*l.nested, l.function(node))
		}
		return nil

	case "closure_expression":
		var names []string
		if params := node.ChildByFieldName("parameters"); params != nil {
			for i := 0; i < int(params.NamedChildCount()); i++ {
				p := params.NamedChild(uint(i))
				if p.Kind() == "parameter" {
					p = p.ChildByFieldName("pattern")
				}
				names = append(names, l.bindings(p)...)
			}
		}
		return &syntax.Expr{
			Kind:     syntax.ExprScope,
			Span:     l.span(node),
			Bindings: names,
			Children: compact(l.expr(node.ChildByFieldName("body"))),
		}

	case "const_item", "static_item":
		var names []string
		if name := node.ChildByFieldName("name"); name != nil {
			names = []string{nodeText(name, l.source)}
		}
		return &syntax.Expr{
			Kind:     syntax.ExprLet,
			Span:     l.span(node),
			Bindings: names,
			Children: compact(l.expr(node.ChildByFieldName("value"))),
		}

	case "let_declaration", "let_condition":
		return &syntax.Expr{
			Kind:     syntax.ExprLet,
			Span:     l.span(node),
			Bindings: l.bindings(node.ChildByFieldName("pattern")),
			Children: compact(
				l.expr(node.ChildByFieldName("value")),
				l.expr(node.ChildByFieldName("alternative")),
			),
		}

	case "for_expression":
		loop := &syntax.Expr{
			Kind:     syntax.ExprScope,
			Span:     l.span(node),
			Bindings: l.bindings(node.ChildByFieldName("pattern")),
			Children: compact(l.expr(node.ChildByFieldName("body"))),
		}
		return l.node(node, l.expr(node.ChildByFieldName("value")), loop)

	case "match_arm":
		return l.matchArm(node)

	case "macro_invocation":
		return l.macro(node)

	case "shorthand_field_initializer":
		return l.expr(firstNamedChild(node))

	case "field_initializer":
		return l.node(node, l.expr(node.ChildByFieldName("value")))
	}

	var children []*syntax.Expr
	eachChild(node, func(field string, child *sitter.Node) {
		if skippedFields[field] {
			return
		}
		if e := l.expr(child); e != nil {
			children = append(children, e)
		}
	})
	if len(children) == 0 {
		return nil
	}
	return &syntax.Expr{Kind: syntax.ExprNode, Span: l.span(node), Children: children}
}

// call lowers call_expression into a call or a method call.
func (l *lowerer) call(node *sitter.Node) *syntax.Expr {
	callee := node.ChildByFieldName("function")
	if callee != nil && callee.Kind() == "generic_function" {
		callee = callee.ChildByFieldName("function")
	}
	args := l.arguments(node.ChildByFieldName("arguments"))

	if callee != nil && callee.Kind() == "field_expression" {
		field := callee.ChildByFieldName("field")
		receiver := l.expr(callee.ChildByFieldName("value"))
		span := l.span(callee)
		if field != nil {
			span = l.span(field)
		}
		return &syntax.Expr{
			Kind:     syntax.ExprMethodCall,
			Span:     span,
			Name:     nodeText(field, l.source),
			Children: append([]*syntax.Expr{receiver}, args...),
		}
	}

	fn := l.expr(callee)
	if fn == nil {
		fn = &syntax.Expr{Kind: syntax.ExprNode, Span: l.span(node)}
	}
	return &syntax.Expr{
		Kind:     syntax.ExprCall,
		Span:     l.span(node),
		Children: append([]*syntax.Expr{fn}, args...),
	}
}

func (l *lowerer) arguments(node *sitter.Node) []*syntax.Expr {
	if node == nil {
		return nil
	}
	var out []*syntax.Expr
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if e := l.expr(node.NamedChild(uint(i))); e != nil {
			out = append(out, e)
		}
	}
	return out
}

// matchArm lowers `pattern if guard => value`; the pattern's bindings are in
// scope for the guard and the value.
func (l *lowerer) matchArm(node *sitter.Node) *syntax.Expr {
	pattern := node.ChildByFieldName("pattern")
	var guard *sitter.Node
	if pattern != nil && pattern.Kind() == "match_pattern" {
		guard = pattern.ChildByFieldName("condition")
		pattern = firstNamedChild(pattern)
	}
	return &syntax.Expr{
		Kind:     syntax.ExprScope,
		Span:     l.span(node),
		Bindings: l.bindings(pattern),
		Children: compact(l.expr(guard), l.expr(node.ChildByFieldName("value"))),
	}
}

// macro lowers a macro invocation. Its token tree is opaque, so every
// identifier in it is treated as a value use.
func (l *lowerer) macro(node *sitter.Node) *syntax.Expr {
	var children []*syntax.Expr
	walkTree(findChildByType(node, "token_tree"), func(n *sitter.Node) bool {
		if n.Kind() == "identifier" {
			children = append(children, &syntax.Expr{Kind: syntax.ExprPath, Span: l.span(n), Path: l.path(n)})
		}
		return true
	})
	return l.node(node, children...)
}

// node wraps children in a generic ExprNode, dropping nils.
func (l *lowerer) node(n *sitter.Node, children ...*syntax.Expr) *syntax.Expr {
	children = compact(children...)
	if len(children) == 0 {
		return nil
	}
	return &syntax.Expr{Kind: syntax.ExprNode, Span: l.span(n), Children: children}
}

func (l *lowerer) span(node *sitter.Node) syntax.Span {
	return spanOf(node, l.file)
}

func (l *lowerer) path(node *sitter.Node) syntax.Path {
	return pathSegments(node, l.source)
}

func compact(exprs ...*syntax.Expr) []*syntax.Expr {
	var out []*syntax.Expr
	for _, e := range exprs {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}
