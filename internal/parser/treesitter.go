package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/mvp-joe/noir-analyzer/internal/syntax"
)

// nodeText extracts the text content of a tree-sitter node.
func nodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// spanOf converts a node's range to a syntax.Span (1-based line and column).
func spanOf(node *sitter.Node, file string) syntax.Span {
	start := node.StartPosition()
	end := node.EndPosition()
	return syntax.Span{
		File:      file,
		Start:     syntax.Position{Line: int(start.Row) + 1, Column: int(start.Column) + 1},
		End:       syntax.Position{Line: int(end.Row) + 1, Column: int(end.Column) + 1},
		StartByte: int(node.StartByte()),
		EndByte:   int(node.EndByte()),
	}
}

// walkTree recursively walks a tree-sitter tree and calls the visitor for each node.
func walkTree(node *sitter.Node, visitor func(*sitter.Node) bool) {
	if node == nil {
		return
	}

	if !visitor(node) {
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		walkTree(child, visitor)
	}
}

// eachChild calls fn for every named child together with the field name it
// occupies in its parent ("" when it has none).
func eachChild(node *sitter.Node, fn func(field string, child *sitter.Node)) {
	if node == nil {
		return
	}
	cursor := node.Walk()
	defer cursor.Close()

	if !cursor.GotoFirstChild() {
		return
	}
	for {
		child := cursor.Node()
		if child != nil && child.IsNamed() {
			fn(cursor.FieldName(), child)
		}
		if !cursor.GotoNextSibling() {
			return
		}
	}
}

// findChildByType finds the first child node with the given type.
func findChildByType(node *sitter.Node, nodeType string) *sitter.Node {
	if node == nil {
		return nil
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		if child.Kind() == nodeType {
			return child
		}
	}
	return nil
}

// firstNamedChild returns the first named child, or nil.
func firstNamedChild(node *sitter.Node) *sitter.Node {
	if node == nil || node.NamedChildCount() == 0 {
		return nil
	}
	return node.NamedChild(0)
}

// visibilityOf reads the visibility_modifier child of an item.
func visibilityOf(node *sitter.Node, source []byte) syntax.Visibility {
	mod := findChildByType(node, "visibility_modifier")
	if mod == nil {
		return syntax.Private
	}
	return parseVisibility(nodeText(mod, source))
}

// parseVisibility maps modifier text onto the three visibility tiers. Restricted
// forms narrower than the crate (pub(super), pub(in path)) are crate-visible;
// pub(self) is private.
func parseVisibility(text string) syntax.Visibility {
	text = strings.Join(strings.Fields(text), "")
	switch {
	case text == "pub":
		return syntax.Public
	case text == "pub(self)":
		return syntax.Private
	case strings.HasPrefix(text, "pub("), text == "crate":
		return syntax.CrateVisible
	default:
		return syntax.Private
	}
}

// pathSegments flattens an identifier, scoped identifier or type path into its
// segments, dropping generic arguments. It returns nil for paths that cannot
// be expressed by name, such as qualified `<T as Trait>::f` paths.
func pathSegments(node *sitter.Node, source []byte) syntax.Path {
	if node == nil {
		return nil
	}
	switch node.Kind() {
	case "identifier", "type_identifier", "primitive_type", "field_identifier",
		"crate", "self", "super", "metavariable":
		return syntax.Path{nodeText(node, source)}
	case "scoped_identifier", "scoped_type_identifier":
		name := pathSegments(node.ChildByFieldName("name"), source)
		if name == nil {
			return nil
		}
		prefix := node.ChildByFieldName("path")
		if prefix == nil {
			// `::name` refers to the crate root.
			return append(syntax.Path{syntax.CrateRoot}, name...)
		}
		head := pathSegments(prefix, source)
		if head == nil {
			return nil
		}
		return head.Join(name...)
	case "generic_type", "generic_type_with_turbofish", "generic_function":
		inner := node.ChildByFieldName("type")
		if inner == nil {
			inner = node.ChildByFieldName("function")
		}
		return pathSegments(inner, source)
	default:
		return nil
	}
}
