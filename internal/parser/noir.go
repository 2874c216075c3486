// Package parser turns Noir source files into syntax trees.
//
// Noir is parsed with the tree-sitter Rust grammar after a length-preserving
// rewrite of the Noir-only tokens (see maskDialect). The concrete syntax tree is
// then lowered into the syntax package's item and expression trees.
package parser

import (
	"bytes"
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"

	"github.com/mvp-joe/noir-analyzer/internal/syntax"
)

// Parser parses Noir files. It is safe for concurrent use; every call creates
// its own tree-sitter parser.
type Parser struct {
	language *sitter.Language
}

// New creates a Noir parser.
func New() *Parser {
	return &Parser{language: sitter.NewLanguage(rust.Language())}
}

// Parse parses one file holding the module at modPath. It returns the file's
// module followed by every inline `mod name { ... }` module it contains, in
// source order. A file with syntax errors yields a *ParseError and no modules.
func (p *Parser) Parse(file string, source []byte, modPath syntax.Path) ([]*syntax.Module, error) {
	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(p.language); err != nil {
		return nil, fmt.Errorf("failed to set parser language: %w", err)
	}

	masked := maskDialect(source)
	tree := parser.Parse(masked, nil)
	if tree == nil {
		return nil, &ParseError{File: file, Msg: "parser returned no tree", Err: ErrSyntax}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, syntaxError(root, file)
	}

	l := &lowerer{file: file, source: source}
	mod := &syntax.Module{Path: modPath, File: file, Source: source}
	l.modules = append(l.modules, mod)
	l.items(root, mod)

	return l.modules, nil
}

// syntaxError locates the first error or missing node in the tree.
func syntaxError(root *sitter.Node, file string) *ParseError {
	var bad *sitter.Node
	walkTree(root, func(n *sitter.Node) bool {
		if bad != nil {
			return false
		}
		if n.IsError() || n.IsMissing() {
			bad = n
			return false
		}
		return true
	})

	perr := &ParseError{File: file, Msg: "syntax error", Err: ErrSyntax}
	if bad == nil {
		return perr
	}
	pos := bad.StartPosition()
	perr.Line = int(pos.Row) + 1
	perr.Column = int(pos.Column) + 1
	if bad.IsMissing() {
		perr.Msg = fmt.Sprintf("syntax error: missing %s", bad.Kind())
	}
	return perr
}

// lowerer converts one file's tree. It holds the original (unmasked) source so
// names and spans read exactly as written.
type lowerer struct {
	file    string
	source  []byte
	modules []*syntax.Module
	// nested collects function items met while lowering a body.
	nested *[]*syntax.Function
}

// items lowers the items of a source_file or declaration_list into mod.
func (l *lowerer) items(container *sitter.Node, mod *syntax.Module) {
	var attrs []syntax.Attribute

	for i := 0; i < int(container.NamedChildCount()); i++ {
		node := container.NamedChild(uint(i))

		switch node.Kind() {
		case "attribute_item":
			attrs = append(attrs, l.attribute(node))
			continue
		case "line_comment", "block_comment", "inner_attribute_item":
			continue
		case "function_item":
			fn := l.function(node)
			fn.Attributes = attrs
			mod.Items.Functions = append(mod.Items.Functions, fn)
		case "impl_item":
			mod.Items.Impls = append(mod.Items.Impls, l.impl(node))
		case "trait_item":
			mod.Items.Traits = append(mod.Items.Traits, l.trait(node))
		case "use_declaration":
			vis := visibilityOf(node, l.source)
			span := spanOf(node, l.file)
			mod.Imports = append(mod.Imports, l.useTree(node.ChildByFieldName("argument"), nil, vis, span)...)
		case "mod_item":
			l.module(node, mod)
		case "static_item", "const_item":
			if g := l.global(node); g != nil {
				mod.Globals = append(mod.Globals, g)
			}
		}
		attrs = nil
	}
}

// module handles `mod name;`, `mod name { ... }` and `contract name { ... }`,
// which reaches the grammar as a mod.
func (l *lowerer) module(node *sitter.Node, parent *syntax.Module) {
	nameNode := node.ChildByFieldName("name")
	name := nodeText(nameNode, l.source)
	body := node.ChildByFieldName("body")
	if body == nil {
		parent.Decls = append(parent.Decls, syntax.ModDecl{
			Name:       name,
			Visibility: visibilityOf(node, l.source),
			Span:       spanOf(node, l.file),
		})
		return
	}

	child := &syntax.Module{
		Path:   parent.Path.Join(name),
		File:   l.file,
		Source: l.source,
		Inline: true,
	}
	if nameNode != nil {
		keyword := l.source[node.StartByte():nameNode.StartByte()]
		child.Contract = bytes.Contains(keyword, []byte("contract"))
	}
	l.modules = append(l.modules, child)
	l.items(body, child)
}

// global lowers a global or const item. Items whose initializer references
// nothing are dropped.
func (l *lowerer) global(node *sitter.Node) *syntax.Global {
	value := l.expr(node.ChildByFieldName("value"))
	if value == nil {
		return nil
	}
	g := &syntax.Global{
		Visibility: visibilityOf(node, l.source),
		NameSpan:   spanOf(node, l.file),
		Value:      value,
	}
	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		g.Name = nodeText(nameNode, l.source)
		g.NameSpan = spanOf(nameNode, l.file)
	}
	return g
}

// attribute lowers `#[name(args)]`.
func (l *lowerer) attribute(node *sitter.Node) syntax.Attribute {
	text := nodeText(node, l.source)
	inner := strings.TrimSpace(text)
	inner = strings.TrimPrefix(inner, "#")
	inner = strings.TrimSpace(inner)
	inner = strings.TrimSuffix(strings.TrimPrefix(inner, "["), "]")
	inner = strings.TrimSpace(inner)

	name := inner
	if i := strings.IndexAny(name, "(= \t\n"); i >= 0 {
		name = name[:i]
	}
	return syntax.Attribute{Name: name, Text: inner}
}

// function lowers a function_item, including the functions nested in its body.
func (l *lowerer) function(node *sitter.Node) *syntax.Function {
	nameNode := node.ChildByFieldName("name")
	fn := &syntax.Function{
		Name:       nodeText(nameNode, l.source),
		Visibility: visibilityOf(node, l.source),
		Span:       spanOf(node, l.file),
	}
	if nameNode != nil {
		fn.NameSpan = spanOf(nameNode, l.file)
	} else {
		fn.NameSpan = fn.Span
	}

	if params := node.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			param := params.NamedChild(uint(i))
			switch param.Kind() {
			case "parameter":
				fn.Params = append(fn.Params, l.bindings(param.ChildByFieldName("pattern"))...)
			case "self_parameter":
				fn.Params = append(fn.Params, "self")
			}
		}
	}

	prev := l.nested
	l.nested = &fn.Nested
	fn.Body = l.expr(node.ChildByFieldName("body"))
	l.nested = prev

	return fn
}

// impl lowers an impl block. Only methods with bodies are kept.
func (l *lowerer) impl(node *sitter.Node) *syntax.Impl {
	typeNode := node.ChildByFieldName("type")
	impl := &syntax.Impl{
		Type:     pathSegments(typeNode, l.source),
		TypeText: strings.Join(strings.Fields(nodeText(typeNode, l.source)), " "),
		Span:     spanOf(node, l.file),
	}
	if trait := node.ChildByFieldName("trait"); trait != nil {
		impl.TraitText = strings.Join(strings.Fields(nodeText(trait, l.source)), " ")
		impl.Trait = pathSegments(trait, l.source)
		if impl.Trait == nil {
			impl.Trait = syntax.Path{impl.TraitText}
		}
	}
	if impl.Type == nil {
		impl.Type = syntax.Path{impl.TypeText}
	}
	impl.Methods = l.methods(node.ChildByFieldName("body"))
	return impl
}

// trait lowers a trait declaration, keeping its default methods.
func (l *lowerer) trait(node *sitter.Node) *syntax.Trait {
	return &syntax.Trait{
		Name:       nodeText(node.ChildByFieldName("name"), l.source),
		Visibility: visibilityOf(node, l.source),
		Methods:    l.methods(node.ChildByFieldName("body")),
		Span:       spanOf(node, l.file),
	}
}

// methods lowers the function_items of an impl or trait body.
func (l *lowerer) methods(body *sitter.Node) []*syntax.Function {
	if body == nil {
		return nil
	}
	var out []*syntax.Function
	var attrs []syntax.Attribute
	for i := 0; i < int(body.NamedChildCount()); i++ {
		node := body.NamedChild(uint(i))
		switch node.Kind() {
		case "attribute_item":
			attrs = append(attrs, l.attribute(node))
			continue
		case "line_comment", "block_comment":
			continue
		case "function_item":
			fn := l.function(node)
			fn.Attributes = attrs
			out = append(out, fn)
		}
		attrs = nil
	}
	return out
}

// useTree flattens a use tree into one Import per leaf.
func (l *lowerer) useTree(node *sitter.Node, prefix syntax.Path, vis syntax.Visibility, span syntax.Span) []syntax.Import {
	if node == nil {
		return nil
	}

	switch node.Kind() {
	case "self":
		// `use foo::{self}` imports foo itself.
		if len(prefix) == 0 {
			return nil
		}
		return []syntax.Import{{Target: prefix, Alias: prefix.Last(), Visibility: vis, Span: span}}
	case "identifier", "crate", "super", "metavariable", "scoped_identifier":
		target := prefix.Join(pathSegments(node, l.source)...)
		if len(target) == 0 {
			return nil
		}
		return []syntax.Import{{Target: target, Alias: target.Last(), Visibility: vis, Span: span}}
	case "use_as_clause":
		target := prefix.Join(pathSegments(node.ChildByFieldName("path"), l.source)...)
		alias := nodeText(node.ChildByFieldName("alias"), l.source)
		if len(target) == 0 || alias == "" || alias == "_" {
			return nil
		}
		return []syntax.Import{{Target: target, Alias: alias, Visibility: vis, Span: span}}
	case "scoped_use_list":
		base := prefix
		if p := node.ChildByFieldName("path"); p != nil {
			base = prefix.Join(pathSegments(p, l.source)...)
		}
		return l.useTree(node.ChildByFieldName("list"), base, vis, span)
	case "use_list":
		var out []syntax.Import
		for i := 0; i < int(node.NamedChildCount()); i++ {
			out = append(out, l.useTree(node.NamedChild(uint(i)), prefix, vis, span)...)
		}
		return out
	case "use_wildcard":
		target := prefix
		if p := firstNamedChild(node); p != nil {
			target = prefix.Join(pathSegments(p, l.source)...)
		}
		return []syntax.Import{{Target: target, Glob: true, Visibility: vis, Span: span}}
	}
	return nil
}

// bindings returns the names a pattern binds. Paths inside patterns (enum
// variants, struct names) are not bindings.
func (l *lowerer) bindings(node *sitter.Node) []string {
	if node == nil {
		return nil
	}
	switch node.Kind() {
	case "identifier", "shorthand_field_identifier":
		name := nodeText(node, l.source)
		if name == "_" {
			return nil
		}
		return []string{name}
	case "self":
		return []string{"self"}
	case "field_pattern":
		if p := node.ChildByFieldName("pattern"); p != nil {
			return l.bindings(p)
		}
		return l.bindings(node.ChildByFieldName("name"))
	case "scoped_identifier", "type_identifier", "scoped_type_identifier", "generic_type",
		"integer_literal", "string_literal", "char_literal", "boolean_literal",
		"negative_literal", "range_pattern":
		return nil
	}

	var out []string
	eachChild(node, func(field string, child *sitter.Node) {
		if field == "type" {
			return
		}
		out = append(out, l.bindings(child)...)
	})
	return out
}
