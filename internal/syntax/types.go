// Package syntax defines the parsed Noir tree consumed by the analysis core.
//
// The tree is deliberately small: it keeps the items the linter reasons about
// (functions, impls, use declarations, module declarations) and lowers function
// bodies into an expression tree that only distinguishes the constructs that can
// name another function. Everything is immutable once produced by the parser.
package syntax

import (
	"fmt"
	"strings"
)

// PathSeparator joins path segments ("crate::foo::bar").
const PathSeparator = "::"

// CrateRoot is the first segment of every module path.
const CrateRoot = "crate"

// Visibility is the declared visibility modifier of an item.
type Visibility int

const (
	// Private items carry no modifier and are visible only in their module.
	Private Visibility = iota
	// CrateVisible items are marked pub(crate).
	CrateVisible
	// Public items are marked pub.
	Public
)

// String returns the modifier as it is written in source ("" for private).
func (v Visibility) String() string {
	switch v {
	case CrateVisible:
		return "pub(crate)"
	case Public:
		return "pub"
	default:
		return "private"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (v Visibility) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// Position is a 1-based line and column (byte index within the line).
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Span locates a range of source text.
type Span struct {
	File  string   `json:"file"`
	Start Position `json:"start"`
	End   Position `json:"end"`
	// StartByte and EndByte are offsets into the file contents.
	StartByte int `json:"-"`
	EndByte   int `json:"-"`
}

// String formats the span start as file:line:col.
func (s Span) String() string {
	return fmt.Sprintf("%s:%d:%d", s.File, s.Start.Line, s.Start.Column)
}

// Path is a sequence of path segments.
type Path []string

// String joins the segments with "::".
func (p Path) String() string {
	return strings.Join(p, PathSeparator)
}

// Join returns a new path with the given segments appended.
func (p Path) Join(segments ...string) Path {
	out := make(Path, 0, len(p)+len(segments))
	out = append(out, p...)
	return append(out, segments...)
}

// Parent returns the path without its last segment.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1]
}

// Last returns the final segment.
func (p Path) Last() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Equal reports whether two paths have identical segments.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// ParsePath splits "a::b::c" into its segments.
func ParsePath(s string) Path {
	if s == "" {
		return nil
	}
	return strings.Split(s, PathSeparator)
}

// Package is one Nargo package: a crate made of modules.
type Package struct {
	Name    string
	Root    string // package directory
	Modules []*Module
}

// Module is the parsed content of one module. File modules and inline
// `mod name { ... }` blocks are both modules; inline modules share the file
// of their parent.
type Module struct {
	Path     Path   // e.g. crate::foo::bar
	File     string // absolute path of the source file
	Source   []byte // file contents
	Inline   bool
	Contract bool // a `contract Name { ... }` block
	Items    Items
	Decls    []ModDecl // `mod name;` declarations that live in other files
	Imports  []Import
	Globals  []*Global // globals and consts whose initializer references a name

}

// Items groups the function-bearing items of a module.
type Items struct {
	Functions []*Function
	Impls     []*Impl
	Traits    []*Trait
}

// ModDecl is an out-of-line `mod name;` declaration.
type ModDecl struct {
	Name       string
	Visibility Visibility
	Span       Span
}

// Import is one leaf of a `use` tree. Alias is the local name it binds; a glob
// import (`use foo::*`) has Glob set and no alias.
type Import struct {
	Target     Path
	Alias      string
	Glob       bool
	Visibility Visibility
	Span       Span
}

// Attribute is an outer attribute such as #[test] or #[test(should_fail)].
type Attribute struct {
	Name string
	Text string
}

// Function is a function item with a body.
type Function struct {
	Name       string
	Visibility Visibility
	NameSpan   Span // span of the name token
	Span       Span // span of the whole item
	Attributes []Attribute
	Params     []string // names bound by parameter patterns
	Body       *Expr
	// Nested holds function items declared inside the body.
	Nested []*Function
}

// Global is a module-level `global` or `comptime global` item.
type Global struct {
	Name       string
	Visibility Visibility
	NameSpan   Span
	Value      *Expr
}

// HasAttribute reports whether the function carries the named attribute.
func (f *Function) HasAttribute(name string) bool {
	for _, a := range f.Attributes {
		if a.Name == name {
			return true
		}
	}
	return false
}

// Impl is an `impl Type { ... }` or `impl Trait for Type { ... }` block.
type Impl struct {
	Type      Path   // implemented type without generic arguments
	TypeText  string // type as written, generics included
	Trait     Path   // set for trait impls
	TraitText string // trait as written, generics included
	Methods   []*Function
	Span      Span
}

// Trait is a trait declaration; only default methods (those with a body) are kept.
type Trait struct {
	Name       string
	Visibility Visibility
	Methods    []*Function
	Span       Span
}
