// Package graph builds the call graph of a Noir package and computes which
// functions are reachable from its roots.
//
// The pipeline is Collect (symbol table) -> Build (call graph) -> Roots ->
// Reachable. Every stage consumes the immutable output of the previous one.
package graph

import (
	"github.com/mvp-joe/noir-analyzer/internal/syntax"
)

// SymbolID is a dense index into a SymbolTable. IDs follow the sorted order of
// symbol paths, so iterating IDs in ascending order is deterministic.
type SymbolID uint32

// SymbolKind says where a function is declared.
type SymbolKind int

const (
	// KindFunction is a free function of a module.
	KindFunction SymbolKind = iota
	// KindMethod is a method of an inherent impl.
	KindMethod
	// KindTraitImplMethod is a method of a trait impl.
	KindTraitImplMethod
	// KindTraitDefault is a default method declared in a trait.
	KindTraitDefault
	// KindNested is a function declared inside another function's body.
	KindNested
	// KindGlobal is the initializer of a global, walked like a function body.
	KindGlobal
)

func (k SymbolKind) String() string {
	switch k {
	case KindMethod:
		return "method"
	case KindTraitImplMethod:
		return "trait-impl-method"
	case KindTraitDefault:
		return "trait-default-method"
	case KindNested:
		return "nested-function"
	case KindGlobal:
		return "global"
	default:
		return "function"
	}
}

// RootReason records why a symbol is an entry point.
type RootReason string

const (
	RootNone RootReason = ""
	// RootEntryName is a function matching a configured entry-point name.
	RootEntryName RootReason = "entry-point"
	// RootAttribute is a function carrying an entry attribute such as #[test].
	RootAttribute RootReason = "attribute"
	// RootTraitMethod is a trait method, which is dispatched through its trait
	// rather than by a resolvable name.
	RootTraitMethod RootReason = "trait-method"
	// RootContract is a function of a contract block, callable from outside
	// unless marked #[contract_library_method].
	RootContract RootReason = "contract"
	// RootGlobal is a global initializer; it is evaluated whether or not the
	// global is read.
	RootGlobal RootReason = "global"
)

// Symbol is one function definition, or the initializer of a global.
type Symbol struct {
	ID         SymbolID
	Path       syntax.Path
	Name       string
	Kind       SymbolKind
	Visibility syntax.Visibility
	// Span is the definition span: the function's name token.
	Span         syntax.Span
	IsEntryPoint bool
	RootReason   RootReason

	// Module is the path of the declaring module.
	Module syntax.Path
	// TypeName is the implemented type's name for impl methods ("Point" for
	// `impl<T> Point<T>`), or the trait name for trait default methods.
	TypeName string
	// Trait is the implemented trait's name for trait impl methods.
	Trait string
	// Parent is the enclosing function of a nested function.
	Parent    SymbolID
	HasParent bool

	fn *syntax.Function
}

// Function returns the parsed function the symbol was collected from.
func (s *Symbol) Function() *syntax.Function {
	return s.fn
}

// String returns the symbol's fully-qualified path.
func (s *Symbol) String() string {
	return s.Path.String()
}

// UnresolvedReference is a call or method call whose target could not be
// resolved to a symbol of the package. It produces no edge.
type UnresolvedReference struct {
	Caller SymbolID
	Path   syntax.Path
	Kind   syntax.ReferenceKind
	Span   syntax.Span
	// External is set when the path names a dependency (dep::, std::).
	External bool
}
