package graph

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/noir-analyzer/internal/parser"
	"github.com/mvp-joe/noir-analyzer/internal/syntax"
)

// Test Plan for the call graph pipeline:
// - Collect assigns paths for functions, methods, trait methods and nested functions
// - Collect marks entry points by name, qualified path, attribute and trait dispatch
// - Collect rejects duplicate paths with DuplicateSymbolError / ErrInternalInvariant
// - Trait impls differing only in generic arguments get distinct paths
// - Global initializers and contract functions are roots
// - Resolver follows use aliases, globs, self/super/crate prefixes and re-exports
// - Resolver treats dep:: and std:: as external and records unresolved calls
// - Local bindings shadow functions within their scope only
// - Type::f and Self::f resolve to impl methods, x.f() to every method named f
// - Build collapses repeated references and keeps self-edges
// - Reachable includes roots, follows edges transitively and terminates on cycles
// - An empty package yields an empty table, graph and reachable set

// loadPackage parses one source per module path ("crate", "crate::foo").
func loadPackage(t *testing.T, modules map[string]string) *syntax.Package {
	t.Helper()
	p := parser.New()
	pkg := &syntax.Package{Name: "test", Root: "/pkg"}
	for path, src := range modules {
		file := "/pkg/src/" + strings.ReplaceAll(strings.TrimPrefix(path, "crate"), "::", "/")
		if file == "/pkg/src/" {
			file += "main.nr"
		} else {
			file += ".nr"
		}
		mods, err := p.Parse(file, []byte(src), syntax.ParsePath(path))
		require.NoError(t, err, path)
		pkg.Modules = append(pkg.Modules, mods...)
	}
	return pkg
}

type pipeline struct {
	table *SymbolTable
	graph *CallGraph
}

func build(t *testing.T, modules map[string]string, opts Options) *pipeline {
	t.Helper()
	ctx := context.Background()
	table, err := Collect(ctx, loadPackage(t, modules), opts)
	require.NoError(t, err)
	cg, err := Build(ctx, table, opts)
	require.NoError(t, err)
	return &pipeline{table: table, graph: cg}
}

func (p *pipeline) id(t *testing.T, path string) SymbolID {
	t.Helper()
	sym, ok := p.table.Lookup(syntax.ParsePath(path))
	require.True(t, ok, "missing symbol %s", path)
	return sym.ID
}

func (p *pipeline) edge(t *testing.T, from, to string) bool {
	t.Helper()
	return p.graph.HasEdge(p.id(t, from), p.id(t, to))
}

func symbolPaths(table *SymbolTable) []string {
	var out []string
	for _, s := range table.Symbols() {
		out = append(out, s.Path.String())
	}
	return out
}

// Test: Symbol paths for every kind of function, sorted
func TestCollect_Paths(t *testing.T) {
	t.Parallel()

	p := build(t, map[string]string{"crate": `
fn main() { helper(); }
fn helper() {}
#[test]
fn test_it() {}
pub fn api() {}
trait Greet { fn hi(self) -> Field { 1 } }
struct S {}
impl Greet for S { fn hi(self) -> Field { 2 } }
impl S { fn new() -> S { S {} } }
fn outer() { fn inner() {} inner(); }
`}, Options{})

	assert.Equal(t, []string{
		"crate::<S as Greet>::hi",
		"crate::Greet::hi",
		"crate::S::new",
		"crate::api",
		"crate::helper",
		"crate::main",
		"crate::outer",
		"crate::outer::{inner}",
		"crate::test_it",
	}, symbolPaths(p.table))

	for i, s := range p.table.Symbols() {
		assert.Equal(t, SymbolID(i), s.ID)
	}

	inner, ok := p.table.Lookup(syntax.ParsePath("crate::outer::{inner}"))
	require.True(t, ok)
	assert.Equal(t, KindNested, inner.Kind)
	assert.True(t, inner.HasParent)
	assert.Equal(t, p.id(t, "crate::outer"), inner.Parent)
	assert.True(t, p.edge(t, "crate::outer", "crate::outer::{inner}"))
}

// Test: Entry point classification and root reasons
func TestCollect_EntryPoints(t *testing.T) {
	t.Parallel()

	modules := map[string]string{
		"crate": `
fn main() {}
#[test]
fn check() {}
#[export]
fn exported() {}
fn plain() {}
trait T { fn d(self) {} }
struct S {}
impl T for S { fn d(self) {} }
`,
		"crate::sub": `fn main() {}
fn special() {}
`,
	}

	p := build(t, modules, Options{})
	reasons := map[string]RootReason{}
	for _, s := range p.table.Symbols() {
		reasons[s.Path.String()] = s.RootReason
		assert.Equal(t, s.RootReason != RootNone, s.IsEntryPoint, s.Path.String())
	}
	assert.Equal(t, map[string]RootReason{
		"crate::main":         RootEntryName,
		"crate::check":        RootAttribute,
		"crate::exported":     RootAttribute,
		"crate::plain":        RootNone,
		"crate::T::d":         RootTraitMethod,
		"crate::<S as T>::d":  RootTraitMethod,
		"crate::sub::main":    RootNone,
		"crate::sub::special": RootNone,
	}, reasons)

	custom := build(t, modules, Options{EntryPoints: []string{"plain", "crate::sub::special"}, EntryAttributes: []string{}})
	sym := func(path string) *Symbol {
		s, ok := custom.table.Lookup(syntax.ParsePath(path))
		require.True(t, ok)
		return s
	}
	assert.False(t, sym("crate::main").IsEntryPoint)
	assert.True(t, sym("crate::plain").IsEntryPoint)
	assert.True(t, sym("crate::sub::special").IsEntryPoint)
	assert.False(t, sym("crate::check").IsEntryPoint)
}

// Test: Two functions with the same path violate the table invariant
func TestCollect_DuplicatePath(t *testing.T) {
	t.Parallel()

	pkg := loadPackage(t, map[string]string{"crate": "fn twice() {}\nfn twice() {}\n"})
	_, err := Collect(context.Background(), pkg, Options{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInternalInvariant))
	var dup *DuplicateSymbolError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "crate::twice", dup.Path.String())
	assert.Equal(t, 1, dup.First.Start.Line)
	assert.Equal(t, 2, dup.Second.Start.Line)
}

// Test: Impls of one generic trait at different arguments are distinct symbols
func TestCollect_GenericTraitImpls(t *testing.T) {
	t.Parallel()

	p := build(t, map[string]string{"crate": `struct Foo { x: Field }
impl From<u8> for Foo { fn from(v: u8) -> Foo { Foo { x: v as Field } } }
impl From<u16> for Foo { fn from(v: u16) -> Foo { Foo { x: v as Field } } }
pub fn main() {}
`}, Options{})

	assert.Equal(t, []string{
		"crate::<Foo as From<u16>>::from",
		"crate::<Foo as From<u8>>::from",
		"crate::main",
	}, symbolPaths(p.table))

	for _, path := range []string{"crate::<Foo as From<u8>>::from", "crate::<Foo as From<u16>>::from"} {
		sym, ok := p.table.Lookup(syntax.ParsePath(path))
		require.True(t, ok, path)
		assert.Equal(t, "From", sym.Trait)
		assert.Equal(t, "Foo", sym.TypeName)
		assert.Equal(t, RootTraitMethod, sym.RootReason)
	}
	assert.Len(t, p.table.TypeMethods("Foo", "from"), 2)
}

// Test: Global initializers and contract functions are roots
func TestCollect_GlobalsAndContracts(t *testing.T) {
	t.Parallel()

	p := build(t, map[string]string{"crate": `global TABLE: [Field; 2] = [make(1), make(2)];
fn make(x: Field) -> Field { x }
fn unused() {}

contract Token {
    fn transfer(amount: Field) { check(amount); }

    #[contract_library_method]
    fn check(amount: Field) { assert(amount != 0); }

    #[contract_library_method]
    fn stale() {}
}
`}, Options{})

	reasons := map[string]RootReason{}
	for _, s := range p.table.Symbols() {
		reasons[s.Path.String()] = s.RootReason
	}
	assert.Equal(t, map[string]RootReason{
		"crate::{TABLE}":         RootGlobal,
		"crate::make":            RootNone,
		"crate::unused":          RootNone,
		"crate::Token::transfer": RootContract,
		"crate::Token::check":    RootNone,
		"crate::Token::stale":    RootNone,
	}, reasons)

	global := p.id(t, "crate::{TABLE}")
	assert.Equal(t, KindGlobal, p.table.Symbol(global).Kind)
	assert.True(t, p.edge(t, "crate::{TABLE}", "crate::make"))
	assert.True(t, p.edge(t, "crate::Token::transfer", "crate::Token::check"))

	reachable, err := Reachable(p.graph, Roots(p.table))
	require.NoError(t, err)
	assert.True(t, reachable.Contains(p.id(t, "crate::make")))
	assert.True(t, reachable.Contains(p.id(t, "crate::Token::check")))
	assert.False(t, reachable.Contains(p.id(t, "crate::unused")))
	assert.False(t, reachable.Contains(p.id(t, "crate::Token::stale")))
}

// Test: Collect never mutates its input
func TestCollect_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	pkg := loadPackage(t, map[string]string{
		"crate":      "fn b() {}\nfn a() {}\n",
		"crate::zed": "fn z() {}\n",
	})
	before := make([]string, 0, len(pkg.Modules))
	for _, m := range pkg.Modules {
		before = append(before, m.Path.String())
	}

	_, err := Collect(context.Background(), pkg, Options{})
	require.NoError(t, err)

	after := make([]string, 0, len(pkg.Modules))
	for _, m := range pkg.Modules {
		after = append(after, m.Path.String())
	}
	assert.Equal(t, before, after)
	assert.Equal(t, "b", pkg.Modules[indexOf(before, "crate")].Items.Functions[0].Name)
}

func indexOf(xs []string, x string) int {
	for i, v := range xs {
		if v == x {
			return i
		}
	}
	return -1
}

// Test: Imports, globs, prefixes and re-exports resolve across modules
func TestBuild_ModuleResolution(t *testing.T) {
	t.Parallel()

	p := build(t, map[string]string{
		"crate": `
use utils::hash;
use math::*;
fn main() {
    hash(1);
    square(2);
    crate::utils::inner::deep();
    math::reexported(3);
    dep::std::println(1);
    let f = local_only;
}
fn local_only() {}
`,
		"crate::utils": `pub fn hash(x: Field) -> Field { super::math::square(x) }
`,
		"crate::utils::inner": `pub fn deep() { self::deeper(); }
fn deeper() {}
`,
		"crate::math": `pub use crate::utils::hash as reexported;
pub fn square(x: Field) -> Field { x * x }
`,
	}, Options{})

	assert.True(t, p.edge(t, "crate::main", "crate::utils::hash"))
	assert.True(t, p.edge(t, "crate::main", "crate::math::square"))
	assert.True(t, p.edge(t, "crate::main", "crate::utils::inner::deep"))
	assert.True(t, p.edge(t, "crate::main", "crate::local_only"), "value use is an edge")
	assert.True(t, p.edge(t, "crate::utils::hash", "crate::math::square"))
	assert.True(t, p.edge(t, "crate::utils::inner::deep", "crate::utils::inner::deeper"))

	var external []string
	for _, u := range p.graph.Unresolved() {
		if u.External {
			external = append(external, u.Path.String())
		}
	}
	assert.Equal(t, []string{"dep::std::println"}, external)
}

// Test: Local bindings shadow functions only inside their scope
func TestBuild_Shadowing(t *testing.T) {
	t.Parallel()

	p := build(t, map[string]string{"crate": `
fn helper() {}
fn other() {}
fn shadowed() {
    let helper = 5;
    helper;
    let g = |other| other + 1;
}
fn after_block() {
    { let helper = 1; }
    helper();
}
fn param(other: Field) -> Field { other }
`}, Options{})

	assert.False(t, p.edge(t, "crate::shadowed", "crate::helper"))
	assert.False(t, p.edge(t, "crate::shadowed", "crate::other"))
	assert.True(t, p.edge(t, "crate::after_block", "crate::helper"))
	assert.False(t, p.edge(t, "crate::param", "crate::other"))
}

// Test: Associated functions, Self paths, generic impls and method calls
func TestBuild_Methods(t *testing.T) {
	t.Parallel()

	p := build(t, map[string]string{"crate": `
struct P {}
impl P {
    pub fn make() -> P { P {} }
    fn go(self) { Self::helper(); }
    fn helper() {}
    fn unused_m(self) {}
}
struct W<T> { x: T }
impl<T> W<T> {
    fn new(x: T) -> Self { W { x } }
}
fn main() {
    let p = P::make();
    p.go();
    let w = W::new(1);
}
`}, Options{})

	assert.True(t, p.edge(t, "crate::main", "crate::P::make"))
	assert.True(t, p.edge(t, "crate::main", "crate::P::go"))
	assert.True(t, p.edge(t, "crate::main", "crate::W<T>::new"))
	assert.True(t, p.edge(t, "crate::P::go", "crate::P::helper"))
	assert.Empty(t, p.graph.Callers(p.id(t, "crate::P::unused_m")))
}

// Test: Unresolved calls are recorded without edges
func TestBuild_Unresolved(t *testing.T) {
	t.Parallel()

	p := build(t, map[string]string{"crate": `
fn main() {
    missing();
    value.nothing_named_this();
}
`}, Options{})

	require.Len(t, p.graph.Unresolved(), 2)
	first := p.graph.Unresolved()[0]
	assert.Equal(t, "missing", first.Path.String())
	assert.Equal(t, syntax.RefCall, first.Kind)
	assert.False(t, first.External)
	assert.Equal(t, p.id(t, "crate::main"), first.Caller)
	assert.Equal(t, syntax.RefMethod, p.graph.Unresolved()[1].Kind)
	assert.Equal(t, 0, p.graph.EdgeCount())
}

// Test: Repeated references collapse, recursion gives a self-edge
func TestBuild_EdgeSet(t *testing.T) {
	t.Parallel()

	p := build(t, map[string]string{"crate": `
fn main() { helper(); helper(); let h = helper; }
fn helper() { helper(); }
`}, Options{})

	assert.Equal(t, 2, p.graph.EdgeCount())
	assert.True(t, p.edge(t, "crate::helper", "crate::helper"))
	assert.Equal(t, []SymbolID{p.id(t, "crate::helper")}, p.graph.Callees(p.id(t, "crate::main")))
	assert.Equal(t, []SymbolID{p.id(t, "crate::helper"), p.id(t, "crate::main")}, p.graph.Callers(p.id(t, "crate::helper")))
}

// Test: Roots are public or entry-point symbols only
func TestRoots(t *testing.T) {
	t.Parallel()

	p := build(t, map[string]string{"crate": `
fn main() {}
pub fn api() {}
pub(crate) fn internal() {}
fn private() {}
`}, Options{})

	roots := Roots(p.table)
	assert.Equal(t, []SymbolID{p.id(t, "crate::api"), p.id(t, "crate::main")}, roots.IDs())
	assert.False(t, roots.Contains(p.id(t, "crate::internal")))
}

// Test: Reachability through chains and cycles
func TestReachable_Cycles(t *testing.T) {
	t.Parallel()

	p := build(t, map[string]string{"crate": `
fn main() { a(); }
fn a() { b(); }
fn b() { a(); c(); }
fn c() { c(); }
fn x() { y(); }
fn y() { z(); }
fn z() { x(); }
`}, Options{})

	reach, err := Reachable(p.graph, Roots(p.table))
	require.NoError(t, err)

	for _, path := range []string{"crate::main", "crate::a", "crate::b", "crate::c"} {
		assert.True(t, reach.Contains(p.id(t, path)), path)
	}
	for _, path := range []string{"crate::x", "crate::y", "crate::z"} {
		assert.False(t, reach.Contains(p.id(t, path)), path)
	}
	assert.Equal(t, 4, reach.Len())
}

// Test: Adding an edge from a root only adds the newly reached symbols
func TestReachable_Monotonic(t *testing.T) {
	t.Parallel()

	p := build(t, map[string]string{"crate": `
fn main() {}
fn lonely() { friend(); }
fn friend() {}
fn unrelated() {}
`}, Options{})
	roots := Roots(p.table)

	before, err := Reachable(p.graph, roots)
	require.NoError(t, err)
	assert.False(t, before.Contains(p.id(t, "crate::lonely")))

	extended, err := p.graph.WithEdge(p.id(t, "crate::main"), p.id(t, "crate::lonely"))
	require.NoError(t, err)
	after, err := Reachable(extended, roots)
	require.NoError(t, err)

	assert.True(t, after.Contains(p.id(t, "crate::lonely")))
	assert.True(t, after.Contains(p.id(t, "crate::friend")))
	assert.False(t, after.Contains(p.id(t, "crate::unrelated")))
	assert.Equal(t, before.Len()+2, after.Len())
	assert.Equal(t, p.graph.EdgeCount()+1, extended.EdgeCount())
	assert.False(t, p.graph.HasEdge(p.id(t, "crate::main"), p.id(t, "crate::lonely")), "original graph unchanged")
}

// Test: Empty package
func TestPipeline_EmptyPackage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	table, err := Collect(ctx, &syntax.Package{Name: "empty"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())

	cg, err := Build(ctx, table, Options{})
	require.NoError(t, err)
	reach, err := Reachable(cg, Roots(table))
	require.NoError(t, err)
	assert.Equal(t, 0, reach.Len())
}
