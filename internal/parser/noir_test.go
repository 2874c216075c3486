package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/noir-analyzer/internal/syntax"
)

// Test Plan for Parser:
// - Extracts top-level functions with visibility, name positions and attributes
// - Accepts Noir-only syntax (unconstrained, pub parameters, globals, numeric generics,
//   sized strings, closure environments, contracts, quoted code)
// - Lowers global initializers that reference names
// - Keeps positions identical to the original file after masking
// - Reports syntax errors as *ParseError wrapping ErrSyntax
// - Flattens use trees into aliases, renames and globs
// - Lowers impls, trait impls and trait default methods
// - Lowers inline modules and records out-of-line mod declarations
// - Lowers bodies into calls, method calls, value uses and local bindings
// - Collects functions nested in bodies

func parse(t *testing.T, src string) []*syntax.Module {
	t.Helper()
	mods, err := New().Parse("main.nr", []byte(src), syntax.Path{syntax.CrateRoot})
	require.NoError(t, err)
	require.NotEmpty(t, mods)
	return mods
}

func functionNamed(fns []*syntax.Function, name string) *syntax.Function {
	for _, f := range fns {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func refStrings(body *syntax.Expr) []string {
	var out []string
	for _, r := range syntax.References(body) {
		out = append(out, r.Kind.String()+":"+r.Path.String())
	}
	return out
}

// Test: Top-level functions carry visibility, name span and attributes
func TestParser_Functions(t *testing.T) {
	t.Parallel()

	src := `fn main() {}

pub fn public_fn() {}

pub(crate) fn crate_fn() {}

#[test]
fn test_something() {}
`
	mods := parse(t, src)
	require.Len(t, mods, 1)
	fns := mods[0].Items.Functions
	require.Len(t, fns, 4)

	main := functionNamed(fns, "main")
	require.NotNil(t, main)
	assert.Equal(t, syntax.Private, main.Visibility)
	assert.Equal(t, syntax.Position{Line: 1, Column: 4}, main.NameSpan.Start)

	assert.Equal(t, syntax.Public, functionNamed(fns, "public_fn").Visibility)

	crateFn := functionNamed(fns, "crate_fn")
	assert.Equal(t, syntax.CrateVisible, crateFn.Visibility)
	assert.Equal(t, syntax.Position{Line: 5, Column: 15}, crateFn.NameSpan.Start)

	testFn := functionNamed(fns, "test_something")
	require.NotNil(t, testFn)
	assert.True(t, testFn.HasAttribute("test"))
	assert.Empty(t, functionNamed(fns, "crate_fn").Attributes)
}

// Test: Noir-specific syntax parses and positions are preserved
func TestParser_NoirDialect(t *testing.T) {
	t.Parallel()

	src := `global N: u32 = 3;
global M = 2;
comptime global C: Field = 1;

unconstrained fn helper(x: Field) -> Field {
    x
}

fn main(x: Field, y: pub Field) -> pub Field {
    let s = f"{x}";
    assert(x != y);
    helper(x)
}

fn sum<let L: u32>(xs: [Field; L]) -> Field {
    let mut acc = 0;
    for i in 0..L {
        acc += xs[i];
    }
    acc
}
`
	mods := parse(t, src)
	fns := mods[0].Items.Functions
	require.Len(t, fns, 3)

	helper := functionNamed(fns, "helper")
	require.NotNil(t, helper)
	assert.Equal(t, syntax.Position{Line: 5, Column: 18}, helper.NameSpan.Start)

	main := functionNamed(fns, "main")
	require.NotNil(t, main)
	assert.Equal(t, []string{"x", "y"}, main.Params)
	assert.Contains(t, refStrings(main.Body), "call:helper")
}

// Test: Masking never changes the length or line structure of the source
func TestMaskDialect_PreservesLayout(t *testing.T) {
	t.Parallel()

	src := []byte("unconstrained fn f(x: pub Field) -> return_data Field { x }\nglobal A = [1, 2];\nglobal B: u8 = 1;\n")
	masked := maskDialect(src)

	require.Len(t, masked, len(src))
	assert.Equal(t, "              fn f(x:     Field) ->             Field { x }", string(masked[:59]))
	assert.Contains(t, string(masked), "static A:T=[1, 2];")
	assert.Contains(t, string(masked), "static B: u8 = 1;")
	assert.NotContains(t, string(masked), "global")
	assert.Equal(t, 3, countByte(masked, '\n'))
}

func countByte(b []byte, c byte) int {
	n := 0
	for _, x := range b {
		if x == c {
			n++
		}
	}
	return n
}

// Test: Everyday Noir constructs the Rust grammar lacks still parse
func TestParser_DialectConstructs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		fn   string
		refs []string
	}{
		{
			name: "sized string type",
			src:  "pub fn main() { let s: str<5> = \"hello\"; greet(s); }\n",
			fn:   "main",
			refs: []string{"call:greet", "value:s"},
		},
		{
			name: "closure environment type",
			src:  "fn lam<Env>(f: fn[Env](Field) -> Field) -> Field { f(1) }\n",
			fn:   "lam",
			refs: []string{"call:f"},
		},
		{
			name: "quoted code",
			src:  "comptime fn m() -> Quoted { quote { $x + helper() } }\n",
			fn:   "m",
			refs: nil,
		},
		{
			name: "quoted code with nested braces",
			src:  "comptime fn m() -> Quoted { let q = quote { fn g() { h() } }; q }\n",
			fn:   "m",
			refs: []string{"value:q"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			masked := maskDialect([]byte(tt.src))
			require.Len(t, masked, len(tt.src))

			mods := parse(t, tt.src)
			fn := functionNamed(mods[0].Items.Functions, tt.fn)
			require.NotNil(t, fn)
			assert.Equal(t, tt.refs, refStrings(fn.Body))
		})
	}
}

// Test: Contract blocks lower into a contract module
func TestParser_Contract(t *testing.T) {
	t.Parallel()

	src := `use dep::aztec::macros::aztec;

contract Token {
    fn transfer(amount: Field) { check(amount); }

    #[contract_library_method]
    fn check(amount: Field) { assert(amount != 0); }
}
`
	mods := parse(t, src)
	require.Len(t, mods, 2)
	assert.False(t, mods[0].Contract)

	token := mods[1]
	assert.Equal(t, "crate::Token", token.Path.String())
	assert.True(t, token.Contract)
	assert.True(t, token.Inline)
	require.Len(t, token.Items.Functions, 2)

	check := functionNamed(token.Items.Functions, "check")
	require.NotNil(t, check)
	assert.True(t, check.HasAttribute("contract_library_method"))
	assert.Equal(t, syntax.Position{Line: 7, Column: 8}, check.NameSpan.Start)
}

// Test: Global initializers keep their references
func TestParser_Globals(t *testing.T) {
	t.Parallel()

	src := `global TABLE: [Field; 2] = [make(1), make(2)];
pub global ALIAS = build();
global PLAIN: u32 = 3;

fn make(x: Field) -> Field { x }
fn build() -> Field { 1 }
`
	mods := parse(t, src)
	globals := mods[0].Globals
	require.Len(t, globals, 2, "globals referencing nothing are dropped")

	assert.Equal(t, "TABLE", globals[0].Name)
	assert.Equal(t, syntax.Position{Line: 1, Column: 8}, globals[0].NameSpan.Start)
	assert.Equal(t, []string{"call:make", "call:make"}, refStrings(globals[0].Value))

	assert.Equal(t, "ALIAS", globals[1].Name)
	assert.Equal(t, syntax.Public, globals[1].Visibility)
	assert.Equal(t, []string{"call:build"}, refStrings(globals[1].Value))
	assert.Len(t, mods[0].Items.Functions, 2)
}

// Test: Syntax errors produce a positioned ParseError
func TestParser_SyntaxError(t *testing.T) {
	t.Parallel()

	src := "fn ok() {}\n\nfn broken( {\n"
	mods, err := New().Parse("bad.nr", []byte(src), syntax.Path{syntax.CrateRoot})

	require.Error(t, err)
	assert.Nil(t, mods)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "bad.nr", perr.File)
	assert.True(t, errors.Is(err, ErrSyntax))
	assert.GreaterOrEqual(t, perr.Line, 3)
}

// Test: Use trees become one import per leaf
func TestParser_UseDeclarations(t *testing.T) {
	t.Parallel()

	src := `use crate::utils::hash;
use foo::{bar, baz as qux, nested::{deep}};
pub use crate::math::*;
use dep::std;
`
	mods := parse(t, src)
	imports := mods[0].Imports
	require.Len(t, imports, 6)

	type row struct {
		target string
		alias  string
		glob   bool
	}
	var got []row
	for _, imp := range imports {
		got = append(got, row{imp.Target.String(), imp.Alias, imp.Glob})
	}
	assert.Equal(t, []row{
		{"crate::utils::hash", "hash", false},
		{"foo::bar", "bar", false},
		{"foo::baz", "qux", false},
		{"foo::nested::deep", "deep", false},
		{"crate::math", "", true},
		{"dep::std", "std", false},
	}, got)
	assert.Equal(t, syntax.Public, imports[4].Visibility)
	assert.Equal(t, syntax.Private, imports[0].Visibility)
}

// Test: Impl blocks, trait impls and trait default methods
func TestParser_ImplsAndTraits(t *testing.T) {
	t.Parallel()

	src := `struct Point<T> { x: T }

impl<T> Point<T> {
    pub fn new(x: T) -> Self { Point { x } }
    fn secret(self) -> T { self.x }
}

trait Shape {
    fn area(self) -> Field;
    fn describe(self) -> Field { self.area() }
}

impl Shape for Point<Field> {
    fn area(self) -> Field { self.x }
}
`
	mods := parse(t, src)
	items := mods[0].Items
	require.Len(t, items.Impls, 2)

	inherent := items.Impls[0]
	assert.Equal(t, syntax.Path{"Point"}, inherent.Type)
	assert.Equal(t, "Point<T>", inherent.TypeText)
	assert.Nil(t, inherent.Trait)
	require.Len(t, inherent.Methods, 2)
	assert.Equal(t, syntax.Public, inherent.Methods[0].Visibility)
	assert.Equal(t, []string{"self"}, inherent.Methods[1].Params)

	traitImpl := items.Impls[1]
	assert.Equal(t, syntax.Path{"Shape"}, traitImpl.Trait)
	assert.Equal(t, "Point<Field>", traitImpl.TypeText)
	assert.Equal(t, "Shape", traitImpl.TraitText)

	require.Len(t, items.Traits, 1)
	trait := items.Traits[0]
	assert.Equal(t, "Shape", trait.Name)
	require.Len(t, trait.Methods, 1, "only methods with a body are kept")
	assert.Equal(t, "describe", trait.Methods[0].Name)
	assert.Equal(t, []string{"method:area", "value:self"}, refStrings(trait.Methods[0].Body))
}

// Test: Inline modules are separate modules, out-of-line ones are declarations
func TestParser_Modules(t *testing.T) {
	t.Parallel()

	src := `mod utils;
pub(crate) mod math;

mod inner {
    pub fn f() {}
    mod deeper {
        fn g() {}
    }
}
`
	mods := parse(t, src)
	require.Len(t, mods, 3)

	root := mods[0]
	require.Len(t, root.Decls, 2)
	assert.Equal(t, "utils", root.Decls[0].Name)
	assert.Equal(t, "math", root.Decls[1].Name)
	assert.Equal(t, syntax.CrateVisible, root.Decls[1].Visibility)

	assert.Equal(t, "crate::inner", mods[1].Path.String())
	assert.True(t, mods[1].Inline)
	require.Len(t, mods[1].Items.Functions, 1)
	assert.Equal(t, "crate::inner::deeper", mods[2].Path.String())
	assert.Equal(t, "g", mods[2].Items.Functions[0].Name)
}

// Test: Bodies lower into the references name resolution needs
func TestParser_BodyReferences(t *testing.T) {
	t.Parallel()

	src := `fn main(x: Field) {
    let f = helper;
    f(1);
    other::g();
    x.method();
    let closure = |y| apply(y);
}
`
	mods := parse(t, src)
	main := mods[0].Items.Functions[0]

	assert.Equal(t, []string{
		"value:helper",
		"call:f",
		"call:other::g",
		"method:method",
		"value:x",
		"call:apply",
		"value:y",
	}, refStrings(main.Body))
}

// Test: Patterns bind names without producing references
func TestParser_PatternBindings(t *testing.T) {
	t.Parallel()

	src := `fn main(pair: (Field, Field)) {
    let (a, mut b) = pair;
    let Wrapper { inner, value: v } = make();
    match a {
        Some(z) => use_it(z),
        _ => {}
    }
}
`
	mods := parse(t, src)
	main := mods[0].Items.Functions[0]

	var lets []*syntax.Expr
	syntax.Walk(main.Body, func(e *syntax.Expr) bool {
		if e.Kind == syntax.ExprLet {
			lets = append(lets, e)
		}
		return true
	})
	require.Len(t, lets, 2)
	assert.Equal(t, []string{"a", "b"}, lets[0].Bindings)
	assert.Equal(t, []string{"inner", "v"}, lets[1].Bindings)

	refs := refStrings(main.Body)
	assert.Contains(t, refs, "call:make")
	assert.Contains(t, refs, "call:use_it")
	assert.NotContains(t, refs, "value:Wrapper")
	assert.NotContains(t, refs, "value:inner")
}

// Test: Functions declared inside bodies are collected as nested functions
func TestParser_NestedFunctions(t *testing.T) {
	t.Parallel()

	src := `fn outer() -> Field {
    fn inner() -> Field { 1 }
    inner()
}
`
	mods := parse(t, src)
	outer := mods[0].Items.Functions[0]
	require.Len(t, outer.Nested, 1)
	assert.Equal(t, "inner", outer.Nested[0].Name)
	assert.Equal(t, []string{"call:inner"}, refStrings(outer.Body))
	assert.Len(t, mods[0].AllFunctions(), 2)
}
