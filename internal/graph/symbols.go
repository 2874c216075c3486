package graph

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mvp-joe/noir-analyzer/internal/syntax"
)

// DefaultEntryPoints are the entry-point names used when none are configured.
var DefaultEntryPoints = []string{"main"}

// DefaultEntryAttributes mark functions invoked by the toolchain rather than
// by other code.
var DefaultEntryAttributes = []string{"test", "export", "fold", "recursive"}

// Options configures symbol collection and call graph construction.
type Options struct {
	// EntryPoints are function names (matched in the crate root module) or
	// fully-qualified paths ("crate::m::f") of entry functions.
	EntryPoints []string
	// EntryAttributes are attribute names that make a function an entry point.
	EntryAttributes []string
	// Workers bounds per-module parallelism. Zero means GOMAXPROCS.
	Workers int
	Logger  *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.EntryPoints == nil {
		o.EntryPoints = DefaultEntryPoints
	}
	if o.EntryAttributes == nil {
		o.EntryAttributes = DefaultEntryAttributes
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// SymbolTable maps fully-qualified paths to function symbols. It is immutable
// once returned by Collect.
type SymbolTable struct {
	pkg     *syntax.Package
	symbols []*Symbol
	byPath  map[string]SymbolID
	modules map[string]*syntax.Module

	typeMethods map[string][]SymbolID // "Type::name" -> methods
	methodNames map[string][]SymbolID // "name" -> methods of any type
	nested      map[SymbolID]map[string]SymbolID
}

// Len returns the number of symbols.
func (t *SymbolTable) Len() int {
	return len(t.symbols)
}

// Symbols returns all symbols ordered by path.
func (t *SymbolTable) Symbols() []*Symbol {
	return t.symbols
}

// Symbol returns the symbol with the given id.
func (t *SymbolTable) Symbol(id SymbolID) *Symbol {
	return t.symbols[id]
}

// Package returns the package the table was collected from.
func (t *SymbolTable) Package() *syntax.Package {
	return t.pkg
}

// Lookup finds a symbol by its fully-qualified path.
func (t *SymbolTable) Lookup(path syntax.Path) (*Symbol, bool) {
	id, ok := t.byPath[path.String()]
	if !ok {
		return nil, false
	}
	return t.symbols[id], true
}

// Module returns the module with the given path.
func (t *SymbolTable) Module(path syntax.Path) (*syntax.Module, bool) {
	m, ok := t.modules[path.String()]
	return m, ok
}

// TypeMethods returns the methods named name of every impl of typeName (and
// the default methods of a trait named typeName).
func (t *SymbolTable) TypeMethods(typeName, name string) []SymbolID {
	return t.typeMethods[typeName+syntax.PathSeparator+name]
}

// MethodsNamed returns every method called name, whatever its type.
func (t *SymbolTable) MethodsNamed(name string) []SymbolID {
	return t.methodNames[name]
}

// NestedFunction returns the function called name declared in parent's body.
func (t *SymbolTable) NestedFunction(parent SymbolID, name string) (SymbolID, bool) {
	id, ok := t.nested[parent][name]
	return id, ok
}

// collected is a symbol before ids are assigned.
type collected struct {
	sym    *Symbol
	parent *collected
}

// Collect builds the symbol table of pkg. Modules are collected in parallel and
// merged in file-path order; two functions with the same path produce a
// *DuplicateSymbolError.
func Collect(ctx context.Context, pkg *syntax.Package, opts Options) (*SymbolTable, error) {
	opts = opts.withDefaults()

	modules := make([]*syntax.Module, len(pkg.Modules))
	copy(modules, pkg.Modules)
	sort.SliceStable(modules, func(i, j int) bool {
		if modules[i].File != modules[j].File {
			return modules[i].File < modules[j].File
		}
		return modules[i].Path.String() < modules[j].Path.String()
	})

	c := newClassifier(opts)
	parts := make([][]*collected, len(modules))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, mod := range modules {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			parts[i] = c.collectModule(mod)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	table := &SymbolTable{
		pkg:         pkg,
		byPath:      make(map[string]SymbolID),
		modules:     make(map[string]*syntax.Module, len(modules)),
		typeMethods: make(map[string][]SymbolID),
		methodNames: make(map[string][]SymbolID),
		nested:      make(map[SymbolID]map[string]SymbolID),
	}
	for _, mod := range modules {
		table.modules[mod.Path.String()] = mod
	}

	// Single-writer merge in file order.
	seen := make(map[string]*Symbol)
	var all []*collected
	for _, part := range parts {
		for _, cs := range part {
			key := cs.sym.Path.String()
			if prev, dup := seen[key]; dup {
				return nil, &DuplicateSymbolError{Path: cs.sym.Path, First: prev.Span, Second: cs.sym.Span}
			}
			seen[key] = cs.sym
			all = append(all, cs)
		}
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].sym.Path.String() < all[j].sym.Path.String()
	})

	ids := make(map[*collected]SymbolID, len(all))
	table.symbols = make([]*Symbol, len(all))
	for i, cs := range all {
		id := SymbolID(i)
		cs.sym.ID = id
		ids[cs] = id
		table.symbols[i] = cs.sym
		table.byPath[cs.sym.Path.String()] = id
	}

	for _, cs := range all {
		s := cs.sym
		switch s.Kind {
		case KindMethod, KindTraitImplMethod, KindTraitDefault:
			key := s.TypeName + syntax.PathSeparator + s.Name
			table.typeMethods[key] = append(table.typeMethods[key], s.ID)
			table.methodNames[s.Name] = append(table.methodNames[s.Name], s.ID)
		case KindNested:
			parent := ids[cs.parent]
			s.Parent = parent
			s.HasParent = true
			if table.nested[parent] == nil {
				table.nested[parent] = make(map[string]SymbolID)
			}
			table.nested[parent][s.Name] = s.ID
		}
	}

	// Trait impl methods are also reachable as Trait::method(..).
	for _, s := range table.symbols {
		if s.Kind != KindTraitImplMethod {
			continue
		}
		if s.Trait != "" {
			key := s.Trait + syntax.PathSeparator + s.Name
			table.typeMethods[key] = append(table.typeMethods[key], s.ID)
		}
	}

	opts.Logger.Debug("symbols collected",
		zap.String("package", pkg.Name),
		zap.Int("modules", len(modules)),
		zap.Int("symbols", len(table.symbols)))

	return table, nil
}

// classifier decides entry-point status.
type classifier struct {
	names      map[string]bool
	qualified  map[string]bool
	attributes map[string]bool
}

func newClassifier(opts Options) *classifier {
	c := &classifier{
		names:      make(map[string]bool),
		qualified:  make(map[string]bool),
		attributes: make(map[string]bool),
	}
	for _, e := range opts.EntryPoints {
		if strings.Contains(e, syntax.PathSeparator) {
			c.qualified[e] = true
		} else {
			c.names[e] = true
		}
	}
	for _, a := range opts.EntryAttributes {
		c.attributes[a] = true
	}
	return c
}

// contractLibraryAttribute marks a contract function as an internal helper.
const contractLibraryAttribute = "contract_library_method"

func (c *classifier) classify(s *Symbol, fn *syntax.Function, inContract bool) {
	switch {
	case s.Kind == KindGlobal:
		s.RootReason = RootGlobal
	case c.qualified[s.Path.String()],
		s.Kind == KindFunction && len(s.Module) == 1 && c.names[s.Name]:
		s.RootReason = RootEntryName
	case c.hasEntryAttribute(fn):
		s.RootReason = RootAttribute
	case s.Kind == KindTraitImplMethod, s.Kind == KindTraitDefault:
		s.RootReason = RootTraitMethod
	case inContract && s.Kind == KindFunction && !fn.HasAttribute(contractLibraryAttribute):
		s.RootReason = RootContract
	}
	s.IsEntryPoint = s.RootReason != RootNone
}

func (c *classifier) hasEntryAttribute(fn *syntax.Function) bool {
	for _, a := range fn.Attributes {
		if c.attributes[a.Name] {
			return true
		}
	}
	return false
}

// collectModule returns the symbols declared in one module. It only reads mod.
func (c *classifier) collectModule(mod *syntax.Module) []*collected {
	var out []*collected

	var add func(fn *syntax.Function, path syntax.Path, kind SymbolKind, typeName, trait string, parent *collected)
	add = func(fn *syntax.Function, path syntax.Path, kind SymbolKind, typeName, trait string, parent *collected) {
		s := &Symbol{
			Path:       path,
			Name:       fn.Name,
			Kind:       kind,
			Visibility: fn.Visibility,
			Span:       fn.NameSpan,
			Module:     mod.Path,
			TypeName:   typeName,
			Trait:      trait,
			fn:         fn,
		}
		c.classify(s, fn, mod.Contract)
		cs := &collected{sym: s, parent: parent}
		out = append(out, cs)
		for _, inner := range fn.Nested {
			add(inner, path.Join("{"+inner.Name+"}"), KindNested, "", "", cs)
		}
	}

	for _, fn := range mod.Items.Functions {
		add(fn, mod.Path.Join(fn.Name), KindFunction, "", "", nil)
	}
	for _, impl := range mod.Items.Impls {
		segment := impl.TypeText
		kind := KindMethod
		if impl.Trait != nil {
			trait := impl.TraitText
			if trait == "" {
				trait = impl.Trait.String()
			}
			segment = fmt.Sprintf("<%s as %s>", impl.TypeText, trait)
			kind = KindTraitImplMethod
		}
		for _, m := range impl.Methods {
			add(m, mod.Path.Join(segment, m.Name), kind, impl.Type.Last(), impl.Trait.Last(), nil)
		}
	}
	for _, g := range mod.Globals {
		initFn := &syntax.Function{Name: g.Name, Visibility: g.Visibility, NameSpan: g.NameSpan, Span: g.NameSpan, Body: g.Value}
		add(initFn, mod.Path.Join("{"+g.Name+"}"), KindGlobal, "", "", nil)
	}
	for _, trait := range mod.Items.Traits {
		for _, m := range trait.Methods {
			add(m, mod.Path.Join(trait.Name, m.Name), KindTraitDefault, trait.Name, "", nil)
		}
	}
	return out
}
