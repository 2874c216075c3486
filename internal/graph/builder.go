package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dominikbraun/graph"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mvp-joe/noir-analyzer/internal/syntax"
)

// CallGraph is the directed graph of name references between the functions of
// one package. Parallel edges collapse; self-edges are kept.
type CallGraph struct {
	table      *SymbolTable
	g          graph.Graph[SymbolID, SymbolID]
	edges      int
	unresolved []UnresolvedReference
}

// Table returns the symbol table the graph was built from.
func (cg *CallGraph) Table() *SymbolTable {
	return cg.table
}

// EdgeCount returns the number of distinct edges.
func (cg *CallGraph) EdgeCount() int {
	return cg.edges
}

// Unresolved returns the references that produced no edge, in caller order.
func (cg *CallGraph) Unresolved() []UnresolvedReference {
	return cg.unresolved
}

// HasEdge reports whether from references to.
func (cg *CallGraph) HasEdge(from, to SymbolID) bool {
	_, err := cg.g.Edge(from, to)
	return err == nil
}

// Callees returns the symbols referenced by id, in ascending id order.
func (cg *CallGraph) Callees(id SymbolID) []SymbolID {
	adj, err := cg.g.AdjacencyMap()
	if err != nil {
		return nil
	}
	return sortedKeys(adj[id])
}

// Callers returns the symbols referencing id, in ascending id order.
func (cg *CallGraph) Callers(id SymbolID) []SymbolID {
	pred, err := cg.g.PredecessorMap()
	if err != nil {
		return nil
	}
	return sortedKeys(pred[id])
}

// WithEdge returns a copy of the graph with one more edge.
func (cg *CallGraph) WithEdge(from, to SymbolID) (*CallGraph, error) {
	clone, err := cg.g.Clone()
	if err != nil {
		return nil, fmt.Errorf("failed to clone call graph: %w", err)
	}
	edges := cg.edges
	if err := clone.AddEdge(from, to); err != nil {
		if !errors.Is(err, graph.ErrEdgeAlreadyExists) {
			return nil, fmt.Errorf("failed to add edge %d -> %d: %w", from, to, err)
		}
	} else {
		edges++
	}
	return &CallGraph{table: cg.table, g: clone, edges: edges, unresolved: cg.unresolved}, nil
}

func sortedKeys(m map[SymbolID]graph.Edge[SymbolID]) []SymbolID {
	out := make([]SymbolID, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Build extracts the references of every function body and assembles the call
// graph. Bodies are walked in parallel per module; results are merged by a
// single writer in symbol path order.
func Build(ctx context.Context, table *SymbolTable, opts Options) (*CallGraph, error) {
	opts = opts.withDefaults()
	resolver := NewResolver(table)

	byModule := make(map[string][]*Symbol)
	var order []string
	for _, s := range table.Symbols() {
		key := s.Module.String()
		if _, ok := byModule[key]; !ok {
			order = append(order, key)
		}
		byModule[key] = append(byModule[key], s)
	}

	targets := make([][]SymbolID, table.Len())
	unresolved := make([][]UnresolvedReference, table.Len())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for _, key := range order {
		symbols := byModule[key]
		g.Go(func() error {
			for _, s := range symbols {
				if err := gctx.Err(); err != nil {
					return err
				}
				w := newBodyWalker(resolver, s)
				w.run()
				targets[s.ID] = w.targets()
				unresolved[s.ID] = w.unresolved
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cg := &CallGraph{
		table: table,
		g:     graph.New(func(id SymbolID) SymbolID { return id }, graph.Directed()),
	}
	for _, s := range table.Symbols() {
		if err := cg.g.AddVertex(s.ID); err != nil {
			return nil, fmt.Errorf("%w: failed to add symbol %s: %v", ErrInternalInvariant, s.Path, err)
		}
	}
	for _, s := range table.Symbols() {
		for _, to := range targets[s.ID] {
			if err := cg.g.AddEdge(s.ID, to); err != nil {
				if errors.Is(err, graph.ErrEdgeAlreadyExists) {
					continue
				}
				return nil, fmt.Errorf("%w: failed to add edge %s -> %s: %v",
					ErrInternalInvariant, s.Path, table.Symbol(to).Path, err)
			}
			cg.edges++
		}
		cg.unresolved = append(cg.unresolved, unresolved[s.ID]...)
	}

	for _, u := range cg.unresolved {
		opts.Logger.Debug("unresolved call target",
			zap.String("caller", table.Symbol(u.Caller).Path.String()),
			zap.String("target", u.Path.String()),
			zap.Stringer("kind", u.Kind),
			zap.Bool("external", u.External),
			zap.Stringer("at", u.Span))
	}
	opts.Logger.Debug("call graph built",
		zap.String("package", table.Package().Name),
		zap.Int("symbols", table.Len()),
		zap.Int("edges", cg.edges),
		zap.Int("unresolved", len(cg.unresolved)))

	return cg, nil
}

// scope is a lexical block of local bindings.
type scope struct {
	names  map[string]struct{}
	parent *scope
}

func newScope(parent *scope, names ...string) *scope {
	s := &scope{names: make(map[string]struct{}, len(names)), parent: parent}
	s.bind(names...)
	return s
}

func (s *scope) bind(names ...string) {
	for _, n := range names {
		s.names[n] = struct{}{}
	}
}

func (s *scope) has(name string) bool {
	for c := s; c != nil; c = c.parent {
		if _, ok := c.names[name]; ok {
			return true
		}
	}
	return false
}

// bodyWalker collects the references of one function body.
type bodyWalker struct {
	resolver   *Resolver
	from       *Symbol
	found      map[SymbolID]struct{}
	unresolved []UnresolvedReference
}

func newBodyWalker(resolver *Resolver, from *Symbol) *bodyWalker {
	return &bodyWalker{resolver: resolver, from: from, found: make(map[SymbolID]struct{})}
}

func (w *bodyWalker) run() {
	fn := w.from.Function()
	if fn == nil {
		return
	}
	w.walk(fn.Body, newScope(nil, fn.Params...))
}

// targets returns the referenced symbols in ascending id order.
func (w *bodyWalker) targets() []SymbolID {
	out := make([]SymbolID, 0, len(w.found))
	for id := range w.found {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (w *bodyWalker) walk(e *syntax.Expr, sc *scope) {
	if e == nil {
		return
	}

	switch e.Kind {
	case syntax.ExprPath:
		w.reference(syntax.RefValue, e.Path, e.Span, sc)

	case syntax.ExprCall:
		for i, c := range e.Children {
			if i == 0 && c != nil && c.Kind == syntax.ExprPath {
				w.reference(syntax.RefCall, c.Path, c.Span, sc)
				continue
			}
			w.walk(c, sc)
		}

	case syntax.ExprMethodCall:
		ids := w.resolver.ResolveMethod(e.Name)
		if len(ids) == 0 {
			w.unresolve(syntax.RefMethod, syntax.Path{e.Name}, e.Span, false)
		}
		w.add(ids)
		for _, c := range e.Children {
			w.walk(c, sc)
		}

	case syntax.ExprLet:
		for _, c := range e.Children {
			w.walk(c, sc)
		}
		sc.bind(e.Bindings...)

	case syntax.ExprScope:
		inner := newScope(sc, e.Bindings...)
		for _, c := range e.Children {
			w.walk(c, inner)
		}

	default:
		inner := newScope(sc)
		for _, c := range e.Children {
			w.walk(c, inner)
		}
	}
}

// reference resolves one name use. Locals shadow functions; unresolved value
// uses are ordinary variables or constants and are not recorded.
func (w *bodyWalker) reference(kind syntax.ReferenceKind, path syntax.Path, span syntax.Span, sc *scope) {
	if len(path) == 1 && sc.has(path[0]) {
		return
	}
	if path == nil {
		if kind == syntax.RefCall {
			w.unresolve(kind, path, span, false)
		}
		return
	}

	res := w.resolver.Resolve(w.from, path)
	if len(res.Targets) == 0 {
		if kind == syntax.RefCall {
			w.unresolve(kind, path, span, res.External)
		}
		return
	}
	w.add(res.Targets)
}

func (w *bodyWalker) add(ids []SymbolID) {
	for _, id := range ids {
		w.found[id] = struct{}{}
	}
}

func (w *bodyWalker) unresolve(kind syntax.ReferenceKind, path syntax.Path, span syntax.Span, external bool) {
	w.unresolved = append(w.unresolved, UnresolvedReference{
		Caller:   w.from.ID,
		Path:     path,
		Kind:     kind,
		Span:     span,
		External: external,
	})
}
