package lint

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/mvp-joe/noir-analyzer/internal/graph"
	"github.com/mvp-joe/noir-analyzer/internal/syntax"
)

// Options configures an Analyzer.
type Options struct {
	Graph    graph.Options
	Disabled []string
	Registry *Registry
	Logger   *zap.Logger
}

// Result is the outcome of analyzing one package.
type Result struct {
	Package     string
	Diagnostics []Diagnostic
	Symbols     int
	Edges       int
	Unresolved  []graph.UnresolvedReference
}

// Analyzer runs the enabled rules over a package.
type Analyzer struct {
	rules  []Rule
	graph  graph.Options
	logger *zap.Logger
}

// NewAnalyzer creates an Analyzer. It fails if Disabled names an unknown rule.
func NewAnalyzer(opts Options) (*Analyzer, error) {
	registry := opts.Registry
	if registry == nil {
		registry = DefaultRegistry()
	}
	rules, err := registry.Enabled(opts.Disabled)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.Graph.Logger = logger
	return &Analyzer{rules: rules, graph: opts.Graph, logger: logger}, nil
}

// Analyze collects symbols, builds the call graph, computes the root and
// reachable sets and runs every rule. A package without functions yields an
// empty result. Errors wrapping graph.ErrInternalInvariant abort this package
// only.
func (a *Analyzer) Analyze(ctx context.Context, pkg *syntax.Package) (*Result, error) {
	table, err := graph.Collect(ctx, pkg, a.graph)
	if err != nil {
		return nil, fmt.Errorf("package %s: %w", pkg.Name, err)
	}

	result := &Result{Package: pkg.Name, Diagnostics: []Diagnostic{}}
	if table.Len() == 0 {
		a.logger.Debug("empty package", zap.String("package", pkg.Name))
		return result, nil
	}

	cg, err := graph.Build(ctx, table, a.graph)
	if err != nil {
		return nil, fmt.Errorf("package %s: %w", pkg.Name, err)
	}
	roots := graph.Roots(table)
	reachable, err := graph.Reachable(cg, roots)
	if err != nil {
		return nil, fmt.Errorf("package %s: %w", pkg.Name, err)
	}

	pass := &Pass{
		Package:   pkg,
		Table:     table,
		Graph:     cg,
		Roots:     roots,
		Reachable: reachable,
		Logger:    a.logger,
	}
	for _, rule := range a.rules {
		diags := rule.Check(pass)
		a.logger.Debug("rule finished",
			zap.String("package", pkg.Name),
			zap.String("rule", rule.Name()),
			zap.Int("diagnostics", len(diags)))
		result.Diagnostics = append(result.Diagnostics, diags...)
	}
	SortDiagnostics(result.Diagnostics)

	result.Symbols = table.Len()
	result.Edges = cg.EdgeCount()
	result.Unresolved = cg.Unresolved()

	a.logger.Debug("package analyzed",
		zap.String("package", pkg.Name),
		zap.Int("symbols", result.Symbols),
		zap.Int("roots", roots.Len()),
		zap.Int("reachable", reachable.Len()),
		zap.Int("diagnostics", len(result.Diagnostics)))

	return result, nil
}

// SortDiagnostics orders diagnostics by file, line, column, then rule.
func SortDiagnostics(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i].Span, diags[j].Span
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Start.Line != b.Start.Line {
			return a.Start.Line < b.Start.Line
		}
		if a.Start.Column != b.Start.Column {
			return a.Start.Column < b.Start.Column
		}
		return diags[i].Rule < diags[j].Rule
	})
}
