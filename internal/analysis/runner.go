// Package analysis runs the lint over every member of a Nargo workspace.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mvp-joe/noir-analyzer/internal/config"
	"github.com/mvp-joe/noir-analyzer/internal/graph"
	"github.com/mvp-joe/noir-analyzer/internal/lint"
	"github.com/mvp-joe/noir-analyzer/internal/manifest"
	"github.com/mvp-joe/noir-analyzer/internal/parser"
	"github.com/mvp-joe/noir-analyzer/internal/report"
)

var (
	// ErrAnalysisFailed is returned when a package could not be fully
	// analyzed because of parse failures or invariant violations. Diagnostics
	// alone never produce it.
	ErrAnalysisFailed = errors.New("analysis failed")

	// ErrUnknownPackage is returned when Options.Package names no member.
	ErrUnknownPackage = errors.New("unknown package")
)

// Options configures a Runner.
type Options struct {
	// ManifestPath is a Nargo.toml or the directory holding one.
	ManifestPath string
	// Package restricts the run to one workspace member.
	Package string
	// Overrides is applied to the loaded configuration before validation,
	// giving command-line flags the highest priority.
	Overrides func(*config.Config)
	Logger    *zap.Logger
	Progress  ProgressReporter
}

// Stats summarizes one run.
type Stats struct {
	Packages    int
	Files       int
	CacheHits   int
	Symbols     int
	Edges       int
	Unresolved  int
	Diagnostics int
	Failures    int
	Duration    time.Duration
}

// Outcome is everything a run produced.
type Outcome struct {
	Workspace *manifest.Workspace
	Config    *config.Config
	Report    *report.Report
	Stats     Stats
}

// Runner analyzes a workspace. A Runner keeps its parse cache between runs,
// so repeated runs (watch mode) only reparse changed files.
type Runner struct {
	opts    Options
	logger  *zap.Logger
	loader  *parser.Loader
	workers int
}

// New creates a Runner.
func New(opts Options) *Runner {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Progress == nil {
		opts.Progress = NoOpProgressReporter{}
	}
	if opts.ManifestPath == "" {
		opts.ManifestPath = manifest.FileName
	}
	return &Runner{opts: opts, logger: opts.Logger}
}

// Close releases the parse cache.
func (r *Runner) Close() {
	if r.loader != nil {
		r.loader.Close()
		r.loader = nil
	}
}

// Run loads the workspace and its configuration, then parses and analyzes
// each selected member in name order. Parse failures and invariant violations
// are recorded on the package they occurred in and do not stop the other
// packages; when any occurred, Run returns the outcome together with an error
// wrapping ErrAnalysisFailed. Other errors (bad manifest, bad configuration,
// cancellation) abort the run and return a nil outcome.
func (r *Runner) Run(ctx context.Context) (*Outcome, error) {
	start := time.Now()

	ws, err := manifest.LoadWorkspace(r.opts.ManifestPath)
	if err != nil {
		return nil, err
	}

	cfg, err := config.NewLoader(ws.Root).Load()
	if err != nil {
		return nil, err
	}
	if r.opts.Overrides != nil {
		r.opts.Overrides(cfg)
		if err := config.Validate(cfg); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}

	members := ws.Members
	if r.opts.Package != "" {
		pkg, ok := ws.Member(r.opts.Package)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPackage, r.opts.Package)
		}
		members = []*manifest.Package{pkg}
	}

	analyzer, err := lint.NewAnalyzer(lint.Options{
		Graph: graph.Options{
			EntryPoints:     cfg.Lint.EntryPoints,
			EntryAttributes: cfg.Lint.EntryAttributes,
			Workers:         cfg.Parse.Workers,
		},
		Disabled: cfg.Lint.Disabled,
		Logger:   r.logger,
	})
	if err != nil {
		return nil, err
	}

	loader, err := r.parseLoader(cfg.Parse.Workers)
	if err != nil {
		return nil, err
	}

	out := &Outcome{
		Workspace: ws,
		Config:    cfg,
		Report:    &report.Report{Root: ws.Root},
	}
	var failures []error

	r.opts.Progress.OnStart(len(members))
	for _, pkg := range members {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.opts.Progress.OnPackageStart(pkg.Name)

		rp, errs, err := r.runPackage(ctx, loader, analyzer, ws, pkg, &out.Stats)
		if err != nil {
			return nil, err
		}
		failures = append(failures, errs...)
		out.Report.Packages = append(out.Report.Packages, rp)
		out.Stats.Packages++
		out.Stats.Diagnostics += len(rp.Diagnostics)

		r.opts.Progress.OnPackageDone(pkg.Name, len(rp.Diagnostics))
	}

	out.Stats.Failures = len(failures)
	out.Stats.Duration = time.Since(start)
	r.opts.Progress.OnComplete(&out.Stats)

	r.logger.Debug("lint finished",
		zap.String("workspace", ws.Root),
		zap.Int("packages", out.Stats.Packages),
		zap.Int("files", out.Stats.Files),
		zap.Int("cache_hits", out.Stats.CacheHits),
		zap.Int("diagnostics", out.Stats.Diagnostics),
		zap.Int("failures", out.Stats.Failures),
		zap.Duration("duration", out.Stats.Duration))

	if len(failures) > 0 {
		return out, fmt.Errorf("%w: %w", ErrAnalysisFailed, errors.Join(failures...))
	}
	return out, nil
}

// runPackage parses and analyzes one member. Recoverable failures are
// returned as errs and recorded on the report package; err is fatal.
func (r *Runner) runPackage(
	ctx context.Context,
	loader *parser.Loader,
	analyzer *lint.Analyzer,
	ws *manifest.Workspace,
	pkg *manifest.Package,
	stats *Stats,
) (rp report.Package, errs []error, err error) {
	rp = report.Package{Name: pkg.Name, Diagnostics: []lint.Diagnostic{}}

	loaded, err := loader.Load(ctx, parser.Target{Name: pkg.Name, Root: pkg.Dir, Entry: pkg.Entry})
	if err != nil {
		return rp, nil, fmt.Errorf("package %s: %w", pkg.Name, err)
	}
	stats.Files += loaded.Files
	stats.CacheHits += loaded.CacheHits

	for _, perr := range loaded.Errors {
		shown := *perr
		shown.File = report.RelPath(ws.Root, perr.File)
		rp.Errors = append(rp.Errors, shown.Error())
		errs = append(errs, fmt.Errorf("package %s: %w", pkg.Name, perr))
	}

	result, err := analyzer.Analyze(ctx, loaded.Package)
	if err != nil {
		if !errors.Is(err, graph.ErrInternalInvariant) {
			return rp, nil, err
		}
		r.logger.Warn("package analysis aborted",
			zap.String("package", pkg.Name),
			zap.Error(err))
		rp.Errors = append(rp.Errors, strings.TrimPrefix(err.Error(), "package "+pkg.Name+": "))
		return rp, append(errs, err), nil
	}

	rp.Diagnostics = result.Diagnostics
	stats.Symbols += result.Symbols
	stats.Edges += result.Edges
	stats.Unresolved += len(result.Unresolved)
	return rp, errs, nil
}

// parseLoader returns the cached loader, recreating it when the worker count
// changed.
func (r *Runner) parseLoader(workers int) (*parser.Loader, error) {
	if r.loader != nil && r.workers == workers {
		return r.loader, nil
	}
	r.Close()

	opts := []parser.LoaderOption{parser.WithLogger(r.logger)}
	if workers > 0 {
		opts = append(opts, parser.WithWorkers(workers))
	}
	loader, err := parser.NewLoader(opts...)
	if err != nil {
		return nil, err
	}
	r.loader = loader
	r.workers = workers
	return loader, nil
}
