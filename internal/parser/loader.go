package parser

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/maypok86/otter"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mvp-joe/noir-analyzer/internal/syntax"
)

// SourceExt is the extension of Noir source files.
const SourceExt = ".nr"

// defaultCacheSize bounds the number of parsed files kept between runs.
const defaultCacheSize = 4096

// Target identifies the package to load.
type Target struct {
	Name  string
	Root  string // package directory
	Entry string // crate root file (src/main.nr or src/lib.nr)
}

// Result is a loaded package plus the modules that could not be parsed.
type Result struct {
	Package *syntax.Package
	Errors  []*ParseError
	// Files is the number of files read; CacheHits of those were not reparsed.
	Files     int
	CacheHits int
}

// Loader discovers and parses the module tree of a package. Parsed files are
// cached by path and content hash, so a Loader reused across watch-mode runs
// only reparses files that changed.
type Loader struct {
	parser  *Parser
	cache   otter.Cache[string, []*syntax.Module]
	workers int
	logger  *zap.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithWorkers sets the number of files parsed concurrently. Zero or less means
// GOMAXPROCS.
func WithWorkers(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.workers = n
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader creates a Loader with an empty parse cache.
func NewLoader(opts ...LoaderOption) (*Loader, error) {
	cache, err := otter.MustBuilder[string, []*syntax.Module](defaultCacheSize).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create parse cache: %w", err)
	}

	l := &Loader{
		parser:  New(),
		cache:   cache,
		workers: runtime.GOMAXPROCS(0),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Close releases the parse cache.
func (l *Loader) Close() {
	l.cache.Close()
}

// pending is a module file waiting to be parsed.
type pending struct {
	file     string
	path     syntax.Path
	declared *syntax.Span // the `mod` declaration, nil for the crate root
	root     bool
}

// parsed is the outcome of parsing one pending file.
type parsed struct {
	modules []*syntax.Module
	err     *ParseError
	hit     bool
}

// Load parses the crate root and every module reachable through `mod`
// declarations, one directory level at a time. Files of a level are parsed in
// parallel; results are merged in discovery order so the outcome does not
// depend on scheduling. The returned package lists modules sorted by path.
func (l *Loader) Load(ctx context.Context, target Target) (*Result, error) {
	res := &Result{Package: &syntax.Package{Name: target.Name, Root: target.Root}}

	entry := filepath.Clean(target.Entry)
	seen := map[string]bool{entry: true}
	level := []pending{{file: entry, path: syntax.Path{syntax.CrateRoot}, root: true}}

	for len(level) > 0 {
		results := make([]parsed, len(level))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(l.workers)
		for i, p := range level {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = l.parseFile(p)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		var next []pending
		for i, p := range level {
			r := results[i]
			res.Files++
			if r.hit {
				res.CacheHits++
			}
			if r.err != nil {
				l.logger.Warn("module excluded", zap.String("file", p.file), zap.Error(r.err))
				res.Errors = append(res.Errors, r.err)
				continue
			}
			for _, mod := range r.modules {
				res.Package.Modules = append(res.Package.Modules, mod)
				dir := childDir(p, mod)
				for _, decl := range mod.Decls {
					file, perr := resolveModuleFile(dir, decl)
					if perr != nil {
						res.Errors = append(res.Errors, perr)
						continue
					}
					if seen[file] {
						continue
					}
					seen[file] = true
					span := decl.Span
					next = append(next, pending{file: file, path: mod.Path.Join(decl.Name), declared: &span})
				}
			}
		}
		level = next
	}

	sort.SliceStable(res.Package.Modules, func(i, j int) bool {
		return res.Package.Modules[i].Path.String() < res.Package.Modules[j].Path.String()
	})
	sort.SliceStable(res.Errors, func(i, j int) bool {
		a, b := res.Errors[i], res.Errors[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})

	l.logger.Debug("package loaded",
		zap.String("package", target.Name),
		zap.Int("modules", len(res.Package.Modules)),
		zap.Int("files", res.Files),
		zap.Int("cache_hits", res.CacheHits),
		zap.Int("errors", len(res.Errors)))

	return res, nil
}

// parseFile reads and parses one module file, consulting the cache first.
func (l *Loader) parseFile(p pending) parsed {
	source, err := os.ReadFile(p.file)
	if err != nil {
		perr := &ParseError{File: p.file, Msg: err.Error(), Err: err}
		if errors.Is(err, fs.ErrNotExist) && p.declared != nil {
			perr = &ParseError{
				File:   p.declared.File,
				Line:   p.declared.Start.Line,
				Column: p.declared.Start.Column,
				Msg:    fmt.Sprintf("module file %s not found", p.file),
				Err:    ErrModuleNotFound,
			}
		}
		return parsed{err: perr}
	}

	key := cacheKey(p.file, p.path, source)
	if mods, ok := l.cache.Get(key); ok {
		l.logger.Debug("parse cache hit", zap.String("file", p.file))
		return parsed{modules: mods, hit: true}
	}

	mods, err := l.parser.Parse(p.file, source, p.path)
	if err != nil {
		var perr *ParseError
		if !errors.As(err, &perr) {
			perr = &ParseError{File: p.file, Msg: err.Error(), Err: err}
		}
		return parsed{err: perr}
	}
	l.cache.Set(key, mods)
	l.logger.Debug("parsed file", zap.String("file", p.file), zap.Int("modules", len(mods)))
	return parsed{modules: mods}
}

func cacheKey(file string, path syntax.Path, source []byte) string {
	sum := sha256.Sum256(source)
	return file + "\x00" + path.String() + "\x00" + hex.EncodeToString(sum[:])
}

// childDir is the directory holding the files of mod's out-of-line children.
// A crate root or mod.nr owns its own directory; any other file `foo.nr` owns
// the sibling directory `foo/`. Inline modules add their name below that.
func childDir(p pending, mod *syntax.Module) string {
	dir := filepath.Dir(p.file)
	if !p.root && filepath.Base(p.file) != "mod"+SourceExt {
		dir = filepath.Join(dir, strings.TrimSuffix(filepath.Base(p.file), SourceExt))
	}
	if len(mod.Path) > len(p.path) {
		dir = filepath.Join(append([]string{dir}, mod.Path[len(p.path):]...)...)
	}
	return dir
}

// resolveModuleFile finds the file of `mod name;`: name.nr, then name/mod.nr.
func resolveModuleFile(dir string, decl syntax.ModDecl) (string, *ParseError) {
	candidates := []string{
		filepath.Join(dir, decl.Name+SourceExt),
		filepath.Join(dir, decl.Name, "mod"+SourceExt),
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, nil
		}
	}
	return "", &ParseError{
		File:   decl.Span.File,
		Line:   decl.Span.Start.Line,
		Column: decl.Span.Start.Column,
		Msg:    fmt.Sprintf("module %q not found (looked for %s)", decl.Name, strings.Join(candidates, ", ")),
		Err:    ErrModuleNotFound,
	}
}
