package graph

import (
	"github.com/mvp-joe/noir-analyzer/internal/syntax"
)

// maxResolveDepth bounds how many re-exports a path is followed through.
const maxResolveDepth = 8

// Resolution is the outcome of resolving one path.
type Resolution struct {
	Targets []SymbolID
	// External is set for paths into dependencies (dep::, std::).
	External bool
}

// Resolver resolves names used in function bodies to symbols. Resolution is
// deliberately conservative: a name that cannot be resolved statically yields
// no target rather than a guess.
type Resolver struct {
	table *SymbolTable
}

// NewResolver creates a resolver over table.
func NewResolver(table *SymbolTable) *Resolver {
	return &Resolver{table: table}
}

// Resolve resolves a path referenced from the body of from. Local bindings
// must have been ruled out by the caller.
func (r *Resolver) Resolve(from *Symbol, path syntax.Path) Resolution {
	if len(path) == 0 {
		return Resolution{}
	}
	if len(path) == 1 {
		return Resolution{Targets: r.resolveName(from, path[0])}
	}

	if path[0] == "Self" {
		if typeName := r.selfType(from); typeName != "" && len(path) == 2 {
			return Resolution{Targets: r.table.TypeMethods(typeName, path[1])}
		}
		return Resolution{}
	}

	abs, external := r.absolute(from.Module, path)
	if external {
		return Resolution{External: true}
	}
	if abs != nil {
		return Resolution{Targets: r.resolveAbsolute(abs, 0)}
	}

	// A leading `use` alias is expanded first.
	if mod, ok := r.table.Module(from.Module); ok {
		for _, imp := range mod.Imports {
			if imp.Glob || imp.Alias != path[0] {
				continue
			}
			target, ext := r.importTarget(from.Module, imp.Target)
			if ext {
				return Resolution{External: true}
			}
			if ids := r.resolveAbsolute(target.Join(path[1:]...), 0); len(ids) > 0 {
				return Resolution{Targets: ids}
			}
		}
	}

	for _, base := range r.searchBases(from.Module) {
		if ids := r.resolveAbsolute(base.Join(path...), 0); len(ids) > 0 {
			return Resolution{Targets: ids}
		}
	}
	return Resolution{}
}

// ResolveMethod returns every method that `x.name()` may dispatch to. Without
// types the receiver is unknown, so all methods of that name are candidates.
func (r *Resolver) ResolveMethod(name string) []SymbolID {
	return r.table.MethodsNamed(name)
}

// resolveName resolves a single-segment name: functions nested in the
// enclosing bodies, then the module's functions, then its imports.
func (r *Resolver) resolveName(from *Symbol, name string) []SymbolID {
	for s := from; ; s = r.table.Symbol(s.Parent) {
		if id, ok := r.table.NestedFunction(s.ID, name); ok {
			return []SymbolID{id}
		}
		if !s.HasParent {
			break
		}
	}
	return r.resolveIn(from.Module, name, 0)
}

// resolveIn resolves name as seen from inside module modPath.
func (r *Resolver) resolveIn(modPath syntax.Path, name string, depth int) []SymbolID {
	if depth > maxResolveDepth {
		return nil
	}
	if sym, ok := r.table.Lookup(modPath.Join(name)); ok && sym.Kind == KindFunction {
		return []SymbolID{sym.ID}
	}
	return r.resolveImported(modPath, name, depth)
}

// resolveImported resolves name through the `use` declarations of modPath.
func (r *Resolver) resolveImported(modPath syntax.Path, name string, depth int) []SymbolID {
	mod, ok := r.table.Module(modPath)
	if !ok {
		return nil
	}
	for _, imp := range mod.Imports {
		if imp.Glob || imp.Alias != name {
			continue
		}
		target, ext := r.importTarget(modPath, imp.Target)
		if ext {
			continue
		}
		if ids := r.resolveAbsolute(target, depth+1); len(ids) > 0 {
			return ids
		}
	}
	for _, imp := range mod.Imports {
		if !imp.Glob {
			continue
		}
		base, ext := r.importTarget(modPath, imp.Target)
		if ext {
			continue
		}
		if ids := r.resolveAbsolute(base.Join(name), depth+1); len(ids) > 0 {
			return ids
		}
	}
	return nil
}

// resolveAbsolute resolves a crate-absolute path: a function, a re-export in
// the parent module, or a `Type::method` pair.
func (r *Resolver) resolveAbsolute(path syntax.Path, depth int) []SymbolID {
	if depth > maxResolveDepth || len(path) < 2 {
		return nil
	}
	if sym, ok := r.table.Lookup(path); ok {
		return []SymbolID{sym.ID}
	}

	parent := path.Parent()
	if _, ok := r.table.Module(parent); ok {
		return r.resolveImported(parent, path.Last(), depth)
	}

	// The parent may itself be re-exported: `use crate::a::b; b::f()`.
	if len(parent) >= 2 {
		if grand, ok := r.table.Module(parent.Parent()); ok {
			for _, imp := range grand.Imports {
				if imp.Glob || imp.Alias != parent.Last() {
					continue
				}
				target, ext := r.importTarget(grand.Path, imp.Target)
				if ext {
					continue
				}
				if ids := r.resolveAbsolute(target.Join(path.Last()), depth+1); len(ids) > 0 {
					return ids
				}
			}
		}
	}

	return r.table.TypeMethods(parent.Last(), path.Last())
}

// absolute turns a path with a crate/self/super prefix into a crate-absolute
// path. It returns nil for relative paths and reports dependency paths as
// external.
func (r *Resolver) absolute(modPath, path syntax.Path) (syntax.Path, bool) {
	switch path[0] {
	case syntax.CrateRoot:
		return path, false
	case "self":
		return modPath.Join(path[1:]...), false
	case "super":
		base := modPath
		i := 0
		for i < len(path) && path[i] == "super" {
			if len(base) > 1 {
				base = base.Parent()
			}
			i++
		}
		return base.Join(path[i:]...), false
	case "dep", "std":
		return nil, true
	}
	return nil, false
}

// importTarget makes a `use` target absolute. Relative targets are tried as
// a child of the importing module, then from the crate root.
func (r *Resolver) importTarget(modPath, target syntax.Path) (syntax.Path, bool) {
	if len(target) == 0 {
		return nil, false
	}
	abs, ext := r.absolute(modPath, target)
	if ext || abs != nil {
		return abs, ext
	}
	if _, ok := r.table.Module(modPath.Join(target[0])); ok {
		return modPath.Join(target...), false
	}
	return syntax.Path{syntax.CrateRoot}.Join(target...), false
}

// searchBases lists the modules a relative multi-segment path is tried
// against: the current module, the targets of its glob imports, the crate root.
func (r *Resolver) searchBases(modPath syntax.Path) []syntax.Path {
	bases := []syntax.Path{modPath}
	if mod, ok := r.table.Module(modPath); ok {
		for _, imp := range mod.Imports {
			if !imp.Glob {
				continue
			}
			if base, ext := r.importTarget(modPath, imp.Target); !ext {
				bases = append(bases, base)
			}
		}
	}
	if len(modPath) > 1 {
		bases = append(bases, syntax.Path{syntax.CrateRoot})
	}
	return bases
}

// selfType returns the impl type (or trait) that `Self` denotes in from.
func (r *Resolver) selfType(from *Symbol) string {
	for s := from; ; s = r.table.Symbol(s.Parent) {
		if s.TypeName != "" {
			return s.TypeName
		}
		if !s.HasParent {
			return ""
		}
	}
}
