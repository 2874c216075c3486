// Package manifest reads Nargo.toml files and resolves workspace members.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"
)

// FileName is the name of a Nargo manifest.
const FileName = "Nargo.toml"

var (
	// ErrManifestNotFound is returned when no Nargo.toml exists at or above a directory.
	ErrManifestNotFound = errors.New("Nargo.toml not found")
	// ErrInvalidManifest is returned for manifests with neither [package] nor [workspace].
	ErrInvalidManifest = errors.New("invalid manifest")
	// ErrInvalidPackageType is returned for a [package] type other than bin, lib or contract.
	ErrInvalidPackageType = errors.New("invalid package type")
)

// PackageType is the kind of crate a package builds.
type PackageType string

const (
	TypeBinary   PackageType = "bin"
	TypeLibrary  PackageType = "lib"
	TypeContract PackageType = "contract"
)

// Manifest mirrors the sections of Nargo.toml the analyzer reads.
type Manifest struct {
	Package      *PackageSection       `toml:"package"`
	Workspace    *WorkspaceSection     `toml:"workspace"`
	Dependencies map[string]Dependency `toml:"dependencies"`
}

// PackageSection is the [package] table.
type PackageSection struct {
	Name            string   `toml:"name"`
	Type            string   `toml:"type"`
	Entry           string   `toml:"entry"`
	Authors         []string `toml:"authors"`
	CompilerVersion string   `toml:"compiler_version"`
	Version         string   `toml:"version"`
}

// WorkspaceSection is the [workspace] table.
type WorkspaceSection struct {
	Members       []string `toml:"members"`
	DefaultMember string   `toml:"default-member"`
}

// Dependency is one entry of [dependencies]. Dependencies are recorded but not
// analyzed; references into them are external.
type Dependency struct {
	Git       string `toml:"git"`
	Tag       string `toml:"tag"`
	Path      string `toml:"path"`
	Directory string `toml:"directory"`
}

// Package is a resolved package ready to be parsed.
type Package struct {
	Name     string
	Type     PackageType
	Dir      string // directory holding Nargo.toml
	Entry    string // absolute path of the crate root file
	Manifest string // absolute path of Nargo.toml
	Version  string
}

// Workspace is the set of packages analyzed together.
type Workspace struct {
	Root          string
	Manifest      string
	Members       []*Package // sorted by name
	DefaultMember string
}

// Find walks up from start to the nearest directory containing Nargo.toml and
// returns the manifest path.
func Find(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", start, err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w (searched from %s)", ErrManifestNotFound, start)
		}
		dir = parent
	}
}

// Load parses one Nargo.toml.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, path)
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if m.Package == nil && m.Workspace == nil {
		return nil, fmt.Errorf("%w: %s has neither [package] nor [workspace]", ErrInvalidManifest, path)
	}
	return &m, nil
}

// LoadWorkspace loads the manifest at path (a Nargo.toml or the directory
// holding one). A package manifest yields a single-member workspace; a
// workspace manifest yields one member per listed directory.
func LoadWorkspace(path string) (*Workspace, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, FileName)
	}

	m, err := Load(path)
	if err != nil {
		return nil, err
	}

	root := filepath.Dir(path)
	ws := &Workspace{Root: root, Manifest: path}

	if m.Package != nil {
		pkg, err := resolvePackage(path, m.Package)
		if err != nil {
			return nil, err
		}
		ws.Members = append(ws.Members, pkg)
	}

	if m.Workspace != nil {
		ws.DefaultMember = m.Workspace.DefaultMember
		var errs []error
		for _, member := range m.Workspace.Members {
			memberPath := filepath.Join(root, member, FileName)
			mm, err := Load(memberPath)
			if err != nil {
				errs = append(errs, fmt.Errorf("member %s: %w", member, err))
				continue
			}
			if mm.Package == nil {
				errs = append(errs, fmt.Errorf("member %s: %w: missing [package]", member, ErrInvalidManifest))
				continue
			}
			pkg, err := resolvePackage(memberPath, mm.Package)
			if err != nil {
				errs = append(errs, fmt.Errorf("member %s: %w", member, err))
				continue
			}
			ws.Members = append(ws.Members, pkg)
		}
		if err := errors.Join(errs...); err != nil {
			return nil, err
		}
	}

	sort.SliceStable(ws.Members, func(i, j int) bool {
		return ws.Members[i].Name < ws.Members[j].Name
	})
	return ws, nil
}

// resolvePackage validates a [package] table and locates its entry file.
func resolvePackage(manifestPath string, p *PackageSection) (*Package, error) {
	dir := filepath.Dir(manifestPath)

	typ := PackageType(p.Type)
	if typ == "" {
		typ = TypeBinary
	}

	var entry string
	switch typ {
	case TypeBinary, TypeContract:
		entry = filepath.Join("src", "main.nr")
	case TypeLibrary:
		entry = filepath.Join("src", "lib.nr")
	default:
		return nil, fmt.Errorf("%w %q in %s (expected bin, lib or contract)", ErrInvalidPackageType, p.Type, manifestPath)
	}
	if p.Entry != "" {
		entry = p.Entry
	}
	if !filepath.IsAbs(entry) {
		entry = filepath.Join(dir, entry)
	}

	name := p.Name
	if name == "" {
		name = filepath.Base(dir)
	}

	return &Package{
		Name:     name,
		Type:     typ,
		Dir:      dir,
		Entry:    entry,
		Manifest: manifestPath,
		Version:  p.Version,
	}, nil
}

// Member returns the workspace member with the given name.
func (w *Workspace) Member(name string) (*Package, bool) {
	for _, p := range w.Members {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}
