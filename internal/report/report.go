// Package report renders lint diagnostics.
package report

import (
	"path/filepath"
	"strings"

	"github.com/mvp-joe/noir-analyzer/internal/lint"
)

// Report is the outcome of one workspace run, ready for rendering.
type Report struct {
	// Root is the workspace directory; file paths are shown relative to it.
	Root     string
	Packages []Package
}

// Package is the outcome for one workspace member.
type Package struct {
	Name        string
	Diagnostics []lint.Diagnostic
	// Errors are parse failures and invariant violations, already formatted.
	Errors []string
}

// Diagnostics returns the number of diagnostics across packages.
func (r *Report) Diagnostics() int {
	n := 0
	for _, p := range r.Packages {
		n += len(p.Diagnostics)
	}
	return n
}

// Errors returns the number of errors across packages.
func (r *Report) Errors() int {
	n := 0
	for _, p := range r.Packages {
		n += len(p.Errors)
	}
	return n
}

// RelPath shows file relative to root when it lies inside it.
func RelPath(root, file string) string {
	if root == "" || !filepath.IsAbs(file) {
		return filepath.ToSlash(file)
	}
	rel, err := filepath.Rel(root, file)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(file)
	}
	return filepath.ToSlash(rel)
}
