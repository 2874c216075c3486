package graph

import (
	"errors"
	"fmt"

	"github.com/mvp-joe/noir-analyzer/internal/syntax"
)

// ErrInternalInvariant marks a defect in the input tree or the collector. It
// aborts analysis of the affected package only.
var ErrInternalInvariant = errors.New("internal invariant violation")

// DuplicateSymbolError reports two functions with the same fully-qualified path.
type DuplicateSymbolError struct {
	Path   syntax.Path
	First  syntax.Span
	Second syntax.Span
}

func (e *DuplicateSymbolError) Error() string {
	return fmt.Sprintf("duplicate symbol %s: defined at %s and %s", e.Path, e.First, e.Second)
}

func (e *DuplicateSymbolError) Unwrap() error {
	return ErrInternalInvariant
}
