// Package lint runs lint rules over the call graph of a Noir package.
package lint

import (
	"bytes"

	"go.uber.org/zap"

	"github.com/mvp-joe/noir-analyzer/internal/graph"
	"github.com/mvp-joe/noir-analyzer/internal/syntax"
)

// Severity of a diagnostic. Diagnostics never fail a run.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityNote    Severity = "note"
)

// Diagnostic is one finding of a rule.
type Diagnostic struct {
	Rule     string      `json:"rule"`
	Severity Severity    `json:"severity"`
	Symbol   string      `json:"symbol"`
	Name     string      `json:"name"`
	Message  string      `json:"message"`
	Span     syntax.Span `json:"span"`
	// SourceLine is the text of the line the diagnostic points at.
	SourceLine string `json:"source_line,omitempty"`
}

// Pass is the analysis state shared by every rule run on one package. All of
// it is computed once and must not be modified by rules.
type Pass struct {
	Package   *syntax.Package
	Table     *graph.SymbolTable
	Graph     *graph.CallGraph
	Roots     *graph.Set
	Reachable *graph.Set
	Logger    *zap.Logger
}

// Rule is a lint check.
type Rule interface {
	// Name is the identifier used in output and in lint.disabled.
	Name() string
	// Description is a one-line summary shown by `lint --list-rules`.
	Description() string
	Check(pass *Pass) []Diagnostic
}

// SourceLine returns the line of the module source that contains span.
func (p *Pass) SourceLine(sym *graph.Symbol) string {
	mod, ok := p.Table.Module(sym.Module)
	if !ok {
		return ""
	}
	return lineAt(mod.Source, sym.Span.StartByte)
}

func lineAt(src []byte, offset int) string {
	if offset < 0 || offset > len(src) {
		return ""
	}
	start := bytes.LastIndexByte(src[:offset], '\n') + 1
	end := bytes.IndexByte(src[offset:], '\n')
	if end < 0 {
		end = len(src)
	} else {
		end += offset
	}
	return string(bytes.TrimRight(src[start:end], "\r"))
}
