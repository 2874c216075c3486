package lint

import "fmt"

// UnusedFunctionRule is the name of the unused-function rule.
const UnusedFunctionRule = "unused-function"

// UnusedFunction reports functions that are neither roots nor reachable from one.
type UnusedFunction struct{}

func (UnusedFunction) Name() string {
	return UnusedFunctionRule
}

func (UnusedFunction) Description() string {
	return "functions that are never referenced from a public function or an entry point"
}

// Check emits one diagnostic per symbol outside both the root set and the
// reachable set.
func (UnusedFunction) Check(pass *Pass) []Diagnostic {
	var out []Diagnostic
	for _, sym := range pass.Table.Symbols() {
		if pass.Roots.Contains(sym.ID) || pass.Reachable.Contains(sym.ID) {
			continue
		}
		out = append(out, Diagnostic{
			Rule:       UnusedFunctionRule,
			Severity:   SeverityWarning,
			Symbol:     sym.Path.String(),
			Name:       sym.Name,
			Message:    fmt.Sprintf("Function '%s' is unused", sym.Name),
			Span:       sym.Span,
			SourceLine: pass.SourceLine(sym),
		})
	}
	return out
}
