package parser

import (
	"bytes"
	"regexp"
)

// Noir is close enough to Rust for the tree-sitter Rust grammar once the few
// Noir-only tokens are neutralised. Every rewrite below keeps the byte length
// of the source unchanged, so positions reported by the parse tree are
// positions in the original file.
var (
	// Function and block modifiers with no Rust counterpart.
	modifierPattern = regexp.MustCompile(`\b(?:unconstrained|comptime)\b`)
	// Visibility and data-bus annotations on parameter and return types.
	typeAnnotationPattern = regexp.MustCompile(`(?:->|:)\s*(pub\b|return_data\b|call_data\s*\(\s*\d+\s*\))`)
	// Numeric generics: `<let N: u32>` reads as a bounded type parameter once
	// `let` is gone.
	numericGenericPattern = regexp.MustCompile(`[<,]\s*(let)\s+[A-Za-z_]\w*\s*:`)
	// Format strings: f"..." becomes an ordinary string literal.
	fmtStringPattern = regexp.MustCompile(`\b(f)"`)
	// Sized strings: `str<N>` reads as a user generic type `Str<N>`.
	strTypePattern = regexp.MustCompile(`\b(s)tr\s*<`)
	// Closure environments in function types: `fn[Env](T) -> U`.
	closureEnvPattern = regexp.MustCompile(`\bfn\s*(\[[^\]\n]*\])\s*\(`)
	// Contract blocks become inline modules.
	contractPattern = regexp.MustCompile(`(?m)^[ \t]*(contract)\s+[A-Za-z_]\w*\s*\{`)
	// Quoted code is opaque; the quote becomes an empty block.
	quotePattern  = regexp.MustCompile(`\bquote\s*([{(\[])`)
	globalPattern = regexp.MustCompile(`\bglobal\b`)
	identPattern  = regexp.MustCompile(`^\s*(?:mut\s+)?[A-Za-z_]\w*\s*`)
)

// maskDialect returns a copy of src that the Rust grammar accepts for the
// Noir subset the analyzer cares about.
func maskDialect(src []byte) []byte {
	out := bytes.Clone(src)

	for _, loc := range modifierPattern.FindAllIndex(out, -1) {
		blank(out, loc[0], loc[1])
	}
	for _, loc := range typeAnnotationPattern.FindAllSubmatchIndex(out, -1) {
		blank(out, loc[2], loc[3])
	}
	for _, loc := range numericGenericPattern.FindAllSubmatchIndex(out, -1) {
		blank(out, loc[2], loc[3])
	}
	for _, loc := range fmtStringPattern.FindAllSubmatchIndex(out, -1) {
		blank(out, loc[2], loc[3])
	}
	for _, loc := range strTypePattern.FindAllSubmatchIndex(out, -1) {
		out[loc[2]] = 'S'
	}
	for _, loc := range closureEnvPattern.FindAllSubmatchIndex(out, -1) {
		blank(out, loc[2], loc[3])
	}
	for _, loc := range contractPattern.FindAllSubmatchIndex(out, -1) {
		copy(out[loc[2]:loc[3]], "mod     ")
	}
	maskQuotes(out)
	maskGlobals(out)

	return out
}

// maskQuotes blanks `quote { ... }` down to its outer delimiters, leaving an
// empty block expression.
func maskQuotes(out []byte) {
	for _, loc := range quotePattern.FindAllSubmatchIndex(out, -1) {
		if out[loc[2]] == ' ' {
			// inside a quote blanked earlier
			continue
		}
		end := closingDelimiter(out, loc[2])
		blank(out, loc[0], loc[2])
		blank(out, loc[2]+1, end)
		out[loc[2]] = '{'
		if end < len(out) {
			out[end] = '}'
		}
	}
}

// closingDelimiter returns the offset of the bracket closing the one at open,
// skipping string literals, or len(src) when it is unbalanced.
func closingDelimiter(src []byte, open int) int {
	depth := 0
	inString := false
	for i := open; i < len(src); i++ {
		c := src[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(src)
}

// maskGlobals rewrites `global NAME: T = v;` to a Rust static. An untyped
// global (`global NAME = v;`) borrows the spaces around `=` for a placeholder
// type, `static NAME:T=v;`; without room for it the global is blanked.
func maskGlobals(out []byte) {
	for _, loc := range globalPattern.FindAllIndex(out, -1) {
		rest := out[loc[1]:]
		m := identPattern.Find(rest)
		if m != nil && len(m) < len(rest) && rest[len(m)] == '=' {
			if !untypedGlobal(out, loc[1]+len(bytes.TrimRight(m, " \t\r\n")), loc[1]+len(m)) {
				blank(out, loc[0], statementEnd(out, loc[1]))
				continue
			}
		}
		copy(out[loc[0]:loc[1]], "static")
	}
}

// untypedGlobal writes `:T=` between the end of a global's name and the value
// following the `=` at eq. It reports false when the gap is too short.
func untypedGlobal(out []byte, nameEnd, eq int) bool {
	valueStart := eq + 1
	for valueStart < len(out) && (out[valueStart] == ' ' || out[valueStart] == '\t') {
		valueStart++
	}
	if valueStart-nameEnd < len(":T=") || bytes.ContainsAny(out[nameEnd:valueStart], "\r\n") {
		return false
	}
	blank(out, nameEnd, valueStart)
	copy(out[nameEnd:], ":T=")
	return true
}

// statementEnd returns the offset just past the `;` that ends the statement
// starting at from, skipping nested brackets and string literals.
func statementEnd(src []byte, from int) int {
	depth := 0
	inString := false
	for i := from; i < len(src); i++ {
		c := src[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ';':
			if depth <= 0 {
				return i + 1
			}
		}
	}
	return len(src)
}

// blank overwrites src[from:to] with spaces, keeping line breaks.
func blank(src []byte, from, to int) {
	for i := from; i < to && i < len(src); i++ {
		if src[i] != '\n' && src[i] != '\r' {
			src[i] = ' '
		}
	}
}
