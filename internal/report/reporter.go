package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/template"

	"github.com/charmbracelet/lipgloss"
	"github.com/gobwas/glob"
	"github.com/muesli/termenv"

	"github.com/mvp-joe/noir-analyzer/internal/lint"
)

// Format selects how diagnostics are rendered.
type Format string

const (
	FormatText  Format = "text"
	FormatShort Format = "short"
	FormatJSON  Format = "json"
)

// ColorMode controls ANSI colouring.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

var (
	// ErrUnknownFormat is returned for a format other than text, short or json.
	ErrUnknownFormat = errors.New("unknown output format")
	// ErrUnknownColor is returned for a colour mode other than auto, always or never.
	ErrUnknownColor = errors.New("unknown color mode")
)

// Options configures a Reporter.
type Options struct {
	Format Format
	// Template, when set, is executed once per package and overrides Format.
	Template string
	Color    ColorMode
	// Ignore holds globs matched against workspace-relative file paths.
	Ignore []string
}

// Reporter writes reports to one writer.
type Reporter struct {
	w      io.Writer
	format Format
	tmpl   *template.Template
	ignore []glob.Glob
	color  bool
	styles styles
}

type styles struct {
	warning lipgloss.Style
	note    lipgloss.Style
	err     lipgloss.Style
	bold    lipgloss.Style
	gutter  lipgloss.Style
}

// New creates a Reporter writing to w.
func New(w io.Writer, opts Options) (*Reporter, error) {
	r := &Reporter{w: w, format: opts.Format}
	if r.format == "" {
		r.format = FormatText
	}
	switch r.format {
	case FormatText, FormatShort, FormatJSON:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}

	if opts.Template != "" {
		tmpl, err := template.New("report").Parse(opts.Template)
		if err != nil {
			return nil, fmt.Errorf("failed to parse output template: %w", err)
		}
		r.tmpl = tmpl
	}

	for _, pattern := range opts.Ignore {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
		r.ignore = append(r.ignore, g)
	}

	renderer := lipgloss.NewRenderer(w)
	switch opts.Color {
	case ColorAuto, "":
		r.color = renderer.ColorProfile() != termenv.Ascii
	case ColorAlways:
		renderer.SetColorProfile(termenv.ANSI256)
		r.color = true
	case ColorNever:
		renderer.SetColorProfile(termenv.Ascii)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownColor, opts.Color)
	}
	r.styles = styles{
		warning: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		note:    renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		err:     renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		bold:    renderer.NewStyle().Bold(true),
		gutter:  renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
	}
	return r, nil
}

// Write renders rep after dropping diagnostics in ignored files.
func (r *Reporter) Write(rep *Report) error {
	entries := r.entries(rep)
	switch {
	case r.tmpl != nil:
		for _, pkg := range entries {
			if err := r.tmpl.Execute(r.w, pkg); err != nil {
				return fmt.Errorf("failed to execute output template: %w", err)
			}
		}
		return nil
	case r.format == FormatJSON:
		enc := json.NewEncoder(r.w)
		enc.SetIndent("", "  ")
		return enc.Encode(jsonReport{Packages: entries})
	case r.format == FormatShort:
		return r.writeShort(entries)
	default:
		return r.writeText(entries)
	}
}

// Filter returns a copy of rep without diagnostics in ignored files.
func (r *Reporter) Filter(rep *Report) *Report {
	out := &Report{Root: rep.Root, Packages: make([]Package, 0, len(rep.Packages))}
	for _, pkg := range rep.Packages {
		kept := Package{Name: pkg.Name, Errors: pkg.Errors, Diagnostics: []lint.Diagnostic{}}
		for _, d := range pkg.Diagnostics {
			if !r.ignored(RelPath(rep.Root, d.Span.File)) {
				kept.Diagnostics = append(kept.Diagnostics, d)
			}
		}
		out.Packages = append(out.Packages, kept)
	}
	return out
}

func (r *Reporter) ignored(file string) bool {
	for _, g := range r.ignore {
		if g.Match(file) {
			return true
		}
	}
	return false
}

// Entry is a diagnostic flattened for json and templates.
type Entry struct {
	Rule       string `json:"rule"`
	Severity   string `json:"severity"`
	Symbol     string `json:"symbol"`
	Name       string `json:"name"`
	Message    string `json:"message"`
	File       string `json:"file"`
	Line       int    `json:"line"`
	Column     int    `json:"column"`
	EndLine    int    `json:"end_line"`
	EndColumn  int    `json:"end_column"`
	SourceLine string `json:"source_line,omitempty"`
}

// PackageEntry is the data a template is executed with.
type PackageEntry struct {
	Name        string   `json:"name"`
	Diagnostics []Entry  `json:"diagnostics"`
	Errors      []string `json:"errors,omitempty"`
}

type jsonReport struct {
	Packages []PackageEntry `json:"packages"`
}

func (r *Reporter) entries(rep *Report) []PackageEntry {
	filtered := r.Filter(rep)
	out := make([]PackageEntry, 0, len(filtered.Packages))
	for _, pkg := range filtered.Packages {
		pe := PackageEntry{Name: pkg.Name, Diagnostics: make([]Entry, 0, len(pkg.Diagnostics)), Errors: pkg.Errors}
		for _, d := range pkg.Diagnostics {
			pe.Diagnostics = append(pe.Diagnostics, Entry{
				Rule:       d.Rule,
				Severity:   string(d.Severity),
				Symbol:     d.Symbol,
				Name:       d.Name,
				Message:    d.Message,
				File:       RelPath(rep.Root, d.Span.File),
				Line:       d.Span.Start.Line,
				Column:     d.Span.Start.Column,
				EndLine:    d.Span.End.Line,
				EndColumn:  d.Span.End.Column,
				SourceLine: d.SourceLine,
			})
		}
		out = append(out, pe)
	}
	return out
}

func (r *Reporter) paint(style lipgloss.Style, s string) string {
	if !r.color {
		return s
	}
	return style.Render(s)
}

func (r *Reporter) severityStyle(severity string) lipgloss.Style {
	if severity == string(lint.SeverityNote) {
		return r.styles.note
	}
	return r.styles.warning
}

func (r *Reporter) writeShort(pkgs []PackageEntry) error {
	var b strings.Builder
	for _, pkg := range pkgs {
		for _, msg := range pkg.Errors {
			fmt.Fprintf(&b, "%s: %s\n", r.paint(r.styles.err, "error"), msg)
		}
		for _, e := range pkg.Diagnostics {
			fmt.Fprintf(&b, "%s:%d:%d: %s: %s [%s]\n",
				e.File, e.Line, e.Column,
				r.paint(r.severityStyle(e.Severity), e.Severity),
				e.Message, e.Rule)
		}
	}
	_, err := io.WriteString(r.w, b.String())
	return err
}

func (r *Reporter) writeText(pkgs []PackageEntry) error {
	var b strings.Builder
	for _, pkg := range pkgs {
		for _, msg := range pkg.Errors {
			fmt.Fprintf(&b, "%s: %s\n\n", r.paint(r.styles.err, "error"), msg)
		}
		for _, e := range pkg.Diagnostics {
			r.snippet(&b, e)
		}
	}
	_, err := io.WriteString(r.w, b.String())
	return err
}

// snippet writes one diagnostic as:
//
//	warning[unused-function]: Function 'f' is unused
//	 --> src/main.nr:2:4
//	  |
//	2 | fn f() {}
//	  |    ^
func (r *Reporter) snippet(b *strings.Builder, e Entry) {
	line := strconv.Itoa(e.Line)
	pad := strings.Repeat(" ", len(line))
	bar := r.paint(r.styles.gutter, "|")

	header := r.paint(r.severityStyle(e.Severity), e.Severity+"["+e.Rule+"]")
	fmt.Fprintf(b, "%s%s\n", header, r.paint(r.styles.bold, ": "+e.Message))
	fmt.Fprintf(b, "%s%s %s:%d:%d\n", pad, r.paint(r.styles.gutter, "-->"), e.File, e.Line, e.Column)
	if e.SourceLine == "" {
		b.WriteString("\n")
		return
	}
	fmt.Fprintf(b, "%s %s\n", pad, bar)
	fmt.Fprintf(b, "%s %s %s\n", r.paint(r.styles.gutter, line), bar, e.SourceLine)
	fmt.Fprintf(b, "%s %s %s%s\n\n", pad, bar, indent(e.SourceLine, e.Column-1),
		r.paint(r.severityStyle(e.Severity), strings.Repeat("^", caretWidth(e))))
}

// indent reproduces the whitespace of the first n bytes of line so the caret
// lines up under tabs too.
func indent(line string, n int) string {
	if n > len(line) {
		n = len(line)
	}
	if n < 0 {
		n = 0
	}
	var b strings.Builder
	for _, c := range []byte(line[:n]) {
		if c == '\t' {
			b.WriteByte('\t')
		} else {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func caretWidth(e Entry) int {
	if e.EndLine != e.Line || e.EndColumn <= e.Column {
		return 1
	}
	return e.EndColumn - e.Column
}

// Summary returns the stderr summary line for rep after ignore filtering, or
// an empty string when nothing was reported.
func (r *Reporter) Summary(rep *Report) string {
	filtered := r.Filter(rep)
	diags, pkgs := 0, 0
	for _, pkg := range filtered.Packages {
		n := 0
		for _, d := range pkg.Diagnostics {
			if d.Rule == lint.UnusedFunctionRule {
				n++
			}
		}
		if n > 0 {
			diags += n
			pkgs++
		}
	}
	if diags == 0 {
		return ""
	}
	return fmt.Sprintf("%s: %d unused %s in %d %s",
		r.paint(r.styles.warning, "warning"),
		diags, plural(diags, "function", "functions"),
		pkgs, plural(pkgs, "package", "packages"))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
