package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/mvp-joe/noir-analyzer/internal/analysis"
	"github.com/mvp-joe/noir-analyzer/internal/config"
	"github.com/mvp-joe/noir-analyzer/internal/lint"
	"github.com/mvp-joe/noir-analyzer/internal/manifest"
	"github.com/mvp-joe/noir-analyzer/internal/report"
	"github.com/mvp-joe/noir-analyzer/internal/watcher"
)

// lintOptions holds the lint command flags.
type lintOptions struct {
	manifestPath string
	pkg          string
	format       string
	template     string
	color        string
	entryPoints  []string
	disabled     []string
	watch        bool
	quiet        bool
	listRules    bool
}

var lintOpts lintOptions

// lintCmd represents the lint command
var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Report unused functions",
	Long: `Lint every package of a Nargo workspace and report functions that are
never reached from a public function, an entry point (main by default) or a
function marked #[test], #[export], #[fold] or #[recursive].

Diagnostics are warnings and do not change the exit status. The command exits
with status 1 only when a module could not be parsed or a package could not
be analyzed.

Examples:
  noir-analyzer lint
  noir-analyzer lint --manifest-path circuits/Nargo.toml --format short
  noir-analyzer lint --entry-point main --entry-point crate::bin::prove
  noir-analyzer lint --format json > report.json
  noir-analyzer lint --watch`,
	Args: cobra.NoArgs,
	RunE: runLint,
}

func init() {
	f := lintCmd.Flags()
	f.StringVar(&lintOpts.manifestPath, "manifest-path", manifest.FileName, "path to Nargo.toml or the directory holding it")
	f.StringVarP(&lintOpts.pkg, "package", "p", "", "only lint this workspace member")
	f.StringVar(&lintOpts.format, "format", "", "output format: text, short or json (overrides output.format)")
	f.StringVar(&lintOpts.template, "template", "", "Go template executed per package (overrides --format)")
	f.StringVar(&lintOpts.color, "color", "", "colorize output: auto, always or never (overrides output.color)")
	f.StringArrayVar(&lintOpts.entryPoints, "entry-point", nil, "entry function name or crate:: path (repeatable, overrides lint.entry_points)")
	f.StringArrayVar(&lintOpts.disabled, "disable", nil, "rule to skip (repeatable, overrides lint.disabled)")
	f.BoolVarP(&lintOpts.watch, "watch", "w", false, "re-run on every change to .nr files or Nargo.toml")
	f.BoolVarP(&lintOpts.quiet, "quiet", "q", false, "suppress the summary line and progress output")
	f.BoolVar(&lintOpts.listRules, "list-rules", false, "list available rules and exit")

	rootCmd.AddCommand(lintCmd)
}

func runLint(cmd *cobra.Command, args []string) error {
	opts := lintOpts
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	if opts.listRules {
		return listRules(stdout, lint.DefaultRegistry())
	}

	runner := opts.newRunner(cmd.Flags(), stderr)
	defer runner.Close()

	if opts.watch {
		return watchLint(cmd.Context(), runner, opts, stdout, stderr)
	}
	_, err := lintOnce(cmd.Context(), runner, opts, stdout, stderr)
	return err
}

// newRunner creates a runner whose configuration is overridden by the flags
// that were set explicitly.
func (o lintOptions) newRunner(flags *pflag.FlagSet, stderr io.Writer) *analysis.Runner {
	return analysis.New(analysis.Options{
		ManifestPath: o.manifestPath,
		Package:      o.pkg,
		Logger:       logger,
		Progress:     NewCLIProgressReporter(stderr, o.quiet || o.watch),
		Overrides:    o.overrides(flags),
	})
}

func (o lintOptions) overrides(flags *pflag.FlagSet) func(*config.Config) {
	changed := func(name string) bool {
		return flags != nil && flags.Changed(name)
	}
	return func(cfg *config.Config) {
		if changed("format") {
			cfg.Output.Format = o.format
		}
		if changed("template") {
			cfg.Output.Template = o.template
		}
		if changed("color") {
			cfg.Output.Color = o.color
		}
		if changed("entry-point") {
			cfg.Lint.EntryPoints = o.entryPoints
		}
		if changed("disable") {
			cfg.Lint.Disabled = o.disabled
		}
	}
}

// lintOnce runs the lint, renders the report to stdout and, for text output,
// the summary line to stderr. The returned error wraps
// analysis.ErrAnalysisFailed when a package could not be fully analyzed.
func lintOnce(ctx context.Context, runner *analysis.Runner, opts lintOptions, stdout, stderr io.Writer) (*analysis.Outcome, error) {
	out, err := runner.Run(ctx)
	if out == nil {
		return nil, err
	}

	cfg := out.Config
	format := report.Format(strings.ToLower(cfg.Output.Format))
	reporter, rerr := report.New(stdout, report.Options{
		Format:   format,
		Template: cfg.Output.Template,
		Color:    report.ColorMode(strings.ToLower(cfg.Output.Color)),
		Ignore:   cfg.Paths.Ignore,
	})
	if rerr != nil {
		return out, rerr
	}
	if werr := reporter.Write(out.Report); werr != nil {
		return out, fmt.Errorf("failed to write report: %w", werr)
	}

	if !opts.quiet && format == report.FormatText && cfg.Output.Template == "" {
		if summary := reporter.Summary(out.Report); summary != "" {
			fmt.Fprintln(stderr, summary)
		}
	}
	return out, err
}

// watchLint runs the lint, then re-runs it after every batch of relevant
// changes until interrupted. Analysis failures are reported and do not stop
// watching; a workspace that cannot be loaded on the first run does.
func watchLint(ctx context.Context, runner *analysis.Runner, opts lintOptions, stdout, stderr io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, err := lintOnce(ctx, runner, opts, stdout, stderr)
	if out == nil {
		return err
	}
	reportWatchError(stderr, err)

	w, err := watcher.NewFileWatcher([]string{out.Workspace.Root}, watcher.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Stop()

	fmt.Fprintf(stderr, "Watching %s for changes (Ctrl+C to stop)\n", out.Workspace.Root)
	err = w.Start(ctx, func(files []string) {
		logger.Debug("re-running lint", zap.Strings("files", files))
		fmt.Fprintf(stderr, "\n%d file(s) changed, re-running lint\n", len(files))
		_, err := lintOnce(ctx, runner, opts, stdout, stderr)
		reportWatchError(stderr, err)
	})
	if err != nil {
		return err
	}

	<-ctx.Done()
	return nil
}

func reportWatchError(stderr io.Writer, err error) {
	switch {
	case err == nil:
	case errors.Is(err, analysis.ErrAnalysisFailed):
		fmt.Fprintln(stderr, "error: some packages could not be analyzed")
	default:
		fmt.Fprintln(stderr, "error:", err)
	}
}

// listRules prints the registered rules.
func listRules(w io.Writer, registry *lint.Registry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, name := range registry.Names() {
		rule, _ := registry.Rule(name)
		fmt.Fprintf(tw, "%s\t%s\n", name, rule.Description())
	}
	return tw.Flush()
}
