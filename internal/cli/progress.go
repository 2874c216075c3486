package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/mvp-joe/noir-analyzer/internal/analysis"
)

// CLIProgressReporter shows a per-package progress bar on stderr.
type CLIProgressReporter struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

// NewCLIProgressReporter creates a progress reporter writing to w. A quiet
// reporter does nothing.
func NewCLIProgressReporter(w io.Writer, quiet bool) analysis.ProgressReporter {
	if quiet {
		return analysis.NoOpProgressReporter{}
	}
	return &CLIProgressReporter{w: w}
}

func (c *CLIProgressReporter) OnStart(packages int) {
	// A single package finishes too quickly for a bar to help.
	if packages < 2 {
		return
	}
	c.bar = progressbar.NewOptions(packages,
		progressbar.OptionSetWriter(c.w),
		progressbar.OptionSetDescription("Linting packages"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func (c *CLIProgressReporter) OnPackageStart(name string) {
	if c.bar != nil {
		c.bar.Describe(fmt.Sprintf("Linting %s", name))
	}
}

func (c *CLIProgressReporter) OnPackageDone(name string, diagnostics int) {
	if c.bar != nil {
		_ = c.bar.Add(1)
	}
}

func (c *CLIProgressReporter) OnComplete(stats *analysis.Stats) {
	if c.bar != nil {
		_ = c.bar.Finish()
		c.bar = nil
	}
}
