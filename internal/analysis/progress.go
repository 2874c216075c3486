package analysis

// ProgressReporter provides callbacks for reporting lint progress.
// Implementations can display progress bars, log messages, or remain silent.
type ProgressReporter interface {
	// OnStart is called once the workspace is resolved.
	OnStart(packages int)

	// OnPackageStart is called before a package is parsed.
	OnPackageStart(name string)

	// OnPackageDone is called after a package is analyzed or has failed.
	OnPackageDone(name string, diagnostics int)

	// OnComplete is called when every package has been processed.
	OnComplete(stats *Stats)
}

// NoOpProgressReporter is a progress reporter that does nothing.
// Used when progress reporting is disabled (e.g., --quiet flag).
type NoOpProgressReporter struct{}

func (NoOpProgressReporter) OnStart(packages int)                       {}
func (NoOpProgressReporter) OnPackageStart(name string)                 {}
func (NoOpProgressReporter) OnPackageDone(name string, diagnostics int) {}
func (NoOpProgressReporter) OnComplete(stats *Stats)                    {}
