package cli

import (
	"fmt"
	"io"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/noir-analyzer/internal/lint"
)

var (
	// Version information - typically set via ldflags at build time
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"
)

var versionShort bool

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of noir-analyzer and the rules it ships",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		writeVersion(cmd.OutOrStdout(), currentVersion(), versionShort)
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "print only the version number")
	rootCmd.AddCommand(versionCmd)
}

type versionInfo struct {
	Version   string
	GitCommit string
	BuildDate string
	GoVersion string
	Rules     []string
}

// currentVersion falls back to the module version recorded by `go install`
// when no version was set at link time.
func currentVersion() versionInfo {
	v := versionInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		Rules:     lint.DefaultRegistry().Names(),
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		v.GoVersion = info.GoVersion
		if v.Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			v.Version = info.Main.Version
		}
	}
	return v
}

func writeVersion(w io.Writer, v versionInfo, short bool) {
	if short {
		fmt.Fprintln(w, v.Version)
		return
	}
	fmt.Fprintf(w, "noir-analyzer %s\n", v.Version)
	fmt.Fprintf(w, "Git commit: %s\n", v.GitCommit)
	fmt.Fprintf(w, "Build date: %s\n", v.BuildDate)
	if v.GoVersion != "" {
		fmt.Fprintf(w, "Go version: %s\n", v.GoVersion)
	}
	fmt.Fprintf(w, "Rules: %s\n", strings.Join(v.Rules, ", "))
}
