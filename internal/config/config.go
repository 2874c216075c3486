// Package config loads noir-analyzer settings.
//
// Settings are read from .noir-analyzer/config.yml (or .yaml) in the
// workspace root, overridden by NOIR_ANALYZER_* environment variables, which
// are in turn overridden by command-line flags applied by the caller.
//
// Environment variable convention:
//   - Prefix: NOIR_ANALYZER_
//   - Nested fields use underscores (NOIR_ANALYZER_OUTPUT_FORMAT)
//   - List values are comma separated (NOIR_ANALYZER_LINT_ENTRY_POINTS=main,start)
package config

// DirName is the per-workspace settings directory.
const DirName = ".noir-analyzer"

// Config represents the complete noir-analyzer configuration.
type Config struct {
	Lint   LintConfig   `yaml:"lint" mapstructure:"lint"`
	Paths  PathsConfig  `yaml:"paths" mapstructure:"paths"`
	Output OutputConfig `yaml:"output" mapstructure:"output"`
	Parse  ParseConfig  `yaml:"parse" mapstructure:"parse"`
}

// LintConfig controls root selection and which rules run.
type LintConfig struct {
	EntryPoints     []string `yaml:"entry_points" mapstructure:"entry_points"`         // function names or crate:: paths
	EntryAttributes []string `yaml:"entry_attributes" mapstructure:"entry_attributes"` // e.g. ["test", "export"]
	Disabled        []string `yaml:"disabled" mapstructure:"disabled"`                 // rule names to skip
}

// PathsConfig selects files whose diagnostics are suppressed.
type PathsConfig struct {
	Ignore []string `yaml:"ignore" mapstructure:"ignore"` // glob patterns, relative to the workspace root
}

// OutputConfig defines how diagnostics are rendered.
type OutputConfig struct {
	Format   string `yaml:"format" mapstructure:"format"`     // "text", "short" or "json"
	Template string `yaml:"template" mapstructure:"template"` // Go template, overrides format
	Color    string `yaml:"color" mapstructure:"color"`       // "auto", "always" or "never"
}

// ParseConfig tunes the parser.
type ParseConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"` // 0 means GOMAXPROCS
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Lint: LintConfig{
			EntryPoints:     []string{"main"},
			EntryAttributes: []string{"test", "export", "fold", "recursive"},
			Disabled:        []string{},
		},
		Paths: PathsConfig{
			Ignore: []string{},
		},
		Output: OutputConfig{
			Format: "text",
			Color:  "auto",
		},
	}
}
