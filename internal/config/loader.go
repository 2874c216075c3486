package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a new configuration loader for the given workspace root.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (NOIR_ANALYZER_*)
// 2. Config file (.noir-analyzer/config.yml or .noir-analyzer/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(l.rootDir, DirName))

	v.SetEnvPrefix("NOIR_ANALYZER")
	v.AutomaticEnv()
	// NOIR_ANALYZER_OUTPUT_FORMAT -> output.format
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, key := range []string{
		"lint.entry_points",
		"lint.entry_attributes",
		"lint.disabled",
		"paths.ignore",
		"output.format",
		"output.template",
		"output.color",
		"parse.workers",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("lint.entry_points", defaults.Lint.EntryPoints)
	v.SetDefault("lint.entry_attributes", defaults.Lint.EntryAttributes)
	v.SetDefault("lint.disabled", defaults.Lint.Disabled)

	v.SetDefault("paths.ignore", defaults.Paths.Ignore)

	v.SetDefault("output.format", defaults.Output.Format)
	v.SetDefault("output.template", defaults.Output.Template)
	v.SetDefault("output.color", defaults.Output.Color)

	v.SetDefault("parse.workers", defaults.Parse.Workers)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}
