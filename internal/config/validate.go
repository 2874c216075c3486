package config

import (
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/gobwas/glob"
)

var (
	// ErrInvalidFormat indicates an unsupported output format
	ErrInvalidFormat = errors.New("invalid output format")

	// ErrInvalidColor indicates an unsupported colour mode
	ErrInvalidColor = errors.New("invalid color mode")

	// ErrInvalidTemplate indicates an output template that does not parse
	ErrInvalidTemplate = errors.New("invalid output template")

	// ErrInvalidPattern indicates an ignore glob that does not compile
	ErrInvalidPattern = errors.New("invalid ignore pattern")

	// ErrEmptyEntryPoint indicates a blank entry point or attribute name
	ErrEmptyEntryPoint = errors.New("empty entry point")

	// ErrInvalidWorkers indicates a negative worker count
	ErrInvalidWorkers = errors.New("invalid worker count")
)

// Validate checks that the configuration is valid and complete. All problems
// are reported together.
func Validate(cfg *Config) error {
	return errors.Join(
		validateLint(&cfg.Lint),
		validatePaths(&cfg.Paths),
		validateOutput(&cfg.Output),
		validateParse(&cfg.Parse),
	)
}

func validateLint(cfg *LintConfig) error {
	var errs []error
	for _, name := range cfg.EntryPoints {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, fmt.Errorf("%w: lint.entry_points contains a blank name", ErrEmptyEntryPoint))
		}
	}
	for _, name := range cfg.EntryAttributes {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, fmt.Errorf("%w: lint.entry_attributes contains a blank name", ErrEmptyEntryPoint))
		}
	}
	return errors.Join(errs...)
}

func validatePaths(cfg *PathsConfig) error {
	var errs []error
	for _, pattern := range cfg.Ignore {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err))
		}
	}
	return errors.Join(errs...)
}

func validateOutput(cfg *OutputConfig) error {
	var errs []error

	switch strings.ToLower(cfg.Format) {
	case "text", "short", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: must be 'text', 'short' or 'json', got '%s'", ErrInvalidFormat, cfg.Format))
	}

	switch strings.ToLower(cfg.Color) {
	case "auto", "always", "never":
	default:
		errs = append(errs, fmt.Errorf("%w: must be 'auto', 'always' or 'never', got '%s'", ErrInvalidColor, cfg.Color))
	}

	if cfg.Template != "" {
		if _, err := template.New("output").Parse(cfg.Template); err != nil {
			errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidTemplate, err))
		}
	}

	return errors.Join(errs...)
}

func validateParse(cfg *ParseConfig) error {
	if cfg.Workers < 0 {
		return fmt.Errorf("%w: parse.workers cannot be negative, got %d", ErrInvalidWorkers, cfg.Workers)
	}
	return nil
}
