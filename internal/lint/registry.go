package lint

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrDuplicateRule is returned when two rules share a name.
	ErrDuplicateRule = errors.New("duplicate rule")
	// ErrUnknownRule is returned when a disabled rule does not exist.
	ErrUnknownRule = errors.New("unknown rule")
)

// Registry holds the available rules.
type Registry struct {
	rules map[string]Rule
}

// NewRegistry creates a registry holding rules.
func NewRegistry(rules ...Rule) (*Registry, error) {
	r := &Registry{rules: make(map[string]Rule)}
	for _, rule := range rules {
		if err := r.Register(rule); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// DefaultRegistry returns a registry with every built-in rule.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(UnusedFunction{})
	if err != nil {
		panic(err)
	}
	return r
}

// Register adds a rule.
func (r *Registry) Register(rule Rule) error {
	if _, exists := r.rules[rule.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateRule, rule.Name())
	}
	r.rules[rule.Name()] = rule
	return nil
}

// Names returns the registered rule names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.rules))
	for name := range r.rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Rule returns the rule with the given name.
func (r *Registry) Rule(name string) (Rule, bool) {
	rule, ok := r.rules[name]
	return rule, ok
}

// Enabled returns the rules not listed in disabled, sorted by name. Unknown
// names in disabled are an error.
func (r *Registry) Enabled(disabled []string) ([]Rule, error) {
	skip := make(map[string]bool, len(disabled))
	var errs []error
	for _, name := range disabled {
		if _, ok := r.rules[name]; !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownRule, name))
			continue
		}
		skip[name] = true
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	var out []Rule
	for _, name := range r.Names() {
		if !skip[name] {
			out = append(out, r.rules[name])
		}
	}
	return out, nil
}
