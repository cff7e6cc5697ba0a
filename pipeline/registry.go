package pipeline

import (
	"sort"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/teranos/genpipe/errors"
)

// Registry holds the targets available for bulk discovery.
type Registry struct {
	mu      sync.RWMutex
	targets map[string]Target
	engine  *semver.Version // nil for development builds
}

// NewRegistry creates a registry for the given engine version. Development
// versions that are not valid semver skip Requires checks.
func NewRegistry(engineVersion string) *Registry {
	r := &Registry{targets: make(map[string]Target)}
	if v, err := semver.NewVersion(engineVersion); err == nil {
		r.engine = v
	}
	return r
}

// Register adds a target. Names must be unique and non-empty, and the
// target's Requires constraint must accept the engine version.
func (r *Registry) Register(t Target) error {
	if t.Name == "" {
		return errors.NewConfigurationError("target name cannot be empty")
	}
	if err := r.checkCompatibility(t); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.targets[t.Name]; exists {
		return errors.NewConfigurationError("target %q already registered", t.Name)
	}
	r.targets[t.Name] = t
	return nil
}

// MustRegister is Register that panics on error, for init-time wiring.
func (r *Registry) MustRegister(t Target) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

func (r *Registry) checkCompatibility(t Target) error {
	if t.Requires == "" || r.engine == nil {
		return nil
	}

	constraint, err := semver.NewConstraint(t.Requires)
	if err != nil {
		return errors.Wrapf(errors.ErrConfiguration, "target %q: invalid version constraint %q: %v", t.Name, t.Requires, err)
	}
	if !constraint.Check(r.engine) {
		return errors.NewConfigurationError("target %q requires engine %s, but running %s", t.Name, t.Requires, r.engine)
	}
	return nil
}

// Get returns the target registered under name.
func (r *Registry) Get(name string) (Target, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.targets[name]
	return t, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Names returns registered target names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.targets))
	for name := range r.targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Targets returns registered targets ordered by name.
func (r *Registry) Targets() []Target {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()

	targets := make([]Target, len(names))
	for i, name := range names {
		targets[i] = r.targets[name]
	}
	return targets
}

// Select returns the named targets in the order given, or every target
// when names is empty.
func (r *Registry) Select(names ...string) ([]Target, error) {
	if len(names) == 0 {
		return r.Targets(), nil
	}

	targets := make([]Target, 0, len(names))
	for _, name := range names {
		t, ok := r.Get(name)
		if !ok {
			return nil, errors.WithHintf(
				errors.NewNotFoundError("target %q", name),
				"registered targets: %v", r.Names())
		}
		targets = append(targets, t)
	}
	return targets, nil
}
