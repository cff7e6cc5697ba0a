package pipeline

import (
	"go.uber.org/zap"

	"github.com/teranos/genpipe/errors"
	"github.com/teranos/genpipe/logger"
)

// Builder accumulates units, targets, steps and options. It is meant for a
// single goroutine: configure, Build, then run the Pipeline.
type Builder struct {
	units     []Unit
	resolvers []UnitResolver
	targets   []Target
	steps     []Step
	opts      Options
	factory   Factory
	logger    *zap.SugaredLogger
	errs      []error
}

// NewBuilder starts with DefaultOptions and DefaultFactory.
func NewBuilder() *Builder {
	return &Builder{
		opts:    DefaultOptions(),
		factory: DefaultFactory,
	}
}

// AddUnits appends pre-resolved units.
func (b *Builder) AddUnits(units ...Unit) *Builder {
	b.units = append(b.units, units...)
	return b
}

// ResolveUnits appends a resolver called at the start of every run. Its
// units follow those added with AddUnits.
func (b *Builder) ResolveUnits(resolve UnitResolver) *Builder {
	b.resolvers = append(b.resolvers, resolve)
	return b
}

// AddTargets appends target descriptors.
func (b *Builder) AddTargets(targets ...Target) *Builder {
	b.targets = append(b.targets, targets...)
	return b
}

// AddRegistered appends the named targets from reg, or all of them when no
// names are given. Unknown names surface from Build.
func (b *Builder) AddRegistered(reg *Registry, names ...string) *Builder {
	targets, err := reg.Select(names...)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	return b.AddTargets(targets...)
}

// Use appends middleware steps; the first step added runs outermost.
func (b *Builder) Use(steps ...Step) *Builder {
	b.steps = append(b.steps, steps...)
	return b
}

// Concurrent toggles concurrent fan-out.
func (b *Builder) Concurrent(on bool) *Builder {
	b.opts.Concurrent = on
	return b
}

// IncludeGenerated toggles running against generated units.
func (b *Builder) IncludeGenerated(on bool) *Builder {
	b.opts.IncludeGenerated = on
	return b
}

// MaxWorkers bounds concurrent invocations; 0 means unbounded.
func (b *Builder) MaxWorkers(n int) *Builder {
	b.opts.MaxWorkers = n
	return b
}

// WithOptions replaces all options at once.
func (b *Builder) WithOptions(opts Options) *Builder {
	b.opts = opts
	return b
}

// WithFactory sets the factory every RunContext starts with.
func (b *Builder) WithFactory(f Factory) *Builder {
	b.factory = f
	return b
}

// WithLogger sets the logger for runs and invocations.
func (b *Builder) WithLogger(l *zap.SugaredLogger) *Builder {
	b.logger = l
	return b
}

// Build validates the configuration and snapshots it into a Pipeline.
// Later changes to the Builder do not affect the result.
func (b *Builder) Build() (*Pipeline, error) {
	if len(b.errs) > 0 {
		return nil, errors.WithDetailf(b.errs[0], "%d builder errors", len(b.errs))
	}
	if b.opts.MaxWorkers < 0 {
		return nil, errors.NewConfigurationError("max workers must be >= 0, got %d", b.opts.MaxWorkers)
	}
	if b.factory == nil {
		return nil, errors.NewConfigurationError("factory cannot be nil")
	}

	seen := make(map[string]bool, len(b.targets))
	for _, t := range b.targets {
		if t.Name == "" {
			return nil, errors.NewConfigurationError("target name cannot be empty")
		}
		if seen[t.Name] {
			return nil, errors.NewConfigurationError("target %q added twice", t.Name)
		}
		seen[t.Name] = true
	}
	for i, s := range b.steps {
		if s == nil {
			return nil, errors.NewConfigurationError("middleware step %d is nil", i)
		}
	}
	for i, u := range b.units {
		if u == nil {
			return nil, errors.NewConfigurationError("unit %d is nil", i)
		}
	}
	for i, r := range b.resolvers {
		if r == nil {
			return nil, errors.NewConfigurationError("unit resolver %d is nil", i)
		}
	}

	log := b.logger
	if log == nil {
		log = logger.ComponentLogger("pipeline")
	}

	return &Pipeline{
		units:     append([]Unit(nil), b.units...),
		resolvers: append([]UnitResolver(nil), b.resolvers...),
		targets:   append([]Target(nil), b.targets...),
		chain:     NewChain(Execute, b.steps...),
		factory:   b.factory,
		opts:      b.opts,
		logger:    log,
	}, nil
}
