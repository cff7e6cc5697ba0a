package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/teranos/genpipe/errors"
)

// Options controls fan-out. It is read-only once a Pipeline is built.
type Options struct {
	// Concurrent runs every (unit, target) pair in its own goroutine.
	// Otherwise pairs run one at a time in registration order.
	Concurrent bool

	// IncludeGenerated also runs targets against units that report
	// themselves as generated code.
	IncludeGenerated bool

	// MaxWorkers bounds concurrent invocations; 0 means unbounded.
	MaxWorkers int
}

// DefaultOptions runs concurrently and skips generated units.
func DefaultOptions() Options {
	return Options{Concurrent: true}
}

// Pipeline is an immutable, runnable configuration produced by Builder.
// Run may be called any number of times, including concurrently.
type Pipeline struct {
	units     []Unit
	resolvers []UnitResolver
	targets   []Target
	chain     *Chain
	factory   Factory
	opts      Options
	logger    *zap.SugaredLogger
}

// Options returns the pipeline's options.
func (p *Pipeline) Options() Options { return p.opts }

// Targets returns the configured targets in registration order.
func (p *Pipeline) Targets() []Target {
	return append([]Target(nil), p.targets...)
}

// Steps returns the number of middleware steps.
func (p *Pipeline) Steps() int { return p.chain.Len() }

// resolveUnits returns static units followed by resolved ones, minus
// generated units unless they are included.
func (p *Pipeline) resolveUnits(ctx context.Context) ([]Unit, error) {
	units := append([]Unit(nil), p.units...)
	for _, resolve := range p.resolvers {
		resolved, err := resolve(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.WithSecondaryError(
					errors.Wrap(errors.ErrCancelled, "resolve units"), err)
			}
			return nil, errors.Wrap(err, "resolve units")
		}
		units = append(units, resolved...)
	}

	if p.opts.IncludeGenerated {
		return units, nil
	}

	eligible := units[:0]
	for _, u := range units {
		if IsGenerated(u) {
			p.logger.Debugw("Skipping generated unit", "unit", u.Name())
			continue
		}
		eligible = append(eligible, u)
	}
	return eligible, nil
}
