// Package pipeline is the genpipe engine: it runs every registered target
// against every unit through a chain of middleware steps and aggregates the
// artifacts and errors each invocation produces into one Report.
//
// A pipeline is assembled with a Builder:
//
//	p, err := pipeline.NewBuilder().
//	    ResolveUnits(gopkg.Resolver(".", "./...")).
//	    AddTargets(typescript.Target()).
//	    Use(middleware.Logging(log), middleware.Recover()).
//	    Build()
//
//	report, err := p.Run(ctx)
//
// Each (unit, target) pair gets its own RunContext and chain invocation.
// Steps run in registration order; a step that does not call next ends the
// invocation without reaching the target. The terminal action asks the
// RunContext's Factory for a Producer and calls Produce once.
//
// Output from an invocation is buffered and committed to the unit's sink
// only when the whole chain returns nil, so every entry in a Report comes
// from a completed invocation.
package pipeline
