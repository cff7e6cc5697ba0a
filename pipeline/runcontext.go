package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/teranos/genpipe/logger"
)

// RunContext is the per-invocation state threaded through the chain. It is
// a value: a step that wants different state for the rest of the chain
// derives a copy with one of the With methods and passes it to next.
// A RunContext is never shared between invocations.
type RunContext struct {
	// Ctx carries cancellation. Producers and steps check it before
	// expensive work.
	Ctx context.Context

	RunID  string
	Unit   Unit
	Target Target

	// Factory builds the Producer for Target. Middleware may replace it.
	Factory Factory

	// Output receives artifacts and errors for this invocation.
	Output Output

	Logger *zap.SugaredLogger
}

// AddSource appends a generated artifact.
func (rc RunContext) AddSource(name, content string) {
	rc.Output.AddArtifact(Artifact{Name: name, Content: content})
}

// AddError appends an expected error; loc may be nil.
func (rc RunContext) AddError(message string, loc Location) {
	rc.Output.AddError(ErrorRecord{Message: message, Location: loc})
}

// Err returns the cancellation state of Ctx.
func (rc RunContext) Err() error {
	if rc.Ctx == nil {
		return nil
	}
	return rc.Ctx.Err()
}

// Log returns Logger, or the global logger carrying the run fields of Ctx
// when no logger was set.
func (rc RunContext) Log() *zap.SugaredLogger {
	if rc.Logger != nil {
		return rc.Logger
	}
	if rc.Ctx == nil {
		return logger.Logger
	}
	return logger.LoggerFromContext(rc.Ctx)
}

// WithContext returns a copy using ctx for cancellation.
func (rc RunContext) WithContext(ctx context.Context) RunContext {
	rc.Ctx = ctx
	return rc
}

// WithFactory returns a copy that constructs producers with f.
func (rc RunContext) WithFactory(f Factory) RunContext {
	rc.Factory = f
	return rc
}

// WithOutput returns a copy writing to out.
func (rc RunContext) WithOutput(out Output) RunContext {
	rc.Output = out
	return rc
}

// WithLogger returns a copy logging to l.
func (rc RunContext) WithLogger(l *zap.SugaredLogger) RunContext {
	rc.Logger = l
	return rc
}
