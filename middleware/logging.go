package middleware

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/genpipe/logger"
	"github.com/teranos/genpipe/pipeline"
)

// Logging logs the start and end of every invocation that reaches it.
// With a nil log it uses the invocation's own logger.
func Logging(log *zap.SugaredLogger) pipeline.Step {
	return func(rc pipeline.RunContext, next pipeline.Continuation) error {
		l := rc.Log()
		if log != nil {
			l = logger.ChildLogger(log, logger.FieldUnit, rc.Unit.Name(), logger.FieldTarget, rc.Target.Name)
		}

		start := time.Now()
		l.Debugw("Invocation started")

		counter := &countingOutput{Output: rc.Output}
		err := next(rc.WithOutput(counter))

		elapsed := time.Since(start).Milliseconds()
		if err != nil {
			l.Warnw("Invocation failed",
				logger.FieldError, err,
				logger.FieldDurationMS, elapsed)
			return err
		}

		l.Infow("Invocation finished",
			"artifacts", counter.artifacts.Load(),
			"errors", counter.errors.Load(),
			logger.FieldDurationMS, elapsed)
		return nil
	}
}

// countingOutput tallies what passes through to the wrapped Output.
type countingOutput struct {
	pipeline.Output
	artifacts atomic.Int64
	errors    atomic.Int64
}

func (c *countingOutput) AddArtifact(a pipeline.Artifact) {
	c.artifacts.Add(1)
	c.Output.AddArtifact(a)
}

func (c *countingOutput) AddError(e pipeline.ErrorRecord) {
	c.errors.Add(1)
	c.Output.AddError(e)
}
