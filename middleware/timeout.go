package middleware

import (
	"context"
	"time"

	"github.com/teranos/genpipe/errors"
	"github.com/teranos/genpipe/pipeline"
)

// Timeout bounds the rest of the chain to d. An invocation that fails after
// its deadline passed reports errors.ErrTimeout; cancellation of the outer
// context is left alone. A non-positive d disables the step.
func Timeout(d time.Duration) pipeline.Step {
	return func(rc pipeline.RunContext, next pipeline.Continuation) error {
		if d <= 0 {
			return next(rc)
		}

		parent := rc.Ctx
		if parent == nil {
			parent = context.Background()
		}
		ctx, cancel := context.WithTimeout(parent, d)
		defer cancel()

		err := next(rc.WithContext(ctx))
		if err == nil || parent.Err() != nil || ctx.Err() == nil {
			return err
		}

		return errors.WithSecondaryError(
			errors.Wrapf(errors.ErrTimeout, "target %q on unit %q exceeded %s", rc.Target.Name, rc.Unit.Name(), d),
			err)
	}
}
