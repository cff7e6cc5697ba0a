package middleware

import (
	"fmt"

	"github.com/teranos/genpipe/errors"
	"github.com/teranos/genpipe/logger"
	"github.com/teranos/genpipe/pipeline"
)

// Recover turns faults raised further down the chain into error records so
// the rest of the run carries on. Panics are recovered the same way.
//
// Cancellation of the invocation's context, configuration errors and
// assertion failures pass through untouched: they describe the pipeline,
// not the unit.
func Recover() pipeline.Step {
	return func(rc pipeline.RunContext, next pipeline.Continuation) (err error) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			rc.Log().Errorw("Invocation panicked", "panic", rec)
			rc.AddError(fmt.Sprintf("panic: %v", rec), nil)
			err = nil
		}()

		err = next(rc)
		if err == nil || passThrough(rc, err) {
			return err
		}

		rc.Log().Warnw("Recovered invocation fault", logger.FieldError, err)
		rc.AddError(err.Error(), nil)
		return nil
	}
}

func passThrough(rc pipeline.RunContext, err error) bool {
	return rc.Err() != nil ||
		errors.IsConfigurationError(err) ||
		errors.HasAssertionFailure(err)
}
