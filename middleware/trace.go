package middleware

import (
	"github.com/teranos/genpipe/logger"
	"github.com/teranos/genpipe/pipeline"
)

// Traced logs entry into step, its call to next and its return at debug
// level, tagged with name.
func Traced(name string, step pipeline.Step) pipeline.Step {
	return func(rc pipeline.RunContext, next pipeline.Continuation) error {
		l := logger.ChildLogger(rc.Log(), logger.FieldStep, name)
		l.Debugw("Entering step")
		err := step(rc, func(rc pipeline.RunContext) error {
			l.Debugw("Step continued")
			return next(rc)
		})
		if err != nil {
			l.Debugw("Leaving step", logger.FieldError, err)
			return err
		}
		l.Debugw("Leaving step")
		return nil
	}
}
