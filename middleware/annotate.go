package middleware

import "github.com/teranos/genpipe/pipeline"

// AnnotateErrors prefixes every error message reported further down the
// chain with the target name, e.g. "[typescript] unsupported field".
func AnnotateErrors() pipeline.Step {
	return func(rc pipeline.RunContext, next pipeline.Continuation) error {
		return next(rc.WithOutput(annotatedOutput{
			Output: rc.Output,
			prefix: "[" + rc.Target.Name + "] ",
		}))
	}
}

type annotatedOutput struct {
	pipeline.Output
	prefix string
}

func (o annotatedOutput) AddError(e pipeline.ErrorRecord) {
	e.Message = o.prefix + e.Message
	o.Output.AddError(e)
}
