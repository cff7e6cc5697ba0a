package middleware

import (
	"path"
	"strings"

	"github.com/teranos/genpipe/errors"
	"github.com/teranos/genpipe/pipeline"
)

// Filter continues only for invocations accepted by keep. Rejected
// invocations produce nothing.
func Filter(keep func(rc pipeline.RunContext) bool) pipeline.Step {
	return func(rc pipeline.RunContext, next pipeline.Continuation) error {
		if !keep(rc) {
			rc.Log().Debugw("Invocation filtered out")
			return nil
		}
		return next(rc)
	}
}

// ForUnits keeps units whose name matches one of patterns. Patterns use
// path.Match syntax; a trailing "/..." matches the prefix and everything
// below it, as with go list.
func ForUnits(patterns ...string) pipeline.Step {
	if err := validatePatterns(patterns); err != nil {
		return failing(err)
	}
	return Filter(func(rc pipeline.RunContext) bool {
		return matchAny(patterns, rc.Unit.Name())
	})
}

// SkipUnits drops units whose name matches one of patterns.
func SkipUnits(patterns ...string) pipeline.Step {
	if err := validatePatterns(patterns); err != nil {
		return failing(err)
	}
	return Filter(func(rc pipeline.RunContext) bool {
		return !matchAny(patterns, rc.Unit.Name())
	})
}

// OnlyTargets keeps the named targets.
func OnlyTargets(names ...string) pipeline.Step {
	allowed := make(map[string]bool, len(names))
	for _, n := range names {
		allowed[n] = true
	}
	return Filter(func(rc pipeline.RunContext) bool {
		return allowed[rc.Target.Name]
	})
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if matchUnit(p, name) {
			return true
		}
	}
	return false
}

func matchUnit(pattern, name string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/..."); ok {
		if name == prefix || strings.HasPrefix(name, prefix+"/") {
			return true
		}
	}
	ok, _ := path.Match(pattern, name)
	return ok
}

func validatePatterns(patterns []string) error {
	for _, p := range patterns {
		if _, err := path.Match(strings.TrimSuffix(p, "/..."), ""); err != nil {
			return errors.NewConfigurationError("invalid unit pattern %q: %v", p, err)
		}
	}
	return nil
}

// failing reports a setup mistake on first use, since steps are built
// before a Builder can reject them.
func failing(err error) pipeline.Step {
	return func(pipeline.RunContext, pipeline.Continuation) error {
		return err
	}
}
