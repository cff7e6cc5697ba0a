package middleware

import (
	"golang.org/x/time/rate"

	"github.com/teranos/genpipe/errors"
	"github.com/teranos/genpipe/pipeline"
)

// RateLimit waits for limiter before continuing. Share one limiter across
// the pipeline to bound invocations per second across all workers.
func RateLimit(limiter *rate.Limiter) pipeline.Step {
	return func(rc pipeline.RunContext, next pipeline.Continuation) error {
		if limiter == nil {
			return next(rc)
		}
		if err := limiter.Wait(rc.Ctx); err != nil {
			if rc.Err() != nil {
				return rc.Err()
			}
			return errors.Wrap(err, "rate limit")
		}
		return next(rc)
	}
}

// NewLimiter builds a limiter allowing perSecond invocations with a burst of
// one. Zero or less means unlimited.
func NewLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}
