// Package middleware provides reusable pipeline steps.
//
// Steps are registered with pipeline.Builder.Use; the first step runs
// outermost. A typical stack:
//
//	b.Use(
//	    middleware.Logging(nil),
//	    middleware.Recover(),
//	    middleware.SkipUnits("*/internal/testing"),
//	    middleware.Timeout(30*time.Second),
//	    middleware.Inject(container),
//	)
package middleware
