package middleware

import (
	"context"
	"reflect"
	"sync"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/teranos/genpipe/errors"
	"github.com/teranos/genpipe/pipeline"
)

var (
	errorType    = reflect.TypeOf((*error)(nil)).Elem()
	producerType = reflect.TypeOf((*pipeline.Producer)(nil)).Elem()
)

// Inject constructs producers through Target.Constructor, resolving its
// parameters from c. Each invocation gets its own child scope that also
// provides the invocation's context.Context, pipeline.Unit and
// *zap.SugaredLogger, so c must not provide those types itself.
//
// Targets without a Constructor keep the factory already in place.
//
// A dig container is not safe for concurrent use, so constructions through
// the same step are serialized from scope creation to the constructor's
// return. Produce itself still runs in parallel.
func Inject(c *dig.Container) pipeline.Step {
	var mu sync.Mutex
	return func(rc pipeline.RunContext, next pipeline.Continuation) error {
		if rc.Target.Constructor == nil {
			return next(rc)
		}
		if c == nil {
			return errors.NewConfigurationError("target %q: dependency injection without a container", rc.Target.Name)
		}
		return next(rc.WithFactory(func(rc pipeline.RunContext) (pipeline.Producer, error) {
			mu.Lock()
			defer mu.Unlock()
			return construct(c, rc)
		}))
	}
}

func construct(c *dig.Container, rc pipeline.RunContext) (pipeline.Producer, error) {
	name := rc.Target.Name
	ctor := reflect.ValueOf(rc.Target.Constructor)
	if err := checkConstructor(ctor.Type()); err != nil {
		return nil, errors.Wrapf(err, "target %q", name)
	}

	scope := c.Scope(name + "/" + rc.Unit.Name())
	provided := []any{
		func() context.Context { return rc.Ctx },
		func() pipeline.Unit { return rc.Unit },
		func() *zap.SugaredLogger { return rc.Log() },
	}
	for _, fn := range provided {
		if err := scope.Provide(fn); err != nil {
			return nil, errors.Wrapf(errors.ErrConfiguration, "target %q: provide invocation scope: %v", name, err)
		}
	}

	// dig only invokes functions; wrap the constructor in one with the same
	// parameters that captures its result.
	var (
		called   bool
		producer pipeline.Producer
	)
	ins := make([]reflect.Type, ctor.Type().NumIn())
	for i := range ins {
		ins[i] = ctor.Type().In(i)
	}
	invoke := reflect.MakeFunc(
		reflect.FuncOf(ins, []reflect.Type{errorType}, false),
		func(args []reflect.Value) []reflect.Value {
			called = true
			out := ctor.Call(args)
			if len(out) == 2 && !out[1].IsNil() {
				return []reflect.Value{out[1]}
			}
			if p, ok := out[0].Interface().(pipeline.Producer); ok && !isNil(out[0]) {
				producer = p
			}
			return []reflect.Value{reflect.Zero(errorType)}
		})

	if err := scope.Invoke(invoke.Interface()); err != nil {
		if !called {
			return nil, errors.WithHint(
				errors.Wrapf(errors.ErrConfiguration, "target %q: resolve constructor parameters: %v", name, err),
				"provide every constructor parameter in the container")
		}
		return nil, errors.Wrapf(dig.RootCause(err), "construct target %q", name)
	}
	if producer == nil {
		return nil, errors.NewConfigurationError("target %q constructor returned nil", name)
	}
	return producer, nil
}

// checkConstructor accepts func(deps...) P and func(deps...) (P, error)
// where P implements pipeline.Producer.
func checkConstructor(t reflect.Type) error {
	if t.Kind() != reflect.Func {
		return errors.NewConfigurationError("constructor must be a function, got %s", t)
	}
	if t.IsVariadic() {
		return errors.NewConfigurationError("constructor %s must not be variadic", t)
	}
	switch {
	case t.NumOut() == 1:
	case t.NumOut() == 2 && t.Out(1) == errorType:
	default:
		return errors.NewConfigurationError("constructor %s must return a producer and optionally an error", t)
	}
	if !t.Out(0).Implements(producerType) {
		return errors.NewConfigurationError("constructor result %s does not implement pipeline.Producer", t.Out(0))
	}
	return nil
}

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}
