package pipeline

import (
	"reflect"

	"github.com/teranos/genpipe/errors"
)

// Producer generates artifacts for one unit. Expected failures go to
// rc.AddError; a returned error is treated as an unhandled fault.
type Producer interface {
	Produce(rc RunContext) error
}

// ProducerFunc adapts a function to Producer.
type ProducerFunc func(rc RunContext) error

// Produce implements Producer.
func (f ProducerFunc) Produce(rc RunContext) error { return f(rc) }

// Target describes a producer. It is immutable once built.
type Target struct {
	Name        string
	Description string

	// New is the argument-less construction path used by DefaultFactory.
	New func() (Producer, error)

	// Constructor is an optional function whose parameters are resolved by
	// a dependency-injection step and whose first result is a Producer.
	Constructor any

	// Requires optionally constrains the engine version, e.g. ">= 0.3".
	Requires string
}

// Factory turns the RunContext's target into a live Producer.
type Factory func(rc RunContext) (Producer, error)

// ErrNoConstructor is returned when a target has no argument-less
// construction path.
var ErrNoConstructor = errors.Wrap(errors.ErrConfiguration, "target has no argument-less constructor")

// DefaultFactory constructs producers through Target.New.
func DefaultFactory(rc RunContext) (Producer, error) {
	t := rc.Target
	if t.New == nil {
		return nil, errors.WithHint(
			errors.Wrapf(ErrNoConstructor, "target %q", t.Name),
			"set Target.New or add a dependency-injection step")
	}

	p, err := t.New()
	if err != nil {
		return nil, errors.Wrapf(err, "construct target %q", t.Name)
	}
	if isNilProducer(p) {
		return nil, errors.NewConfigurationError("target %q constructor returned nil", t.Name)
	}
	return p, nil
}

// isNilProducer also catches a nil pointer or func wrapped in the interface.
func isNilProducer(p Producer) bool {
	if p == nil {
		return true
	}
	v := reflect.ValueOf(p)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// Execute is the default terminal action: build the producer once and run it.
func Execute(rc RunContext) error {
	factory := rc.Factory
	if factory == nil {
		factory = DefaultFactory
	}

	p, err := factory(rc)
	if err != nil {
		return err
	}
	return p.Produce(rc)
}

// TargetFor describes the producer type T, constructed as new(T).
func TargetFor[T any, PT interface {
	*T
	Producer
}](name, description string) Target {
	return Target{
		Name:        name,
		Description: description,
		New: func() (Producer, error) {
			return PT(new(T)), nil
		},
	}
}
