package pipeline

import (
	"sync/atomic"

	"github.com/teranos/genpipe/errors"
)

// Continuation resumes the chain with the given RunContext.
type Continuation func(rc RunContext) error

// Step is a middleware step. It calls next at most once; not calling it
// ends the invocation successfully without running later steps or the
// target. A returned error propagates to the previous step unchanged.
type Step func(rc RunContext, next Continuation) error

// Terminal is the action at the end of a chain.
type Terminal func(rc RunContext) error

// ErrContinuationReused is returned when a step calls next more than once.
var ErrContinuationReused = errors.New("continuation called more than once")

// Chain is an ordered list of steps ending in a terminal action. It holds
// no per-invocation state and may be invoked concurrently.
type Chain struct {
	steps    []Step
	terminal Terminal
}

// NewChain composes steps (outermost first) around terminal.
func NewChain(terminal Terminal, steps ...Step) *Chain {
	return &Chain{
		steps:    append([]Step(nil), steps...),
		terminal: terminal,
	}
}

// Len returns the number of steps.
func (c *Chain) Len() int { return len(c.steps) }

// Invoke runs the chain once for rc.
func (c *Chain) Invoke(rc RunContext) error {
	return c.call(rc, 0)
}

func (c *Chain) call(rc RunContext, index int) error {
	if index >= len(c.steps) {
		return c.terminal(rc)
	}

	var called atomic.Bool
	next := func(nextRC RunContext) error {
		if !called.CompareAndSwap(false, true) {
			return errors.WithAssertionFailure(errors.Wrapf(ErrContinuationReused, "step %d", index))
		}
		return c.call(nextRC, index+1)
	}

	return c.steps[index](rc, next)
}
