package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/teranos/genpipe/errors"
	"github.com/teranos/genpipe/logger"
)

// ErrPanic marks a fault raised by a panic inside an invocation.
var ErrPanic = errors.New("invocation panicked")

// Run executes every target against every unit and returns the merged
// report.
//
// An unhandled fault stops new invocations from starting; once in-flight
// ones drain, Run returns (nil, err) and discards partial results. If ctx
// is cancelled, invocations not yet started are skipped, and Run returns
// the report of completed invocations with an error wrapping
// errors.ErrCancelled.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	startedAt := time.Now()
	runID := uuid.NewString()
	ctx = logger.WithComponent(logger.WithRunID(ctx, runID), "pipeline")
	log := p.logger.With(logger.FieldRunID, runID)

	units, err := p.resolveUnits(ctx)
	if err != nil {
		return nil, err
	}

	r := &run{
		ctx:     ctx,
		runID:   runID,
		chain:   p.chain,
		factory: p.factory,
		log:     log,
		sinks:   make([]*sink, len(units)),
	}
	for i, u := range units {
		r.sinks[i] = newSink(u)
	}

	log.Infow("Pipeline run started",
		"units", len(units),
		"targets", len(p.targets),
		"concurrent", p.opts.Concurrent,
		logger.FieldWorkers, p.opts.MaxWorkers)

	if p.opts.Concurrent {
		err = r.fanOutConcurrent(p.targets, p.opts.MaxWorkers)
	} else {
		err = r.fanOutSequential(p.targets)
	}

	duration := time.Since(startedAt)
	if err != nil {
		log.Errorw("Pipeline run faulted",
			logger.FieldError, err,
			logger.FieldDurationMS, duration.Milliseconds())
		return nil, err
	}

	report := newReport(runID, startedAt, duration, r.sinks, r.completed, r.incomplete)

	log.Infow("Pipeline run finished",
		logger.FieldStatus, report.Status(),
		"artifacts", len(report.artifacts),
		"errors", len(report.errors),
		"incomplete", len(report.incomplete),
		logger.FieldDurationMS, duration.Milliseconds())

	if len(report.incomplete) > 0 {
		return report, errors.Wrapf(errors.ErrCancelled, "%d invocations did not complete", len(report.incomplete))
	}
	return report, nil
}

// run is the mutable state of one Pipeline.Run.
type run struct {
	ctx     context.Context
	runID   string
	chain   *Chain
	factory Factory
	log     *zap.SugaredLogger
	sinks   []*sink

	faulted atomic.Bool

	mu         sync.Mutex
	completed  int
	incomplete []Pair
}

func (r *run) fanOutSequential(targets []Target) error {
	for i := range r.sinks {
		for _, t := range targets {
			if err := r.invoke(i, t); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *run) fanOutConcurrent(targets []Target, maxWorkers int) error {
	var g errgroup.Group
	if maxWorkers > 0 {
		g.SetLimit(maxWorkers)
	}

	for i := range r.sinks {
		for _, t := range targets {
			// Go blocks while the limit is reached, so check again here
			// before queueing more work.
			if r.stopped() {
				r.markIncomplete(r.sinks[i].unit, t.Name)
				continue
			}
			g.Go(func() error {
				return r.invoke(i, t)
			})
		}
	}

	return g.Wait()
}

// stopped reports whether no new invocation may start.
func (r *run) stopped() bool {
	return r.faulted.Load() || r.ctx.Err() != nil
}

// invoke runs the chain for one pair and commits its output if the chain
// completed.
func (r *run) invoke(i int, t Target) error {
	s := r.sinks[i]
	if r.stopped() {
		r.markIncomplete(s.unit, t.Name)
		return nil
	}

	buf := &buffer{}
	rc := RunContext{
		Ctx:     r.ctx,
		RunID:   r.runID,
		Unit:    s.unit,
		Target:  t,
		Factory: r.factory,
		Output:  buf,
		Logger:  logger.ChildLogger(r.log, logger.FieldUnit, s.unit.Name(), logger.FieldTarget, t.Name),
	}

	err := r.safeInvoke(rc)

	switch {
	case r.ctx.Err() != nil:
		// Whatever the chain returned, it may have been cut short.
		r.markIncomplete(s.unit, t.Name)
		return nil
	case err != nil:
		r.faulted.Store(true)
		return errors.Wrapf(err, "unit %q, target %q", s.unit.Name(), t.Name)
	}

	s.commit(t.Name, buf)

	r.mu.Lock()
	r.completed++
	r.mu.Unlock()
	return nil
}

// safeInvoke converts a panic into a fault so one invocation cannot take
// down the process.
func (r *run) safeInvoke(rc RunContext) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Wrapf(ErrPanic, "%v", rec)
		}
	}()
	return r.chain.Invoke(rc)
}

func (r *run) markIncomplete(u Unit, target string) {
	r.mu.Lock()
	r.incomplete = append(r.incomplete, Pair{Unit: u, Target: target})
	r.mu.Unlock()
}
