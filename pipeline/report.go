package pipeline

import "time"

// Status summarizes a Report.
type Status string

const (
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusIncomplete Status = "incomplete"
)

// Pair identifies one (unit, target) invocation.
type Pair struct {
	Unit   Unit
	Target string
}

// UnitResult is the part of a Report produced for one unit.
type UnitResult struct {
	Unit      Unit
	Artifacts []SourceFile
	Errors    []UnitError
}

// Report is the immutable result of a run. Accessors return copies.
type Report struct {
	runID      string
	startedAt  time.Time
	duration   time.Duration
	units      []Unit
	byUnit     []UnitResult
	artifacts  []SourceFile
	errors     []UnitError
	completed  int
	incomplete []Pair
}

// newReport merges sinks in unit order. Sinks must no longer be written to.
func newReport(runID string, startedAt time.Time, duration time.Duration, sinks []*sink, completed int, incomplete []Pair) *Report {
	r := &Report{
		runID:      runID,
		startedAt:  startedAt,
		duration:   duration,
		units:      make([]Unit, len(sinks)),
		byUnit:     make([]UnitResult, len(sinks)),
		completed:  completed,
		incomplete: append([]Pair(nil), incomplete...),
	}

	for i, s := range sinks {
		r.units[i] = s.unit
		r.byUnit[i] = UnitResult{
			Unit:      s.unit,
			Artifacts: append([]SourceFile(nil), s.artifacts...),
			Errors:    append([]UnitError(nil), s.errors...),
		}
		r.artifacts = append(r.artifacts, s.artifacts...)
		r.errors = append(r.errors, s.errors...)
	}

	return r
}

// Success is true iff the report holds no errors.
func (r *Report) Success() bool {
	return len(r.errors) == 0
}

// Status is failed when there are errors, incomplete when some pairs did
// not finish, and succeeded otherwise.
func (r *Report) Status() Status {
	switch {
	case !r.Success():
		return StatusFailed
	case len(r.incomplete) > 0:
		return StatusIncomplete
	default:
		return StatusSucceeded
	}
}

// Artifacts returns every committed artifact, grouped by unit in unit order.
func (r *Report) Artifacts() []SourceFile {
	return append([]SourceFile(nil), r.artifacts...)
}

// Errors returns every committed error, grouped by unit in unit order.
func (r *Report) Errors() []UnitError {
	return append([]UnitError(nil), r.errors...)
}

// ByUnit returns the per-unit view, in unit order. Units with no output
// are included.
func (r *Report) ByUnit() []UnitResult {
	out := make([]UnitResult, len(r.byUnit))
	for i, u := range r.byUnit {
		out[i] = UnitResult{
			Unit:      u.Unit,
			Artifacts: append([]SourceFile(nil), u.Artifacts...),
			Errors:    append([]UnitError(nil), u.Errors...),
		}
	}
	return out
}

// Units returns the units the run covered.
func (r *Report) Units() []Unit {
	return append([]Unit(nil), r.units...)
}

// Completed is the number of invocations whose output was committed.
func (r *Report) Completed() int { return r.completed }

// Incomplete lists pairs that were interrupted or never started.
func (r *Report) Incomplete() []Pair {
	return append([]Pair(nil), r.incomplete...)
}

// RunID identifies the run that produced the report.
func (r *Report) RunID() string { return r.runID }

// StartedAt is when the run began.
func (r *Report) StartedAt() time.Time { return r.startedAt }

// Duration is how long the run took.
func (r *Report) Duration() time.Duration { return r.duration }
