package pipeline

import "sync"

// sink collects the committed output of every target run against one unit.
// Appends may come from concurrent invocations; reads happen only after the
// fan-out has drained.
type sink struct {
	unit Unit

	mu        sync.Mutex
	artifacts []SourceFile
	errors    []UnitError
}

func newSink(u Unit) *sink {
	return &sink{unit: u}
}

// commit appends everything buffered by one completed invocation, keeping
// the buffer's order.
func (s *sink) commit(target string, b *buffer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range b.artifacts {
		s.artifacts = append(s.artifacts, SourceFile{Unit: s.unit, Target: target, Artifact: a})
	}
	for _, e := range b.errors {
		s.errors = append(s.errors, UnitError{Unit: s.unit, Target: target, ErrorRecord: e})
	}
}

// buffer is the Output handed to a single invocation. Producers may spawn
// goroutines, so it is internally synchronized as well.
type buffer struct {
	mu        sync.Mutex
	artifacts []Artifact
	errors    []ErrorRecord
}

func (b *buffer) AddArtifact(a Artifact) {
	b.mu.Lock()
	b.artifacts = append(b.artifacts, a)
	b.mu.Unlock()
}

func (b *buffer) AddError(e ErrorRecord) {
	b.mu.Lock()
	b.errors = append(b.errors, e)
	b.mu.Unlock()
}
