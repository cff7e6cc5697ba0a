package middleware

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/teranos/genpipe/pipeline"
)

// recorder is a pipeline.Output that keeps everything it receives.
type recorder struct {
	mu        sync.Mutex
	artifacts []pipeline.Artifact
	errors    []pipeline.ErrorRecord
}

func (r *recorder) AddArtifact(a pipeline.Artifact) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.artifacts = append(r.artifacts, a)
}

func (r *recorder) AddError(e pipeline.ErrorRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, e)
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.errors {
		out = append(out, e.Message)
	}
	return out
}

func producing(fn func(rc pipeline.RunContext) error) pipeline.Target {
	return pipeline.Target{
		Name: "gen",
		New: func() (pipeline.Producer, error) {
			return pipeline.ProducerFunc(fn), nil
		},
	}
}

// invoke runs target against unit through steps and the default terminal.
func invoke(t *testing.T, unit string, target pipeline.Target, steps ...pipeline.Step) (*recorder, error) {
	t.Helper()
	out := &recorder{}
	rc := pipeline.RunContext{
		Ctx:     context.Background(),
		RunID:   "test",
		Unit:    pipeline.NamedUnit(unit),
		Target:  target,
		Factory: pipeline.DefaultFactory,
		Output:  out,
		Logger:  zap.NewNop().Sugar(),
	}
	err := pipeline.NewChain(pipeline.Execute, steps...).Invoke(rc)
	return out, err
}

func emitOne(rc pipeline.RunContext) error {
	rc.AddSource("out.gen", rc.Unit.Name())
	return nil
}
