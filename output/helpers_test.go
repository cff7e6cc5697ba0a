package output

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teranos/genpipe/pipeline"
)

// produced describes what one unit yields in a test run.
type produced struct {
	unit      string
	artifacts []pipeline.Artifact
	errors    []string
}

// runReport runs a single-target pipeline that replays produced.
func runReport(t *testing.T, units ...produced) *pipeline.Report {
	t.Helper()

	byUnit := make(map[string]produced, len(units))
	names := make([]string, len(units))
	for i, u := range units {
		byUnit[u.unit] = u
		names[i] = u.unit
	}

	target := pipeline.Target{
		Name: "replay",
		New: func() (pipeline.Producer, error) {
			return pipeline.ProducerFunc(func(rc pipeline.RunContext) error {
				u := byUnit[rc.Unit.Name()]
				for _, a := range u.artifacts {
					rc.AddSource(a.Name, a.Content)
				}
				for _, e := range u.errors {
					rc.AddError(e, nil)
				}
				return nil
			}), nil
		},
	}

	p, err := pipeline.NewBuilder().
		WithLogger(zap.NewNop().Sugar()).
		AddUnits(pipeline.Units(names...)...).
		AddTargets(target).
		Concurrent(false).
		Build()
	require.NoError(t, err)

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	return report
}

func artifact(name, content string) pipeline.Artifact {
	return pipeline.Artifact{Name: name, Content: content}
}
