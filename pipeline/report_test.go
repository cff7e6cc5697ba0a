package pipeline

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLocation string

func (l testLocation) String() string { return string(l) }

func TestSink_CommitTagsUnitAndTarget(t *testing.T) {
	s := newSink(NamedUnit("u"))

	buf := &buffer{}
	buf.AddArtifact(Artifact{Name: "one", Content: "1"})
	buf.AddArtifact(Artifact{Name: "two", Content: "2"})
	buf.AddError(ErrorRecord{Message: "bad", Location: testLocation("u.go:3:1")})
	s.commit("gen", buf)

	require.Len(t, s.artifacts, 2)
	assert.Equal(t, "one", s.artifacts[0].Name)
	assert.Equal(t, "two", s.artifacts[1].Name)
	assert.Equal(t, "gen", s.artifacts[1].Target)
	assert.Equal(t, "u", s.artifacts[0].Unit.Name())

	require.Len(t, s.errors, 1)
	assert.Equal(t, "gen", s.errors[0].Target)
	assert.Equal(t, "u.go:3:1: bad", s.errors[0].String())
}

func TestSink_ConcurrentCommitsKeepBufferOrder(t *testing.T) {
	s := newSink(NamedUnit("u"))

	const targets = 16
	var wg sync.WaitGroup
	for i := 0; i < targets; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			buf := &buffer{}
			for j := 0; j < 3; j++ {
				buf.AddArtifact(Artifact{Name: fmt.Sprintf("%d-%d", i, j)})
			}
			s.commit(fmt.Sprintf("t%d", i), buf)
		}(i)
	}
	wg.Wait()

	require.Len(t, s.artifacts, targets*3)
	// Each commit lands as one contiguous, ordered block
	for k := 0; k < len(s.artifacts); k += 3 {
		target := s.artifacts[k].Target
		for j := 0; j < 3; j++ {
			assert.Equal(t, target, s.artifacts[k+j].Target)
			assert.Equal(t, fmt.Sprintf("%s-%d", target[1:], j), s.artifacts[k+j].Name)
		}
	}
}

func TestErrorRecord_String(t *testing.T) {
	assert.Equal(t, "bad", ErrorRecord{Message: "bad"}.String())
	assert.Equal(t, "x.go:1:2: bad", ErrorRecord{Message: "bad", Location: testLocation("x.go:1:2")}.String())
}

func newTestReport(incomplete ...Pair) *Report {
	a := newSink(NamedUnit("a"))
	b := newSink(NamedUnit("b"))
	empty := newSink(NamedUnit("empty"))

	bufA := &buffer{}
	bufA.AddArtifact(Artifact{Name: "a.ts", Content: "A"})
	a.commit("ts", bufA)

	bufB := &buffer{}
	bufB.AddArtifact(Artifact{Name: "b.ts", Content: "B"})
	bufB.AddError(ErrorRecord{Message: "unsupported"})
	b.commit("ts", bufB)

	return newReport("run-1", time.Unix(100, 0), time.Second, []*sink{a, b, empty}, 2, incomplete)
}

func TestReport_Views(t *testing.T) {
	r := newTestReport()

	assert.Equal(t, "run-1", r.RunID())
	assert.Equal(t, time.Unix(100, 0), r.StartedAt())
	assert.Equal(t, time.Second, r.Duration())
	assert.Equal(t, 2, r.Completed())

	require.Len(t, r.Artifacts(), 2)
	assert.Equal(t, "a.ts", r.Artifacts()[0].Name)
	assert.Equal(t, "b.ts", r.Artifacts()[1].Name)

	byUnit := r.ByUnit()
	require.Len(t, byUnit, 3)
	assert.Equal(t, "a", byUnit[0].Unit.Name())
	assert.Len(t, byUnit[1].Errors, 1)
	assert.Equal(t, "empty", byUnit[2].Unit.Name())
	assert.Empty(t, byUnit[2].Artifacts)

	assert.False(t, r.Success())
	assert.Equal(t, StatusFailed, r.Status())
}

func TestReport_StatusPrefersFailedOverIncomplete(t *testing.T) {
	r := newTestReport(Pair{Unit: NamedUnit("c"), Target: "ts"})
	assert.Equal(t, StatusFailed, r.Status())
	assert.Len(t, r.Incomplete(), 1)
}

func TestReport_AccessorsReturnCopies(t *testing.T) {
	r := newTestReport()

	artifacts := r.Artifacts()
	artifacts[0].Name = "mutated"
	byUnit := r.ByUnit()
	byUnit[0].Artifacts[0].Content = "mutated"
	units := r.Units()
	units[0] = NamedUnit("mutated")

	assert.Equal(t, "a.ts", r.Artifacts()[0].Name)
	assert.Equal(t, "A", r.ByUnit()[0].Artifacts[0].Content)
	assert.Equal(t, "a", r.Units()[0].Name())
}
