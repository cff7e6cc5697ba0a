package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/teranos/genpipe/am"
	"github.com/teranos/genpipe/errors"
	genpipetest "github.com/teranos/genpipe/internal/testing"
	"github.com/teranos/genpipe/output"
)

func demoModule(t *testing.T) string {
	return genpipetest.WriteModule(t, map[string]string{
		"jobs/jobs.go": `package jobs

// Status is the lifecycle of a job.
type Status string

const (
	StatusQueued Status = "queued"
	StatusDone   Status = "done"
)

// Job is a unit of background work.
type Job struct {
	ID     string ` + "`json:\"id\"`" + `
	Status Status ` + "`json:\"status\"`" + `
}
`,
		"gen/gen.go": "// Code generated by genpipe. DO NOT EDIT.\n\npackage gen\n\ntype Out struct{}\n",
	})
}

// testConfig points every path of the default config into temp dirs.
func testConfig(t *testing.T, moduleDir string) *am.Config {
	cfg := am.Default()
	cfg.Pipeline.Dir = moduleDir
	cfg.Output.Dir = filepath.Join(t.TempDir(), "gen")
	cfg.History.Path = filepath.Join(t.TempDir(), "history.db")
	return cfg
}

func newTestRunner(t *testing.T, cfg *am.Config, opts runOptions) (*runner, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	r, err := newRunner(cfg, opts, &out, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r, &out
}

func decodeSummary(t *testing.T, out *bytes.Buffer) runSummary {
	t.Helper()
	var s runSummary
	require.NoError(t, json.Unmarshal(out.Bytes(), &s), out.String())
	return s
}

func TestApplyRunFlags(t *testing.T) {
	cmd := &cobra.Command{}
	var opts runOptions
	addRunFlags(cmd, &opts)
	require.NoError(t, cmd.Flags().Parse([]string{
		"--sequential",
		"-t", "typescript,markdown",
		"--timeout", "1500ms",
		"-o", "out",
		"--check",
		"--skip", "example.com/demo/internal/...",
	}))

	cfg := am.Default()
	applyRunFlags(cmd, cfg)

	assert.False(t, cfg.Pipeline.Concurrent)
	assert.Equal(t, []string{"typescript", "markdown"}, cfg.Pipeline.Targets)
	assert.Equal(t, 2, cfg.Pipeline.TimeoutSeconds, "sub-second remainders round up")
	assert.Equal(t, "out", cfg.Output.Dir)
	assert.True(t, opts.check)
	assert.Equal(t, []string{"example.com/demo/internal/..."}, opts.skip)

	// Unset flags leave the config alone
	assert.Equal(t, []string{"./..."}, cfg.Pipeline.Packages)
	assert.Equal(t, ".", am.Default().Pipeline.Dir)
	assert.Equal(t, ".", cfg.Pipeline.Dir)
	assert.False(t, cfg.Output.S3.Enabled)
}

func TestRunner_WritesRecordsAndChecks(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, demoModule(t))

	r, out := newTestRunner(t, cfg, runOptions{json: true})
	code, err := r.runOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, output.ExitSuccess, code)

	summary := decodeSummary(t, out)
	assert.Equal(t, "succeeded", summary.Status)
	assert.Equal(t, 1, summary.Units, "generated packages are skipped")
	assert.Contains(t, summary.Artifacts, "example.com/demo/jobs/jobs.ts")
	assert.Contains(t, summary.Artifacts, "example.com/demo/jobs/jobs.md")

	ts, err := os.ReadFile(filepath.Join(cfg.Output.Dir, "example.com", "demo", "jobs", "jobs.ts"))
	require.NoError(t, err)
	assert.Contains(t, string(ts), "interface Job")

	runs, err := r.store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, summary.RunID, runs[0].ID)

	t.Run("check passes on fresh output", func(t *testing.T) {
		checker, out := newTestRunner(t, cfg, runOptions{check: true, noHistory: true})
		code, err := checker.runOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, output.ExitSuccess, code)
		assert.Contains(t, out.String(), "up to date")
	})

	t.Run("check reports stale output", func(t *testing.T) {
		path := filepath.Join(cfg.Output.Dir, "example.com", "demo", "jobs", "jobs.ts")
		require.NoError(t, os.WriteFile(path, []byte("// edited by hand\n"), 0o644))

		checker, out := newTestRunner(t, cfg, runOptions{check: true, noHistory: true, json: true})
		code, err := checker.runOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, output.ExitStale, code)

		var s checkSummary
		require.NoError(t, json.Unmarshal(out.Bytes(), &s))
		assert.False(t, s.UpToDate)
		assert.Equal(t, []string{"example.com/demo/jobs/jobs.ts"}, s.Stale)
	})
}

func TestRunner_TraceLogsEveryStep(t *testing.T) {
	cfg := testConfig(t, demoModule(t))

	stepCounts := func(opts runOptions) map[string]int {
		core, logs := observer.New(zapcore.DebugLevel)
		r, err := newRunner(cfg, opts, &bytes.Buffer{}, zap.New(core).Sugar())
		require.NoError(t, err)
		defer r.Close()

		_, err = r.runOnce(context.Background())
		require.NoError(t, err)

		counts := map[string]int{}
		for _, e := range logs.FilterMessage("Entering step").All() {
			counts[e.ContextMap()["step"].(string)]++
		}
		return counts
	}

	counts := stepCounts(runOptions{noHistory: true, trace: true})
	for _, step := range []string{"recover", "logging", "annotate", "inject"} {
		assert.Equal(t, 2, counts[step], step)
	}

	assert.Empty(t, stepCounts(runOptions{noHistory: true}))
}

func TestRunner_SkipAndTargetSelection(t *testing.T) {
	cfg := testConfig(t, demoModule(t))
	cfg.Pipeline.Targets = []string{"markdown"}

	r, out := newTestRunner(t, cfg, runOptions{json: true, noHistory: true, skip: []string{"example.com/demo/jobs"}})
	code, err := r.runOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, output.ExitSuccess, code)
	assert.Empty(t, decodeSummary(t, out).Artifacts)
	assert.Nil(t, r.store)
}

func TestRunner_UnknownTarget(t *testing.T) {
	cfg := testConfig(t, demoModule(t))
	cfg.Pipeline.Targets = []string{"protobuf"}

	r, _ := newTestRunner(t, cfg, runOptions{noHistory: true})
	code, err := r.runOnce(context.Background())
	assert.Equal(t, output.ExitFault, code)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestRunner_MissingProjectIsRecordedAsFault(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, filepath.Join(t.TempDir(), "missing"))

	r, out := newTestRunner(t, cfg, runOptions{json: true})
	code, err := r.runOnce(ctx)
	require.Error(t, err)
	assert.Equal(t, output.ExitFault, code)

	summary := decodeSummary(t, out)
	assert.Equal(t, "faulted", summary.Status)
	assert.NotEmpty(t, summary.Fault)

	runs, err := r.store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "faulted", runs[0].Status)
}

func TestRunner_CancelledRun(t *testing.T) {
	cfg := testConfig(t, demoModule(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, _ := newTestRunner(t, cfg, runOptions{noHistory: true})
	code, err := r.runOnce(ctx)
	assert.Equal(t, output.ExitCancelled, code)
	assert.True(t, errors.IsCancelled(err))
}

func TestRunner_Container(t *testing.T) {
	cfg := testConfig(t, demoModule(t))
	r, _ := newTestRunner(t, cfg, runOptions{noHistory: true})

	c, err := r.container()
	require.NoError(t, err)
	require.NoError(t, c.Invoke(func(got *am.Config) {
		assert.Same(t, cfg, got)
	}))
}

func TestSignalContext_StopsWithParent(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := signalContext(parent)
	defer stop()

	cancel()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("signal context should follow its parent")
	}
}
