package output

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teranos/genpipe/errors"
	"github.com/teranos/genpipe/pipeline"
)

func TestArtifactPath(t *testing.T) {
	tests := []struct {
		unit    string
		name    string
		want    string
		wantErr bool
	}{
		{"example.com/demo/jobs", "jobs.ts", "example.com/demo/jobs/jobs.ts", false},
		{"ctx", "sub/file.md", "ctx/sub/file.md", false},
		{"ctx", "../escape.ts", "", true},
		{"ctx", "a/../../escape.ts", "", true},
		{"../up", "x.ts", "", true},
		{"ctx", "/etc/passwd", "", true},
		{"ctx", "", "", true},
		{"ctx", `..\win.ts`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.unit+" "+tt.name, func(t *testing.T) {
			got, err := ArtifactPath(pipeline.SourceFile{
				Unit:     pipeline.NamedUnit(tt.unit),
				Artifact: pipeline.Artifact{Name: tt.name},
			})
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrUnsafePath))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriter_Write(t *testing.T) {
	dir := t.TempDir()
	report := runReport(t,
		produced{unit: "example.com/demo/jobs", artifacts: []pipeline.Artifact{artifact("jobs.ts", "export type A = 1;\n")}},
		produced{unit: "ctx", artifacts: []pipeline.Artifact{artifact("ctx.md", "# ctx\n")}},
	)

	w := NewWriter(dir, zap.NewNop().Sugar())
	result, err := w.Write(context.Background(), report)
	require.NoError(t, err)
	assert.Equal(t, []string{"example.com/demo/jobs/jobs.ts", "ctx/ctx.md"}, result.Written)
	assert.Equal(t, 2, result.Total())

	content, err := os.ReadFile(filepath.Join(dir, "example.com", "demo", "jobs", "jobs.ts"))
	require.NoError(t, err)
	assert.Equal(t, "export type A = 1;\n", string(content))

	// A second write leaves identical files alone.
	result, err = w.Write(context.Background(), report)
	require.NoError(t, err)
	assert.Empty(t, result.Written)
	assert.Len(t, result.Unchanged, 2)
}

func TestWriter_RejectsEscapingPathsBeforeWriting(t *testing.T) {
	dir := t.TempDir()
	report := runReport(t,
		produced{unit: "a", artifacts: []pipeline.Artifact{artifact("ok.ts", "x")}},
		produced{unit: "b", artifacts: []pipeline.Artifact{artifact("../../evil.ts", "x")}},
	)

	_, err := NewWriter(dir, nil).Write(context.Background(), report)
	assert.True(t, errors.Is(err, ErrUnsafePath))
	assert.NoFileExists(t, filepath.Join(dir, "a", "ok.ts"))
}

func TestWriter_EmptyDir(t *testing.T) {
	_, err := NewWriter("", nil).Write(context.Background(), runReport(t))
	assert.True(t, errors.IsConfigurationError(err))
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	report := runReport(t, produced{unit: "u", artifacts: []pipeline.Artifact{
		artifact("same.ts", "// Source version: 2\nexport type A = 1;\n"),
		artifact("stale.ts", "export type B = 2;\n"),
		artifact("missing.ts", "export type C = 3;\n"),
	}})

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "u"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "u", "same.ts"), []byte("// Source version: 1\nexport type A = 1;\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "u", "stale.ts"), []byte("export type B = 1;\n"), 0o644))

	result, err := Check(report, dir)
	require.NoError(t, err)
	assert.False(t, result.UpToDate)
	assert.Equal(t, []string{"u/stale.ts"}, result.Stale)
	assert.Equal(t, []string{"u/missing.ts"}, result.Missing)
}

func TestCheck_AfterWriteIsUpToDate(t *testing.T) {
	dir := t.TempDir()
	report := runReport(t, produced{unit: "u", artifacts: []pipeline.Artifact{artifact("a.ts", "x\n")}})

	_, err := NewWriter(dir, nil).Write(context.Background(), report)
	require.NoError(t, err)

	result, err := Check(report, dir)
	require.NoError(t, err)
	assert.True(t, result.UpToDate)
}

func TestCheck_CustomPrefixes(t *testing.T) {
	dir := t.TempDir()
	report := runReport(t, produced{unit: "u", artifacts: []pipeline.Artifact{artifact("a.md", "<!-- built 2 -->\nbody\n")}})
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "u"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "u", "a.md"), []byte("<!-- built 1 -->\nbody\n"), 0o644))

	result, err := Check(report, dir)
	require.NoError(t, err)
	assert.False(t, result.UpToDate)

	result, err = Check(report, dir, "<!-- built")
	require.NoError(t, err)
	assert.True(t, result.UpToDate)
}

func TestFilterMetadataLines(t *testing.T) {
	got := filterMetadataLines([]byte("a\n  // Source last modified: now\nb"), DefaultMetadataPrefixes)
	assert.Equal(t, "a\nb\n", got)
}

func TestExitCode(t *testing.T) {
	ok := runReport(t, produced{unit: "u", artifacts: []pipeline.Artifact{artifact("a", "b")}})
	failed := runReport(t, produced{unit: "u", errors: []string{"bad"}})

	tests := []struct {
		name   string
		report *pipeline.Report
		err    error
		want   int
	}{
		{"success", ok, nil, ExitSuccess},
		{"errors", failed, nil, ExitErrors},
		{"fault", nil, errors.New("boom"), ExitFault},
		{"configuration", nil, errors.NewConfigurationError("no target"), ExitFault},
		{"cancelled", ok, errors.Wrap(errors.ErrCancelled, "3 invocations did not complete"), ExitCancelled},
		{"cancelled with errors", failed, errors.ErrCancelled, ExitCancelled},
		{"no report", nil, nil, ExitFault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.report, tt.err))
		})
	}
}

type failingWriter struct{ calls int }

func (w *failingWriter) Write(context.Context, *pipeline.Report) (*WriteResult, error) {
	w.calls++
	return nil, errors.New("disk full")
}

func TestWriteAndReturn(t *testing.T) {
	dir := t.TempDir()
	failed := runReport(t, produced{unit: "u",
		artifacts: []pipeline.Artifact{artifact("a.ts", "x")},
		errors:    []string{"bad"},
	})

	code, err := WriteAndReturn(context.Background(), NewWriter(dir, nil), failed, nil)
	require.NoError(t, err)
	assert.Equal(t, ExitErrors, code)
	assert.FileExists(t, filepath.Join(dir, "u", "a.ts"), "artifacts are written even when errors were reported")

	w := &failingWriter{}
	code, err = WriteAndReturn(context.Background(), w, nil, errors.New("fault"))
	require.NoError(t, err)
	assert.Equal(t, ExitFault, code)
	assert.Equal(t, 0, w.calls, "a faulted run writes nothing")

	code, err = WriteAndReturn(context.Background(), w, failed, nil)
	assert.Error(t, err)
	assert.Equal(t, ExitFault, code)
}

func TestWriteAndReturn_WritesAfterCancellation(t *testing.T) {
	dir := t.TempDir()
	report := runReport(t, produced{unit: "u", artifacts: []pipeline.Artifact{artifact("a.ts", "x")}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	code, err := WriteAndReturn(ctx, NewWriter(dir, nil), report, errors.ErrCancelled)
	require.NoError(t, err)
	assert.Equal(t, ExitCancelled, code)
	assert.FileExists(t, filepath.Join(dir, "u", "a.ts"))
}
