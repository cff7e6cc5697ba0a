// Package output persists run reports and maps them to process exit codes.
package output

import (
	"context"
	"path"
	"path/filepath"
	"strings"

	"github.com/teranos/genpipe/errors"
	"github.com/teranos/genpipe/pipeline"
)

// ArtifactWriter persists the artifacts of a report.
type ArtifactWriter interface {
	Write(ctx context.Context, report *pipeline.Report) (*WriteResult, error)
}

// WriteResult lists what a writer did, as slash-separated artifact paths.
type WriteResult struct {
	Written   []string
	Unchanged []string
}

// Total is the number of artifacts handled.
func (r *WriteResult) Total() int {
	return len(r.Written) + len(r.Unchanged)
}

// ErrUnsafePath is returned for artifacts whose path would leave the output
// root.
var ErrUnsafePath = errors.New("artifact path escapes output root")

// ArtifactPath is the slash-separated location of an artifact below an
// output root: <unit>/<artifact>.
func ArtifactPath(sf pipeline.SourceFile) (string, error) {
	unit := sf.Unit.Name()
	for _, part := range []string{unit, sf.Name} {
		if part == "" || strings.Contains(part, `\`) || path.IsAbs(part) {
			return "", errors.Wrapf(ErrUnsafePath, "unit %q, artifact %q", unit, sf.Name)
		}
	}

	p := path.Join(unit, sf.Name)
	if !filepath.IsLocal(filepath.FromSlash(p)) || !strings.HasPrefix(p, path.Clean(unit)+"/") {
		return "", errors.Wrapf(ErrUnsafePath, "unit %q, artifact %q", unit, sf.Name)
	}
	return p, nil
}
