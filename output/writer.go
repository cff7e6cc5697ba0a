package output

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/teranos/genpipe/am"
	"github.com/teranos/genpipe/errors"
	"github.com/teranos/genpipe/logger"
	"github.com/teranos/genpipe/pipeline"
)

// Writer writes artifacts below Dir. Files whose content already matches
// are left untouched so their modification times stay stable.
type Writer struct {
	Dir string
	log *zap.SugaredLogger
}

// NewWriter creates a writer rooted at dir.
func NewWriter(dir string, log *zap.SugaredLogger) *Writer {
	if log == nil {
		log = logger.ComponentLogger("output")
	}
	return &Writer{Dir: dir, log: log}
}

// Write persists every artifact in report. Paths are validated before
// anything is written.
func (w *Writer) Write(ctx context.Context, report *pipeline.Report) (*WriteResult, error) {
	if w.Dir == "" {
		return nil, errors.NewConfigurationError("output directory is empty")
	}

	artifacts := report.Artifacts()
	paths := make([]string, len(artifacts))
	for i, sf := range artifacts {
		p, err := ArtifactPath(sf)
		if err != nil {
			return nil, err
		}
		paths[i] = p
	}

	result := &WriteResult{}
	for i, sf := range artifacts {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		full := filepath.Join(w.Dir, filepath.FromSlash(paths[i]))
		if existing, err := os.ReadFile(full); err == nil && bytes.Equal(existing, []byte(sf.Content)) {
			result.Unchanged = append(result.Unchanged, paths[i])
			continue
		}

		if err := os.MkdirAll(filepath.Dir(full), am.DefaultDirPermissions); err != nil {
			return result, errors.Wrapf(err, "failed to create directory for %s", full)
		}
		if err := os.WriteFile(full, []byte(sf.Content), am.DefaultFilePermissions); err != nil {
			return result, errors.Wrapf(err, "failed to write %s", full)
		}
		result.Written = append(result.Written, paths[i])
		w.log.Debugw("Wrote artifact",
			logger.FieldPath, full,
			logger.FieldSize, len(sf.Content))
	}

	w.log.Infow("Artifacts written",
		logger.FieldPath, w.Dir,
		"written", len(result.Written),
		"unchanged", len(result.Unchanged))
	return result, nil
}
