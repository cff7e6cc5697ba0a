// Package watch reruns a pipeline when Go sources change.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/teranos/genpipe/errors"
	"github.com/teranos/genpipe/logger"
)

// DefaultDebounce is used when Config.Debounce is zero.
const DefaultDebounce = 300 * time.Millisecond

// RunFunc is called once per burst of changes.
type RunFunc func(ctx context.Context) error

// Config selects what is watched.
type Config struct {
	// Roots are watched with all their subdirectories.
	Roots []string
	// Ignore lists directories whose changes never trigger a run, such as
	// the artifact output directory.
	Ignore   []string
	Debounce time.Duration
}

// Watcher debounces fsnotify events under a set of roots.
type Watcher struct {
	fsw      *fsnotify.Watcher
	ignore   []string
	debounce time.Duration
	run      RunFunc
	log      *zap.SugaredLogger
}

// New starts watching cfg.Roots. Events are only consumed once Run is
// called.
func New(cfg Config, run RunFunc, log *zap.SugaredLogger) (*Watcher, error) {
	if len(cfg.Roots) == 0 {
		return nil, errors.NewConfigurationError("watch needs at least one directory")
	}
	if run == nil {
		return nil, errors.AssertionFailedf("watch: nil run function")
	}
	if log == nil {
		log = logger.ComponentLogger("watch")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}

	w := &Watcher{
		fsw:      fsw,
		debounce: cfg.Debounce,
		run:      run,
		log:      log,
	}
	for _, dir := range cfg.Ignore {
		abs, err := filepath.Abs(dir)
		if err != nil {
			fsw.Close()
			return nil, errors.Wrapf(err, "resolve ignored dir %s", dir)
		}
		w.ignore = append(w.ignore, abs)
	}

	for _, root := range cfg.Roots {
		if err := w.addTree(root); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Run blocks until ctx is done, calling the run function after each burst
// of relevant changes. Run errors are logged; the watcher keeps going.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.handle(event) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warnw("Watcher error", logger.FieldError, err)

		case <-timer.C:
			w.log.Infow("Change detected, rerunning pipeline")
			if err := w.run(ctx); err != nil {
				if ctx.Err() != nil || errors.IsCancelled(err) {
					return nil
				}
				w.log.Warnw("Pipeline run failed", logger.FieldError, err)
			}
		}
	}
}

// Close stops watching without running.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// handle reports whether event should schedule a run. New directories are
// added to the watch set.
func (w *Watcher) handle(event fsnotify.Event) bool {
	if w.ignored(event.Name) {
		return false
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.log.Warnw("Failed to watch new directory",
					logger.FieldPath, event.Name,
					logger.FieldError, err)
			}
			return false
		}
	}

	if !strings.HasSuffix(event.Name, ".go") {
		return false
	}
	if event.Op == fsnotify.Chmod {
		return false
	}

	w.log.Debugw("Source changed",
		logger.FieldPath, event.Name,
		"op", event.Op.String())
	return true
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Wrapf(err, "walk %s", path)
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skipDir(d.Name()) || w.ignored(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return errors.Wrapf(err, "watch %s", path)
		}
		return nil
	})
}

func (w *Watcher) ignored(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, dir := range w.ignore {
		if abs == dir || strings.HasPrefix(abs, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// skipDir matches directories the go tool ignores.
func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "testdata" || name == "vendor"
}
