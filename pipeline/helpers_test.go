package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"go.uber.org/zap"
)

// eventLog records side effects in order across goroutines.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

func (l *eventLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// emitTarget builds a target whose producer emits one artifact named after
// the unit.
func emitTarget(name string) Target {
	return Target{
		Name: name,
		New: func() (Producer, error) {
			return ProducerFunc(func(rc RunContext) error {
				rc.AddSource(rc.Unit.Name()+"."+name, name+":"+rc.Unit.Name())
				return nil
			}), nil
		},
	}
}

func funcTarget(name string, fn func(rc RunContext) error) Target {
	return Target{
		Name: name,
		New: func() (Producer, error) {
			return ProducerFunc(fn), nil
		},
	}
}

func newTestRC(t *testing.T) (RunContext, *buffer) {
	t.Helper()
	buf := &buffer{}
	return RunContext{
		Ctx:     context.Background(),
		RunID:   "test-run",
		Unit:    NamedUnit("unit"),
		Factory: DefaultFactory,
		Output:  buf,
		Logger:  zap.NewNop().Sugar(),
	}, buf
}

func testBuilder() *Builder {
	return NewBuilder().WithLogger(zap.NewNop().Sugar())
}

// signature flattens a report into sortable strings for set comparison.
func signature(r *Report) []string {
	var out []string
	for _, a := range r.Artifacts() {
		out = append(out, fmt.Sprintf("A|%s|%s|%s|%s", a.Unit.Name(), a.Target, a.Name, a.Content))
	}
	for _, e := range r.Errors() {
		out = append(out, fmt.Sprintf("E|%s|%s|%s", e.Unit.Name(), e.Target, e.String()))
	}
	sort.Strings(out)
	return out
}

type generatedTestUnit struct {
	name      string
	generated bool
}

func (u generatedTestUnit) Name() string { return u.name }
func (u generatedTestUnit) Generated() bool { return u.generated }
