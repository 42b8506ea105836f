package trace

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/on-the-ground/oneway_go/internal/multicast"
	"github.com/rickb777/date/v2/timespan"
	"go.uber.org/zap"
)

// Field is one named attribute of a state snapshot.
type Field struct {
	Name  string
	Value any
}

// Fielder enumerates the named fields of a state snapshot. State types
// implement it once and the tracer uses it uniformly, so no runtime
// reflection is involved in diffing.
type Fielder interface {
	TraceFields() []Field
}

// Change records one field whose value differs between two snapshots.
type Change struct {
	Name string
	Old  any
	New  any
}

// Event is one diagnostic record: a dispatched action together with the
// field-level diff of the commit it caused. An event with an empty change
// list is the "no changes" marker.
type Event struct {
	Label   string
	Action  any
	Changes []Change
	Span    timespan.TimeSpan
}

func (e Event) Unchanged() bool { return len(e.Changes) == 0 }

// Tracer evaluates state diffs on demand and publishes them to an
// observable diagnostic sink, separate from any state stream.
type Tracer struct {
	logger *zap.Logger
	sink   *multicast.Caster[Event]
}

func New(logger *zap.Logger) *Tracer {
	return &Tracer{
		logger: logger,
		sink:   multicast.NewCaster[Event](false),
	}
}

var (
	defaultOnce   sync.Once
	defaultTracer *Tracer
)

// Default returns the process-wide tracer, created lazily on first use.
func Default() *Tracer {
	defaultOnce.Do(func() {
		logger, _ := zap.NewProduction()
		defaultTracer = New(logger)
	})
	return defaultTracer
}

// Events subscribes to the tracer's sink. The channel yields every event
// emitted after the subscription, in emission order, and closes when ctx is
// done.
func (t *Tracer) Events(ctx context.Context) <-chan Event {
	return t.sink.Subscribe(ctx)
}

// Emit diffs oldState against newState and publishes the result. When
// enabled is false nothing is computed at all. Emit never panics and runs
// synchronously on the caller's goroutine, so events appear in the same
// order as the commits they describe.
func (t *Tracer) Emit(enabled bool, label string, action any, oldState, newState any) {
	if !enabled {
		return
	}
	start := time.Now()
	changes := diffAny(oldState, newState)
	ev := Event{
		Label:   label,
		Action:  action,
		Changes: changes,
		Span:    timespan.BetweenTimes(start, time.Now()),
	}
	t.sink.Publish(ev)
	t.log(ev)
}

func (t *Tracer) log(ev Event) {
	fields := []zap.Field{
		zap.String("label", ev.Label),
		zap.Any("action", ev.Action),
	}
	if ev.Unchanged() {
		t.logger.Debug("no changes", fields...)
		return
	}
	for _, ch := range ev.Changes {
		fields = append(fields, zap.String(ch.Name, fmt.Sprintf("%v -> %v", ch.Old, ch.New)))
	}
	t.logger.Debug("state transition", fields...)
}

func diffAny(oldState, newState any) []Change {
	oldF, okOld := oldState.(Fielder)
	newF, okNew := newState.(Fielder)
	if !okOld || !okNew {
		return nil
	}
	return Diff(oldF, newF)
}

// Diff enumerates matching fields of the two snapshots by name and collects
// every pair whose values differ, in the field order of the new snapshot.
// Fields present in only one snapshot are skipped.
func Diff(oldState, newState Fielder) []Change {
	oldFields := make(map[string]any, len(oldState.TraceFields()))
	for _, f := range oldState.TraceFields() {
		oldFields[f.Name] = f.Value
	}
	var changes []Change
	for _, f := range newState.TraceFields() {
		prev, ok := oldFields[f.Name]
		if !ok {
			continue
		}
		if differs(prev, f.Value) {
			changes = append(changes, Change{Name: f.Name, Old: prev, New: f.Value})
		}
	}
	return changes
}

// differs compares two field values without ever panicking: values the
// runtime cannot compare fall back to their printed representations.
func differs(a, b any) (diff bool) {
	defer func() {
		if recover() != nil {
			diff = fmt.Sprintf("%#v", a) != fmt.Sprintf("%#v", b)
		}
	}()
	return a != b
}
