package analysis

import (
	"io"
	"time"

	"github.com/tracelens/tracelens/internal/aggregate"
	"github.com/tracelens/tracelens/internal/flow"
	"github.com/tracelens/tracelens/internal/loader"
	"github.com/tracelens/tracelens/internal/model"
	"github.com/tracelens/tracelens/internal/pkg/traceql"
)

// Trace is one loaded batch of events plus the derived views over it:
// filtered selections, flow groupings, aggregates and summary stats.
// A Trace owns its events exclusively and nothing in it mutates after
// loading, so independent Traces can be analyzed concurrently without
// coordination.
type Trace struct {
	events   []model.Event
	fields   map[string]int
	skipped  int
	loadedAt time.Time
}

// New wraps a loaded batch.
func New(b *loader.Batch) *Trace {
	return &Trace{
		events:   b.Events,
		fields:   b.Fields,
		skipped:  b.Skipped,
		loadedAt: time.Now(),
	}
}

// FromReader loads newline-delimited events from r into a new Trace.
func FromReader(r io.Reader) (*Trace, error) {
	b, err := loader.Read(r)
	if err != nil {
		return nil, err
	}
	return New(b), nil
}

// Len returns the number of loaded events.
func (t *Trace) Len() int {
	return len(t.events)
}

// Events returns the loaded events in source order. Callers must treat
// the slice as read-only.
func (t *Trace) Events() []model.Event {
	return t.events
}

// Skipped returns the number of malformed source lines dropped at load
// time.
func (t *Trace) Skipped() int {
	return t.skipped
}

// Fields returns a copy of the field-frequency table: field name to the
// count of events carrying that field.
func (t *Trace) Fields() map[string]int {
	out := make(map[string]int, len(t.fields))
	for name, count := range t.fields {
		out[name] = count
	}
	return out
}

// Search compiles query once and returns the matching events in source
// order. limit <= 0 means no limit.
func (t *Trace) Search(query string, limit int) []model.Event {
	node := traceql.Compile(query)

	var result []model.Event
	for _, ev := range t.events {
		if !traceql.Match(node, ev) {
			continue
		}
		result = append(result, ev)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result
}

// Flows groups the events into causally related sequences sharing the
// given correlation fields (e.g. thread, or thread plus class).
func (t *Trace) Flows(keyFields []string) map[string][]model.Event {
	return flow.Build(t.events, keyFields)
}

// Aggregate computes one scalar statistic over all loaded events.
func (t *Trace) Aggregate(req aggregate.Request) (aggregate.Result, error) {
	return aggregate.Run(t.events, req)
}
