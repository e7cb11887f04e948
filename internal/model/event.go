package model

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/valyala/fastjson"
)

var errNotObject = errors.New("record is not a JSON object")

// Event is a single trace record: an immutable, schema-less mapping from
// field names to JSON values, as emitted by the instrumentation agents.
// No field is mandatory; by convention records carry a "timestamp"
// (epoch milliseconds) and an "event" discriminator (ENTER, EXIT, ...).
// The zero value is an empty event with no fields.
type Event struct {
	v *fastjson.Value
}

// Parse parses one JSON object into an Event. The returned Event owns its
// data: it stays valid regardless of later reuse of data's backing buffer.
func Parse(data []byte) (Event, error) {
	v, err := fastjson.ParseBytes(data)
	if err != nil {
		return Event{}, err
	}
	if v.Type() != fastjson.TypeObject {
		return Event{}, errNotObject
	}
	return Event{v: v}, nil
}

// get resolves a dotted path (a.b.c) by sequential key lookup through
// nested objects. Any missing segment resolves the whole path to nil.
func (e Event) get(path string) *fastjson.Value {
	if e.v == nil || path == "" {
		return nil
	}
	if !strings.Contains(path, ".") {
		return e.v.Get(path)
	}
	return e.v.Get(strings.Split(path, ".")...)
}

// Exists reports whether path resolves to a defined, non-null value.
func (e Event) Exists(path string) bool {
	v := e.get(path)
	return v != nil && v.Type() != fastjson.TypeNull
}

// Text returns the text representation of the value at path: the raw
// string for string values, the JSON encoding for everything else.
func (e Event) Text(path string) (string, bool) {
	v := e.get(path)
	if v == nil || v.Type() == fastjson.TypeNull {
		return "", false
	}
	if v.Type() == fastjson.TypeString {
		sb, _ := v.StringBytes()
		return string(sb), true
	}
	return v.String(), true
}

// Number coerces the value at path to a float64. Numbers convert
// directly and numeric strings via strconv; everything else is not a
// number. Coercion never fails loudly, it just reports ok=false.
func (e Event) Number(path string) (float64, bool) {
	v := e.get(path)
	if v == nil {
		return 0, false
	}
	switch v.Type() {
	case fastjson.TypeNumber:
		f, err := v.Float64()
		return f, err == nil
	case fastjson.TypeString:
		sb, _ := v.StringBytes()
		f, err := strconv.ParseFloat(strings.TrimSpace(string(sb)), 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Timestamp returns the event's epoch-millisecond timestamp, or 0 when
// the field is absent or not numeric.
func (e Event) Timestamp() int64 {
	f, ok := e.Number("timestamp")
	if !ok {
		return 0
	}
	return int64(f)
}

// Kind returns the event discriminator ("ENTER", "EXIT", "EXCEPTION",
// ...). Agents write it as "event"; "type" is accepted as a fallback.
func (e Event) Kind() string {
	if s, ok := e.Text("event"); ok {
		return s
	}
	if s, ok := e.Text("type"); ok {
		return s
	}
	return ""
}

// FieldNames returns the event's top-level field names in document order.
func (e Event) FieldNames() []string {
	if e.v == nil {
		return nil
	}
	obj, err := e.v.Object()
	if err != nil {
		return nil
	}
	names := make([]string, 0, obj.Len())
	obj.Visit(func(key []byte, _ *fastjson.Value) {
		names = append(names, string(key))
	})
	return names
}

// MarshalJSON re-serializes the event verbatim.
func (e Event) MarshalJSON() ([]byte, error) {
	if e.v == nil {
		return []byte("{}"), nil
	}
	return e.v.MarshalTo(nil), nil
}
