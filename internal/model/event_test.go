package model

import (
	"testing"
)

func mustParse(t *testing.T, data string) Event {
	t.Helper()
	ev, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return ev
}

func TestParseRejectsNonObjects(t *testing.T) {
	tests := []string{
		`42`,
		`"text"`,
		`[1,2,3]`,
		`true`,
		`not json at all`,
	}
	for _, input := range tests {
		if _, err := Parse([]byte(input)); err == nil {
			t.Errorf("Parse(%q) should have failed", input)
		}
	}
}

func TestDottedPathLookup(t *testing.T) {
	ev := mustParse(t, `{"exception":{"type":"IOException","nested":{"code":5}},"flat":1}`)

	tests := []struct {
		path   string
		exists bool
	}{
		{"flat", true},
		{"exception", true},
		{"exception.type", true},
		{"exception.nested.code", true},
		{"exception.missing", false},
		{"exception.type.deeper", false},
		{"missing", false},
		{"missing.deeper", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := ev.Exists(tt.path); got != tt.exists {
				t.Errorf("Exists(%q) = %v, want %v", tt.path, got, tt.exists)
			}
		})
	}
}

func TestExistsNullIsAbsent(t *testing.T) {
	ev := mustParse(t, `{"a":null,"b":0,"c":"","d":false}`)
	if ev.Exists("a") {
		t.Error("null field should not exist")
	}
	for _, path := range []string{"b", "c", "d"} {
		if !ev.Exists(path) {
			t.Errorf("field %q should exist", path)
		}
	}
}

func TestText(t *testing.T) {
	ev := mustParse(t, `{"s":"hello","n":42,"f":1.5,"b":true,"nil":null}`)

	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"s", "hello", true},
		{"n", "42", true},
		{"f", "1.5", true},
		{"b", "true", true},
		{"nil", "", false},
		{"missing", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := ev.Text(tt.path)
			if got != tt.want || ok != tt.ok {
				t.Errorf("Text(%q) = (%q, %v), want (%q, %v)", tt.path, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestNumberCoercion(t *testing.T) {
	ev := mustParse(t, `{"n":42,"f":1.5,"s":"100","pad":" 7 ","word":"abc","b":true,"nan":"NaN","obj":{}}`)

	tests := []struct {
		path string
		want float64
		ok   bool
	}{
		{"n", 42, true},
		{"f", 1.5, true},
		{"s", 100, true},
		{"pad", 7, true},
		{"word", 0, false},
		{"b", 0, false},
		{"nan", 0, false},
		{"obj", 0, false},
		{"missing", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := ev.Number(tt.path)
			if got != tt.want || ok != tt.ok {
				t.Errorf("Number(%q) = (%v, %v), want (%v, %v)", tt.path, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestTimestampAndKind(t *testing.T) {
	ev := mustParse(t, `{"timestamp":1700000000123,"event":"ENTER"}`)
	if got := ev.Timestamp(); got != 1700000000123 {
		t.Errorf("Timestamp() = %d", got)
	}
	if got := ev.Kind(); got != "ENTER" {
		t.Errorf("Kind() = %q", got)
	}

	ev = mustParse(t, `{"type":"DB_QUERY"}`)
	if got := ev.Timestamp(); got != 0 {
		t.Errorf("missing timestamp should be 0, got %d", got)
	}
	if got := ev.Kind(); got != "DB_QUERY" {
		t.Errorf("Kind() fallback = %q", got)
	}

	var zero Event
	if zero.Kind() != "" || zero.Timestamp() != 0 {
		t.Error("zero event should have no kind and timestamp 0")
	}
}

func TestFieldNames(t *testing.T) {
	ev := mustParse(t, `{"a":1,"b":{"x":2},"c":null}`)
	names := ev.FieldNames()
	if len(names) != 3 {
		t.Fatalf("expected 3 top-level fields, got %v", names)
	}
	want := []string{"a", "b", "c"}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("field %d = %q, want %q", i, names[i], name)
		}
	}
}

func TestMarshalJSONRoundTrip(t *testing.T) {
	ev := mustParse(t, `{"a":1,"nested":{"b":"x"}}`)
	data, err := ev.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	back := mustParse(t, string(data))
	if !back.Exists("nested.b") {
		t.Errorf("round trip lost nested field, got %s", data)
	}
}
