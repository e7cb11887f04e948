package aggregate

import (
	"strings"
	"testing"

	"github.com/tracelens/tracelens/internal/model"
)

func mustEvent(t *testing.T, data string) model.Event {
	t.Helper()
	ev, err := model.Parse([]byte(data))
	if err != nil {
		t.Fatalf("event parse error: %v", err)
	}
	return ev
}

func events(t *testing.T, lines ...string) []model.Event {
	t.Helper()
	out := make([]model.Event, len(lines))
	for i, line := range lines {
		out[i] = mustEvent(t, line)
	}
	return out
}

func TestRun(t *testing.T) {
	// One event carries no value for the field; it contributes to count
	// but is discarded by the numeric operations.
	sel := events(t,
		`{"durationMicros":100}`,
		`{"durationMicros":200}`,
		`{"method":"noDuration"}`,
	)

	tests := []struct {
		name  string
		req   Request
		value float64
		valid bool
	}{
		{"count", Request{Op: "count"}, 3, true},
		{"count ignores field", Request{Op: "count", Field: "durationMicros"}, 3, true},
		{"sum", Request{Op: "sum", Field: "durationMicros"}, 300, true},
		{"avg skips non-numeric", Request{Op: "avg", Field: "durationMicros"}, 150, true},
		{"max", Request{Op: "max", Field: "durationMicros"}, 200, true},
		{"min", Request{Op: "min", Field: "durationMicros"}, 100, true},
		{"op is case-insensitive", Request{Op: " AVG ", Field: "durationMicros"}, 150, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Run(sel, tt.req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Value != tt.value || res.Valid != tt.valid {
				t.Errorf("Run() = (%v, %v), want (%v, %v)", res.Value, res.Valid, tt.value, tt.valid)
			}
		})
	}
}

func TestRunEmptySelection(t *testing.T) {
	tests := []struct {
		name  string
		req   Request
		value float64
		valid bool
	}{
		{"count of nothing is zero", Request{Op: "count"}, 0, true},
		{"sum of nothing is zero", Request{Op: "sum", Field: "x"}, 0, true},
		{"avg of nothing is zero", Request{Op: "avg", Field: "x"}, 0, true},
		{"max of nothing is undefined", Request{Op: "max", Field: "x"}, 0, false},
		{"min of nothing is undefined", Request{Op: "min", Field: "x"}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Run(nil, tt.req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Value != tt.value || res.Valid != tt.valid {
				t.Errorf("Run() = (%v, %v), want (%v, %v)", res.Value, res.Valid, tt.value, tt.valid)
			}
		})
	}
}

func TestRunStringCoercion(t *testing.T) {
	sel := events(t,
		`{"latency":"12.5"}`,
		`{"latency":17.5}`,
		`{"latency":"not a number"}`,
		`{"latency":true}`,
	)

	res, err := Run(sel, Request{Op: "avg", Field: "latency"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Value != 15 {
		t.Errorf("avg = %v, want 15 (string coercion, non-numerics discarded)", res.Value)
	}
}

func TestRunNegativeValues(t *testing.T) {
	sel := events(t,
		`{"delta":-5}`,
		`{"delta":-2}`,
		`{"delta":-9}`,
	)

	max, _ := Run(sel, Request{Op: "max", Field: "delta"})
	min, _ := Run(sel, Request{Op: "min", Field: "delta"})
	if max.Value != -2 || min.Value != -9 {
		t.Errorf("max/min over negatives = %v/%v, want -2/-9", max.Value, min.Value)
	}
}

func TestRunUnknownOp(t *testing.T) {
	_, err := Run(nil, Request{Op: "median", Field: "x"})
	if err == nil {
		t.Fatal("expected error for unknown op")
	}
	if !strings.Contains(err.Error(), "median") {
		t.Errorf("error should name the op: %v", err)
	}
}

func TestRunMissingField(t *testing.T) {
	for _, op := range []string{OpSum, OpAvg, OpMax, OpMin} {
		if _, err := Run(nil, Request{Op: op}); err == nil {
			t.Errorf("op %q without a field should error", op)
		}
	}
}
