package aggregate

import (
	"fmt"
	"strings"

	"github.com/tracelens/tracelens/internal/model"
)

// Supported operations.
const (
	OpCount = "count"
	OpSum   = "sum"
	OpAvg   = "avg"
	OpMax   = "max"
	OpMin   = "min"
)

// Request names the statistic to compute. Field is ignored for count and
// required for everything else.
type Request struct {
	Op    string `json:"op"`
	Field string `json:"field,omitempty"`
}

// Result is a single aggregate scalar. Valid is false only for max/min
// over a selection that contributed no numeric values; count, sum and
// avg always produce a number (the average of an empty selection is
// defined as 0 to keep the result uniformly numeric).
type Result struct {
	Op    string  `json:"op"`
	Field string  `json:"field,omitempty"`
	Value float64 `json:"value"`
	Valid bool    `json:"valid"`
}

// Run computes the requested statistic over events. Each event's field
// value goes through numeric coercion first; values that fail coercion
// (including absent fields) are discarded, so mixed-type data never
// causes an error.
func Run(events []model.Event, req Request) (Result, error) {
	op := strings.ToLower(strings.TrimSpace(req.Op))
	res := Result{Op: op, Field: req.Field}

	if op == OpCount {
		res.Value = float64(len(events))
		res.Valid = true
		return res, nil
	}

	switch op {
	case OpSum, OpAvg, OpMax, OpMin:
	default:
		return Result{}, fmt.Errorf("aggregate: unknown op %q", req.Op)
	}
	if req.Field == "" {
		return Result{}, fmt.Errorf("aggregate: op %q requires a field", op)
	}

	var (
		count    int
		sum      float64
		max, min float64
	)
	for _, ev := range events {
		v, ok := ev.Number(req.Field)
		if !ok {
			continue
		}
		if count == 0 || v > max {
			max = v
		}
		if count == 0 || v < min {
			min = v
		}
		sum += v
		count++
	}

	switch op {
	case OpSum:
		res.Value = sum
		res.Valid = true
	case OpAvg:
		if count > 0 {
			res.Value = sum / float64(count)
		}
		res.Valid = true
	case OpMax:
		res.Value = max
		res.Valid = count > 0
	case OpMin:
		res.Value = min
		res.Valid = count > 0
	}
	return res, nil
}
