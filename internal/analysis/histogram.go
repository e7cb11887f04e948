package analysis

import (
	"sort"

	"github.com/tracelens/tracelens/internal/pkg/traceql"
)

// HistogramPoint is one time bucket of event counts.
type HistogramPoint struct {
	Time  int64 `json:"time"`
	Count int   `json:"count"`
}

// Histogram buckets event counts over [start, end] (epoch millis) with
// the given interval, optionally restricted by a filter query. start or
// end of 0 leaves that side unbounded; a non-positive interval defaults
// to one second.
func (t *Trace) Histogram(start, end, interval int64, query string) []HistogramPoint {
	if interval <= 0 {
		interval = 1000
	}
	node := traceql.Compile(query)

	buckets := make(map[int64]int)
	for _, ev := range t.events {
		ts := ev.Timestamp()
		if start > 0 && ts < start {
			continue
		}
		if end > 0 && ts > end {
			continue
		}
		if !traceql.Match(node, ev) {
			continue
		}
		bucket := (ts / interval) * interval
		buckets[bucket]++
	}

	points := make([]HistogramPoint, 0, len(buckets))
	for ts, count := range buckets {
		points = append(points, HistogramPoint{Time: ts, Count: count})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Time < points[j].Time
	})
	return points
}
