package analysis

// Summary contains high-level metrics for one loaded trace.
type Summary struct {
	EventCount   int            `json:"event_count"`
	SkippedLines int            `json:"skipped_lines"`
	MinTimestamp int64          `json:"min_timestamp"`
	MaxTimestamp int64          `json:"max_timestamp"`
	KindCounts   map[string]int `json:"kind_counts"` // e.g. "ENTER": 120
	TopClasses   map[string]int `json:"top_classes"` // e.g. "OrderService": 40
}

// Summarize scans the events once and fills a Summary.
func (t *Trace) Summarize() Summary {
	s := Summary{
		EventCount:   len(t.events),
		SkippedLines: t.skipped,
		KindCounts:   make(map[string]int),
		TopClasses:   make(map[string]int),
	}

	for i, ev := range t.events {
		ts := ev.Timestamp()
		if i == 0 || ts < s.MinTimestamp {
			s.MinTimestamp = ts
		}
		if i == 0 || ts > s.MaxTimestamp {
			s.MaxTimestamp = ts
		}

		if kind := ev.Kind(); kind != "" {
			s.KindCounts[kind]++
		}
		if class, ok := ev.Text("class"); ok && class != "" {
			s.TopClasses[class]++
		}
	}
	return s
}
