package flow

import (
	"sort"
	"strings"

	"github.com/tracelens/tracelens/internal/model"
)

// Separator joins the key-field values of a composite flow key. A pipe
// is not expected to occur inside thread names or correlation IDs.
const Separator = "|"

// Key builds the composite key for one event: its text values for the
// key fields, in order, joined with Separator. Absent fields contribute
// empty text. ok is false when every part came out empty, in which case
// the event belongs to no flow.
func Key(ev model.Event, keyFields []string) (key string, ok bool) {
	parts := make([]string, len(keyFields))
	for i, field := range keyFields {
		if s, found := ev.Text(field); found {
			parts[i] = s
			if s != "" {
				ok = true
			}
		}
	}
	return strings.Join(parts, Separator), ok
}

// Build groups events by composite key and orders each group ascending
// by timestamp (missing timestamps sort as 0). The sort is stable, so
// events logged in the same millisecond keep their source order, which
// preserves call nesting within a thread.
func Build(events []model.Event, keyFields []string) map[string][]model.Event {
	groups := make(map[string][]model.Event)
	for _, ev := range events {
		key, ok := Key(ev, keyFields)
		if !ok {
			continue
		}
		groups[key] = append(groups[key], ev)
	}

	for _, seq := range groups {
		sort.SliceStable(seq, func(i, j int) bool {
			return seq[i].Timestamp() < seq[j].Timestamp()
		})
	}
	return groups
}
