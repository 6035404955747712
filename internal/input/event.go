package input

import (
	"sort"

	"git.lost.host/meutraa/beatjudge/internal/game"
)

// Event is a press or release of a panel at a track time, as sent by the
// input sources.
type Event struct {
	Panel   game.Panel
	Time    float64
	Pressed bool
}

// Merge flattens per panel timelines into one event list in time order.
// Events at the same time keep panel order.
func Merge(timelines map[game.Panel]*Timeline) []Event {
	var events []Event
	for panel, tl := range timelines {
		for _, tr := range tl.transitions {
			events = append(events, Event{Panel: panel, Time: tr.Time, Pressed: tr.Pressed})
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Time != events[j].Time {
			return events[i].Time < events[j].Time
		}
		return events[i].Panel < events[j].Panel
	})
	return events
}
