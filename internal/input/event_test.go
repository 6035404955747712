package input

import (
	"testing"

	"git.lost.host/meutraa/beatjudge/internal/game"
)

func TestMerge(t *testing.T) {
	a, b := NewTimeline(), NewTimeline()
	a.SetState(1, true)
	a.SetState(3, false)
	b.SetState(1, true)
	b.SetState(2, false)

	events := Merge(map[game.Panel]*Timeline{0: a, 1: b})
	expected := []Event{
		{Panel: 0, Time: 1, Pressed: true},
		{Panel: 1, Time: 1, Pressed: true},
		{Panel: 1, Time: 2},
		{Panel: 0, Time: 3},
	}
	if len(events) != len(expected) {
		t.Fatalf("events %v, want %v", events, expected)
	}
	for i := range expected {
		if events[i] != expected[i] {
			t.Errorf("event %d = %+v, want %+v", i, events[i], expected[i])
		}
	}
}
