// Package input records panel presses and releases and reads them from
// devices.
package input

import (
	"math"
	"sort"
)

// Transition is a change of panel state at a track time.
type Transition struct {
	Time    float64 `json:"t"`
	Pressed bool    `json:"p"`
}

type Listener func(time float64, pressed bool)

// Timeline is the press state of one panel over time. Before the first
// transition the panel is released.
type Timeline struct {
	transitions []Transition
	listeners   []Listener
}

func NewTimeline() *Timeline {
	return &Timeline{}
}

// floor is the index of the last transition at or before time, or -1.
func (tl *Timeline) floor(time float64) int {
	return sort.Search(len(tl.transitions), func(i int) bool {
		return tl.transitions[i].Time > time
	}) - 1
}

// lower is the index of the last transition strictly before time, or -1.
func (tl *Timeline) lower(time float64) int {
	return sort.Search(len(tl.transitions), func(i int) bool {
		return tl.transitions[i].Time >= time
	}) - 1
}

// SetState records pressed at time and notifies listeners, unless the
// panel is already in that state at time. Recorded transitions are never
// changed: a transition at the time of an existing one is recorded just
// after it. SetState reports whether anything was recorded.
func (tl *Timeline) SetState(time float64, pressed bool) bool {
	i := tl.floor(time)
	for i >= 0 && tl.transitions[i].Time == time && tl.transitions[i].Pressed != pressed {
		time = math.Nextafter(time, math.Inf(1))
		i = tl.floor(time)
	}
	if tl.stateAt(i) == pressed {
		return false
	}
	tl.transitions = append(tl.transitions, Transition{})
	copy(tl.transitions[i+2:], tl.transitions[i+1:])
	tl.transitions[i+1] = Transition{Time: time, Pressed: pressed}
	for _, l := range tl.listeners {
		l(time, pressed)
	}
	return true
}

// Listen registers l to be called on every recorded transition, after
// the listeners registered before it.
func (tl *Timeline) Listen(l Listener) {
	tl.listeners = append(tl.listeners, l)
}

func (tl *Timeline) stateAt(i int) bool {
	return i >= 0 && tl.transitions[i].Pressed
}

func (tl *Timeline) IsPressedAt(time float64) bool {
	return tl.stateAt(tl.floor(time))
}

func (tl *Timeline) IsReleasedAt(time float64) bool {
	return !tl.IsPressedAt(time)
}

// never is the time of a transition to pressed that never happened.
func never(pressed bool) float64 {
	if pressed {
		return math.Inf(1)
	}
	return math.Inf(-1)
}

// LowerTimeOf is the time of the latest transition to pressed strictly
// before time. It is +Inf for a press and -Inf for a release that never
// happened.
func (tl *Timeline) LowerTimeOf(time float64, pressed bool) float64 {
	for i := tl.lower(time); i >= 0; i-- {
		if tl.transitions[i].Pressed == pressed {
			return tl.transitions[i].Time
		}
	}
	return never(pressed)
}

// FloorTimeOf is LowerTimeOf including a transition at time.
func (tl *Timeline) FloorTimeOf(time float64, pressed bool) float64 {
	for i := tl.floor(time); i >= 0; i-- {
		if tl.transitions[i].Pressed == pressed {
			return tl.transitions[i].Time
		}
	}
	return never(pressed)
}

// HigherTimeOf is the time of the earliest transition to pressed strictly
// after time, or +Inf.
func (tl *Timeline) HigherTimeOf(time float64, pressed bool) float64 {
	for i := tl.floor(time) + 1; i < len(tl.transitions); i++ {
		if tl.transitions[i].Pressed == pressed {
			return tl.transitions[i].Time
		}
	}
	return math.Inf(1)
}

// CeilingTimeOf is HigherTimeOf including a transition at time.
func (tl *Timeline) CeilingTimeOf(time float64, pressed bool) float64 {
	for i := tl.lower(time) + 1; i < len(tl.transitions); i++ {
		if tl.transitions[i].Pressed == pressed {
			return tl.transitions[i].Time
		}
	}
	return math.Inf(1)
}

func (tl *Timeline) LowerPressedTime(time float64) float64   { return tl.LowerTimeOf(time, true) }
func (tl *Timeline) LowerReleasedTime(time float64) float64  { return tl.LowerTimeOf(time, false) }
func (tl *Timeline) FloorPressedTime(time float64) float64   { return tl.FloorTimeOf(time, true) }
func (tl *Timeline) FloorReleasedTime(time float64) float64  { return tl.FloorTimeOf(time, false) }
func (tl *Timeline) HigherPressedTime(time float64) float64  { return tl.HigherTimeOf(time, true) }
func (tl *Timeline) HigherReleasedTime(time float64) float64 { return tl.HigherTimeOf(time, false) }

// Transitions returns a copy of the recorded transitions in time order.
func (tl *Timeline) Transitions() []Transition {
	out := make([]Transition, len(tl.transitions))
	copy(out, tl.transitions)
	return out
}

func (tl *Timeline) Len() int {
	return len(tl.transitions)
}
