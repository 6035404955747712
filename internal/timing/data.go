package timing

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// Epsilon is the distance under which two beats are the same beat.
const Epsilon = 1e-6

// Data is the musical time base of a chart. All maps are keyed by beat.
type Data struct {
	// Offset in seconds; beat 0 happens at time -Offset.
	Offset float64 `yaml:"offset"`
	// BPMs maps a beat to the tempo from that beat on.
	BPMs map[float64]float64 `yaml:"bpms"`
	// Stops pause for the given seconds after the beat is reached.
	Stops map[float64]float64 `yaml:"stops,omitempty"`
	// Delays pause for the given seconds before the beat is reached.
	Delays map[float64]float64 `yaml:"delays,omitempty"`
	// Warps skip the given number of beats with time frozen.
	Warps map[float64]float64 `yaml:"warps,omitempty"`
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (d Data) validate() error {
	if len(d.BPMs) == 0 {
		return ErrNoBPM
	}
	if !finite(d.Offset) {
		return errors.Wrapf(ErrInvalidValue, "offset %v", d.Offset)
	}
	initial := false
	for _, m := range []struct {
		name string
		m    map[float64]float64
	}{{"bpm", d.BPMs}, {"stop", d.Stops}, {"delay", d.Delays}, {"warp", d.Warps}} {
		for beat, v := range m.m {
			if !finite(beat) || !finite(v) {
				return errors.Wrapf(ErrInvalidValue, "%s %v at beat %v", m.name, v, beat)
			}
			if beat < -Epsilon {
				return errors.Wrapf(ErrNegativeBeat, "%s at beat %v", m.name, beat)
			}
			if m.name == "bpm" {
				if v == 0 {
					return errors.Wrapf(ErrInvalidValue, "bpm of 0 at beat %v", beat)
				}
				if math.Abs(beat) < Epsilon {
					initial = true
				}
			}
		}
	}
	if !initial {
		return ErrNoInitialBPM
	}
	return nil
}

type entry struct {
	beat, value float64
}

// beatMap is an ordered beat keyed map with tolerant lookups.
type beatMap []entry

func (m beatMap) index(beat float64) int {
	return sort.Search(len(m), func(i int) bool {
		return m[i].beat > beat+Epsilon
	}) - 1
}

func (m beatMap) floor(beat float64) (entry, bool) {
	i := m.index(beat)
	if i < 0 {
		return entry{}, false
	}
	return m[i], true
}

func (m beatMap) find(beat float64) (entry, bool) {
	e, ok := m.floor(beat)
	if !ok || beat-e.beat > Epsilon {
		return entry{}, false
	}
	return e, true
}

func (m beatMap) at(beat float64) float64 {
	e, _ := m.find(beat)
	return e.value
}
