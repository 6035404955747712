// Package timing maps between beats and track time for a chart's tempo
// changes, stops, delays and warps.
package timing

import (
	"math"

	"git.lost.host/meutraa/beatjudge/internal/graph"
	"github.com/pkg/errors"
)

var (
	ErrNoBPM        = errors.New("chart has no bpm")
	ErrNoInitialBPM = errors.New("chart has no bpm at beat 0")
	ErrUnclosedWarp = errors.New("unclosed warp")
	ErrNotMonotonic = errors.New("time does not advance with beats")
	ErrInvalidValue = errors.New("invalid timing value")
	ErrNegativeBeat = errors.New("negative beat")
	// ErrInfinitePause cannot be returned by a Model built with New: the
	// sweep closes the last pause and appends a point after it.
	ErrInfinitePause = errors.New("beat is never reached")
)

// Model is built once per round and is read only afterwards, so it can be
// shared between goroutines.
type Model struct {
	beats *graph.Graph // time -> beat
	times *graph.Graph // beat -> time

	bpms, stops, delays, warps beatMap
}

func New(d Data) (*Model, error) {
	if err := d.validate(); nil != err {
		return nil, err
	}
	keys := keyBeats(d)
	beats, err := build(d, keys)
	if nil != err {
		return nil, err
	}
	if !beats.IsInvertible() {
		return nil, ErrNotMonotonic
	}
	times, err := beats.Invert()
	if nil != err {
		return nil, errors.Wrap(ErrNotMonotonic, err.Error())
	}

	m := &Model{beats: beats, times: times}
	for _, k := range keys {
		e := entry{beat: k.beat, value: k.value}
		switch k.kind {
		case bpmChange:
			m.bpms = append(m.bpms, e)
		case stop:
			m.stops = append(m.stops, e)
		case delay:
			m.delays = append(m.delays, e)
		case warpStart:
			m.warps = append(m.warps, e)
		}
	}
	return m, nil
}

// BeatAt is the beat at the given track time. At the instant of a warp it
// is the beat the warp lands on.
func (m *Model) BeatAt(time float64) float64 {
	return m.beats.F(time)
}

// snap moves beat onto a pause beat closer than Epsilon, so it hits the
// exact breakpoint of the inverse graph.
func (m *Model) snap(beat float64) float64 {
	if e, ok := m.stops.find(beat); ok {
		return e.beat
	}
	if e, ok := m.delays.find(beat); ok {
		return e.beat
	}
	return beat
}

// pause returns the track times a pause on beat starts and ends at. They
// are equal when beat has no pause.
func (m *Model) pause(beat float64) (float64, float64, error) {
	if beat < 0 {
		return 0, 0, errors.Wrapf(ErrNegativeBeat, "beat %v", beat)
	}
	start, end := m.times.Bounds(m.snap(beat))
	if math.IsNaN(start) || math.IsNaN(end) {
		return 0, 0, errors.Wrapf(ErrInfinitePause, "beat %v", beat)
	}
	return start, end, nil
}

// TimeAt is the track time of beat. On a paused beat it is the time the
// pause ends.
func (m *Model) TimeAt(beat float64) (float64, error) {
	_, end, err := m.pause(beat)
	return end, err
}

// NoteTimeAt is the time a note on beat is meant to be hit: after the
// beat's delay and before its stop.
func (m *Model) NoteTimeAt(beat float64) (float64, error) {
	start, end, err := m.pause(beat)
	if nil != err {
		return 0, err
	}
	return start + math.Min(m.delays.at(beat), end-start), nil
}

// BPMAt does not account for pauses, see IsStop and IsDelay.
func (m *Model) BPMAt(beat float64) (float64, error) {
	if beat < 0 {
		return 0, errors.Wrapf(ErrNegativeBeat, "beat %v", beat)
	}
	e, _ := m.bpms.floor(beat)
	return e.value, nil
}

// pausePortions returns the stop and delay on the beat at time, and when
// that beat's pause ends.
func (m *Model) pausePortions(time float64) (float64, float64, float64, bool) {
	beat := m.BeatAt(time)
	if math.IsNaN(beat) || beat < -Epsilon {
		return 0, 0, 0, false
	}
	s, d := m.stops.at(beat), m.delays.at(beat)
	if s == 0 && d == 0 {
		return 0, 0, 0, false
	}
	start, end, err := m.pause(math.Max(beat, 0))
	if nil != err || end <= start {
		return 0, 0, 0, false
	}
	return s, d, end, true
}

// IsStop reports whether time falls in the stop portion of a pause, the
// stop seconds right before the pause ends.
func (m *Model) IsStop(time float64) bool {
	s, _, end, ok := m.pausePortions(time)
	return ok && s > 0 && time >= end-s && time < end
}

// IsDelay reports whether time falls in the delay portion of a pause,
// which precedes the stop portion.
func (m *Model) IsDelay(time float64) bool {
	s, d, end, ok := m.pausePortions(time)
	return ok && d > 0 && time >= end-s-d && time < end-s
}

func (m *Model) PauseLengthAt(beat float64) float64 {
	return m.stops.at(beat) + m.delays.at(beat)
}

func (m *Model) StopLengthAt(beat float64) float64 {
	return m.stops.at(beat)
}

func (m *Model) DelayLengthAt(beat float64) float64 {
	return m.delays.at(beat)
}

// IsWarp reports whether beat lies in [start, start+length) of the closest
// warp starting at or before it.
func (m *Model) IsWarp(beat float64) bool {
	e, ok := m.warps.floor(beat)
	return ok && beat < e.beat+e.value-Epsilon
}

// DominantBPMUpTo returns the tempo the track spends the most time at
// between beat 0 and time. Pauses do not count. Ties go to the tempo that
// comes first.
func (m *Model) DominantBPMUpTo(time float64) float64 {
	type span struct {
		bpm, seconds float64
	}
	var spans []span
	add := func(beat, seconds float64) {
		if seconds <= 0 {
			return
		}
		bpm, _ := m.BPMAt(math.Max(beat, 0))
		for i := range spans {
			if spans[i].bpm == bpm {
				spans[i].seconds += seconds
				return
			}
		}
		spans = append(spans, span{bpm: bpm, seconds: seconds})
	}

	points := m.beats.Points()
	for i := 0; i+1 < len(points); i++ {
		a, b := points[i], points[i+1]
		if a.X >= time {
			break
		}
		if a.Post() < -Epsilon || a.Post() == b.Pre() {
			continue
		}
		add(a.Post(), math.Min(b.X, time)-a.X)
	}
	if last := points[len(points)-1]; time > last.X {
		add(last.Post(), time-last.X)
	}

	if len(spans) == 0 {
		bpm, _ := m.BPMAt(0)
		return bpm
	}
	dominant := spans[0]
	for _, s := range spans[1:] {
		if s.seconds > dominant.seconds {
			dominant = s
		}
	}
	return dominant.bpm
}
