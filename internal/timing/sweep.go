package timing

import (
	"sort"

	"git.lost.host/meutraa/beatjudge/internal/graph"
	"github.com/pkg/errors"
)

type keyKind int

// Processing order of key beats that fall on the same beat.
const (
	warpEnd keyKind = iota
	bpmChange
	delay
	stop
	warpStart
)

type keyBeat struct {
	beat  float64
	kind  keyKind
	value float64
}

// keyBeats merges the timing maps into one list ordered by beat and kind.
// Beats closer than Epsilon are moved onto the first of them, and a later
// key of the same kind on the same beat replaces the earlier one.
func keyBeats(d Data) []keyBeat {
	var keys []keyBeat
	add := func(m map[float64]float64, kind keyKind) {
		for beat, v := range m {
			keys = append(keys, keyBeat{beat: beat, kind: kind, value: v})
		}
	}
	add(d.BPMs, bpmChange)
	add(d.Delays, delay)
	add(d.Stops, stop)
	for beat, length := range d.Warps {
		if length <= Epsilon {
			continue
		}
		keys = append(keys,
			keyBeat{beat: beat, kind: warpStart, value: length},
			keyBeat{beat: beat + length, kind: warpEnd, value: length},
		)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].beat != keys[j].beat {
			return keys[i].beat < keys[j].beat
		}
		return keys[i].kind < keys[j].kind
	})
	for i := 1; i < len(keys); i++ {
		if keys[i].beat-keys[i-1].beat < Epsilon {
			keys[i].beat = keys[i-1].beat
		}
	}
	sort.SliceStable(keys, func(i, j int) bool {
		if keys[i].beat != keys[j].beat {
			return keys[i].beat < keys[j].beat
		}
		return keys[i].kind < keys[j].kind
	})

	merged := keys[:0]
	for _, k := range keys {
		if n := len(merged); n > 0 && k.kind != warpStart && k.kind != warpEnd &&
			merged[n-1].beat == k.beat && merged[n-1].kind == k.kind {
			merged[n-1] = k
			continue
		}
		merged = append(merged, k)
	}
	return merged
}

// builder sweeps key beats into a time -> beat graph. time and beat are
// the position of the most recent point.
type builder struct {
	g     *graph.Graph
	time  float64
	beat  float64
	bps   float64
	pause float64
	depth int
}

func (b *builder) closePause() {
	if b.pause == 0 {
		return
	}
	b.time += b.pause
	b.pause = 0
	b.g.PutXY(b.time, b.beat)
}

// advance moves along the current rate up to beat. Inside a warp time is
// frozen and nothing moves until the warp closes.
func (b *builder) advance(beat float64) error {
	if b.depth > 0 || beat <= b.beat {
		return nil
	}
	b.closePause()
	dt := (beat - b.beat) / b.bps
	if dt <= 0 {
		return errors.Wrapf(ErrNotMonotonic, "time runs backwards before beat %v", beat)
	}
	b.time += dt
	b.beat = beat
	b.g.PutXY(b.time, b.beat)
	return nil
}

func (b *builder) apply(k keyBeat) error {
	switch k.kind {
	case bpmChange:
		if err := b.advance(k.beat); nil != err {
			return err
		}
		b.bps = k.value / 60
	case delay, stop:
		if k.value <= 0 || b.depth > 0 {
			return nil
		}
		if err := b.advance(k.beat); nil != err {
			return err
		}
		b.pause += k.value
	case warpStart:
		if b.depth == 0 {
			if err := b.advance(k.beat); nil != err {
				return err
			}
			b.closePause()
		}
		b.depth++
	case warpEnd:
		b.depth--
		if b.depth == 0 {
			from, _ := b.g.Point(b.time)
			b.g.PutJump(b.time, k.beat-from.Y, false)
			b.beat = k.beat
		}
	}
	return nil
}

// build returns the time -> beat graph of d, which must be valid.
func build(d Data, keys []keyBeat) (*graph.Graph, error) {
	b := &builder{
		g:    &graph.Graph{},
		time: -d.Offset,
	}
	for _, k := range keys {
		if k.kind == bpmChange {
			b.bps = k.value / 60
			break
		}
	}
	if b.bps <= 0 {
		return nil, errors.Wrap(ErrNotMonotonic, "negative initial tempo")
	}
	// the initial tempo also covers time before beat 0
	b.g.PutXY(b.time-1/b.bps, -1)
	b.g.PutXY(b.time, 0)

	for _, k := range keys {
		if err := b.apply(k); nil != err {
			return nil, err
		}
	}
	if b.depth > 0 {
		return nil, ErrUnclosedWarp
	}
	if b.bps <= 0 {
		return nil, errors.Wrap(ErrNotMonotonic, "negative final tempo")
	}
	b.closePause()
	b.time += 1 / b.bps
	b.beat++
	b.g.PutXY(b.time, b.beat)
	return b.g, nil
}
