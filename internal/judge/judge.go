// Package judge grades panel input against the notes of a chart.
//
// A Judge listens to one input.Timeline per panel and is driven forward
// by Update with the track time. Every decision depends only on the
// timelines up to the time it is made, so feeding a recorded round back
// through the timelines gives the same judgements as playing it live.
package judge

import (
	"fmt"
	"math"
	"sort"

	"git.lost.host/meutraa/beatjudge/internal/game"
	"git.lost.host/meutraa/beatjudge/internal/input"
	"git.lost.host/meutraa/beatjudge/internal/timing"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	ErrNoTimeline   = errors.New("panel has no timeline")
	ErrUnknownPanel = errors.New("note on an unknown panel")
)

type Phase int

const (
	HeadPhase Phase = iota
	TailPhase
)

func (p Phase) String() string {
	if p == HeadPhase {
		return "head"
	}
	return "tail"
}

// Record is one emitted judgement. Index is the note's position in the
// notes given to New.
type Record struct {
	Index     int
	Note      game.Note
	Phase     Phase
	Judgement game.Judgement
}

type noteState struct {
	note  game.Note
	index int
	time  float64    // when the note should be hit
	tail  float64    // when a hold or roll ends
	next  float64    // time of the next non-mine note on the panel
	prev  *noteState // previous non-mine note on the panel

	head, trail game.Judgement
	// from is the latest input known to keep a hold or roll alive.
	from float64
}

func (n *noteState) done() bool {
	return n.head != nil && (!n.note.Kind.IsLengthy() || n.trail != nil)
}

type panelState struct {
	panel    game.Panel
	timeline *input.Timeline
	notes    []*noteState
	pending  int     // first note that is not done
	cursor   float64 // evaluated beat
}

type Judge struct {
	model       *timing.Model
	criteria    Criteria
	panels      map[game.Panel]*panelState
	order       []*panelState
	notes       []*noteState
	time        float64
	records     []Record
	subscribers []func(Record)
	log         *zap.Logger
}

type Option func(*Judge)

func WithLogger(log *zap.Logger) Option {
	return func(j *Judge) {
		j.log = log
	}
}

// WithSubscriber is Subscribe at construction, before any judgement can
// be emitted.
func WithSubscriber(f func(Record)) Option {
	return func(j *Judge) {
		j.subscribers = append(j.subscribers, f)
	}
}

// New builds a judge for notes and subscribes it to the timelines, which
// must cover every panel. Notes on warped beats cannot be hit and are left
// out.
func New(notes []game.Note, model *timing.Model, timelines map[game.Panel]*input.Timeline, criteria Criteria, panels []game.Panel, opts ...Option) (*Judge, error) {
	if err := criteria.Validate(); nil != err {
		return nil, err
	}
	j := &Judge{
		model:    model,
		criteria: criteria,
		panels:   make(map[game.Panel]*panelState, len(panels)),
		notes:    make([]*noteState, len(notes)),
		time:     math.Inf(-1),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(j)
	}

	for _, panel := range panels {
		tl, ok := timelines[panel]
		if !ok || nil == tl {
			return nil, errors.Wrapf(ErrNoTimeline, "panel %d", panel)
		}
		p := &panelState{panel: panel, timeline: tl, cursor: math.Inf(-1)}
		j.panels[panel] = p
		j.order = append(j.order, p)
	}
	sort.Slice(j.order, func(a, b int) bool { return j.order[a].panel < j.order[b].panel })

	for i, note := range notes {
		p, ok := j.panels[note.Panel]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownPanel, "note %d on panel %d", i, note.Panel)
		}
		if j.model.IsWarp(note.Beat) {
			continue
		}
		n := &noteState{note: note, index: i, next: math.Inf(1)}
		var err error
		if n.time, err = model.NoteTimeAt(note.Beat); nil != err {
			return nil, errors.Wrapf(err, "note %d", i)
		}
		if note.Kind.IsLengthy() {
			if n.tail, err = model.NoteTimeAt(note.TailBeat()); nil != err {
				return nil, errors.Wrapf(err, "tail of note %d", i)
			}
		}
		j.notes[i] = n
		p.notes = append(p.notes, n)
	}

	for _, p := range j.order {
		sort.SliceStable(p.notes, func(a, b int) bool { return p.notes[a].note.Beat < p.notes[b].note.Beat })
		var prev *noteState
		for _, n := range p.notes {
			n.prev = prev
			if n.note.Kind == game.Mine {
				continue
			}
			if nil != prev {
				prev.next = n.time
			}
			prev = n
		}
		panel := p.panel
		p.timeline.Listen(func(time float64, pressed bool) {
			j.OnInput(panel, time, pressed)
		})
	}
	return j, nil
}

// Subscribe calls f with every judgement emitted from now on.
func (j *Judge) Subscribe(f func(Record)) {
	j.subscribers = append(j.subscribers, f)
}

// Update resolves every note that can be decided by time. Times at or
// before the last update are ignored.
func (j *Judge) Update(time float64) {
	if !(time > j.time) {
		return
	}
	beat := j.model.BeatAt(time)
	if math.IsNaN(beat) {
		beat = math.Inf(1)
	}
	for _, p := range j.order {
		for k := p.pending; k < len(p.notes); k++ {
			n := p.notes[k]
			if n.note.Beat > beat+timing.Epsilon {
				break
			}
			if !n.done() {
				policies[n.note.Kind].update(j, p, n, time)
			}
		}
		for p.pending < len(p.notes) && p.notes[p.pending].done() {
			p.pending++
		}
	}
	j.time = time
}

// OnInput interprets a transition of panel. The judge calls it itself for
// every transition of its timelines.
func (j *Judge) OnInput(panel game.Panel, time float64, pressed bool) {
	j.Update(time)
	p, ok := j.panels[panel]
	if !ok {
		return
	}
	if n := j.target(p, j.model.BeatAt(time), pressed); nil != n {
		policies[n.note.Kind].input(j, p, n, time)
	}
}

// Feed records e on the timeline of its panel, which passes it on to
// OnInput. An event stamped before the last update is recorded at the time
// of that update, so the timeline holds input in the order it was judged.
func (j *Judge) Feed(e input.Event) bool {
	p, ok := j.panels[e.Panel]
	if !ok {
		return false
	}
	return p.timeline.SetState(math.Max(e.Time, j.time), e.Pressed)
}

// target picks the note a transition at beat is meant for among the
// unjudged notes that take it.
func (j *Judge) target(p *panelState, beat float64, pressed bool) *noteState {
	takes := func(n *noteState) bool {
		pol := policies[n.note.Kind]
		return nil == n.head && nil != pol.input && pol.pressed == pressed
	}
	if beat < p.cursor {
		for _, n := range p.notes[p.pending:] {
			if n.note.Beat >= p.cursor && takes(n) {
				return n
			}
		}
		return nil
	}
	var before, after *noteState
	for _, n := range p.notes[p.pending:] {
		if !takes(n) {
			continue
		}
		if n.note.Beat <= beat {
			before = n
			continue
		}
		after = n
		break
	}
	if nil != before && before.note.Beat >= p.cursor {
		return before
	}
	return after
}

func (j *Judge) emit(p *panelState, n *noteState, phase Phase, judgement game.Judgement) {
	slot := &n.head
	if phase == TailPhase {
		slot = &n.trail
	}
	if nil != *slot {
		panic(fmt.Sprintf("judge: %v of note %d judged twice", phase, n.index))
	}
	*slot = judgement
	if n.note.Beat > p.cursor {
		p.cursor = n.note.Beat
	}

	r := Record{Index: n.index, Note: n.note, Phase: phase, Judgement: judgement}
	j.records = append(j.records, r)
	j.log.Debug("judgement",
		zap.Int("note", n.index),
		zap.Int("panel", int(n.note.Panel)),
		zap.Stringer("kind", n.note.Kind),
		zap.Stringer("phase", phase),
		zap.Any("judgement", judgement),
	)
	for _, s := range j.subscribers {
		s(r)
	}
}

// Judgements returns the judgements emitted so far, in emission order.
func (j *Judge) Judgements() []Record {
	out := make([]Record, len(j.records))
	copy(out, j.records)
	return out
}

// EvaluatedBeat is the beat of the latest judged note of panel.
func (j *Judge) EvaluatedBeat(panel game.Panel) float64 {
	if p, ok := j.panels[panel]; ok {
		return p.cursor
	}
	return math.Inf(-1)
}

func (j *Judge) EvaluatedTime() float64 {
	return j.time
}

// Head is the judgement of note index, or its head for holds and rolls.
func (j *Judge) Head(index int) game.Judgement {
	if index < 0 || index >= len(j.notes) || nil == j.notes[index] {
		return nil
	}
	return j.notes[index].head
}

func (j *Judge) Tail(index int) game.Judgement {
	if index < 0 || index >= len(j.notes) || nil == j.notes[index] {
		return nil
	}
	return j.notes[index].trail
}

// Judged reports whether note index takes part in judging. Notes on warped
// beats do not.
func (j *Judge) Judged(index int) bool {
	return index >= 0 && index < len(j.notes) && nil != j.notes[index]
}

// Done reports whether every judged note is fully resolved.
func (j *Judge) Done() bool {
	for _, p := range j.order {
		for _, n := range p.notes[p.pending:] {
			if !n.done() {
				return false
			}
		}
	}
	return true
}
