package judge

import (
	"math"

	"git.lost.host/meutraa/beatjudge/internal/game"
	"git.lost.host/meutraa/beatjudge/internal/input"
	"git.lost.host/meutraa/beatjudge/internal/timing"
)

// Replay judges a recorded round from scratch: the recorded transitions
// are fed through fresh timelines in time order and the round is then run
// to its end.
func Replay(notes []game.Note, model *timing.Model, recorded map[game.Panel]*input.Timeline, criteria Criteria, panels []game.Panel, opts ...Option) (*Judge, error) {
	timelines := make(map[game.Panel]*input.Timeline, len(panels))
	for _, panel := range panels {
		timelines[panel] = input.NewTimeline()
	}
	j, err := New(notes, model, timelines, criteria, panels, opts...)
	if nil != err {
		return nil, err
	}
	for _, e := range input.Merge(recorded) {
		if tl, ok := timelines[e.Panel]; ok {
			tl.SetState(e.Time, e.Pressed)
		}
	}
	j.Finish()
	return j, nil
}

// Finish resolves every remaining note as if the track had played on
// forever without input.
func (j *Judge) Finish() {
	j.Update(math.Inf(1))
}
