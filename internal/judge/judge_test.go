package judge

import (
	"math"
	"sort"
	"testing"

	"git.lost.host/meutraa/beatjudge/internal/game"
	"git.lost.host/meutraa/beatjudge/internal/input"
	"git.lost.host/meutraa/beatjudge/internal/timing"
	"github.com/pkg/errors"
)

const epsilon = 1e-9

func near(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

// At 60 bpm with no offset a beat is a second.
func model(t *testing.T, d timing.Data) *timing.Model {
	if nil == d.BPMs {
		d.BPMs = map[float64]float64{0: 60}
	}
	m, err := timing.New(d)
	if nil != err {
		t.Fatal(err)
	}
	return m
}

type round struct {
	j         *Judge
	timelines map[game.Panel]*input.Timeline
}

func newRound(t *testing.T, notes []game.Note, c Criteria) *round {
	return newRoundOn(t, model(t, timing.Data{}), notes, c)
}

func newRoundOn(t *testing.T, m *timing.Model, notes []game.Note, c Criteria) *round {
	panels := []game.Panel{0, 1}
	r := &round{timelines: map[game.Panel]*input.Timeline{}}
	for _, p := range panels {
		r.timelines[p] = input.NewTimeline()
	}
	j, err := New(notes, m, r.timelines, c, panels)
	if nil != err {
		t.Fatal(err)
	}
	r.j = j
	return r
}

func (r *round) press(panel game.Panel, time float64) {
	r.timelines[panel].SetState(time, true)
}

func (r *round) release(panel game.Panel, time float64) {
	r.timelines[panel].SetState(time, false)
}

func checkTap(t *testing.T, name string, j game.Judgement, class game.TapClass, time, e float64) {
	t.Helper()
	tap, ok := j.(game.TapJudgement)
	if !ok {
		t.Errorf("%s: got %v, want %v", name, j, class)
		return
	}
	if tap.Class != class || !near(tap.Time, time) || !near(tap.Error, e) {
		t.Errorf("%s: got %v, want %v(%+.4f)@%.4f", name, tap, class, e, time)
	}
}

func checkTail(t *testing.T, name string, j game.Judgement, class game.TailClass, time float64) {
	t.Helper()
	tail, ok := j.(game.TailJudgement)
	if !ok || tail.Class != class || !near(tail.Time, time) {
		t.Errorf("%s: got %v, want %v@%.4f", name, j, class, time)
	}
}

func checkMine(t *testing.T, name string, j game.Judgement, exploded bool, time float64) {
	t.Helper()
	mine, ok := j.(game.MineJudgement)
	if !ok || mine.Exploded != exploded || !near(mine.Time, time) {
		t.Errorf("%s: got %v, want exploded %v at %.4f", name, j, exploded, time)
	}
}

func TestTapHit(t *testing.T) {
	r := newRound(t, []game.Note{{Beat: 2}}, DefaultCriteria())
	r.press(0, 2.01)
	checkTap(t, "tap", r.j.Head(0), game.Marvelous, 2.01, -0.01)
	if !r.j.Done() {
		t.Error("round not done after the only note was hit")
	}
}

func TestEarlyPressIgnored(t *testing.T) {
	r := newRound(t, []game.Note{{Beat: 2}}, DefaultCriteria())
	r.press(0, 1.5)
	r.release(0, 1.6)
	if nil != r.j.Head(0) {
		t.Fatalf("press outside every window judged %v", r.j.Head(0))
	}
	r.press(0, 1.95)
	checkTap(t, "tap", r.j.Head(0), game.Great, 1.95, 0.05)
}

func TestTapMissAfterWindow(t *testing.T) {
	r := newRound(t, []game.Note{{Beat: 2}}, DefaultCriteria())
	r.j.Update(2.1)
	if nil != r.j.Head(0) {
		t.Fatal("missed inside the window")
	}
	r.j.Update(2.5)
	checkTap(t, "miss", r.j.Head(0), game.Miss, 2.18, -0.18)
}

func TestSurpassedByNextNote(t *testing.T) {
	r := newRound(t, []game.Note{{Beat: 1}, {Beat: 1.1}}, DefaultCriteria())
	r.j.Update(1.05)
	if nil != r.j.Head(0) {
		t.Fatal("missed before the next note was due")
	}
	r.j.Update(1.1)
	checkTap(t, "surpassed", r.j.Head(0), game.Miss, 1.1, -0.1)
	if nil != r.j.Head(1) {
		t.Errorf("next note judged %v", r.j.Head(1))
	}
}

func TestTargetSelection(t *testing.T) {
	r := newRound(t, []game.Note{{Beat: 1}, {Beat: 1.1}}, DefaultCriteria())
	r.press(0, 1.06)
	r.release(0, 1.08)
	r.press(0, 1.12)
	checkTap(t, "first", r.j.Head(0), game.Great, 1.06, -0.06)
	checkTap(t, "second", r.j.Head(1), game.Marvelous, 1.12, -0.02)
}

func TestPanelsAreIndependent(t *testing.T) {
	r := newRound(t, []game.Note{{Panel: 0, Beat: 1}, {Panel: 1, Beat: 1}}, DefaultCriteria())
	r.press(1, 1)
	if nil != r.j.Head(0) {
		t.Errorf("panel 1 press judged panel 0: %v", r.j.Head(0))
	}
	checkTap(t, "panel 1", r.j.Head(1), game.Marvelous, 1, 0)
}

func TestHoldHeadMissFailsTail(t *testing.T) {
	r := newRound(t, []game.Note{{Beat: 2, Kind: game.Hold, Length: 2}}, DefaultCriteria())
	r.j.Update(2.5)
	checkTap(t, "head", r.j.Head(0), game.Miss, 2.18, -0.18)
	checkTail(t, "tail", r.j.Tail(0), game.NG, 2.18)
	records := r.j.Judgements()
	if len(records) != 2 || records[0].Phase != HeadPhase || records[1].Phase != TailPhase {
		t.Errorf("records %v", records)
	}
}

func TestHold(t *testing.T) {
	hold := []game.Note{{Beat: 2, Kind: game.Hold, Length: 2}}

	t.Run("held", func(t *testing.T) {
		r := newRound(t, hold, DefaultCriteria())
		r.press(0, 2)
		r.j.Update(3.9)
		if nil != r.j.Tail(0) {
			t.Fatalf("tail judged early: %v", r.j.Tail(0))
		}
		r.j.Update(4)
		checkTap(t, "head", r.j.Head(0), game.Marvelous, 2, 0)
		checkTail(t, "tail", r.j.Tail(0), game.OK, 4)
	})

	t.Run("recovered", func(t *testing.T) {
		r := newRound(t, hold, DefaultCriteria())
		r.press(0, 2)
		r.release(0, 2.5)
		r.press(0, 2.6)
		r.release(0, 3.9)
		r.j.Update(4)
		checkTail(t, "tail", r.j.Tail(0), game.OK, 4)
	})

	t.Run("let go", func(t *testing.T) {
		r := newRound(t, hold, DefaultCriteria())
		r.press(0, 2)
		r.release(0, 2.5)
		r.press(0, 2.6)
		r.release(0, 3)
		r.j.Update(3.2)
		if nil != r.j.Tail(0) {
			t.Fatalf("failed inside the grace period: %v", r.j.Tail(0))
		}
		r.j.Update(3.3)
		checkTail(t, "tail", r.j.Tail(0), game.NG, 3.25)
	})

	t.Run("no recovery", func(t *testing.T) {
		c := DefaultCriteria()
		c.HoldRecover = 0
		r := newRound(t, hold, c)
		r.press(0, 2)
		r.release(0, 2.5)
		checkTail(t, "tail", r.j.Tail(0), game.NG, 2.5)
	})
}

func TestRoll(t *testing.T) {
	roll := []game.Note{{Beat: 2, Kind: game.Roll, Length: 2}}

	t.Run("rolled", func(t *testing.T) {
		r := newRound(t, roll, DefaultCriteria())
		for _, p := range []float64{2, 2.4, 2.8, 3.2, 3.6} {
			r.press(0, p)
			r.release(0, p+0.1)
		}
		r.j.Update(4)
		checkTap(t, "head", r.j.Head(0), game.Marvelous, 2, 0)
		checkTail(t, "tail", r.j.Tail(0), game.OK, 4)
	})

	t.Run("stopped", func(t *testing.T) {
		r := newRound(t, roll, DefaultCriteria())
		r.press(0, 2)
		r.release(0, 2.1)
		r.press(0, 2.4)
		r.release(0, 2.5)
		r.j.Update(2.85)
		if nil != r.j.Tail(0) {
			t.Fatalf("failed before the gap ran out: %v", r.j.Tail(0))
		}
		r.j.Update(3)
		checkTail(t, "tail", r.j.Tail(0), game.NG, 2.9)
	})
}

func TestMine(t *testing.T) {
	mine := []game.Note{{Beat: 3, Kind: game.Mine}}

	t.Run("pressed in window", func(t *testing.T) {
		r := newRound(t, mine, DefaultCriteria())
		r.press(0, 2.95)
		r.release(0, 2.97)
		r.j.Update(3)
		checkMine(t, "mine", r.j.Head(0), true, 2.95)
	})

	t.Run("held into window", func(t *testing.T) {
		r := newRound(t, mine, DefaultCriteria())
		r.press(0, 2.5)
		r.j.Update(3)
		checkMine(t, "mine", r.j.Head(0), true, 2.91)
	})

	t.Run("pressed after", func(t *testing.T) {
		r := newRound(t, mine, DefaultCriteria())
		r.press(0, 3.05)
		checkMine(t, "mine", r.j.Head(0), false, 3)
	})

	t.Run("avoided", func(t *testing.T) {
		r := newRound(t, mine, DefaultCriteria())
		r.j.Update(3)
		if nil != r.j.Head(0) {
			t.Fatalf("judged before the mine passed: %v", r.j.Head(0))
		}
		r.j.Update(3.01)
		checkMine(t, "mine", r.j.Head(0), false, 3)
	})
}

func TestMineWaitsForPreviousNote(t *testing.T) {
	notes := []game.Note{{Beat: 2}, {Beat: 2.1, Kind: game.Mine}}

	r := newRound(t, notes, DefaultCriteria())
	r.j.Update(2.15)
	if nil != r.j.Head(1) {
		t.Fatalf("mine judged before the note before it: %v", r.j.Head(1))
	}
	r.j.Update(2.2)
	checkTap(t, "tap", r.j.Head(0), game.Miss, 2.18, -0.18)
	checkMine(t, "mine", r.j.Head(1), false, 2.1)
	records := r.j.Judgements()
	if len(records) != 2 || records[0].Index != 0 || records[1].Index != 1 {
		t.Errorf("records %v", records)
	}

	// the press that hits the tap is inside the mine window
	r = newRound(t, notes, DefaultCriteria())
	r.press(0, 2.05)
	r.release(0, 2.07)
	r.j.Update(2.2)
	checkTap(t, "tap", r.j.Head(0), game.Great, 2.05, -0.05)
	checkMine(t, "mine", r.j.Head(1), true, 2.05)
}

func TestLift(t *testing.T) {
	lift := []game.Note{{Beat: 2, Kind: game.Lift}}

	r := newRound(t, lift, DefaultCriteria())
	r.press(0, 1.5)
	if nil != r.j.Head(0) {
		t.Fatalf("press judged a lift: %v", r.j.Head(0))
	}
	r.release(0, 2.02)
	checkTap(t, "lift", r.j.Head(0), game.Marvelous, 2.02, -0.02)

	r = newRound(t, lift, DefaultCriteria())
	r.j.Update(2.5)
	checkTap(t, "lift", r.j.Head(0), game.Miss, 2.18, -0.18)
}

func TestEvaluatedCursors(t *testing.T) {
	notes := []game.Note{{Beat: 2, Kind: game.Hold, Length: 2}, {Beat: 3}, {Panel: 1, Beat: 3}}
	r := newRound(t, notes, DefaultCriteria())
	if !math.IsInf(r.j.EvaluatedBeat(0), -1) {
		t.Errorf("initial cursor %v", r.j.EvaluatedBeat(0))
	}
	r.press(0, 2)
	if b := r.j.EvaluatedBeat(0); b != 2 {
		t.Errorf("cursor after the hold head is %v", b)
	}
	r.release(0, 2.9)
	r.press(0, 3)
	checkTap(t, "tap", r.j.Head(1), game.Marvelous, 3, 0)
	r.j.Update(5)
	checkTail(t, "hold", r.j.Tail(0), game.OK, 4)
	// the hold ends after the tap on beat 3 was judged
	if b := r.j.EvaluatedBeat(0); b != 3 {
		t.Errorf("cursor moved back to %v", b)
	}
	if b := r.j.EvaluatedBeat(1); b != 3 {
		t.Errorf("panel 1 cursor %v", b)
	}
	if r.j.EvaluatedTime() != 5 {
		t.Errorf("evaluated time %v", r.j.EvaluatedTime())
	}
	r.j.Update(4)
	if r.j.EvaluatedTime() != 5 {
		t.Error("update went back in time")
	}
}

func TestJudgedTwicePanics(t *testing.T) {
	r := newRound(t, []game.Note{{Beat: 1}}, DefaultCriteria())
	r.press(0, 1)
	defer func() {
		if nil == recover() {
			t.Error("judging a note twice did not panic")
		}
	}()
	r.j.emit(r.j.panels[0], r.j.notes[0], HeadPhase, game.TapJudgement{Class: game.Miss})
}

func TestSubscribe(t *testing.T) {
	r := newRound(t, []game.Note{{Beat: 1}, {Beat: 2, Kind: game.Hold, Length: 1}}, DefaultCriteria())
	var got []Record
	r.j.Subscribe(func(rec Record) { got = append(got, rec) })
	r.j.Finish()
	if len(got) != 3 || len(r.j.Judgements()) != 3 {
		t.Fatalf("subscriber got %d records, log has %d", len(got), len(r.j.Judgements()))
	}
	for i, rec := range r.j.Judgements() {
		if got[i] != rec {
			t.Errorf("record %d = %v, log has %v", i, got[i], rec)
		}
	}
}

func TestWarpedNotesSkipped(t *testing.T) {
	m := model(t, timing.Data{Warps: map[float64]float64{1: 1}})
	r := newRoundOn(t, m, []game.Note{{Beat: 1.5}, {Beat: 3}}, DefaultCriteria())
	if r.j.Judged(0) || !r.j.Judged(1) {
		t.Errorf("judged %v %v, want false true", r.j.Judged(0), r.j.Judged(1))
	}
	r.j.Finish()
	if nil != r.j.Head(0) || nil == r.j.Head(1) {
		t.Errorf("heads %v %v", r.j.Head(0), r.j.Head(1))
	}
}

func TestNewErrors(t *testing.T) {
	m := model(t, timing.Data{})
	one := map[game.Panel]*input.Timeline{0: input.NewTimeline()}
	bad := DefaultCriteria()
	bad.Great = 0.01

	tests := map[string]struct {
		notes     []game.Note
		timelines map[game.Panel]*input.Timeline
		criteria  Criteria
		expected  error
	}{
		"missing timeline": {nil, one, DefaultCriteria(), ErrNoTimeline},
		"unknown panel":    {[]game.Note{{Panel: 3}}, map[game.Panel]*input.Timeline{0: input.NewTimeline(), 1: input.NewTimeline()}, DefaultCriteria(), ErrUnknownPanel},
		"criteria":         {nil, one, bad, ErrInvalidCriteria},
	}
	for name, test := range tests {
		_, err := New(test.notes, m, test.timelines, test.criteria, []game.Panel{0, 1})
		if !errors.Is(err, test.expected) {
			t.Errorf("%s: error %v, want %v", name, err, test.expected)
		}
	}
}

type event struct {
	panel   game.Panel
	time    float64
	pressed bool
}

// A round touching every note kind on two panels.
var (
	replayNotes = []game.Note{
		{Panel: 0, Beat: 1},
		{Panel: 0, Beat: 2, Kind: game.Hold, Length: 1},
		{Panel: 0, Beat: 3.5, Kind: game.Mine},
		{Panel: 0, Beat: 4},
		{Panel: 0, Beat: 5, Kind: game.Lift},
		{Panel: 1, Beat: 1.5, Kind: game.Roll, Length: 1.5},
		{Panel: 1, Beat: 2.5},
		{Panel: 1, Beat: 2.6},
		{Panel: 1, Beat: 4.5, Kind: game.Mine},
	}
	replayEvents = []event{
		{0, 1.02, true}, {0, 1.1, false},
		{1, 1.5, true}, {1, 1.55, false},
		{1, 1.9, true}, {1, 1.95, false},
		{0, 1.97, true},
		{1, 2.5, true}, {1, 2.52, false},
		{0, 2.6, false}, {0, 2.7, true}, {0, 3.2, false},
		{0, 3.45, true}, {0, 3.5, false},
		{0, 4.1, true}, {0, 5.03, false},
	}
)

func TestReplayMatchesLivePlay(t *testing.T) {
	m := model(t, timing.Data{})
	events := append([]event(nil), replayEvents...)
	sort.SliceStable(events, func(a, b int) bool { return events[a].time < events[b].time })

	live := newRoundOn(t, m, replayNotes, DefaultCriteria())
	next := 0
	for k := 0; k <= 6*60; k++ {
		tick := float64(k) / 60
		for ; next < len(events) && events[next].time < tick; next++ {
			e := events[next]
			live.timelines[e.panel].SetState(e.time, e.pressed)
		}
		live.j.Update(tick)
	}
	live.j.Finish()
	if !live.j.Done() {
		t.Fatal("live round not done")
	}

	replayed, err := Replay(replayNotes, m, live.timelines, DefaultCriteria(), []game.Panel{0, 1})
	if nil != err {
		t.Fatal(err)
	}
	for i := range replayNotes {
		if live.j.Head(i) != replayed.Head(i) || live.j.Tail(i) != replayed.Tail(i) {
			t.Log("note    ", i, replayNotes[i])
			t.Log("live    ", live.j.Head(i), live.j.Tail(i))
			t.Log("replayed", replayed.Head(i), replayed.Tail(i))
			t.Fail()
		}
	}

	checkTap(t, "tap", live.j.Head(0), game.Marvelous, 1.02, -0.02)
	checkTail(t, "hold", live.j.Tail(1), game.OK, 3)
	checkMine(t, "mine", live.j.Head(2), true, 3.45)
	checkTap(t, "late tap", live.j.Head(3), game.Good, 4.1, -0.1)
	checkTap(t, "lift", live.j.Head(4), game.Perfect, 5.03, -0.03)
	checkTail(t, "roll", live.j.Tail(5), game.NG, 2.4)
	checkTap(t, "surpassed", live.j.Head(7), game.Miss, 2.78, -0.18)
	checkMine(t, "avoided", live.j.Head(8), false, 4.5)
}

// replayed judges the recorded timelines of r again from scratch.
func (r *round) replayed(t *testing.T, m *timing.Model, notes []game.Note) *Judge {
	t.Helper()
	j, err := Replay(notes, m, r.timelines, DefaultCriteria(), []game.Panel{0, 1})
	if nil != err {
		t.Fatal(err)
	}
	return j
}

func TestPressAndReleaseAtSameTime(t *testing.T) {
	m := model(t, timing.Data{})
	notes := []game.Note{{Beat: 2}}
	live := newRoundOn(t, m, notes, DefaultCriteria())
	live.press(0, 2.01)
	live.release(0, 2.01)
	live.j.Finish()
	checkTap(t, "live", live.j.Head(0), game.Marvelous, 2.01, -0.01)

	if got := live.timelines[0].Transitions(); len(got) != 2 || !got[0].Pressed || got[1].Pressed {
		t.Fatalf("recorded %v", got)
	}
	replayed := live.replayed(t, m, notes)
	if live.j.Head(0) != replayed.Head(0) {
		t.Log("live    ", live.j.Head(0))
		t.Log("replayed", replayed.Head(0))
		t.Fail()
	}
}

func TestFeedLateEvent(t *testing.T) {
	m := model(t, timing.Data{})
	notes := []game.Note{{Beat: 1}}
	live := newRoundOn(t, m, notes, DefaultCriteria())
	live.j.Update(1.2)
	checkTap(t, "missed", live.j.Head(0), game.Miss, 1.18, -0.18)

	// stamped before the update it arrives after
	if !live.j.Feed(input.Event{Panel: 0, Time: 1.1, Pressed: true}) {
		t.Fatal("late press not recorded")
	}
	if got := live.timelines[0].Transitions(); len(got) != 1 || got[0].Time != 1.2 {
		t.Errorf("recorded %v, want a press at 1.2", got)
	}
	if live.j.Feed(input.Event{Panel: 5, Time: 2, Pressed: true}) {
		t.Error("recorded an event of an unknown panel")
	}

	live.j.Finish()
	replayed := live.replayed(t, m, notes)
	if live.j.Head(0) != replayed.Head(0) {
		t.Log("live    ", live.j.Head(0))
		t.Log("replayed", replayed.Head(0))
		t.Fail()
	}
}
