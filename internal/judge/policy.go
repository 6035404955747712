package judge

import (
	"math"

	"git.lost.host/meutraa/beatjudge/internal/game"
)

// policy is how one kind of note is judged. update runs for every
// unresolved note the track has reached, input for the note a transition
// is meant for. Notes without input never take transitions.
type policy struct {
	update  func(j *Judge, p *panelState, n *noteState, time float64)
	input   func(j *Judge, p *panelState, n *noteState, time float64)
	pressed bool // the transitions input takes
}

var policies = [...]policy{
	game.Tap:  {update: missHead, input: hit, pressed: true},
	game.Hold: {update: lengthy(holdTrail), input: hit, pressed: true},
	game.Roll: {update: lengthy(rollTrail), input: hit, pressed: true},
	game.Mine: {update: mine},
	game.Lift: {update: missHead, input: hit, pressed: false},
}

// hit grades the head of n against an input at time. Inputs outside the
// widest window are ignored.
func hit(j *Judge, p *panelState, n *noteState, time float64) {
	e := n.time - time
	class, ok := j.criteria.Classify(math.Abs(e))
	if !ok {
		return
	}
	n.from = time
	j.emit(p, n, HeadPhase, game.TapJudgement{Class: class, Time: time, Error: e})
}

// missHead misses an unhit head once its window has passed, or once the
// next note on the panel is due, whichever is first. The miss of a hold or
// roll head fails its tail too.
func missHead(j *Judge, p *panelState, n *noteState, time float64) {
	if nil != n.head {
		return
	}
	boo := j.criteria.Boo
	deadline := n.time + boo
	if time <= deadline && time < n.next {
		return
	}
	at := math.Min(deadline, n.next)
	j.emit(p, n, HeadPhase, game.TapJudgement{
		Class: game.Miss,
		Time:  at,
		Error: math.Max(n.time-at, -boo),
	})
	if n.note.Kind.IsLengthy() {
		j.emit(p, n, TailPhase, game.TailJudgement{Class: game.NG, Time: at})
	}
}

func lengthy(trail func(j *Judge, p *panelState, n *noteState, time float64)) func(j *Judge, p *panelState, n *noteState, time float64) {
	return func(j *Judge, p *panelState, n *noteState, time float64) {
		if nil == n.head {
			missHead(j, p, n, time)
			return
		}
		if nil == n.trail {
			trail(j, p, n, time)
		}
	}
}

func (j *Judge) endTrail(p *panelState, n *noteState, time float64) {
	if time >= n.tail {
		j.emit(p, n, TailPhase, game.TailJudgement{Class: game.OK, Time: n.tail})
	}
}

// holdTrail fails a hold let go of for longer than HoldRecover before it
// ends, at the moment the grace runs out.
func holdTrail(j *Judge, p *panelState, n *noteState, time float64) {
	tl := p.timeline
	allowed := j.criteria.HoldRecover
	for {
		release := tl.HigherReleasedTime(n.from)
		if release >= n.tail {
			break
		}
		if release > time {
			return
		}
		if allowed == 0 {
			j.emit(p, n, TailPhase, game.TailJudgement{Class: game.NG, Time: release})
			return
		}
		grace := release + allowed
		if press := tl.HigherPressedTime(release); press <= grace && press <= time {
			n.from = press
			continue
		}
		if grace >= n.tail {
			break
		}
		if time > grace {
			j.emit(p, n, TailPhase, game.TailJudgement{Class: game.NG, Time: grace})
		}
		return
	}
	j.endTrail(p, n, time)
}

// rollTrail fails a roll that goes longer than RollRecover without a
// press before it ends.
func rollTrail(j *Judge, p *panelState, n *noteState, time float64) {
	tl := p.timeline
	for {
		grace := n.from + j.criteria.RollRecover
		if press := tl.HigherPressedTime(n.from); press <= grace && press <= time {
			n.from = press
			continue
		}
		if grace >= n.tail {
			break
		}
		if time > grace {
			j.emit(p, n, TailPhase, game.TailJudgement{Class: game.NG, Time: grace})
		}
		return
	}
	j.endTrail(p, n, time)
}

// mine explodes if the panel is held when the mine window opens or pressed
// inside it. It waits for the note before it on the panel, since the press
// that hits that note may be the one that sets the mine off.
func mine(j *Judge, p *panelState, n *noteState, time float64) {
	if nil != n.prev && nil == n.prev.head {
		return
	}
	open := n.time - j.criteria.Mine
	if time <= open {
		return
	}
	tl := p.timeline
	if tl.IsPressedAt(open) {
		j.emit(p, n, HeadPhase, game.MineJudgement{Time: open, Exploded: true})
		return
	}
	if press := tl.HigherPressedTime(open); press <= n.time && press <= time {
		j.emit(p, n, HeadPhase, game.MineJudgement{Time: press, Exploded: true})
		return
	}
	if time > n.time {
		j.emit(p, n, HeadPhase, game.MineJudgement{Time: n.time})
	}
}
