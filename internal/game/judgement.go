package game

import "fmt"

type TapClass int

const (
	Marvelous TapClass = iota
	Perfect
	Great
	Good
	Boo
	Miss
)

var tapNames = [...]string{"Marvelous", "Perfect", "Great", "Good", "Boo", "Miss"}

func (c TapClass) String() string {
	if c < 0 || int(c) >= len(tapNames) {
		return fmt.Sprintf("TapClass(%d)", int(c))
	}
	return tapNames[c]
}

type TailClass int

const (
	OK TailClass = iota
	NG
)

func (c TailClass) String() string {
	if c == OK {
		return "OK"
	}
	return "NG"
}

// Judgement is the outcome of one note, or one phase of a hold or roll.
// It is one of TapJudgement, TailJudgement or MineJudgement.
type Judgement interface {
	// GenTime is the track time the judgement was decided at.
	GenTime() float64
	judgement()
}

// TapJudgement grades a tap, a lift, or the head of a hold or roll.
// Error is the note time minus the input time, negative when late.
type TapJudgement struct {
	Class TapClass
	Time  float64
	Error float64
}

type TailJudgement struct {
	Class TailClass
	Time  float64
}

type MineJudgement struct {
	Time     float64
	Exploded bool
}

func (j TapJudgement) GenTime() float64  { return j.Time }
func (j TailJudgement) GenTime() float64 { return j.Time }
func (j MineJudgement) GenTime() float64 { return j.Time }

func (TapJudgement) judgement()  {}
func (TailJudgement) judgement() {}
func (MineJudgement) judgement() {}

func (j TapJudgement) String() string {
	return fmt.Sprintf("%v(%+.4f)@%.4f", j.Class, j.Error, j.Time)
}

func (j TailJudgement) String() string {
	return fmt.Sprintf("%v@%.4f", j.Class, j.Time)
}

func (j MineJudgement) String() string {
	if j.Exploded {
		return fmt.Sprintf("Exploded@%.4f", j.Time)
	}
	return fmt.Sprintf("Avoided@%.4f", j.Time)
}
