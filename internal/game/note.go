package game

import (
	"fmt"

	"github.com/pkg/errors"
)

// Panel is one input channel, a column of the chart.
type Panel int

type NoteKind int

const (
	Tap NoteKind = iota
	Hold
	Roll
	Mine
	Lift
)

var kindNames = [...]string{"tap", "hold", "roll", "mine", "lift"}

func (k NoteKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("NoteKind(%d)", int(k))
	}
	return kindNames[k]
}

func (k NoteKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *NoteKind) UnmarshalText(text []byte) error {
	for i, name := range kindNames {
		if string(text) == name {
			*k = NoteKind(i)
			return nil
		}
	}
	return errors.Errorf("unknown note kind %q", text)
}

// IsLengthy reports whether notes of this kind have a tail.
func (k NoteKind) IsLengthy() bool {
	return k == Hold || k == Roll
}

type Note struct {
	Panel  Panel
	Beat   float64
	Kind   NoteKind
	Length float64 // In beats, for holds and rolls
	Denom  int     // Denominator of the beat fraction, 1 on the beat, 2 half way
}

func (n Note) TailBeat() float64 {
	return n.Beat + n.Length
}
