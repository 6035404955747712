package input

import (
	"testing"

	"git.lost.host/meutraa/beatjudge/internal/game"
	"gitlab.com/gomidi/midi/v2"
)

func TestDecode(t *testing.T) {
	codes := map[uint16]game.Panel{30: 0, 31: 1}
	tests := []struct {
		ev       keyEvent
		expected Event
		ok       bool
	}{
		{keyEvent{Type: evKey, Code: 30, Value: 1}, Event{Panel: 0, Time: 2, Pressed: true}, true},
		{keyEvent{Type: evKey, Code: 31, Value: 0}, Event{Panel: 1, Time: 2}, true},
		{keyEvent{Type: evKey, Code: 31, Value: 2}, Event{}, false},
		{keyEvent{Type: evKey, Code: 40, Value: 1}, Event{}, false},
		{keyEvent{Type: 0x04, Code: 30, Value: 1}, Event{}, false},
	}
	for _, test := range tests {
		e, ok := decode(test.ev, codes, 2)
		if ok != test.ok || e != test.expected {
			t.Errorf("decode(%+v) = %+v %v, want %+v %v", test.ev, e, ok, test.expected, test.ok)
		}
	}
}

func TestKeyState(t *testing.T) {
	k := newKeyState(0.1)
	if e, ok := k.press(1, 1); !ok || e != (Event{Panel: 1, Time: 1, Pressed: true}) {
		t.Errorf("first press = %+v %v", e, ok)
	}
	// key repeat keeps the panel held
	if _, ok := k.press(1, 1.05); ok {
		t.Error("repeat sent a second press")
	}
	if out := k.expire(1.1); len(out) != 0 {
		t.Errorf("released early: %v", out)
	}
	k.press(0, 1.12)
	out := k.expire(1.3)
	if len(out) != 2 || out[0] != (Event{Panel: 0, Time: 1.3}) || out[1] != (Event{Panel: 1, Time: 1.3}) {
		t.Errorf("expire = %v", out)
	}
	if _, ok := k.press(1, 1.4); !ok {
		t.Error("press after release was dropped")
	}
}

func TestNoteEvent(t *testing.T) {
	notes := map[uint8]game.Panel{36: 0, 38: 1}
	if e, ok := noteEvent(midi.NoteOn(9, 36, 100), notes, 3); !ok || e != (Event{Panel: 0, Time: 3, Pressed: true}) {
		t.Errorf("note on = %+v %v", e, ok)
	}
	if e, ok := noteEvent(midi.NoteOff(9, 38), notes, 4); !ok || e != (Event{Panel: 1, Time: 4}) {
		t.Errorf("note off = %+v %v", e, ok)
	}
	// velocity 0 note on is a note off
	if e, ok := noteEvent(midi.NoteOn(9, 38, 0), notes, 5); !ok || e.Pressed {
		t.Errorf("zero velocity note on = %+v %v", e, ok)
	}
	if _, ok := noteEvent(midi.NoteOn(9, 40, 100), notes, 6); ok {
		t.Error("unmapped note was sent")
	}
	if _, ok := noteEvent(midi.ControlChange(0, 7, 100), notes, 7); ok {
		t.Error("control change was sent")
	}
}
