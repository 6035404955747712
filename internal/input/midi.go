package input

import (
	"sync"

	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2"
	"go.uber.org/zap"

	"git.lost.host/meutraa/beatjudge/internal/game"
)

// noteEvent maps a note on or note off message to a panel event.
func noteEvent(msg midi.Message, notes map[uint8]game.Panel, now float64) (Event, bool) {
	var ch, key, vel uint8
	pressed := false
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		pressed = true
	case msg.GetNoteEnd(&ch, &key):
	default:
		return Event{}, false
	}
	panel, ok := notes[key]
	if !ok {
		return Event{}, false
	}
	return Event{Panel: panel, Time: now, Pressed: pressed}, true
}

// ListenMIDI sends note events from the named MIDI input port, such as a
// drum pad, until the returned stop function is called.
func ListenMIDI(port string, notes map[uint8]game.Panel, now func() float64, events chan<- Event, log *zap.Logger) (func(), error) {
	in, err := midi.FindInPort(port)
	if nil != err {
		return nil, errors.Wrapf(err, "midi input %q not found", port)
	}
	done := make(chan struct{})
	stop, err := midi.ListenTo(in, func(msg midi.Message, _ int32) {
		if e, ok := noteEvent(msg, notes, now()); ok {
			select {
			case events <- e:
			case <-done:
			}
		}
	}, midi.HandleError(func(err error) {
		log.Warn("midi listener error", zap.String("port", port), zap.Error(err))
	}))
	if nil != err {
		return nil, errors.Wrapf(err, "unable to listen on %q", port)
	}
	log.Info("midi connected", zap.String("port", port))
	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			stop()
		})
	}, nil
}
