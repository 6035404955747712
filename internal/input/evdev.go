package input

import (
	"encoding/binary"
	"os"
	"sync"
	"syscall"

	"git.lost.host/meutraa/beatjudge/internal/game"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// EV_KEY from linux/input-event-codes.h
const evKey = 0x01

type keyEvent struct {
	Time  syscall.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

// decode turns a raw key event into a panel event. Repeats (value 2) and
// unmapped codes are dropped.
func decode(ev keyEvent, codes map[uint16]game.Panel, now float64) (Event, bool) {
	if ev.Type != evKey || ev.Value > 1 {
		return Event{}, false
	}
	panel, ok := codes[ev.Code]
	if !ok {
		return Event{}, false
	}
	return Event{Panel: panel, Time: now, Pressed: ev.Value == 1}, true
}

// ReadEvdev reads key events from an evdev device such as
// /dev/input/event3 until it fails or the returned stop function is
// called. codes maps key codes to panels, and events are stamped with
// now() since the kernel clock is not the track clock.
func ReadEvdev(device string, codes map[uint16]game.Panel, now func() float64, events chan<- Event, log *zap.Logger) (func(), error) {
	file, err := os.Open(device)
	if nil != err {
		return nil, errors.Wrap(err, "unable to open input device")
	}
	done := make(chan struct{})
	go func() {
		defer file.Close()

		var ev keyEvent
		for {
			err := binary.Read(file, binary.LittleEndian, &ev)
			if nil != err {
				select {
				case <-done:
				default:
					log.Warn("unable to read keyboard input", zap.String("device", device), zap.Error(err))
				}
				return
			}
			if e, ok := decode(ev, codes, now()); ok {
				select {
				case events <- e:
				case <-done:
					return
				}
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			file.Close()
		})
	}, nil
}
