package input

import (
	"context"
	"sort"
	"time"

	"git.lost.host/meutraa/beatjudge/internal/game"
	"github.com/eiannone/keyboard"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrQuit is returned by Keyboard.Run when escape is pressed.
var ErrQuit = errors.New("quit")

// keyState turns terminal key presses, which have no release, into
// presses and releases. A panel is released once no key repeat arrived
// for hold seconds.
type keyState struct {
	hold float64
	last map[game.Panel]float64
}

func newKeyState(hold float64) *keyState {
	return &keyState{hold: hold, last: map[game.Panel]float64{}}
}

func (k *keyState) press(panel game.Panel, now float64) (Event, bool) {
	_, held := k.last[panel]
	k.last[panel] = now
	if held {
		return Event{}, false
	}
	return Event{Panel: panel, Time: now, Pressed: true}, true
}

// expire releases every panel not repeated since now-hold, in panel order.
func (k *keyState) expire(now float64) []Event {
	var out []Event
	for panel, t := range k.last {
		if now-t >= k.hold {
			out = append(out, Event{Panel: panel, Time: now})
			delete(k.last, panel)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Panel < out[j].Panel })
	return out
}

// Keyboard reads panel presses from the terminal.
type Keyboard struct {
	Keys []rune // Keys[i] is the key of panel i
	Hold time.Duration
	Now  func() float64
	Log  *zap.Logger
}

func (kb *Keyboard) panel(r rune) (game.Panel, bool) {
	for i, c := range kb.Keys {
		if r == c {
			return game.Panel(i), true
		}
	}
	return 0, false
}

// Run sends events until ctx is done or escape is pressed, in which case
// it returns ErrQuit.
func (kb *Keyboard) Run(ctx context.Context, events chan<- Event) error {
	keys, err := keyboard.GetKeys(128)
	if nil != err {
		return errors.Wrap(err, "unable to open keyboard")
	}
	defer func() {
		if err := keyboard.Close(); nil != err {
			kb.Log.Warn("unable to close keyboard", zap.Error(err))
		}
	}()

	state := newKeyState(kb.Hold.Seconds())
	tick := time.NewTicker(time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			for _, e := range state.expire(kb.Now()) {
				if !send(ctx, events, e) {
					return nil
				}
			}
		case key := <-keys:
			if nil != key.Err {
				return errors.Wrap(key.Err, "keyboard")
			}
			if key.Key == keyboard.KeyEsc {
				return ErrQuit
			}
			panel, ok := kb.panel(key.Rune)
			if !ok {
				continue
			}
			if e, ok := state.press(panel, kb.Now()); ok && !send(ctx, events, e) {
				return nil
			}
		}
	}
}

// send reports false when ctx ended before e could be sent.
func send(ctx context.Context, events chan<- Event, e Event) bool {
	select {
	case events <- e:
		return true
	case <-ctx.Done():
		return false
	}
}
