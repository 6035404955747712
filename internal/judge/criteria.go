package judge

import (
	"math"

	"git.lost.host/meutraa/beatjudge/internal/game"
	"github.com/pkg/errors"
)

var ErrInvalidCriteria = errors.New("invalid judge criteria")

// Criteria are the timing windows in seconds. Tap windows nest, each one at
// least as wide as the one before it.
type Criteria struct {
	Marvelous float64 `yaml:"marvelous" json:"marvelous"`
	Perfect   float64 `yaml:"perfect" json:"perfect"`
	Great     float64 `yaml:"great" json:"great"`
	Good      float64 `yaml:"good" json:"good"`
	Boo       float64 `yaml:"boo" json:"boo"`
	// Mine is how long before a mine a held or pressed panel sets it off.
	Mine float64 `yaml:"mine" json:"mine"`
	// HoldRecover is how long a hold may be let go of. 0 fails a hold on
	// the first release.
	HoldRecover float64 `yaml:"hold_recover" json:"hold_recover"`
	// RollRecover is the longest gap allowed between roll presses.
	RollRecover float64 `yaml:"roll_recover" json:"roll_recover"`
}

func DefaultCriteria() Criteria {
	return Criteria{
		Marvelous:   0.0225,
		Perfect:     0.045,
		Great:       0.090,
		Good:        0.135,
		Boo:         0.180,
		Mine:        0.090,
		HoldRecover: 0.250,
		RollRecover: 0.500,
	}
}

func (c Criteria) windows() [game.Miss]float64 {
	return [game.Miss]float64{c.Marvelous, c.Perfect, c.Great, c.Good, c.Boo}
}

func (c Criteria) Validate() error {
	last := 0.0
	for i, w := range c.windows() {
		if math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
			return errors.Wrapf(ErrInvalidCriteria, "%v window %v", game.TapClass(i), w)
		}
		if w < last {
			return errors.Wrapf(ErrInvalidCriteria, "%v window %v is narrower than %v", game.TapClass(i), w, last)
		}
		last = w
	}
	for name, v := range map[string]float64{"mine": c.Mine, "hold recover": c.HoldRecover} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return errors.Wrapf(ErrInvalidCriteria, "%s %v", name, v)
		}
	}
	if math.IsNaN(c.RollRecover) || math.IsInf(c.RollRecover, 0) || c.RollRecover <= 0 {
		return errors.Wrapf(ErrInvalidCriteria, "roll recover %v", c.RollRecover)
	}
	return nil
}

// Classify returns the tightest window containing a timing error of the
// given size, and false outside every window.
func (c Criteria) Classify(distance float64) (game.TapClass, bool) {
	for i, w := range c.windows() {
		if distance <= w {
			return game.TapClass(i), true
		}
	}
	return game.Miss, false
}
