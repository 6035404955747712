// Package score stores played rounds and sums up their judgements.
package score

import (
	"time"

	"git.lost.host/meutraa/beatjudge/internal/game"
	"git.lost.host/meutraa/beatjudge/internal/input"
)

type Scorer interface {
	Init() error
	Deinit()

	// Save the inputs of this performance
	Save(chart *game.Chart, source Source, timelines map[game.Panel]*input.Timeline, rate float64) (int64, error)

	// Load up previous performances of the chart
	Load(chart *game.Chart) ([]History, error)
	LoadSum(sum string) ([]History, error)
	Get(id int64) (History, error)
}

// Source is where a chart was read from, so a stored round can be judged
// again.
type Source struct {
	File       string `json:"file"`
	Difficulty int    `json:"difficulty"`
}

type History struct {
	ID      int64           `json:"id"`
	Sum     string          `json:"sum"`
	Source  Source          `json:"source"`
	Rate    float64         `json:"rate"`
	Created time.Time       `json:"created"`
	Inputs  []InputsCompact `json:"-"`
}

// Timelines rebuilds the recorded panel timelines.
func (h History) Timelines(panels []game.Panel) map[game.Panel]*input.Timeline {
	return uncompactInputs(h.Inputs, panels)
}
