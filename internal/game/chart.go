package game

import (
	"sort"

	"git.lost.host/meutraa/beatjudge/internal/timing"
)

type Chart struct {
	Difficulty Difficulty
	Timing     timing.Data
	Notes      []Note
	NoteCount  int64
	HoldCount  int64
	MineCount  int64
}

// Panels returns every panel of the chart's game mode.
func (c *Chart) Panels() []Panel {
	panels := make([]Panel, c.Difficulty.NKeys)
	for i := range panels {
		panels[i] = Panel(i)
	}
	return panels
}

// SortNotes orders notes by beat, then panel.
func (c *Chart) SortNotes() {
	sort.SliceStable(c.Notes, func(i, j int) bool {
		if c.Notes[i].Beat != c.Notes[j].Beat {
			return c.Notes[i].Beat < c.Notes[j].Beat
		}
		return c.Notes[i].Panel < c.Notes[j].Panel
	})
}
