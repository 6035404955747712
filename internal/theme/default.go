package theme

import (
	"fmt"
	"image/color"

	"git.lost.host/meutraa/beatjudge/internal/game"
)

type DefaultTheme struct {
}

func (t *DefaultTheme) Color(label string) color.RGBA {
	c, ok := labelColors[label]
	if !ok {
		return white
	}
	return c
}

func (t *DefaultTheme) RenderJudgement(j game.Judgement) string {
	var label string
	switch j := j.(type) {
	case game.TapJudgement:
		label = j.Class.String()
	case game.TailJudgement:
		label = j.Class.String()
	case game.MineJudgement:
		label = mineSym
		if j.Exploded {
			label = explodedSym
		}
	default:
		return ""
	}
	return paint(t.Color(label), fmt.Sprintf("%-9v", label))
}

func (t *DefaultTheme) RenderPanel(panel game.Panel, denom int) string {
	sym := syms[int(panel)%len(syms)]
	return paint(getNoteColor(denom), sym)
}

func paint(c color.RGBA, s string) string {
	return fmt.Sprintf("\033[38;2;%v;%v;%vm%v\033[0m", c.R, c.G, c.B, s)
}

const (
	mineSym     = "Avoided"
	explodedSym = "Exploded"
)

var (
	white = color.RGBA{255, 255, 255, 255}
	syms  = [...]string{"⬤", "⬤", "⬤", "⬤"}

	labelColors = map[string]color.RGBA{
		"Marvelous": {173, 236, 236, 255},
		"Perfect":   {236, 195, 0, 255},
		"Great":     {0, 236, 128, 255},
		"Good":      {0, 118, 236, 255},
		"Boo":       {106, 0, 236, 255},
		"Miss":      {236, 30, 0, 255},
		"OK":        {0, 236, 128, 255},
		"NG":        {236, 30, 0, 255},
		explodedSym: {236, 128, 0, 255},
		mineSym:     {106, 106, 106, 255},
	}
	noteColors = map[int]color.RGBA{
		1:  {236, 30, 0, 255},    // 1/4 red
		2:  {0, 118, 236, 255},   // 1/8 blue
		3:  {106, 0, 236, 255},   // 1/12 purple
		4:  {236, 195, 0, 255},   // 1/16 yellow
		6:  {236, 0, 106, 255},   // 1/24 pink
		8:  {236, 128, 0, 255},   // 1/32 orange
		12: {173, 236, 236, 255}, // 1/48 light blue
		16: {0, 236, 128, 255},   // 1/64 green
		48: {110, 147, 89, 255},  // 1/192 olive
		-1: {106, 106, 106, 255}, // other grey
	}
)

func getNoteColor(d int) color.RGBA {
	col, ok := noteColors[d]
	if !ok {
		return noteColors[-1]
	}
	return col
}
