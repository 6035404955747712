package theme

import (
	"image/color"

	"git.lost.host/meutraa/beatjudge/internal/game"
)

type Theme interface {
	// Color of a counter label, a judgement class name or a mine outcome.
	Color(label string) color.RGBA
	RenderJudgement(j game.Judgement) string
	// RenderPanel marks a panel whose last judged note had the given
	// beat denominator.
	RenderPanel(panel game.Panel, denom int) string
}
