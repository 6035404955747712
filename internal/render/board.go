package render

import (
	"fmt"

	"git.lost.host/meutraa/beatjudge/internal/game"
	"git.lost.host/meutraa/beatjudge/internal/judge"
	"git.lost.host/meutraa/beatjudge/internal/score"
	"git.lost.host/meutraa/beatjudge/internal/theme"
)

// flashFrames is how long the latest judgement of a panel stays shown.
const flashFrames = 120

// Labels are the counter names in display order.
var Labels = [...]string{
	game.Marvelous.String(),
	game.Perfect.String(),
	game.Great.String(),
	game.Good.String(),
	game.Boo.String(),
	game.Miss.String(),
	game.OK.String(),
	game.NG.String(),
	score.Exploded,
	score.Avoided,
}

// Board shows the judgement counters of a round. Record is meant to be
// subscribed to the judge, both are then driven from the render loop.
type Board struct {
	Renderer Renderer
	Theme    theme.Theme
	Chart    *game.Chart
	Row, Col uint16

	records []judge.Record
	dirty   bool
}

func (b *Board) Record(r judge.Record) {
	b.records = append(b.records, r)
	b.dirty = true

	col := b.Col + 2 + 10*uint16(r.Note.Panel)
	b.Renderer.Fill(b.Row, col, b.Theme.RenderPanel(r.Note.Panel, r.Note.Denom))
	b.Renderer.AddDecoration(col, b.Row+1, b.Theme.RenderJudgement(r.Judgement), flashFrames)
}

// Draw writes the counters when a judgement arrived since the last call.
func (b *Board) Draw() {
	if !b.dirty {
		return
	}
	b.dirty = false

	s := score.Summarize(b.records)
	row := b.Row + 3
	for i, label := range Labels {
		b.Renderer.FillColor(row+uint16(i), b.Col, b.Theme.Color(label), fmt.Sprintf("%10v:  %6v", label, s.Counts[label]))
	}
	row += uint16(len(Labels)) + 1
	b.Renderer.Fill(row, b.Col, fmt.Sprintf("%10v:  %6.2f", "Mean", s.Mean*1000))
	b.Renderer.Fill(row+1, b.Col, fmt.Sprintf("%10v:  %6.2f", "Stdev", s.Stdev*1000))
	if nil != b.Chart {
		b.Renderer.Fill(row+2, b.Col, fmt.Sprintf("%10v:  %6v", "Total", b.Chart.NoteCount))
		b.Renderer.Fill(row+3, b.Col, fmt.Sprintf("%10v:  %6v", "Mines", b.Chart.MineCount))
	}
}

func (b *Board) Summary() score.Summary {
	return score.Summarize(b.records)
}
